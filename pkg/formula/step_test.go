// SPDX-License-Identifier: MPL-2.0

package formula

import (
	"testing"

	"github.com/cellarhq/cellar/pkg/types"
)

func TestStepKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		step Step
		want StepKind
	}{
		{"run", Step{Run: "make build"}, StepRun},
		{"setenv", Step{SetEnv: map[string]string{"A": "1"}}, StepSetEnv},
		{"artifact", Step{Artifact: "bin/x"}, StepCopyArtifact},
		{"blank run", Step{Run: "   "}, StepInvalid},
		{"empty", Step{}, StepInvalid},
		{"two actions", Step{Run: "make", Artifact: "bin/x"}, StepInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.step.Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStepInstallName(t *testing.T) {
	t.Parallel()

	if got := (Step{Artifact: "bin/example1"}).InstallName(); got != types.RelativePath("example1") {
		t.Errorf("InstallName() = %q, want example1", got)
	}
	if got := (Step{Artifact: "bin/example1", As: "bin/ex"}).InstallName(); got != "bin/ex" {
		t.Errorf("InstallName() = %q, want bin/ex", got)
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()

	f := &Formula{
		Name:     "example1",
		URL:      "https://example.com/x.git",
		Using:    SourceGit,
		Revision: "r1",
		Install: []Step{
			{SetEnv: map[string]string{"GOPATH": "$BUILDPATH"}},
			{Run: "make build"},
			{Artifact: "bin/example1", As: "example1"},
		},
	}

	plan := f.Plan()
	want := []StepKind{StepFetch, StepSetEnv, StepRun, StepCopyArtifact, StepVerify}
	if len(plan) != len(want) {
		t.Fatalf("len(Plan()) = %d, want %d", len(plan), len(want))
	}
	for i, k := range want {
		if plan[i].Kind != k {
			t.Errorf("Plan()[%d].Kind = %q, want %q", i, plan[i].Kind, k)
		}
	}
	if plan[0].Description != "fetch https://example.com/x.git (git) at r1" {
		t.Errorf("fetch description = %q", plan[0].Description)
	}
	if plan[2].Description != "make build" {
		t.Errorf("run description = %q", plan[2].Description)
	}
	if plan[4].Description != "trivial check" {
		t.Errorf("verify description = %q", plan[4].Description)
	}
	if plan.Count(StepCopyArtifact) != 1 {
		t.Errorf("Count(copy-artifact) = %d, want 1", plan.Count(StepCopyArtifact))
	}
	if len(f.BuildSteps()) != 2 || len(f.Artifacts()) != 1 {
		t.Errorf("BuildSteps()/Artifacts() = %d/%d, want 2/1", len(f.BuildSteps()), len(f.Artifacts()))
	}
}
