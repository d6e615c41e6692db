// SPDX-License-Identifier: MPL-2.0

package formula

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/cellarhq/cellar/pkg/types"
)

const (
	// StepFetch materializes the source into the work dir.
	StepFetch StepKind = "fetch"
	// StepSetEnv adds variables to the build environment.
	StepSetEnv StepKind = "set-env"
	// StepRun runs a shell command in the source dir.
	StepRun StepKind = "run-command"
	// StepCopyArtifact copies a build output into the prefix.
	StepCopyArtifact StepKind = "copy-artifact"
	// StepVerify runs the test step against the installed files.
	StepVerify StepKind = "verify"
	// StepInvalid marks a step that does not declare exactly one action.
	StepInvalid StepKind = ""
)

type (
	// StepKind tags an entry of a Plan.
	StepKind string

	// Step is one install step as written in a formula. Exactly one of
	// Run, SetEnv or Artifact is set.
	Step struct {
		// Run is a shell command executed in the source dir (or Dir below it).
		Run string `json:"run,omitempty"`
		// Dir is an optional source-relative directory for Run.
		Dir types.RelativePath `json:"dir,omitempty"`
		// SetEnv adds build environment variables for the following steps.
		SetEnv map[string]string `json:"setenv,omitempty"`
		// Artifact is a source-relative path produced by the build.
		Artifact types.RelativePath `json:"artifact,omitempty"`
		// As is the prefix-relative install name; defaults to the artifact
		// base name.
		As types.RelativePath `json:"as,omitempty"`
	}

	// PlannedStep is one entry of a Plan.
	PlannedStep struct {
		Kind StepKind
		// Step is the formula step for set-env, run-command and
		// copy-artifact entries; zero for fetch and verify.
		Step Step
		// Description is a one-line human summary.
		Description string
	}

	// Plan is the typed step sequence a formula expands to:
	// fetch, set-env*, run-command*, copy-artifact+, verify.
	Plan []PlannedStep
)

// String returns the string representation of the StepKind.
func (k StepKind) String() string { return string(k) }

// Kind returns the step's kind, or StepInvalid when zero or several
// actions are declared.
func (s Step) Kind() StepKind {
	var kinds []StepKind
	if strings.TrimSpace(s.Run) != "" {
		kinds = append(kinds, StepRun)
	}
	if len(s.SetEnv) > 0 {
		kinds = append(kinds, StepSetEnv)
	}
	if s.Artifact != "" {
		kinds = append(kinds, StepCopyArtifact)
	}
	if len(kinds) != 1 {
		return StepInvalid
	}
	return kinds[0]
}

// InstallName returns the prefix-relative destination of an artifact step.
func (s Step) InstallName() types.RelativePath {
	if s.As != "" {
		return s.As
	}
	return types.RelativePath(path.Base(string(s.Artifact)))
}

// String renders the step the way it is shown in logs and errors. For a
// run step that is the command itself.
func (s Step) String() string {
	switch s.Kind() {
	case StepRun:
		return s.Run
	case StepSetEnv:
		keys := slices.Sorted(maps.Keys(s.SetEnv))
		return "setenv " + strings.Join(keys, " ")
	case StepCopyArtifact:
		return fmt.Sprintf("%s => %s", s.Artifact, s.InstallName())
	default:
		return "<invalid step>"
	}
}

// Plan expands the formula into its typed step sequence.
func (f *Formula) Plan() Plan {
	plan := Plan{{
		Kind:        StepFetch,
		Description: fmt.Sprintf("fetch %s (%s)", f.SourceURL(), f.Using),
	}}
	if f.Revision != "" {
		plan[0].Description += " at " + f.Revision
	}
	for _, s := range f.Install {
		plan = append(plan, PlannedStep{Kind: s.Kind(), Step: s, Description: s.String()})
	}
	verify := "trivial check"
	if f.HasCustomTest() {
		verify = f.Test.Run
	}
	return append(plan, PlannedStep{Kind: StepVerify, Description: verify})
}

// Count returns the number of steps of the given kind.
func (p Plan) Count(kind StepKind) int {
	n := 0
	for _, s := range p {
		if s.Kind == kind {
			n++
		}
	}
	return n
}
