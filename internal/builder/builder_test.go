// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cellarhq/cellar/internal/runtime"
	"github.com/cellarhq/cellar/internal/source"
	"github.com/cellarhq/cellar/internal/testutil"
	"github.com/cellarhq/cellar/pkg/formula"
)

// fakeMake builds bin/example1, or exits with $FAKE_MAKE_EXIT when set.
const fakeMake = `
if [ -n "$FAKE_MAKE_EXIT" ]; then
	echo "make: *** [build] Error $FAKE_MAKE_EXIT" >&2
	exit "$FAKE_MAKE_EXIT"
fi
mkdir -p bin
printf '#!/bin/sh\necho example1\n' > bin/example1
chmod +x bin/example1
echo "GOPATH=$GOPATH" > build.log
`

func newTestBuilder(t *testing.T, extraEnv ...string) *Builder {
	t.Helper()
	_, path := testutil.FakeToolDir(t, testutil.FakeTool{Name: "make", Script: fakeMake})
	environ := append([]string{"PATH=" + path}, extraEnv...)
	return New(WithEnvBuilder(&runtime.DefaultEnvBuilder{Environ: func() []string { return environ }}))
}

func localFormula(t *testing.T, steps ...formula.Step) *formula.Formula {
	t.Helper()
	src := testutil.LocalSource(t, map[string]string{"Makefile": "build:\n\tgo build -o bin/example1 ./cmd/...\n"})
	return &formula.Formula{
		Name:    "example1",
		URL:     src,
		Using:   formula.SourceLocal,
		Runtime: formula.RuntimeNative,
		Stage:   "src/github.com/dathan/go-safely-change-data",
		Env:     map[string]string{"GOPATH": "$BUILDPATH"},
		Install: append(steps, formula.Step{Artifact: "bin/example1", As: "example1"}),
	}
}

func TestExecute_Success(t *testing.T) {
	t.Parallel()
	testutil.SkipIfNoPOSIX(t)

	workDir := t.TempDir()
	f := localFormula(t, formula.Step{Run: "make build"})

	outcome, err := newTestBuilder(t).Execute(t.Context(), f, workDir)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !outcome.Success() {
		t.Fatal("Success() = false")
	}

	wantSource := filepath.Join(workDir, "src", "github.com", "dathan", "go-safely-change-data")
	if outcome.SourceDir != wantSource {
		t.Errorf("SourceDir = %q, want %q", outcome.SourceDir, wantSource)
	}
	if _, err := os.Stat(filepath.Join(wantSource, "bin", "example1")); err != nil {
		t.Errorf("artifact missing after build: %v", err)
	}
	if got := testutil.MustReadFile(t, filepath.Join(wantSource, "build.log")); got != "GOPATH="+workDir+"\n" {
		t.Errorf("build saw %q, want GOPATH set to the work dir", got)
	}
	if len(outcome.Steps) != 2 || outcome.Steps[0].Kind != formula.StepFetch || outcome.Steps[1].Command != "make build" {
		t.Errorf("Steps = %+v", outcome.Steps)
	}
	if got, _ := outcome.Env.Get(runtime.EnvBuildPath); got != workDir {
		t.Errorf("BUILDPATH = %q, want %q", got, workDir)
	}
	if os.Getenv("GOPATH") == workDir {
		t.Error("process GOPATH was modified")
	}
}

func TestExecute_StepFailureStopsBuild(t *testing.T) {
	t.Parallel()
	testutil.SkipIfNoPOSIX(t)

	workDir := t.TempDir()
	f := localFormula(t,
		formula.Step{Run: "make build"},
		formula.Step{Run: "touch later-step-ran"},
	)

	outcome, err := newTestBuilder(t, "FAKE_MAKE_EXIT=2").Execute(t.Context(), f, workDir)

	var stepErr *BuildStepFailedError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Execute() error = %v, want *BuildStepFailedError", err)
	}
	if stepErr.Step != "make build" || stepErr.ExitCode != 2 {
		t.Errorf("BuildStepFailedError = {Step: %q, ExitCode: %d}, want {make build, 2}", stepErr.Step, stepErr.ExitCode)
	}
	if !strings.Contains(stepErr.ErrOutput, "Error 2") {
		t.Errorf("ErrOutput = %q, want captured stderr", stepErr.ErrOutput)
	}
	if !errors.Is(err, ErrBuildStepFailed) {
		t.Error("errors.Is(err, ErrBuildStepFailed) = false")
	}
	if outcome.Success() {
		t.Error("Success() = true after a failed step")
	}
	if _, err := os.Stat(filepath.Join(outcome.SourceDir, "later-step-ran")); !os.IsNotExist(err) {
		t.Error("a step after the failing one was executed")
	}
	if n := len(outcome.Steps); n != 2 {
		t.Errorf("len(Steps) = %d, want 2 (fetch and the failing step)", n)
	}
}

func TestExecute_SetEnvAndDir(t *testing.T) {
	t.Parallel()
	testutil.SkipIfNoPOSIX(t)

	for _, mode := range []formula.RuntimeMode{formula.RuntimeNative, formula.RuntimeVirtual} {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			f := localFormula(t,
				formula.Step{Run: "mkdir -p sub"},
				formula.Step{SetEnv: map[string]string{"OUT": "$BUILDPATH/out.txt"}},
				formula.Step{Run: `pwd > "$OUT"`, Dir: "sub"},
			)
			f.Runtime = mode
			workDir := t.TempDir()

			outcome, err := newTestBuilder(t).Execute(t.Context(), f, workDir)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			got := strings.TrimSpace(testutil.MustReadFile(t, filepath.Join(workDir, "out.txt")))
			if !strings.HasSuffix(got, filepath.Join("go-safely-change-data", "sub")) {
				t.Errorf("step ran in %q, want the sub dir of the source", got)
			}
			if got := outcome.Steps[2]; got.Kind != formula.StepSetEnv || got.Command != "setenv OUT" {
				t.Errorf("set-env step = %+v", got)
			}
		})
	}
}

func TestExecute_FetchFailure(t *testing.T) {
	t.Parallel()

	f := &formula.Formula{
		Name:    "example1",
		URL:     filepath.Join(t.TempDir(), "missing"),
		Using:   formula.SourceLocal,
		Runtime: formula.RuntimeNative,
		Install: []formula.Step{{Run: "make build"}, {Artifact: "bin/example1"}},
	}

	outcome, err := New().Execute(t.Context(), f, t.TempDir())
	if !errors.Is(err, source.ErrSourceFetch) {
		t.Fatalf("Execute() error = %v, want ErrSourceFetch", err)
	}
	if outcome.Success() || len(outcome.Steps) != 1 || outcome.Steps[0].ExitCode != 1 {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestExecute_EnvFailure(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	f := localFormula(t, formula.Step{Run: "touch ran"})
	envErr := errors.New("bad env")

	outcome, err := New(WithEnvBuilder(&runtime.MockEnvBuilder{Err: envErr})).Execute(t.Context(), f, workDir)
	var stepErr *BuildStepFailedError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Execute() error = %v, want *BuildStepFailedError", err)
	}
	if stepErr.Step != "env" || !errors.Is(err, envErr) {
		t.Errorf("error = %+v, want env step wrapping the builder error", stepErr)
	}
	if outcome == nil || outcome.Success() {
		t.Fatalf("outcome = %+v, want a failed partial outcome", outcome)
	}
	if len(outcome.Steps) != 1 || outcome.Steps[0].Kind != formula.StepFetch {
		t.Errorf("Steps = %+v, want only the fetch", outcome.Steps)
	}
	if _, err := os.Stat(filepath.Join(outcome.SourceDir, "ran")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("run step executed after env failure: %v", err)
	}
}

func TestExecute_Timeout(t *testing.T) {
	t.Parallel()
	testutil.SkipIfNoPOSIX(t)

	f := localFormula(t, formula.Step{Run: "sleep 5"})
	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	_, err := newTestBuilder(t).Execute(ctx, f, t.TempDir())
	var stepErr *BuildStepFailedError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Execute() error = %v, want *BuildStepFailedError", err)
	}
	if !stepErr.Timeout {
		t.Errorf("Timeout = false, err = %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Error() = %q", err)
	}
}

func TestBuildStepFailedError_TruncatesOutput(t *testing.T) {
	t.Parallel()

	err := &BuildStepFailedError{Step: "make", ExitCode: 2, Output: strings.Repeat("x", 5000)}
	msg := err.Error()
	if len(msg) > maxErrorOutput+100 {
		t.Errorf("len(Error()) = %d, want output truncated", len(msg))
	}
	if !strings.HasPrefix(msg, `build step "make" exited with code 2`) {
		t.Errorf("Error() = %q", msg[:60])
	}
}
