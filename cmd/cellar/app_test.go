// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/fang"

	"github.com/cellarhq/cellar/internal/builder"
	"github.com/cellarhq/cellar/internal/config"
	"github.com/cellarhq/cellar/internal/installer"
	"github.com/cellarhq/cellar/internal/issue"
	"github.com/cellarhq/cellar/internal/pipeline"
	"github.com/cellarhq/cellar/internal/resolver"
	"github.com/cellarhq/cellar/pkg/formula"
	"github.com/cellarhq/cellar/pkg/types"
)

const testFormula = `name:    "example1"
version: "1.2.0"
url:     "./example1-src"
using:   "local"
depends_on: [
	{name: "make"},
	{name: "less", kind: "runtime"},
]
install: [
	{run: "make build"},
	{artifact: "bin/example1"},
]
test: run: "example1 --version"
`

type (
	fakeConfig struct {
		cfg *config.Config
		err error
	}

	spyRunner struct {
		path   string
		opts   pipeline.Options
		result *pipeline.Result
		err    error
	}

	fakeInstaller struct {
		outcome *installer.TestOutcome
		err     error
	}

	fakeChecker struct {
		statuses map[string]resolver.Status
	}
)

func (f *fakeConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := *f.cfg
	return &c, nil
}

func (s *spyRunner) Run(_ context.Context, path string, opts pipeline.Options) (*pipeline.Result, error) {
	s.path = path
	s.opts = opts
	return s.result, s.err
}

func (f *fakeInstaller) Verify(context.Context, *formula.Formula, string) (*installer.TestOutcome, error) {
	return f.outcome, f.err
}

func (f *fakeInstaller) Uninstall(name, _ string) (*installer.Receipt, error) {
	return &installer.Receipt{Name: name, Files: []string{"example1"}}, f.err
}

func (f *fakeChecker) Check(_ context.Context, deps []formula.Dependency) (*resolver.ResolvedDeps, error) {
	out := &resolver.ResolvedDeps{}
	for _, d := range deps {
		st, ok := f.statuses[d.Name]
		if !ok {
			st = resolver.Status{Problem: "not found in PATH"}
		}
		st.Dependency = d
		out.Statuses = append(out.Statuses, st)
	}
	return out, nil
}

// newTestApp returns an App whose working directory holds Formula/example1.cue.
func newTestApp(t *testing.T, deps Dependencies) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Formula"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Formula", "example1.cue"), []byte(testFormula), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	deps.Stdout, deps.Stderr = stdout, stderr
	deps.SetLogger = func(*slog.Logger) {}
	deps.Getwd = func() (string, error) { return dir, nil }
	if deps.Config == nil {
		deps.Config = &fakeConfig{cfg: &config.Config{
			Prefix:         filepath.Join(dir, "prefix"),
			WorkRoot:       filepath.Join(dir, "work"),
			DefaultRuntime: config.RuntimeVirtual,
			Timeout:        time.Minute,
			UI:             config.UIConfig{ColorScheme: config.ColorSchemeAuto},
		}}
	}
	return NewApp(deps), stdout, stderr
}

func execute(app *App, args ...string) error {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)
	return root.ExecuteContext(context.Background())
}

func successfulRun() *pipeline.Result {
	return &pipeline.Result{
		RunID:   "run-1",
		Formula: &formula.Formula{Name: "example1", Version: "1.2.0"},
		Stage:   pipeline.StageVerified,
		Deps:    &resolver.ResolvedDeps{Warnings: []string{"less: not found in PATH"}},
		Install: &installer.InstallResult{
			Formula: "example1",
			Success: true,
			Steps: []builder.StepResult{
				{Kind: formula.StepFetch, Command: "./example1-src"},
				{Kind: formula.StepRun, Command: "make build"},
				{Kind: formula.StepCopyArtifact, Command: "bin/example1 => example1"},
				{Kind: formula.StepVerify, Command: "example1 --version"},
			},
			Test: &installer.TestOutcome{Command: "example1 --version", Passed: true},
		},
	}
}

func TestInstallCommand_Success(t *testing.T) {
	t.Parallel()

	runner := &spyRunner{result: successfulRun()}
	app, stdout, stderr := newTestApp(t, Dependencies{Runner: runner})

	err := execute(app, "install", "example1", "--prefix", "/opt/tools", "--timeout", "5s", "--head", "--runtime", "native")
	if err != nil {
		t.Fatalf("install: %v", err)
	}

	if filepath.Base(runner.path) != "example1.cue" {
		t.Errorf("runner path = %q, want Formula/example1.cue", runner.path)
	}
	want := pipeline.Options{
		Prefix:         "/opt/tools",
		WorkRoot:       runner.opts.WorkRoot,
		Timeout:        5 * time.Second,
		Head:           true,
		DefaultRuntime: formula.RuntimeNative,
	}
	if runner.opts != want {
		t.Errorf("options = %+v, want %+v", runner.opts, want)
	}

	out := stdout.String()
	for _, s := range []string{"example1 1.2.0", "run-1", "make build", "copy-artifact", "Installed", "/opt/tools"} {
		if !strings.Contains(out, s) {
			t.Errorf("stdout missing %q:\n%s", s, out)
		}
	}
	if !strings.Contains(stderr.String(), "less: not found in PATH") {
		t.Errorf("stderr should warn about the runtime dependency:\n%s", stderr.String())
	}
}

func TestInstallCommand_ConfigDefaults(t *testing.T) {
	t.Parallel()

	runner := &spyRunner{result: successfulRun()}
	app, _, _ := newTestApp(t, Dependencies{Runner: runner})

	if err := execute(app, "install", "example1", "--keep-workdir"); err != nil {
		t.Fatalf("install: %v", err)
	}
	if runner.opts.Timeout != time.Minute {
		t.Errorf("Timeout = %v, want the configured 1m", runner.opts.Timeout)
	}
	if runner.opts.DefaultRuntime != formula.RuntimeVirtual {
		t.Errorf("DefaultRuntime = %q, want the configured virtual", runner.opts.DefaultRuntime)
	}
	if !runner.opts.KeepWorkDir {
		t.Error("KeepWorkDir should be set by --keep-workdir")
	}
}

func TestInstallCommand_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode types.ExitCode
		wantOut  string
	}{
		{
			name: "missing dependency",
			err: &pipeline.StageError{Stage: pipeline.StageDependenciesResolved, Err: &resolver.UnresolvedDependencyError{
				Formula: "example1",
				Missing: []resolver.Status{{Dependency: formula.Dependency{Name: "make"}, Problem: "not found in PATH"}},
			}},
			wantCode: ExitDependency,
		},
		{
			name:     "build step",
			err:      &pipeline.StageError{Stage: pipeline.StageBuilt, Err: &builder.BuildStepFailedError{Step: "make build", ExitCode: 2}},
			wantCode: ExitBuild,
			wantOut:  "(exit 2)",
		},
		{
			name:     "missing artifact",
			err:      &pipeline.StageError{Stage: pipeline.StageInstalled, Err: &installer.MissingArtifactError{Formula: "example1", Missing: []string{"bin/example1"}}},
			wantCode: ExitInstall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := &pipeline.Result{
				RunID:   "run-2",
				Formula: &formula.Formula{Name: "example1"},
				Stage:   pipeline.StageFailed,
				Build: &builder.BuildOutcome{Steps: []builder.StepResult{
					{Kind: formula.StepFetch, Command: "./example1-src"},
					{Kind: formula.StepRun, Command: "make build", ExitCode: 2},
				}},
				Err: tt.err,
			}
			app, stdout, _ := newTestApp(t, Dependencies{Runner: &spyRunner{result: res, err: tt.err}})

			err := execute(app, "install", "example1")
			if got := exitCodeOf(err); got != tt.wantCode {
				t.Errorf("exit code = %d, want %d (err: %v)", got, tt.wantCode, err)
			}
			if tt.wantOut != "" && !strings.Contains(stdout.String(), tt.wantOut) {
				t.Errorf("stdout missing %q:\n%s", tt.wantOut, stdout.String())
			}
			if strings.Contains(stdout.String(), "Installed") {
				t.Error("a failed install must not report success")
			}
		})
	}
}

func TestInstallCommand_InvalidInput(t *testing.T) {
	t.Parallel()

	t.Run("runtime", func(t *testing.T) {
		t.Parallel()
		runner := &spyRunner{result: successfulRun()}
		app, _, _ := newTestApp(t, Dependencies{Runner: runner})

		err := execute(app, "install", "example1", "--runtime", "container")
		if got := exitCodeOf(err); got != ExitUsage {
			t.Errorf("exit code = %d, want %d", got, ExitUsage)
		}
		if runner.path != "" {
			t.Error("runner must not be invoked")
		}
	})

	t.Run("unknown formula", func(t *testing.T) {
		t.Parallel()
		runner := &spyRunner{result: successfulRun()}
		app, _, _ := newTestApp(t, Dependencies{Runner: runner})

		err := execute(app, "install", "nope")
		if got := exitCodeOf(err); got != ExitUsage {
			t.Errorf("exit code = %d, want %d", got, ExitUsage)
		}
		var ae *issue.ActionableError
		if !errors.As(err, &ae) || ae.Issue != issue.FormulaNotFoundId {
			t.Errorf("error = %v, want formula-not-found ActionableError", err)
		}
	})

	t.Run("config", func(t *testing.T) {
		t.Parallel()
		cfgErr := issue.NewErrorContext().WithOperation("load configuration").WithIssue(issue.ConfigLoadFailedId).Wrap(errors.New("bad timeout")).BuildError()
		app, _, _ := newTestApp(t, Dependencies{Config: &fakeConfig{err: cfgErr}})

		if got := exitCodeOf(execute(app, "install", "example1")); got != ExitUsage {
			t.Errorf("exit code = %d, want %d", got, ExitUsage)
		}
	})
}

func TestTestCommand(t *testing.T) {
	t.Parallel()

	t.Run("passes", func(t *testing.T) {
		t.Parallel()
		inst := &fakeInstaller{outcome: &installer.TestOutcome{Command: "example1 --version", Passed: true}}
		app, stdout, _ := newTestApp(t, Dependencies{Installer: inst})

		if err := execute(app, "test", "example1"); err != nil {
			t.Fatalf("test: %v", err)
		}
		if !strings.Contains(stdout.String(), "test passed") {
			t.Errorf("stdout = %q", stdout.String())
		}
	})

	t.Run("fails with exit 7", func(t *testing.T) {
		t.Parallel()
		failure := &installer.TestStepFailedError{Command: "example1 --version", ExitCode: 4}
		inst := &fakeInstaller{
			outcome: &installer.TestOutcome{Command: "example1 --version", ExitCode: 4, Err: failure},
			err:     failure,
		}
		app, stdout, _ := newTestApp(t, Dependencies{Installer: inst})

		err := execute(app, "test", "example1")
		if got := exitCodeOf(err); got != ExitTest {
			t.Errorf("exit code = %d, want %d", got, ExitTest)
		}
		if !strings.Contains(stdout.String(), "test failed") {
			t.Errorf("stdout = %q", stdout.String())
		}
	})

	t.Run("not installed", func(t *testing.T) {
		t.Parallel()
		app, _, _ := newTestApp(t, Dependencies{})

		err := execute(app, "test", "example1")
		if !errors.Is(err, installer.ErrNotInstalled) {
			t.Errorf("error = %v, want ErrNotInstalled", err)
		}
		if got := exitCodeOf(err); got != ExitGeneric {
			t.Errorf("exit code = %d, want %d", got, ExitGeneric)
		}
	})
}

func TestDepsCommand(t *testing.T) {
	t.Parallel()

	t.Run("satisfied", func(t *testing.T) {
		t.Parallel()
		checker := &fakeChecker{statuses: map[string]resolver.Status{
			"make": {Path: "/usr/bin/make"},
		}}
		app, stdout, _ := newTestApp(t, Dependencies{Checker: checker})

		if err := execute(app, "deps", "example1"); err != nil {
			t.Fatalf("deps: %v", err)
		}
		out := stdout.String()
		if !strings.Contains(out, "/usr/bin/make") || !strings.Contains(out, "not found in PATH") {
			t.Errorf("stdout should list both dependencies:\n%s", out)
		}
	})

	t.Run("missing build dependency", func(t *testing.T) {
		t.Parallel()
		app, _, _ := newTestApp(t, Dependencies{Checker: &fakeChecker{}})

		err := execute(app, "deps", "example1")
		if got := exitCodeOf(err); got != ExitDependency {
			t.Errorf("exit code = %d, want %d", got, ExitDependency)
		}
		var unresolved *resolver.UnresolvedDependencyError
		if !errors.As(err, &unresolved) || len(unresolved.Missing) != 1 || unresolved.Missing[0].Dependency.Name != "make" {
			t.Errorf("error = %v, want only make missing", err)
		}
	})
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	app, stdout, _ := newTestApp(t, Dependencies{})
	if err := execute(app, "validate", "example1"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	out := stdout.String()
	for _, s := range []string{"fetch", "run-command", "make build", "copy-artifact", "verify", "is valid"} {
		if !strings.Contains(out, s) {
			t.Errorf("stdout missing %q:\n%s", s, out)
		}
	}

	bad := filepath.Join(t.TempDir(), "bad.cue")
	if err := os.WriteFile(bad, []byte(`desc: "no name"`), 0o644); err != nil {
		t.Fatal(err)
	}
	err := execute(app, "validate", bad)
	if got := exitCodeOf(err); got != ExitUsage {
		t.Errorf("invalid formula exit code = %d, want %d", got, ExitUsage)
	}
	if !errors.Is(err, formula.ErrLoad) {
		t.Errorf("error = %v, want formula.ErrLoad", err)
	}
}

func TestListAndUninstall(t *testing.T) {
	t.Parallel()

	app, stdout, _ := newTestApp(t, Dependencies{})
	if err := execute(app, "list"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(stdout.String(), "No formulas installed") {
		t.Errorf("stdout = %q", stdout.String())
	}

	err := execute(app, "uninstall", "example1")
	if !errors.Is(err, installer.ErrNotInstalled) {
		t.Errorf("uninstall error = %v, want ErrNotInstalled", err)
	}

	app, stdout, _ = newTestApp(t, Dependencies{Installer: &fakeInstaller{}})
	if err := execute(app, "uninstall", "example1"); err != nil {
		t.Fatalf("uninstall: %v", err)
	}
	if !strings.Contains(stdout.String(), "Uninstalled") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestSearchCommand(t *testing.T) {
	t.Parallel()

	app, stdout, _ := newTestApp(t, Dependencies{})
	if err := execute(app, "search", "example"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(stdout.String(), "example1") {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	if err := execute(app, "search", "zzz"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(stdout.String(), "No formulas found") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestInfoCommand_Raw(t *testing.T) {
	t.Parallel()

	app, stdout, _ := newTestApp(t, Dependencies{})
	if err := execute(app, "info", "example1", "--raw"); err != nil {
		t.Fatalf("info: %v", err)
	}
	out := stdout.String()
	for _, s := range []string{"# example1 1.2.0", "## Dependencies", "`make` (build)", "Not installed"} {
		if !strings.Contains(out, s) {
			t.Errorf("stdout missing %q:\n%s", s, out)
		}
	}
}

func TestFormulaMarkdown_Installed(t *testing.T) {
	t.Parallel()

	f := &formula.Formula{Name: "example1", URL: "https://example.com/e.git", Using: formula.SourceGit, Revision: "v1.2.0"}
	receipt := &installer.Receipt{
		Name:        "example1",
		Commit:      "0123abc",
		InstalledAt: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
		Files:       []string{"bin/example1"},
	}
	md := formulaMarkdown(f, receipt, "/opt")
	for _, s := range []string{"revision: `v1.2.0`", "Installed in `/opt`", "`0123abc`", "- `bin/example1`"} {
		if !strings.Contains(md, s) {
			t.Errorf("markdown missing %q:\n%s", s, md)
		}
	}
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t, Dependencies{})
	var buf bytes.Buffer

	app.renderError(&buf, fang.Styles{}, &ExitError{Code: ExitTest})
	if buf.Len() != 0 {
		t.Errorf("reported ExitError should render nothing, got %q", buf.String())
	}

	err := commandError("install formula", "example1",
		&pipeline.StageError{Stage: pipeline.StageBuilt, Err: &builder.BuildStepFailedError{Step: "make build", ExitCode: 2}})
	app.renderError(&buf, fang.Styles{}, err)
	out := buf.String()
	for _, s := range []string{"Error:", "make build", "--keep-workdir"} {
		if !strings.Contains(out, s) {
			t.Errorf("rendered error missing %q:\n%s", s, out)
		}
	}
}
