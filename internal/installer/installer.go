// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cellarhq/cellar/internal/builder"
	"github.com/cellarhq/cellar/internal/runtime"
	"github.com/cellarhq/cellar/pkg/formula"
	"github.com/cellarhq/cellar/pkg/types"
)

const (
	// EnvPrefix names the install prefix in the test step environment.
	EnvPrefix = "PREFIX"

	// defaultTestCommand describes the trivial check used when a formula
	// declares no test.
	defaultTestCommand = "(default: trivial success)"
)

type (
	// InstallResult is the outcome of one install. It is not modified
	// after Install returns.
	InstallResult struct {
		Formula string
		// Success is true when every artifact was placed and the receipt
		// written. A failed test does not clear it.
		Success bool
		// Steps holds the build steps followed by the copy and verify steps.
		Steps []builder.StepResult
		// InstalledPaths are absolute paths of the files placed in the prefix.
		InstalledPaths []string
		ReceiptPath    string
		Test           *TestOutcome
		// Warnings are non-fatal problems, such as a failed test step.
		Warnings []error
	}

	// TestOutcome is the result of a verify step.
	TestOutcome struct {
		Command string
		// Default is set when the formula declares no test; it always passes.
		Default   bool
		Passed    bool
		ExitCode  types.ExitCode
		Output    string
		ErrOutput string
		Duration  time.Duration
		// Err is a *TestStepFailedError when Passed is false.
		Err error
	}

	// Installer places build artifacts into a prefix and verifies them.
	Installer struct {
		now      func() time.Time
		runtimes *runtime.Registry
		getenv   func(string) string
		environ  func() []string
		stdout   io.Writer
		stderr   io.Writer
	}

	// Option configures an Installer.
	Option func(*Installer)

	// InstallOption configures a single Install call.
	InstallOption func(*installOptions)

	installOptions struct {
		runID string
	}
)

// WithClock overrides the clock used for receipt timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Installer) { i.now = now }
}

// WithRegistry overrides the runtimes used for the test step.
func WithRegistry(r *runtime.Registry) Option {
	return func(i *Installer) { i.runtimes = r }
}

// WithGetenv overrides the lookup of XDG_RUNTIME_DIR for lock files.
func WithGetenv(getenv func(string) string) Option {
	return func(i *Installer) { i.getenv = getenv }
}

// WithEnviron overrides the host environment the test step inherits.
func WithEnviron(environ func() []string) Option {
	return func(i *Installer) { i.environ = environ }
}

// WithStreams streams test step output while it is captured.
func WithStreams(stdout, stderr io.Writer) Option {
	return func(i *Installer) {
		i.stdout = stdout
		i.stderr = stderr
	}
}

// WithRunID records the pipeline run id in the receipt.
func WithRunID(id string) InstallOption {
	return func(o *installOptions) { o.runID = id }
}

// New creates an Installer.
func New(opts ...Option) *Installer {
	i := &Installer{
		now:      time.Now,
		runtimes: runtime.NewDefaultRegistry(),
		getenv:   os.Getenv,
		environ:  os.Environ,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install copies the artifacts of a successful build into prefix, writes
// the receipt and runs the test step. Errors are ErrBuildNotSucceeded,
// *ConcurrentInstallError, *MissingArtifactError or an I/O error; in every
// error case the prefix holds no files from this run.
func (i *Installer) Install(ctx context.Context, f *formula.Formula, outcome *builder.BuildOutcome, prefix string, opts ...InstallOption) (*InstallResult, error) {
	if !outcome.Success() {
		return nil, ErrBuildNotSucceeded
	}
	var o installOptions
	for _, opt := range opts {
		opt(&o)
	}

	prefix, err := filepath.Abs(prefix)
	if err != nil {
		return nil, fmt.Errorf("resolve prefix: %w", err)
	}

	lock, err := i.lock(prefix, f.Name.String())
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	result := &InstallResult{
		Formula: f.Name.String(),
		Steps:   append([]builder.StepResult(nil), outcome.Steps...),
	}

	artifacts := f.Artifacts()
	if err := checkArtifacts(f, artifacts, outcome.SourceDir); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(prefix, 0o755); err != nil {
		return nil, fmt.Errorf("create prefix: %w", err)
	}

	placed, created, steps, err := placeArtifacts(artifacts, outcome.SourceDir, prefix)
	if err != nil {
		return nil, err
	}
	result.Steps = append(result.Steps, steps...)
	result.InstalledPaths = placed

	receipt := &Receipt{
		Name:        f.Name.String(),
		Version:     f.Version,
		Source:      f.SourceURL(),
		Revision:    f.Revision,
		Commit:      outcome.Commit,
		FormulaPath: f.FilePath,
		RunID:       o.runID,
		InstalledAt: i.now().UTC(),
		Files:       relativeTo(prefix, placed),
	}
	if result.ReceiptPath, err = writeReceipt(prefix, receipt); err != nil {
		removeCreated(created)
		return nil, err
	}
	result.Success = true
	slog.Info("installed", "formula", f.Name, "prefix", prefix, "files", len(placed))

	test := i.runTest(ctx, f, prefix)
	result.Test = test
	result.Steps = append(result.Steps, test.stepResult())
	if !test.Passed {
		slog.Warn("test step failed", "formula", f.Name, "error", test.Err)
		result.Warnings = append(result.Warnings, test.Err)
	}

	return result, nil
}

// Verify runs the test step of an installed formula. A formula without a
// custom test passes whether or not it is installed. Otherwise the returned
// error is *NotInstalledError when no receipt exists, or the
// *TestStepFailedError of a failed test.
func (i *Installer) Verify(ctx context.Context, f *formula.Formula, prefix string) (*TestOutcome, error) {
	if !f.HasCustomTest() {
		return i.runTest(ctx, f, prefix), nil
	}
	prefix, err := filepath.Abs(prefix)
	if err != nil {
		return nil, fmt.Errorf("resolve prefix: %w", err)
	}
	if _, err := ReadReceipt(prefix, f.Name.String()); err != nil {
		return nil, err
	}
	test := i.runTest(ctx, f, prefix)
	if !test.Passed {
		return test, test.Err
	}
	return test, nil
}

// Uninstall removes the files recorded in the receipt of formula, any
// directories left empty by that, and the receipt itself. Receipt entries
// that would resolve outside the prefix are skipped and reported.
func (i *Installer) Uninstall(formulaName, prefix string) (*Receipt, error) {
	if err := validateName(formulaName); err != nil {
		return nil, err
	}
	prefix, err := filepath.Abs(prefix)
	if err != nil {
		return nil, fmt.Errorf("resolve prefix: %w", err)
	}

	lock, err := i.lock(prefix, formulaName)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	receipt, err := ReadReceipt(prefix, formulaName)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, rel := range receipt.Files {
		if err := validateReceiptFile(rel); err != nil {
			errs = append(errs, err)
			continue
		}
		path := types.RelativePath(rel).Join(prefix)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		pruneEmptyDirs(filepath.Dir(path), prefix)
	}
	if len(errs) > 0 {
		return receipt, fmt.Errorf("uninstall %s: %w", formulaName, errors.Join(errs...))
	}

	if err := os.Remove(ReceiptPath(prefix, formulaName)); err != nil {
		return receipt, fmt.Errorf("remove receipt: %w", err)
	}
	slog.Info("uninstalled", "formula", formulaName, "prefix", prefix, "files", len(receipt.Files))
	return receipt, nil
}

func (i *Installer) lock(prefix, formulaName string) (*installLock, error) {
	path := lockFilePath(i.getenv, prefix, formulaName)
	lock, err := acquireInstallLock(path)
	if errors.Is(err, errLockHeld) {
		return nil, &ConcurrentInstallError{Formula: formulaName, Prefix: prefix, LockPath: path}
	}
	return lock, err
}

// runTest runs the verify step in a throwaway directory with the prefix on
// PATH. A formula without a test passes trivially.
func (i *Installer) runTest(ctx context.Context, f *formula.Formula, prefix string) *TestOutcome {
	if !f.HasCustomTest() {
		return &TestOutcome{Command: defaultTestCommand, Default: true, Passed: true}
	}

	test := &TestOutcome{Command: f.Test.Run}
	fail := func(reason string, err error) *TestOutcome {
		test.Err = &TestStepFailedError{
			Command:   test.Command,
			ExitCode:  test.ExitCode,
			Output:    test.Output,
			ErrOutput: test.ErrOutput,
			Reason:    reason,
			Err:       err,
		}
		return test
	}

	dir, err := os.MkdirTemp("", "cellar-test-*")
	if err != nil {
		return fail("", fmt.Errorf("create test dir: %w", err))
	}
	defer os.RemoveAll(dir)

	env := runtime.SliceToEnv(i.environ())
	env[EnvPrefix] = prefix
	env[runtime.EnvFormula] = f.Name.String()
	env["PATH"] = strings.Join(
		[]string{filepath.Join(prefix, "bin"), prefix, env["PATH"]},
		string(os.PathListSeparator),
	)

	slog.Debug("running test step", "formula", f.Name, "command", test.Command)
	res := i.runtimes.Execute(f.EffectiveRuntime(), &runtime.ExecutionContext{
		Context: ctx,
		Script:  test.Command,
		Env:     runtime.NewEnvironment(env, dir),
		Stdout:  i.stdout,
		Stderr:  i.stderr,
	})
	test.ExitCode = res.ExitCode
	test.Output = res.Output
	test.ErrOutput = res.ErrOutput
	test.Duration = res.Duration

	switch {
	case res.TimedOut:
		return fail("timed out", res.Error)
	case !res.Success():
		if test.ExitCode.IsSuccess() {
			test.ExitCode = 1
		}
		return fail("", res.Error)
	}

	if pattern := f.Test.ExpectOutput; pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fail("", fmt.Errorf("compile expect_output: %w", err))
		}
		if !re.MatchString(test.Output) {
			return fail(fmt.Sprintf("output does not match %q", pattern), nil)
		}
	}

	test.Passed = true
	return test
}

func (t *TestOutcome) stepResult() builder.StepResult {
	return builder.StepResult{
		Kind:      formula.StepVerify,
		Command:   t.Command,
		ExitCode:  t.ExitCode,
		Output:    t.Output,
		ErrOutput: t.ErrOutput,
		Duration:  t.Duration,
	}
}

// checkArtifacts reports every declared artifact that is absent.
func checkArtifacts(f *formula.Formula, artifacts []formula.Step, sourceDir string) error {
	var missing []string
	for _, a := range artifacts {
		info, err := os.Stat(a.Artifact.Join(sourceDir))
		if err != nil || info.IsDir() {
			missing = append(missing, a.Artifact.String())
		}
	}
	if len(missing) > 0 {
		return &MissingArtifactError{Formula: f.Name.String(), Missing: missing}
	}
	return nil
}

func relativeTo(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(base, p)
		if err != nil {
			rel = p
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// validateReceiptFile rejects receipt entries that escape the prefix or
// point into the receipt directory.
func validateReceiptFile(rel string) error {
	p := types.RelativePath(rel)
	if ok, errs := p.IsValid(); !ok {
		return errors.Join(errs...)
	}
	if formula.InStateDir(p) {
		return &types.InvalidRelativePathError{Value: p, Reason: "must not be inside " + formula.StateDir}
	}
	return nil
}

func pruneEmptyDirs(dir, stop string) {
	for dir != stop && strings.HasPrefix(dir, stop) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
