// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cellarhq/cellar/internal/runtime"
	"github.com/cellarhq/cellar/internal/source"
	"github.com/cellarhq/cellar/pkg/formula"
	"github.com/cellarhq/cellar/pkg/types"
)

type (
	// SourceFetcher materializes a source; *source.Materializer implements it.
	SourceFetcher interface {
		Fetch(ctx context.Context, req source.Request) (*source.Checkout, error)
	}

	// StepResult records one executed step.
	StepResult struct {
		Kind      formula.StepKind
		Command   string
		ExitCode  types.ExitCode
		Output    string
		ErrOutput string
		Duration  time.Duration
	}

	// BuildOutcome is the result of a build. On failure it holds the
	// steps that ran up to and including the failing one.
	BuildOutcome struct {
		Formula   *formula.Formula
		WorkDir   string
		SourceDir string
		Commit    string
		// Env is the environment after the last set-env step.
		Env   *runtime.Environment
		Steps []StepResult

		succeeded bool
	}

	// Builder executes the build steps of a formula.
	Builder struct {
		fetcher  SourceFetcher
		env      runtime.EnvBuilder
		runtimes *runtime.Registry
		stdout   io.Writer
		stderr   io.Writer
	}

	// Option configures a Builder.
	Option func(*Builder)
)

// WithFetcher overrides the source fetcher.
func WithFetcher(f SourceFetcher) Option {
	return func(b *Builder) { b.fetcher = f }
}

// WithEnvBuilder overrides the environment builder.
func WithEnvBuilder(e runtime.EnvBuilder) Option {
	return func(b *Builder) { b.env = e }
}

// WithRegistry overrides the runtime registry.
func WithRegistry(r *runtime.Registry) Option {
	return func(b *Builder) { b.runtimes = r }
}

// WithStreams streams step output to stdout and stderr while it is captured.
func WithStreams(stdout, stderr io.Writer) Option {
	return func(b *Builder) {
		b.stdout = stdout
		b.stderr = stderr
	}
}

// New creates a Builder with the default fetcher, env builder and runtimes.
func New(opts ...Option) *Builder {
	b := &Builder{
		fetcher:  source.NewMaterializer(),
		env:      runtime.NewDefaultEnvBuilder(),
		runtimes: runtime.NewDefaultRegistry(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Success reports whether every build step exited 0.
func (o *BuildOutcome) Success() bool {
	return o != nil && o.succeeded
}

// Execute fetches the source of f into workDir/<stage> and runs its build
// steps there. Errors are *source.SourceFetchError or *BuildStepFailedError;
// the partial outcome is returned alongside them.
func (b *Builder) Execute(ctx context.Context, f *formula.Formula, workDir string) (*BuildOutcome, error) {
	outcome := &BuildOutcome{
		Formula:   f,
		WorkDir:   workDir,
		SourceDir: f.StageDir().Join(workDir),
	}

	started := time.Now()
	checkout, err := b.fetcher.Fetch(ctx, source.Request{
		URL:      f.SourceURL(),
		Kind:     f.Using,
		Revision: f.Revision,
		Dest:     outcome.SourceDir,
	})
	fetch := StepResult{Kind: formula.StepFetch, Command: f.SourceURL(), Duration: time.Since(started)}
	if err != nil {
		fetch.ExitCode = 1
		outcome.Steps = append(outcome.Steps, fetch)
		return outcome, err
	}
	outcome.Commit = checkout.Commit
	outcome.Steps = append(outcome.Steps, fetch)
	slog.Info("source ready", "formula", f.Name, "dir", outcome.SourceDir, "commit", checkout.Commit)

	env, err := b.env.Build(f, workDir)
	if err != nil {
		return outcome, &BuildStepFailedError{Step: "env", ExitCode: 1, Err: err}
	}
	env = env.WithDir(outcome.SourceDir)

	for _, step := range f.BuildSteps() {
		switch step.Kind() {
		case formula.StepSetEnv:
			next, err := env.With(step.SetEnv)
			if err != nil {
				outcome.Steps = append(outcome.Steps, StepResult{Kind: formula.StepSetEnv, Command: step.String(), ExitCode: 1})
				return outcome, &BuildStepFailedError{Step: step.String(), ExitCode: 1, Err: err}
			}
			env = next
			outcome.Steps = append(outcome.Steps, StepResult{Kind: formula.StepSetEnv, Command: step.String()})

		case formula.StepRun:
			res := b.run(ctx, f, env, step)
			outcome.Steps = append(outcome.Steps, res.stepResult)
			if res.err != nil {
				outcome.Env = env
				return outcome, res.err
			}
		}
	}

	outcome.Env = env
	outcome.succeeded = true
	return outcome, nil
}

type runResult struct {
	stepResult StepResult
	err        error
}

func (b *Builder) run(ctx context.Context, f *formula.Formula, env *runtime.Environment, step formula.Step) runResult {
	execCtx := &runtime.ExecutionContext{
		Context: ctx,
		Script:  step.Run,
		Env:     env,
		Stdout:  b.stdout,
		Stderr:  b.stderr,
	}
	if step.Dir != "" {
		execCtx.Dir = step.Dir.Join(env.WorkDir)
	}

	slog.Info("running build step", "formula", f.Name, "step", step.Run, "runtime", f.EffectiveRuntime())
	result := b.runtimes.Execute(f.EffectiveRuntime(), execCtx)

	sr := StepResult{
		Kind:      formula.StepRun,
		Command:   step.Run,
		ExitCode:  result.ExitCode,
		Output:    result.Output,
		ErrOutput: result.ErrOutput,
		Duration:  result.Duration,
	}
	if result.Success() {
		slog.Debug("build step done", "step", step.Run, "duration", result.Duration)
		return runResult{stepResult: sr}
	}

	failure := &BuildStepFailedError{
		Step:      step.Run,
		ExitCode:  result.ExitCode,
		Output:    result.Output,
		ErrOutput: result.ErrOutput,
		Timeout:   result.TimedOut,
		Err:       result.Error,
	}
	if failure.ExitCode.IsSuccess() {
		failure.ExitCode = 1
	}
	slog.Warn("build step failed", "step", step.Run, "exit_code", failure.ExitCode, "timeout", failure.Timeout)
	return runResult{stepResult: sr, err: failure}
}
