// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cellarhq/cellar/internal/builder"
	"github.com/cellarhq/cellar/internal/installer"
	"github.com/cellarhq/cellar/internal/resolver"
	"github.com/cellarhq/cellar/pkg/formula"
)

type (
	// Loader parses a formula file.
	Loader interface {
		Load(path string) (*formula.Formula, error)
	}

	// LoaderFunc adapts a function such as formula.Load to Loader.
	LoaderFunc func(path string) (*formula.Formula, error)

	// Resolver confirms the dependencies of a formula.
	Resolver interface {
		Resolve(ctx context.Context, f *formula.Formula) (*resolver.ResolvedDeps, error)
	}

	// Builder fetches and builds a formula inside a work dir.
	Builder interface {
		Execute(ctx context.Context, f *formula.Formula, workDir string) (*builder.BuildOutcome, error)
	}

	// Installer places a build into the prefix and verifies it.
	Installer interface {
		Install(ctx context.Context, f *formula.Formula, outcome *builder.BuildOutcome, prefix string, opts ...installer.InstallOption) (*installer.InstallResult, error)
	}

	// Options is the resolved configuration of one run.
	Options struct {
		// Prefix is the install root.
		Prefix string
		// WorkRoot holds one work dir per run.
		WorkRoot string
		// KeepWorkDir leaves the work dir in place after the run.
		KeepWorkDir bool
		// Timeout bounds the build and install; zero means none.
		Timeout time.Duration
		// Head builds from the formula's head source.
		Head bool
		// DefaultRuntime applies to formulas that declare no runtime.
		DefaultRuntime formula.RuntimeMode
	}

	// Result is the record of one run. Stage is the last stage reached;
	// on failure it is StageFailed and Err is the *StageError.
	Result struct {
		RunID   string
		Formula *formula.Formula
		Stage   Stage
		WorkDir string
		Deps    *resolver.ResolvedDeps
		Build   *builder.BuildOutcome
		Install *installer.InstallResult
		Err     error
	}

	// Pipeline runs loader, resolver, builder and installer in sequence.
	Pipeline struct {
		loader    Loader
		resolver  Resolver
		builder   Builder
		installer Installer
		newID     func() string
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)
)

// Load implements Loader.
func (fn LoaderFunc) Load(path string) (*formula.Formula, error) { return fn(path) }

// WithLoader overrides the formula loader.
func WithLoader(l Loader) Option { return func(p *Pipeline) { p.loader = l } }

// WithResolver overrides the dependency resolver.
func WithResolver(r Resolver) Option { return func(p *Pipeline) { p.resolver = r } }

// WithBuilder overrides the build executor.
func WithBuilder(b Builder) Option { return func(p *Pipeline) { p.builder = b } }

// WithInstaller overrides the installer.
func WithInstaller(i Installer) Option { return func(p *Pipeline) { p.installer = i } }

// WithRunIDGenerator overrides the run id source.
func WithRunIDGenerator(fn func() string) Option { return func(p *Pipeline) { p.newID = fn } }

// New creates a Pipeline wired to the real components.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:    LoaderFunc(formula.Load),
		resolver:  resolver.New(nil),
		builder:   builder.New(),
		installer: installer.New(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run installs the formula at path. The returned error is the *StageError
// also stored in Result.Err; the Result is never nil.
func (p *Pipeline) Run(ctx context.Context, path string, opts Options) (*Result, error) {
	res := &Result{RunID: p.newID()}
	log := slog.With("run_id", res.RunID)

	f, err := p.loader.Load(path)
	if err == nil && opts.Head {
		f, err = f.WithHeadSource()
	}
	if err != nil {
		return res.fail(err)
	}
	if f.Runtime == "" && opts.DefaultRuntime != "" {
		f = f.WithRuntime(opts.DefaultRuntime)
	}
	res.Formula = f
	res.advance()
	log = log.With("formula", f.Name)
	log.Debug("formula loaded", "path", path)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if res.Deps, err = p.resolver.Resolve(ctx, f); err != nil {
		return res.fail(err)
	}
	res.advance()
	for _, w := range res.Deps.Warnings {
		log.Warn("runtime dependency not satisfied", "detail", w)
	}

	res.WorkDir = filepath.Join(opts.WorkRoot, res.RunID)
	if err := os.MkdirAll(res.WorkDir, 0o755); err != nil {
		return res.fail(fmt.Errorf("create work dir: %w", err))
	}
	if opts.KeepWorkDir {
		defer log.Info("work dir kept", "dir", res.WorkDir)
	} else {
		defer func() {
			if err := os.RemoveAll(res.WorkDir); err != nil {
				log.Warn("failed to remove work dir", "dir", res.WorkDir, "error", err)
			}
		}()
	}

	if res.Build, err = p.builder.Execute(ctx, f, res.WorkDir); err != nil {
		return res.fail(err)
	}
	res.advance()

	res.Install, err = p.installer.Install(ctx, f, res.Build, opts.Prefix, installer.WithRunID(res.RunID))
	if err != nil {
		return res.fail(err)
	}
	res.advance()

	if res.Install.Test != nil && res.Install.Test.Passed {
		res.advance()
	}
	log.Info("pipeline finished", "stage", res.Stage)
	return res, nil
}

// Success reports whether the formula was installed. A failed test step
// leaves the run at StageInstalled, which still counts.
func (r *Result) Success() bool {
	return r.Stage == StageInstalled || r.Stage == StageVerified
}

func (r *Result) advance() { r.Stage = r.Stage.next() }

func (r *Result) fail(err error) (*Result, error) {
	r.Err = &StageError{Stage: r.Stage.next(), Err: err}
	r.Stage = StageFailed
	return r, r.Err
}
