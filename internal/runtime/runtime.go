// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/cellarhq/cellar/pkg/formula"
	"github.com/cellarhq/cellar/pkg/types"
)

type (
	// ExecutionContext contains everything needed to run one command.
	ExecutionContext struct {
		// Context is the Go context for cancellation and deadlines.
		Context context.Context
		// Script is the shell command line to run.
		Script string
		// Env is the scoped environment; its WorkDir is used unless Dir is set.
		Env *Environment
		// Dir overrides Env.WorkDir.
		Dir string
		// Stdin is where to read standard input. Nil means no input.
		Stdin io.Reader
		// Stdout and Stderr receive a live copy of the output when non-nil.
		Stdout io.Writer
		Stderr io.Writer
	}

	// Result contains the result of a command execution.
	Result struct {
		// ExitCode is the exit code of the command.
		ExitCode types.ExitCode
		// Error is set when the command could not run at all.
		Error error
		// Output contains captured stdout.
		Output string
		// ErrOutput contains captured stderr.
		ErrOutput string
		// Duration is the wall time of the command.
		Duration time.Duration
		// TimedOut is set when the context deadline expired while running.
		TimedOut bool
	}

	// Runtime defines the interface for command execution.
	Runtime interface {
		// Name returns the runtime name.
		Name() string
		// Execute runs the command and returns its captured result.
		Execute(ctx *ExecutionContext) *Result
		// Available returns whether this runtime can run on the current system.
		Available() bool
		// Validate checks whether the command can be run by this runtime.
		Validate(ctx *ExecutionContext) error
	}

	// Registry holds the runtimes by mode.
	Registry struct {
		runtimes map[formula.RuntimeMode]Runtime
	}
)

// Success returns true if the command executed successfully.
func (r *Result) Success() bool {
	return r.ExitCode.IsSuccess() && r.Error == nil && !r.TimedOut
}

// workDir returns the directory the command runs in.
func (c *ExecutionContext) workDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	if c.Env != nil {
		return c.Env.WorkDir
	}
	return ""
}

func (c *ExecutionContext) goContext() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// NewRegistry creates an empty runtime registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: make(map[formula.RuntimeMode]Runtime)}
}

// Register adds a runtime to the registry.
func (r *Registry) Register(mode formula.RuntimeMode, rt Runtime) {
	r.runtimes[mode] = rt
}

// Get returns the runtime registered for mode.
func (r *Registry) Get(mode formula.RuntimeMode) (Runtime, error) {
	rt, ok := r.runtimes[mode]
	if !ok {
		return nil, fmt.Errorf("runtime '%s' not registered", mode)
	}
	return rt, nil
}

// Available returns the modes whose runtime can run on this system, sorted.
func (r *Registry) Available() []formula.RuntimeMode {
	var modes []formula.RuntimeMode
	for mode, rt := range r.runtimes {
		if rt.Available() {
			modes = append(modes, mode)
		}
	}
	slices.Sort(modes)
	return modes
}

// Execute runs ctx with the runtime registered for mode.
func (r *Registry) Execute(mode formula.RuntimeMode, ctx *ExecutionContext) *Result {
	rt, err := r.Get(mode)
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	if !rt.Available() {
		return &Result{
			ExitCode: 1,
			Error:    fmt.Errorf("runtime '%s' is not available on this system", rt.Name()),
		}
	}

	if err := rt.Validate(ctx); err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	return rt.Execute(ctx)
}
