// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/cellarhq/cellar/pkg/types"
)

// VirtualRuntime executes commands with the embedded mvdan/sh interpreter.
// Builtins run in-process; other commands are still looked up on the
// environment's PATH.
type VirtualRuntime struct{}

// NewVirtualRuntime creates a new virtual runtime.
func NewVirtualRuntime() *VirtualRuntime {
	return &VirtualRuntime{}
}

// Name returns the runtime name.
func (r *VirtualRuntime) Name() string {
	return "virtual"
}

// Available returns true; the interpreter is built in.
func (r *VirtualRuntime) Available() bool {
	return true
}

// Validate checks that the command parses.
func (r *VirtualRuntime) Validate(ctx *ExecutionContext) error {
	if strings.TrimSpace(ctx.Script) == "" {
		return fmt.Errorf("command has no content to execute")
	}
	if _, err := parseScript(ctx.Script); err != nil {
		return err
	}
	return nil
}

// Execute runs the command in the interpreter, capturing its output.
func (r *VirtualRuntime) Execute(ctx *ExecutionContext) *Result {
	prog, err := parseScript(ctx.Script)
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	var captured capturedOutput
	stdout, stderr := captured.writers(ctx)

	var environ []string
	if ctx.Env != nil {
		environ = ctx.Env.Slice()
	}

	runner, err := interp.New(
		interp.Dir(ctx.workDir()),
		interp.Env(expand.ListEnviron(environ...)),
		interp.StdIO(ctx.Stdin, stdout, stderr),
	)
	if err != nil {
		return &Result{ExitCode: 1, Error: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	goCtx := ctx.goContext()
	started := time.Now()
	err = runner.Run(goCtx, prog)

	result := extractExitCode(goCtx, nil, &captured, started)
	if err != nil {
		result.TimedOut = deadlineExceeded(goCtx)
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			result.ExitCode = types.ExitCode(exitStatus)
		} else {
			result.ExitCode = 1
			if !result.TimedOut {
				result.Error = fmt.Errorf("command execution failed: %w", err)
			}
		}
	}
	return result
}

func parseScript(script string) (*syntax.File, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "command")
	if err != nil {
		return nil, fmt.Errorf("command syntax error: %w", err)
	}
	return prog, nil
}
