// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Execute waits for output pipes after the
// shell is killed, since build tools often leave children holding them.
const waitDelay = 5 * time.Second

// ErrNoShell is returned when no POSIX shell can be found on PATH.
var ErrNoShell = errors.New("no POSIX shell found on PATH (tried sh, bash)")

// NativeRuntime executes commands with the host's POSIX shell.
type NativeRuntime struct {
	// Shell overrides the shell lookup.
	Shell string
	// LookPath finds executables. When nil, exec.LookPath is used.
	LookPath func(string) (string, error)
}

// NewNativeRuntime creates a new native runtime.
func NewNativeRuntime() *NativeRuntime {
	return &NativeRuntime{}
}

// Name returns the runtime name.
func (r *NativeRuntime) Name() string {
	return "native"
}

// Available returns whether a shell can be found.
func (r *NativeRuntime) Available() bool {
	_, err := r.getShell()
	return err == nil
}

// Validate checks if a command can be executed.
func (r *NativeRuntime) Validate(ctx *ExecutionContext) error {
	if strings.TrimSpace(ctx.Script) == "" {
		return fmt.Errorf("command has no content to execute")
	}
	if ctx.Env == nil {
		return fmt.Errorf("no environment for command %q", ctx.Script)
	}
	return nil
}

// Execute runs the command with `<shell> -c`, capturing its output.
func (r *NativeRuntime) Execute(ctx *ExecutionContext) *Result {
	shell, err := r.getShell()
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	goCtx := ctx.goContext()
	cmd := exec.CommandContext(goCtx, shell, "-c", ctx.Script)
	cmd.Dir = ctx.workDir()
	if ctx.Env != nil {
		cmd.Env = ctx.Env.Slice()
	}
	cmd.Stdin = ctx.Stdin
	cmd.WaitDelay = waitDelay

	var captured capturedOutput
	cmd.Stdout, cmd.Stderr = captured.writers(ctx)

	started := time.Now()
	err = cmd.Run()
	return extractExitCode(goCtx, err, &captured, started)
}

// getShell determines which shell to use.
func (r *NativeRuntime) getShell() (string, error) {
	if r.Shell != "" {
		return r.Shell, nil
	}
	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, name := range []string{"sh", "bash"} {
		if p, err := lookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrNoShell
}
