// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"github.com/cellarhq/cellar/pkg/types"
)

// capturedOutput holds the stdout and stderr buffers of one execution.
type capturedOutput struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// writers returns the writers a command should use: the capture buffers,
// teed to the context's streams when those are set.
func (c *capturedOutput) writers(ctx *ExecutionContext) (stdout, stderr io.Writer) {
	stdout, stderr = &c.stdout, &c.stderr
	if ctx.Stdout != nil {
		stdout = io.MultiWriter(stdout, ctx.Stdout)
	}
	if ctx.Stderr != nil {
		stderr = io.MultiWriter(stderr, ctx.Stderr)
	}
	return stdout, stderr
}

// extractExitCode builds the Result of a finished execution. Non-zero exits
// of the process itself are exit codes, not errors; anything else (shell
// not found, permission denied) is reported in Result.Error. A command that
// exited cleanly is never a timeout, even if the deadline passed right after.
func extractExitCode(ctx context.Context, err error, captured *capturedOutput, started time.Time) *Result {
	result := &Result{Duration: time.Since(started)}

	if captured != nil {
		result.Output = captured.stdout.String()
		result.ErrOutput = captured.stderr.String()
	}

	if err == nil {
		return result
	}
	result.TimedOut = deadlineExceeded(ctx)

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode := types.ExitCode(exitErr.ExitCode())
		if validateErr := exitCode.Validate(); validateErr != nil {
			// -1 means the process was killed by a signal.
			result.ExitCode = 1
			if !result.TimedOut {
				result.Error = validateErr
			}
			return result
		}
		result.ExitCode = exitCode
		return result
	}

	result.ExitCode = 1
	result.Error = err
	return result
}

func deadlineExceeded(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
