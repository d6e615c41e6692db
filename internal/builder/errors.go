// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cellarhq/cellar/pkg/types"
)

// maxErrorOutput bounds how much captured output Error() includes.
const maxErrorOutput = 2048

// ErrBuildStepFailed is the sentinel error wrapped by BuildStepFailedError.
var ErrBuildStepFailed = errors.New("build step failed")

// BuildStepFailedError is returned when a build step exits non-zero, cannot
// be started, or runs past the deadline.
type BuildStepFailedError struct {
	// Step is the command as written in the formula, e.g. "make build".
	Step string
	// ExitCode is the step's exit status.
	ExitCode types.ExitCode
	// Output and ErrOutput are the captured stdout and stderr.
	Output    string
	ErrOutput string
	// Timeout is set when the step was killed by the run deadline.
	Timeout bool
	// Err is set when the step could not run at all.
	Err error
}

// Error implements the error interface.
func (e *BuildStepFailedError) Error() string {
	var sb strings.Builder
	switch {
	case e.Timeout:
		fmt.Fprintf(&sb, "build step %q timed out", e.Step)
	case e.Err != nil:
		fmt.Fprintf(&sb, "build step %q failed: %v", e.Step, e.Err)
	default:
		fmt.Fprintf(&sb, "build step %q exited with code %s", e.Step, e.ExitCode)
	}
	if tail := tailOutput(e.ErrOutput + e.Output); tail != "" {
		sb.WriteString("\n")
		sb.WriteString(tail)
	}
	return sb.String()
}

// Unwrap returns ErrBuildStepFailed and the cause, if any.
func (e *BuildStepFailedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrBuildStepFailed, e.Err}
	}
	return []error{ErrBuildStepFailed}
}

func tailOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrorOutput {
		return s
	}
	return "..." + s[len(s)-maxErrorOutput:]
}
