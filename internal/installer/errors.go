// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cellarhq/cellar/pkg/types"
)

var (
	// ErrMissingArtifact is the sentinel error wrapped by MissingArtifactError.
	ErrMissingArtifact = errors.New("missing artifact")
	// ErrConcurrentInstall is the sentinel error wrapped by ConcurrentInstallError.
	ErrConcurrentInstall = errors.New("concurrent install")
	// ErrTestStepFailed is the sentinel error wrapped by TestStepFailedError.
	ErrTestStepFailed = errors.New("test step failed")
	// ErrNotInstalled is the sentinel error wrapped by NotInstalledError.
	ErrNotInstalled = errors.New("formula not installed")
	// ErrBuildNotSucceeded is returned when Install is handed a failed build.
	ErrBuildNotSucceeded = errors.New("refusing to install: build did not succeed")

	errLockHeld = errors.New("lock held by another process")
)

type (
	// MissingArtifactError lists declared artifacts absent after the build.
	MissingArtifactError struct {
		Formula string
		// Missing holds the source-relative artifact paths.
		Missing []string
	}

	// ConcurrentInstallError is returned when another install of the same
	// formula into the same prefix holds the lock.
	ConcurrentInstallError struct {
		Formula  string
		Prefix   string
		LockPath string
	}

	// TestStepFailedError is returned when the verify step fails. During
	// install it is reported as a warning only.
	TestStepFailedError struct {
		Command   string
		ExitCode  types.ExitCode
		Output    string
		ErrOutput string
		// Reason explains failures other than a non-zero exit, such as an
		// unmatched expect_output pattern.
		Reason string
		Err    error
	}

	// NotInstalledError is returned when no receipt exists for a formula.
	NotInstalledError struct {
		Formula string
		Prefix  string
	}
)

// Error implements the error interface.
func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("formula '%s' declares artifacts the build did not produce: %s", e.Formula, strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrMissingArtifact for errors.Is() compatibility.
func (e *MissingArtifactError) Unwrap() error { return ErrMissingArtifact }

// Error implements the error interface.
func (e *ConcurrentInstallError) Error() string {
	return fmt.Sprintf("another install of '%s' into %s is in progress (lock %s)", e.Formula, e.Prefix, e.LockPath)
}

// Unwrap returns ErrConcurrentInstall for errors.Is() compatibility.
func (e *ConcurrentInstallError) Unwrap() error { return ErrConcurrentInstall }

// Error implements the error interface.
func (e *TestStepFailedError) Error() string {
	var msg string
	switch {
	case e.Reason != "":
		msg = fmt.Sprintf("test %q: %s", e.Command, e.Reason)
	case e.Err != nil:
		msg = fmt.Sprintf("test %q failed: %v", e.Command, e.Err)
	default:
		msg = fmt.Sprintf("test %q exited with code %s", e.Command, e.ExitCode)
	}
	if out := strings.TrimSpace(e.ErrOutput); out != "" {
		msg += "\n" + out
	}
	return msg
}

// Unwrap returns ErrTestStepFailed and the cause, if any.
func (e *TestStepFailedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTestStepFailed, e.Err}
	}
	return []error{ErrTestStepFailed}
}

// Error implements the error interface.
func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("formula '%s' is not installed in %s", e.Formula, e.Prefix)
}

// Unwrap returns ErrNotInstalled for errors.Is() compatibility.
func (e *NotInstalledError) Unwrap() error { return ErrNotInstalled }
