// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

const (
	// StageNone is the zero value: nothing has happened yet.
	StageNone Stage = ""
	// StageLoaded means the formula was parsed and validated.
	StageLoaded Stage = "loaded"
	// StageDependenciesResolved means every build dependency was found.
	StageDependenciesResolved Stage = "dependencies-resolved"
	// StageBuilt means every build step exited 0.
	StageBuilt Stage = "built"
	// StageInstalled means the artifacts and receipt are in the prefix.
	StageInstalled Stage = "installed"
	// StageVerified means the test step passed after install.
	StageVerified Stage = "verified"
	// StageFailed is reached from any stage; the StageError says where.
	StageFailed Stage = "failed"
)

// ErrStage is the sentinel error wrapped by StageError.
var ErrStage = errors.New("pipeline stage failed")

type (
	// Stage is a state of the install state machine:
	// loaded -> dependencies-resolved -> built -> installed -> verified,
	// or failed from any of them.
	Stage string

	// StageError reports the stage that could not be reached.
	StageError struct {
		// Stage is the stage the pipeline was trying to reach.
		Stage Stage
		Err   error
	}
)

// String returns the string representation of the Stage.
func (s Stage) String() string { return string(s) }

// next returns the stage that follows s on the success path.
func (s Stage) next() Stage {
	switch s {
	case StageNone:
		return StageLoaded
	case StageLoaded:
		return StageDependenciesResolved
	case StageDependenciesResolved:
		return StageBuilt
	case StageBuilt:
		return StageInstalled
	case StageInstalled:
		return StageVerified
	default:
		return StageFailed
	}
}

func (s Stage) action() string {
	switch s {
	case StageLoaded:
		return "load formula"
	case StageDependenciesResolved:
		return "resolve dependencies"
	case StageBuilt:
		return "build"
	case StageInstalled:
		return "install"
	case StageVerified:
		return "verify"
	default:
		return string(s)
	}
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage.action(), e.Err)
}

// Unwrap returns ErrStage and the stage's cause.
func (e *StageError) Unwrap() []error { return []error{ErrStage, e.Err} }
