// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/cellarhq/cellar/internal/builder"
	"github.com/cellarhq/cellar/internal/discovery"
	"github.com/cellarhq/cellar/internal/installer"
	"github.com/cellarhq/cellar/internal/issue"
	"github.com/cellarhq/cellar/internal/resolver"
	"github.com/cellarhq/cellar/internal/runtime"
	"github.com/cellarhq/cellar/internal/source"
	"github.com/cellarhq/cellar/pkg/formula"
	"github.com/cellarhq/cellar/pkg/types"
)

// Process exit codes.
const (
	ExitOK         types.ExitCode = 0
	ExitGeneric    types.ExitCode = 1
	ExitUsage      types.ExitCode = 2
	ExitDependency types.ExitCode = 3
	ExitFetch      types.ExitCode = 4
	ExitBuild      types.ExitCode = 5
	ExitInstall    types.ExitCode = 6
	ExitTest       types.ExitCode = 7
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
// A nil Err means the command already reported the failure.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeOf returns the process exit code for an error returned by the
// command tree. Errors that never reached a RunE handler come from flag and
// argument parsing, so they are usage errors.
func exitCodeOf(err error) types.ExitCode {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUsage
}

// classifyError maps a failure to its exit code and issue catalog entry.
func classifyError(err error) (types.ExitCode, issue.Id) {
	switch {
	case errors.Is(err, installer.ErrTestStepFailed):
		return ExitTest, issue.TestStepFailedId
	case errors.Is(err, runtime.ErrNoShell):
		return ExitBuild, issue.ShellNotFoundId
	case errors.Is(err, builder.ErrBuildStepFailed):
		return ExitBuild, issue.BuildStepFailedId
	case errors.Is(err, source.ErrSourceFetch):
		return ExitFetch, issue.SourceFetchFailedId
	case errors.Is(err, resolver.ErrUnresolvedDependency):
		return ExitDependency, issue.DependenciesNotSatisfiedId
	case errors.Is(err, installer.ErrMissingArtifact):
		return ExitInstall, issue.MissingArtifactId
	case errors.Is(err, installer.ErrConcurrentInstall):
		return ExitInstall, issue.ConcurrentInstallId
	case errors.Is(err, installer.ErrBuildNotSucceeded):
		return ExitInstall, 0
	case errors.Is(err, types.ErrInvalidFormulaName):
		return ExitUsage, 0
	case errors.Is(err, installer.ErrNotInstalled):
		return ExitGeneric, issue.NotInstalledId
	case errors.Is(err, discovery.ErrFormulaNotFound):
		return ExitUsage, issue.FormulaNotFoundId
	case errors.Is(err, formula.ErrLoad), errors.Is(err, formula.ErrNoHeadSource):
		return ExitUsage, issue.FormulaParseErrorId
	case issueOf(err) == issue.ConfigLoadFailedId:
		return ExitUsage, issue.ConfigLoadFailedId
	default:
		return ExitGeneric, 0
	}
}

func issueOf(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Issue
	}
	return 0
}

// suggestionsFor returns the remediation hints shown under an error.
func suggestionsFor(id issue.Id, resource string) []string {
	switch id {
	case issue.FormulaNotFoundId:
		return []string{
			"Pass a path to a .cue or .hcl recipe, or add its directory to formula_paths",
			"Run 'cellar search' to list the formulas cellar can find",
		}
	case issue.FormulaParseErrorId:
		return []string{"Run 'cellar validate " + resource + "' to list every problem"}
	case issue.DependenciesNotSatisfiedId:
		return []string{
			"Install the missing tools and make sure they are on PATH",
			"Run 'cellar deps " + resource + "' to see the status of each dependency",
		}
	case issue.SourceFetchFailedId:
		return []string{"Check the formula's url and revision"}
	case issue.BuildStepFailedId:
		return []string{
			"Re-run with --verbose to stream the build output",
			"Use --keep-workdir to inspect the build tree afterwards",
		}
	case issue.ShellNotFoundId:
		return []string{"Install sh, or set runtime: \"virtual\" in the formula"}
	case issue.MissingArtifactId:
		return []string{"Check the artifact paths of the install steps against the build output"}
	case issue.ConcurrentInstallId:
		return []string{"Wait for the other install of this formula to finish"}
	case issue.TestStepFailedId:
		return []string{"Re-run with --verbose to see the test output"}
	case issue.NotInstalledId:
		return []string{"Run 'cellar install " + resource + "' first"}
	default:
		return nil
	}
}

// commandError wraps err for display and attaches its exit code.
func commandError(operation, resource string, err error) error {
	code, id := classifyError(err)
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return &ExitError{Code: code, Err: err}
	}
	return &ExitError{Code: code, Err: issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		WithIssue(id).
		WithSuggestions(suggestionsFor(id, resource)...).
		Wrap(err).
		BuildError()}
}

// usageError reports invalid command-line input.
func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}
