// SPDX-License-Identifier: MPL-2.0

package discovery

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeFormulaShadowed marks a formula hidden by one of the same name
	// in an earlier search directory.
	CodeFormulaShadowed = "formula_shadowed"
	// CodeDirUnreadable marks a search directory that exists but cannot be listed.
	CodeDirUnreadable = "dir_unreadable"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic is a non-fatal discovery problem returned to the caller
	// instead of being printed, so the CLI decides how to render it.
	Diagnostic struct {
		Severity Severity
		// Code is a machine-readable identifier, e.g. CodeFormulaShadowed.
		Code    string
		Message string
		// Path is the file or directory concerned (optional).
		Path  string
		Cause error
	}

	// ListResult bundles the discovered formulas with diagnostics.
	ListResult struct {
		Formulas    []DiscoveredFormula
		Diagnostics []Diagnostic
	}
)
