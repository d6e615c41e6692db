// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/cellarhq/cellar/internal/platform"
)

// ErrInvalidFormulaName is the sentinel error wrapped by InvalidFormulaNameError.
var ErrInvalidFormulaName = errors.New("invalid formula name")

var formulaNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._+-]*$`)

type (
	// FormulaName identifies a formula. It doubles as the receipt and lock
	// file name, so it must be lowercase and free of path separators.
	FormulaName string

	// InvalidFormulaNameError is returned when a FormulaName is empty,
	// contains characters outside [a-z0-9._+-], or is a reserved file name.
	InvalidFormulaNameError struct {
		Value    FormulaName
		Reserved bool
	}
)

// String returns the string representation of the FormulaName.
func (n FormulaName) String() string { return string(n) }

// IsValid returns whether the FormulaName is valid.
func (n FormulaName) IsValid() (bool, []error) {
	if !formulaNamePattern.MatchString(string(n)) {
		return false, []error{&InvalidFormulaNameError{Value: n}}
	}
	if platform.IsWindowsReservedName(string(n)) {
		return false, []error{&InvalidFormulaNameError{Value: n, Reserved: true}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidFormulaNameError) Error() string {
	if e.Value == "" {
		return "invalid formula name: must not be empty"
	}
	if e.Reserved {
		return fmt.Sprintf("invalid formula name %q: reserved device name on Windows", e.Value)
	}
	return fmt.Sprintf("invalid formula name %q: use lowercase letters, digits, '.', '_', '+' or '-'", e.Value)
}

// Unwrap returns ErrInvalidFormulaName for errors.Is() compatibility.
func (e *InvalidFormulaNameError) Unwrap() error { return ErrInvalidFormulaName }
