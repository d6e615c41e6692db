// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidRelativePath is the sentinel error wrapped by InvalidRelativePathError.
var ErrInvalidRelativePath = errors.New("invalid relative path")

type (
	// RelativePath is a slash-separated path that must stay inside the
	// directory it is joined to: artifact paths are relative to the source
	// tree, install names are relative to the prefix.
	RelativePath string

	// InvalidRelativePathError is returned when a RelativePath is empty,
	// absolute, or escapes its base directory with "..".
	InvalidRelativePathError struct {
		Value  RelativePath
		Reason string
	}
)

// String returns the string representation of the RelativePath.
func (p RelativePath) String() string { return string(p) }

// IsValid returns whether the RelativePath is valid.
func (p RelativePath) IsValid() (bool, []error) {
	s := strings.TrimSpace(string(p))
	switch {
	case s == "":
		return false, []error{&InvalidRelativePathError{Value: p, Reason: "must not be empty"}}
	case filepath.IsAbs(s) || strings.HasPrefix(s, "/"):
		return false, []error{&InvalidRelativePathError{Value: p, Reason: "must be relative"}}
	}
	clean := filepath.Clean(filepath.FromSlash(s))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return false, []error{&InvalidRelativePathError{Value: p, Reason: "must not escape its base directory"}}
	}
	return true, nil
}

// Join resolves the path against base. Callers validate first.
func (p RelativePath) Join(base string) string {
	return filepath.Join(base, filepath.FromSlash(string(p)))
}

// Error implements the error interface.
func (e *InvalidRelativePathError) Error() string {
	return fmt.Sprintf("invalid relative path %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidRelativePath for errors.Is() compatibility.
func (e *InvalidRelativePathError) Unwrap() error { return ErrInvalidRelativePath }
