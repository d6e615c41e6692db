// SPDX-License-Identifier: MPL-2.0

package formula

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// DependencyBuild is needed only while building.
	DependencyBuild DependencyKind = "build"
	// DependencyRuntime is needed by the installed software.
	DependencyRuntime DependencyKind = "runtime"
)

// ErrInvalidConstraint is the sentinel error wrapped by InvalidConstraintError.
var ErrInvalidConstraint = errors.New("invalid version constraint")

var versionNumberPattern = regexp.MustCompile(`\d+(\.\d+){0,2}`)

type (
	// DependencyKind tags a dependency as build-time or runtime.
	DependencyKind string

	// Dependency is a tool the formula needs on the host.
	Dependency struct {
		// Name is the executable looked up on PATH.
		Name string `json:"name"`
		// Kind defaults to build.
		Kind DependencyKind `json:"kind,omitempty"`
		// Version is an optional constraint such as ">=1.21" or "4.0".
		Version string `json:"version,omitempty"`
	}

	// ConstraintOp is the comparison of a Constraint.
	ConstraintOp string

	// Constraint is a single-bound version requirement. Ranges and
	// alternatives are not supported.
	Constraint struct {
		Op      ConstraintOp
		Version string // canonical semver, e.g. "v1.21.0"
	}

	// InvalidConstraintError is returned when a version constraint cannot
	// be parsed.
	InvalidConstraintError struct {
		Value string
	}
)

// String returns the string representation of the DependencyKind.
func (k DependencyKind) String() string { return string(k) }

// IsValid reports whether the DependencyKind is known.
func (k DependencyKind) IsValid() bool { return k == DependencyBuild || k == DependencyRuntime }

// String renders the dependency as "name" or "name (constraint)".
func (d Dependency) String() string {
	if d.Version == "" {
		return d.Name
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Version)
}

// Constraint parses the dependency's version constraint. The second result
// is false when no constraint is declared.
func (d Dependency) Constraint() (Constraint, bool, error) {
	if strings.TrimSpace(d.Version) == "" {
		return Constraint{}, false, nil
	}
	c, err := ParseConstraint(d.Version)
	return c, err == nil, err
}

// ParseConstraint parses ">=X", ">X", "<=X", "<X", "=X", "==X" or a bare
// "X", which means ">=X".
func ParseConstraint(raw string) (Constraint, error) {
	s := strings.TrimSpace(raw)
	op := ConstraintOp(">=")
	for _, candidate := range []string{">=", "<=", "==", ">", "<", "="} {
		if rest, ok := strings.CutPrefix(s, candidate); ok {
			op = ConstraintOp(candidate)
			s = strings.TrimSpace(rest)
			break
		}
	}
	if op == "==" {
		op = "="
	}
	if !versionNumberPattern.MatchString(s) || versionNumberPattern.FindString(s) != strings.TrimPrefix(s, "v") {
		return Constraint{}, &InvalidConstraintError{Value: raw}
	}
	v := CanonicalVersion(s)
	if v == "" {
		return Constraint{}, &InvalidConstraintError{Value: raw}
	}
	return Constraint{Op: op, Version: v}, nil
}

// CanonicalVersion extracts the first dotted number from s (for example
// the output of `make --version`) and returns it in canonical semver form.
// It returns "" when s contains no version number.
func CanonicalVersion(s string) string {
	m := versionNumberPattern.FindString(s)
	if m == "" {
		return ""
	}
	return semver.Canonical("v" + m)
}

// Satisfied reports whether version (any form CanonicalVersion accepts)
// meets the constraint.
func (c Constraint) Satisfied(version string) bool {
	v := CanonicalVersion(version)
	if v == "" {
		return false
	}
	cmp := semver.Compare(v, c.Version)
	switch c.Op {
	case ">=":
		return cmp >= 0
	case ">":
		return cmp > 0
	case "<=":
		return cmp <= 0
	case "<":
		return cmp < 0
	default:
		return cmp == 0
	}
}

// String renders the constraint in canonical form, e.g. ">=v1.21.0".
func (c Constraint) String() string { return string(c.Op) + c.Version }

// Error implements the error interface.
func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("invalid version constraint %q: use an optional operator (>=, >, <=, <, =) followed by a version like 1.21", e.Value)
}

// Unwrap returns ErrInvalidConstraint for errors.Is() compatibility.
func (e *InvalidConstraintError) Unwrap() error { return ErrInvalidConstraint }
