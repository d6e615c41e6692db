// SPDX-License-Identifier: MPL-2.0

package formula

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLoad is the sentinel error wrapped by LoadError.
var ErrLoad = errors.New("formula load failed")

// LoadError reports every problem found while loading a formula.
type LoadError struct {
	Path     string
	Problems []error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	var sb strings.Builder
	name := e.Path
	if name == "" {
		name = "<input>"
	}
	if len(e.Problems) == 1 {
		fmt.Fprintf(&sb, "%s: %v", name, e.Problems[0])
		return sb.String()
	}
	fmt.Fprintf(&sb, "%s: %d problems:", name, len(e.Problems))
	for _, p := range e.Problems {
		sb.WriteString("\n  - ")
		sb.WriteString(p.Error())
	}
	return sb.String()
}

// Unwrap returns ErrLoad and the individual problems.
func (e *LoadError) Unwrap() []error {
	return append([]error{ErrLoad}, e.Problems...)
}

func newLoadError(path string, problems ...error) *LoadError {
	return &LoadError{Path: path, Problems: problems}
}
