// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cellarhq/cellar/pkg/formula"
)

const (
	// SourcePath means the formula was given as a file path.
	SourcePath Source = iota
	// SourceFormulaDir means it was found in ./Formula.
	SourceFormulaDir
	// SourceConfigPath means it was found in a configured formula_paths entry.
	SourceConfigPath
)

// LocalFormulaDir is the project-local formula directory, searched first.
const LocalFormulaDir = "Formula"

// ErrFormulaNotFound is the sentinel error wrapped by FormulaNotFoundError.
var ErrFormulaNotFound = errors.New("formula not found")

type (
	// Source represents where a formula was found.
	Source int

	// DiscoveredFormula is a formula file located by name or path.
	DiscoveredFormula struct {
		// Name is the file name without extension.
		Name string
		// Path is the absolute path of the recipe file.
		Path   string
		Source Source
	}

	// FormulaNotFoundError lists where a formula name was searched.
	FormulaNotFoundError struct {
		Ref      string
		Searched []string
	}

	// Discovery finds formula files by name or path.
	Discovery struct {
		baseDir string
		paths   []string
	}
)

// String returns a human-readable source name
func (s Source) String() string {
	switch s {
	case SourcePath:
		return "path"
	case SourceFormulaDir:
		return "./" + LocalFormulaDir
	case SourceConfigPath:
		return "formula_paths"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *FormulaNotFoundError) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("formula '%s' not found", e.Ref)
	}
	return fmt.Sprintf("formula '%s' not found in: %s", e.Ref, strings.Join(e.Searched, ", "))
}

// Unwrap returns ErrFormulaNotFound for errors.Is() compatibility.
func (e *FormulaNotFoundError) Unwrap() error { return ErrFormulaNotFound }

// New creates a Discovery that searches baseDir/Formula, then each of
// formulaPaths in order. Relative formula paths resolve against baseDir.
func New(baseDir string, formulaPaths []string) *Discovery {
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}
	return &Discovery{baseDir: baseDir, paths: slices.Clone(formulaPaths)}
}

// SearchDirs returns the directories searched for formula names, in order.
func (d *Discovery) SearchDirs() []string {
	dirs := []string{filepath.Join(d.baseDir, LocalFormulaDir)}
	for _, p := range d.paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(d.baseDir, p)
		}
		dirs = append(dirs, filepath.Clean(p))
	}
	return dirs
}

// Find resolves ref. A ref with a recipe extension or a path separator is
// a file path; anything else is a formula name looked up in SearchDirs.
func (d *Discovery) Find(ref string) (*DiscoveredFormula, error) {
	if isPathRef(ref) {
		path := ref
		if !filepath.IsAbs(path) {
			path = filepath.Join(d.baseDir, path)
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return nil, &FormulaNotFoundError{Ref: ref}
		}
		return &DiscoveredFormula{Name: nameOf(path), Path: path, Source: SourcePath}, nil
	}

	var searched []string
	for i, dir := range d.SearchDirs() {
		for _, ext := range formula.Extensions() {
			candidate := filepath.Join(dir, ref+ext)
			searched = append(searched, candidate)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return &DiscoveredFormula{Name: ref, Path: candidate, Source: sourceOf(i)}, nil
			}
		}
	}
	return nil, &FormulaNotFoundError{Ref: ref, Searched: searched}
}

// All lists every formula in SearchDirs, sorted by name. A name found in
// more than one directory resolves to the first, and later ones are
// reported as shadowed.
func (d *Discovery) All() *ListResult {
	res := &ListResult{}
	seen := make(map[string]string)

	for i, dir := range d.SearchDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Severity: SeverityWarning,
					Code:     CodeDirUnreadable,
					Message:  fmt.Sprintf("cannot read formula directory: %v", err),
					Path:     dir,
					Cause:    err,
				})
			}
			continue
		}

		for _, e := range entries {
			if e.IsDir() || !slices.Contains(formula.Extensions(), filepath.Ext(e.Name())) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			name := nameOf(path)
			if first, ok := seen[name]; ok {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Severity: SeverityWarning,
					Code:     CodeFormulaShadowed,
					Message:  fmt.Sprintf("formula '%s' is shadowed by %s", name, first),
					Path:     path,
				})
				continue
			}
			seen[name] = path
			res.Formulas = append(res.Formulas, DiscoveredFormula{Name: name, Path: path, Source: sourceOf(i)})
		}
	}

	slices.SortFunc(res.Formulas, func(a, b DiscoveredFormula) int { return strings.Compare(a.Name, b.Name) })
	return res
}

func isPathRef(ref string) bool {
	if strings.ContainsRune(ref, '/') || strings.ContainsRune(ref, filepath.Separator) {
		return true
	}
	return slices.Contains(formula.Extensions(), filepath.Ext(ref))
}

func nameOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func sourceOf(dirIndex int) Source {
	if dirIndex == 0 {
		return SourceFormulaDir
	}
	return SourceConfigPath
}
