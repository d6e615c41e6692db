// SPDX-License-Identifier: MPL-2.0

package formula

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cellarhq/cellar/pkg/cueutil"
)

const (
	// ExtCUE is the file extension of CUE formulas.
	ExtCUE = ".cue"
	// ExtHCL is the file extension of HCL formulas.
	ExtHCL = ".hcl"
)

//go:embed formula_schema.cue
var formulaSchema []byte

// Extensions lists the recipe file extensions in lookup order.
func Extensions() []string { return []string{ExtCUE, ExtHCL} }

// Load reads, parses and validates the formula at path.
func Load(path string) (*Formula, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newLoadError(path, err)
	}
	f, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	if abs, absErr := filepath.Abs(path); absErr == nil {
		f.FilePath = abs
	}
	return f, nil
}

// Parse decodes a formula from data. The syntax is picked from the
// extension of filename (CUE unless it ends in .hcl). Parse has no side
// effects; every problem is reported in a single *LoadError.
func Parse(data []byte, filename string) (*Formula, error) {
	var (
		f   *Formula
		err error
	)
	if strings.EqualFold(filepath.Ext(filename), ExtHCL) {
		f, err = ParseHCL(data, filename)
	} else {
		f, err = ParseCUE(data, filename)
	}
	if err != nil {
		return nil, newLoadError(filename, err)
	}

	f.applyDefaults()
	f.FilePath = filename
	if problems := f.Validate(); len(problems) > 0 {
		return nil, newLoadError(filename, problems...)
	}
	return f, nil
}

// ParseCUE decodes a CUE formula against the embedded #Formula schema.
// Defaults are applied but the result is not validated.
func ParseCUE(data []byte, filename string) (*Formula, error) {
	f, err := cueutil.Decode[Formula](formulaSchema, data, "#Formula", cueutil.WithFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("decode formula: %w", err)
	}
	return f, nil
}
