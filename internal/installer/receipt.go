// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/cellarhq/cellar/pkg/formula"
	"github.com/cellarhq/cellar/pkg/types"
)

// receiptDir is the prefix-relative directory receipts are kept in.
const receiptDir = formula.StateDir + "/receipts"

// Receipt records one completed install. It is written after the artifacts
// are copied and read by test, list and uninstall.
type Receipt struct {
	Name        string    `toml:"name"`
	Version     string    `toml:"version,omitempty"`
	Source      string    `toml:"source"`
	Revision    string    `toml:"revision,omitempty"`
	Commit      string    `toml:"commit,omitempty"`
	FormulaPath string    `toml:"formula_path,omitempty"`
	RunID       string    `toml:"run_id,omitempty"`
	InstalledAt time.Time `toml:"installed_at"`
	// Files are the installed files, relative to the prefix.
	Files []string `toml:"files"`
}

// ReceiptPath returns the receipt file of the named formula under prefix.
func ReceiptPath(prefix, name string) string {
	return filepath.Join(prefix, filepath.FromSlash(receiptDir), name+".toml")
}

// ReadReceipt loads the receipt of the named formula. A missing receipt is
// a *NotInstalledError; an invalid name is a *types.InvalidFormulaNameError.
func ReadReceipt(prefix, name string) (*Receipt, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ReceiptPath(prefix, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotInstalledError{Formula: name, Prefix: prefix}
		}
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	var r Receipt
	if err := toml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse receipt %s: %w", ReceiptPath(prefix, name), err)
	}
	return &r, nil
}

func validateName(name string) error {
	if ok, errs := types.FormulaName(name).IsValid(); !ok {
		return errors.Join(errs...)
	}
	return nil
}

// writeReceipt stores r atomically under prefix.
func writeReceipt(prefix string, r *Receipt) (string, error) {
	data, err := toml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode receipt: %w", err)
	}
	path := ReceiptPath(prefix, r.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp) // Best-effort cleanup on error path
		return "", fmt.Errorf("write receipt: %w", err)
	}
	return path, nil
}

// List returns the receipts found under prefix, sorted by name. Unreadable
// receipts are skipped and reported in the second result.
func List(prefix string) ([]*Receipt, []error) {
	entries, err := os.ReadDir(filepath.Join(prefix, filepath.FromSlash(receiptDir)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, []error{fmt.Errorf("read receipts: %w", err)}
	}

	var (
		receipts []*Receipt
		errs     []error
	)
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".toml")
		if !ok || e.IsDir() {
			continue
		}
		r, err := ReadReceipt(prefix, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		receipts = append(receipts, r)
	}
	slices.SortFunc(receipts, func(a, b *Receipt) int { return strings.Compare(a.Name, b.Name) })
	return receipts, errs
}
