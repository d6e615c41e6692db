// SPDX-License-Identifier: MPL-2.0

// Package formula loads and validates formulas: declarative recipes that
// describe how to fetch, build and install one piece of software.
//
// Formulas are written in CUE (validated against the embedded #Formula
// schema) or in HCL. Both syntaxes decode into the same Formula value, which
// is never mutated after Load returns. Install steps are typed (set-env,
// run-command, copy-artifact) and checked before anything executes; Plan
// expands them into the full fetch..verify sequence.
package formula
