// SPDX-License-Identifier: MPL-2.0

// Package discovery locates formula files. A formula is referenced by a
// path to its recipe, or by name: <name>.cue or <name>.hcl in ./Formula
// and then in the configured formula_paths, first match wins.
package discovery
