// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents against an embedded schema.
//
// Formulas and the configuration file are both parsed the same way:
//
//  1. Compile the embedded schema
//  2. Compile the user document and unify it with a schema definition
//  3. Validate and decode into a Go value
//
// Errors are reported with the offending field path, e.g.
// "example1.cue: depends_on[1].kind: 2 errors in empty disjunction".
package cueutil
