// SPDX-License-Identifier: MPL-2.0

// Package resolver checks a formula's declared dependencies against the host.
//
// Resolution is single level: each dependency is an executable that must be
// on PATH and, when a version constraint is declared, report a satisfying
// version. There is no transitive graph and no range solving. Every missing
// build dependency is reported at once so the caller can fix them in one pass.
package resolver
