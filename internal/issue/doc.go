// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of markdown
// guidance rendered with glamour for the failure classes of cellar.
package issue
