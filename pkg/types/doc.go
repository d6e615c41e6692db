// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by the formula model, the
// build executor and the installer. Each type validates itself and reports
// problems as typed errors wrapping a package sentinel.
//
// This package is a leaf dependency: it imports only the standard library.
package types
