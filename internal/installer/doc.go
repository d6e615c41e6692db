// SPDX-License-Identifier: MPL-2.0

// Package installer places the artifacts of a successful build into an
// install prefix, records an install receipt and runs the formula's test
// step.
//
// Installs of one formula into one prefix are serialized by a lock file in
// $XDG_RUNTIME_DIR; a second concurrent install fails fast with
// *ConcurrentInstallError instead of waiting.
package installer
