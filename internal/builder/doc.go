// SPDX-License-Identifier: MPL-2.0

// Package builder runs the build half of a formula: it materializes the
// source into the work dir, builds the scoped environment, and runs the
// set-env and run-command steps in order. The first failing step aborts the
// build. Nothing outside the work dir is written.
package builder
