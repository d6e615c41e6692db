// SPDX-License-Identifier: MPL-2.0

// Package runtime runs formula shell commands.
//
// Two runtimes are available:
//   - native: the host shell (sh -c)
//   - virtual: the embedded mvdan/sh interpreter, for hosts without a POSIX shell
//
// Both implement the Runtime interface with Name(), Execute(), Available() and
// Validate(), and always capture stdout and stderr into the Result. When the
// ExecutionContext carries Stdout/Stderr writers the output is streamed to them
// as well.
//
// Environment is the scoped variable set a command runs with. It is built once
// per run by an EnvBuilder (host environment, then BUILDPATH and
// CELLAR_FORMULA, then the formula's declared env) and handed to subprocesses
// only; the calling process environment is never modified.
package runtime
