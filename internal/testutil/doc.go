// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers cover file fixtures (MustWriteFile, MustWriteExecutable,
// FakeToolDir), directory operations (MustMkdirAll, ListFiles), local
// formula sources (LocalSource) and deterministic time (FakeClock).
package testutil
