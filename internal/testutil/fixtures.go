// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FakeTool describes an executable placed in a FakeToolDir.
type FakeTool struct {
	// Name is the executable name.
	Name string
	// Script is the shell body of the tool.
	Script string
}

// FakeToolDir creates a directory of fake executables and returns it
// together with a PATH value that lists it before the host PATH.
func FakeToolDir(t testing.TB, tools ...FakeTool) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	for _, tool := range tools {
		MustWriteExecutable(t, dir, tool.Name, tool.Script)
	}
	return dir, strings.Join([]string{dir, os.Getenv("PATH")}, string(os.PathListSeparator))
}

// LocalSource writes files (slash-separated relative path to content) into
// a fresh directory and returns it, for use as a local formula source.
// Paths ending in ".sh" or under "bin/" are made executable.
func LocalSource(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		perm := os.FileMode(0o644)
		if strings.HasSuffix(rel, ".sh") || strings.HasPrefix(rel, "bin/") {
			perm = 0o755
		}
		MustWriteFile(t, filepath.Join(dir, filepath.FromSlash(rel)), content, perm)
	}
	return dir
}
