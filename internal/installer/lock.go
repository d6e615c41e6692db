// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

// lockFilePath returns the lock file of one (prefix, formula) pair. The
// file lives in $XDG_RUNTIME_DIR (per-user tmpfs) with a fallback to
// os.TempDir(); its name carries a hash of the absolute prefix so installs
// of one formula into different prefixes do not contend.
func lockFilePath(getenv func(string) string, prefix, formula string) string {
	dir := getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	if abs, err := filepath.Abs(prefix); err == nil {
		prefix = abs
	}
	sum := sha256.Sum256([]byte(prefix))
	return filepath.Join(dir, "cellar-"+hex.EncodeToString(sum[:])[:12]+"-"+formula+".lock")
}
