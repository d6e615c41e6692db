// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// lookPathIn is exec.LookPath against an explicit PATH value, so the
// resolver can inspect the environment a build will run with without
// changing the process PATH.
func lookPathIn(name, pathList string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		return "", &exec.Error{Name: name, Err: errors.New("dependency names must not contain a path separator")}
	}
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Mode().Perm()&0o111 != 0 {
			return candidate, nil
		}
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}
