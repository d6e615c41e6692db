// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package installer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// installLock is an O_EXCL lock file. Unlike flock it survives a crash, in
// which case the stale file has to be removed by hand.
type installLock struct {
	path string
}

func acquireInstallLock(path string) (*installLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errLockHeld
		}
		return nil, fmt.Errorf("create lock file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	return &installLock{path: path}, nil
}

// Release removes the lock file. It is safe to call multiple times.
func (l *installLock) Release() {
	if l == nil || l.path == "" {
		return
	}
	if err := os.Remove(l.path); err != nil {
		slog.Debug("lock file remove failed", "error", err)
	}
	l.path = ""
}
