// SPDX-License-Identifier: MPL-2.0

//go:build unix

package installer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// installLock holds a non-blocking exclusive flock. The zero-byte lock file
// is harmless if orphaned: the kernel releases the flock when the fd is
// closed, including on a crash.
type installLock struct {
	file *os.File
}

// acquireInstallLock takes the lock at path without blocking. errLockHeld
// is returned when another process holds it.
func acquireInstallLock(path string) (*installLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errLockHeld
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	return &installLock{file: f}, nil
}

// Release unlocks and closes the lock file. It is safe to call multiple
// times.
func (l *installLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
