// SPDX-License-Identifier: MPL-2.0

//go:build linux || darwin || freebsd

package provision

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// runLock holds a blocking exclusive flock. The kernel drops the lock when the
// descriptor is closed, including on crash, so an orphaned file is harmless.
type runLock struct {
	file *os.File
}

// acquireRunLock blocks until the exclusive lock on path is held.
func acquireRunLock(path string) (*runLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	return &runLock{file: f}, nil
}

// Release unlocks and closes. Safe to call more than once.
func (l *runLock) Release() {
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
