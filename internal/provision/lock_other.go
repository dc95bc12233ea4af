// SPDX-License-Identifier: MPL-2.0

//go:build !(linux || darwin || freebsd)

package provision

// runLock is a no-op where flock is unavailable.
type runLock struct{}

func acquireRunLock(string) (*runLock, error) {
	return &runLock{}, nil
}

// Release is a no-op.
func (l *runLock) Release() {}
