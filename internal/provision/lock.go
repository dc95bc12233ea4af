// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

// lockDirs lists the directories tried for the lock file, in order:
// $XDG_RUNTIME_DIR when set, then the temp dir. Neither is inside the package
// directory, so a failed build leaves nothing behind there.
func lockDirs(getenv func(string) string) []string {
	tmp := os.TempDir()
	if dir := getenv("XDG_RUNTIME_DIR"); dir != "" && filepath.Clean(dir) != filepath.Clean(tmp) {
		return []string{dir, tmp}
	}
	return []string{tmp}
}

// lockFileName is stable per target.
func lockFileName(target string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(target)))
	return "coralpkg-" + hex.EncodeToString(sum[:6]) + ".lock"
}

// acquireLock takes the run lock for target in the first usable lock
// directory. When none is usable it warns and returns nil: provisioning
// proceeds unguarded rather than failing.
func (p *ArtifactProvisioner) acquireLock(target string) *runLock {
	name := lockFileName(target)
	for _, dir := range lockDirs(os.Getenv) {
		lock, err := acquireRunLock(filepath.Join(dir, name))
		if err == nil {
			return lock
		}
		p.cfg.Logger.Debug("lock directory unusable", "dir", dir, "error", err)
	}
	p.cfg.Logger.Warn("continuing without run lock", "target", target)
	return nil
}
