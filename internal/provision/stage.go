// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// staged describes a freshly copied artifact.
type staged struct {
	size   int64
	digest string
}

// stageFile copies src to dst, creating dst's parent directory. The copy goes
// to a temporary file in the destination directory and is renamed into place,
// so dst is either absent or a complete regular file. Permission bits and the
// modification time of src are carried over.
func stageFile(src, dst string) (_ *staged, err error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StagingError{Op: "create directory", Path: dir, Err: err}
	}

	in, err := os.Open(src)
	if err != nil {
		return nil, &StagingError{Op: "open", Path: src, Err: err}
	}
	defer func() { _ = in.Close() }() // Read-only file; close error non-critical

	info, err := in.Stat()
	if err != nil {
		return nil, &StagingError{Op: "stat", Path: src, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &StagingError{Op: "open", Path: src, Err: errors.New("not a regular file")}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return nil, &StagingError{Op: "create", Path: dst, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), in)
	if err != nil {
		return nil, &StagingError{Op: "copy", Path: dst, Err: err}
	}
	if err = tmp.Chmod(info.Mode().Perm()); err != nil {
		return nil, &StagingError{Op: "chmod", Path: dst, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return nil, &StagingError{Op: "write", Path: dst, Err: err}
	}
	if err = os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		return nil, &StagingError{Op: "set times", Path: dst, Err: err}
	}
	if err = os.Rename(tmpName, dst); err != nil {
		return nil, &StagingError{Op: "rename", Path: dst, Err: err}
	}

	return &staged{size: n, digest: hex.EncodeToString(h.Sum(nil))}, nil
}

// FileDigest returns the size and hex SHA-256 of the file at path.
func FileDigest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = f.Close() }() // Read-only file; close error non-critical

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("hash %s: %w", path, err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
