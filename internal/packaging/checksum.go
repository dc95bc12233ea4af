// SPDX-License-Identifier: MPL-2.0

package packaging

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

// ChecksumsFileName is the sha256sum manifest written into every dist.
const ChecksumsFileName = "SHA256SUMS"

var (
	// ErrChecksumMismatch indicates a file's SHA256 does not match its entry.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	errNoValidEntries = errors.New("no valid checksum entries found")
)

type (
	// ChecksumEntry is one line of a SHA256SUMS file.
	ChecksumEntry struct {
		Hash     string // lowercase hex SHA256
		Filename string // slash-separated, relative to the dist base
	}

	// ChecksumError reports a file whose content does not match SHA256SUMS.
	ChecksumError struct {
		Filename string
		Expected string
		Got      string
	}
)

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// FormatChecksums renders entries in sha256sum output format.
func FormatChecksums(entries []ChecksumEntry) []byte {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Hash)
		b.WriteString("  ")
		b.WriteString(e.Filename)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// ParseChecksums parses sha256sum output ("<hex>  <filename>" per line).
// Blank and malformed lines are skipped; an input with no valid entry is an
// error.
func ParseChecksums(r io.Reader) ([]ChecksumEntry, error) {
	var entries []ChecksumEntry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		hash, filename, ok := strings.Cut(line, "  ")
		if !ok {
			continue
		}
		filename = strings.TrimSpace(filename)
		if filename == "" || !isValidHexHash(hash) {
			continue
		}

		entries = append(entries, ChecksumEntry{
			Hash:     strings.ToLower(hash),
			Filename: filename,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checksums: %w", err)
	}
	if len(entries) == 0 {
		return nil, errNoValidEntries
	}
	return entries, nil
}

// VerifyChecksums reads SHA256SUMS from the root of fsys and checks every
// listed file. Pass os.DirFS(<dist>/<base>) for a directory dist, or
// fs.Sub of a zip reader for an archive.
func VerifyChecksums(fsys fs.FS) error {
	f, err := fsys.Open(ChecksumsFileName)
	if err != nil {
		return err
	}
	entries, err := ParseChecksums(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	var errs []error
	for _, e := range entries {
		got, err := hashFSFile(fsys, e.Filename)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if got != e.Hash {
			errs = append(errs, &ChecksumError{Filename: e.Filename, Expected: e.Hash, Got: got})
		}
	}
	return errors.Join(errs...)
}

func hashFSFile(fsys fs.FS, name string) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", name, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isValidHexHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
