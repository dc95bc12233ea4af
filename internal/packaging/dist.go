// SPDX-License-Identifier: MPL-2.0

package packaging

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rusq/fsadapter"
)

// PkgInfoFileName holds the rendered JSON metadata inside a dist.
const PkgInfoFileName = "PKG-INFO.json"

// DistResult describes a written distribution.
type DistResult struct {
	// Location is the zip file or directory that was written.
	Location string
	// Base is the top-level "<name>-<version>" directory inside Location.
	Base      string
	Checksums []ChecksumEntry
	Size      int64
}

// IsZip reports whether out names a zip archive.
func IsZip(out string) bool {
	return strings.EqualFold(filepath.Ext(out), ".zip")
}

// DefaultDistPath returns "<dir>/<name>-<version>.zip".
func DefaultDistPath(dir string, md *Metadata) string {
	return filepath.Join(dir, md.ArchiveBase()+".zip")
}

// WriteDist writes decl to out: a zip archive when out ends in .zip,
// otherwise a directory tree. Everything lands under "<name>-<version>/",
// which also holds the README, PKG-INFO.json and a SHA256SUMS covering every
// other file.
func WriteDist(ctx context.Context, decl *Declaration, out string) (*DistResult, error) {
	md := decl.Metadata
	base := md.ArchiveBase()

	if IsZip(out) {
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, err
		}
	}
	fsa, err := fsadapter.New(out)
	if err != nil {
		return nil, fmt.Errorf("open dist %s: %w", out, err)
	}
	closed := false
	defer func() {
		// the zip adapter holds its lock after Close, so close exactly once
		if !closed {
			_ = fsa.Close()
		}
	}()

	res := &DistResult{Location: out, Base: base}
	add := func(name string, r io.Reader) error {
		w, err := fsa.Create(path.Join(base, name))
		if err != nil {
			return err
		}
		h := sha256.New()
		n, err := io.Copy(io.MultiWriter(w, h), r)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		res.Size += n
		res.Checksums = append(res.Checksums, ChecksumEntry{Hash: hex.EncodeToString(h.Sum(nil)), Filename: name})
		return nil
	}
	addFile := func(name, src string) error {
		f, err := os.Open(src)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		return add(name, f)
	}

	sources, err := packageSources(decl)
	if err != nil {
		return nil, err
	}
	files := make(map[string]string, len(decl.Files)+len(sources))
	for _, df := range decl.Files {
		files[df.ArchivePath(md.PackageDir)] = df.Source
	}
	for name, src := range sources {
		files[name] = src
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := addFile(name, files[name]); err != nil {
			return nil, err
		}
	}

	if err := add(path.Base(filepath.ToSlash(md.Readme)), strings.NewReader(decl.LongDescription)); err != nil {
		return nil, err
	}
	info, err := Render(md, FormatJSON)
	if err != nil {
		return nil, err
	}
	if err := add(PkgInfoFileName, strings.NewReader(string(info))); err != nil {
		return nil, err
	}

	if err := fsa.WriteFile(path.Join(base, ChecksumsFileName), FormatChecksums(res.Checksums), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ChecksumsFileName, err)
	}
	closed = true
	if err := fsa.Close(); err != nil {
		return nil, fmt.Errorf("close dist %s: %w", out, err)
	}
	return res, nil
}

// packageSources maps archive names to the .py files directly inside each
// declared package.
func packageSources(decl *Declaration) (map[string]string, error) {
	md := decl.Metadata
	pkgRoot := filepath.Join(decl.Root, filepath.FromSlash(md.PackageDir))
	out := make(map[string]string)
	for _, pkg := range decl.Packages {
		rel := strings.ReplaceAll(pkg, ".", "/")
		dir := filepath.Join(pkgRoot, filepath.FromSlash(rel))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", pkg, err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || filepath.Ext(e.Name()) != ".py" {
				continue
			}
			out[path.Join(filepath.ToSlash(md.PackageDir), rel, e.Name())] = filepath.Join(dir, e.Name())
		}
	}
	return out, nil
}

// VerifyDist reads back the SHA256SUMS of a dist written by WriteDist and
// checks every file it lists.
func VerifyDist(res *DistResult) error {
	if !IsZip(res.Location) {
		return VerifyChecksums(os.DirFS(filepath.Join(res.Location, res.Base)))
	}

	zr, err := zip.OpenReader(res.Location)
	if err != nil {
		return fmt.Errorf("open dist %s: %w", res.Location, err)
	}
	defer func() { _ = zr.Close() }()

	sub, err := fs.Sub(zr, res.Base)
	if err != nil {
		return err
	}
	return VerifyChecksums(sub)
}
