// SPDX-License-Identifier: MPL-2.0

package packaging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrReadmeNotFound is returned when the long-description file cannot be read.
	ErrReadmeNotFound = errors.New("readme not found")
	// ErrNoPackageData is returned when the package-data globs match no file,
	// which means the server JAR has not been staged.
	ErrNoPackageData = errors.New("package data matched no files")
)

type (
	// Declaration is the resolved package declaration for a project root.
	Declaration struct {
		Metadata        *Metadata
		Root            string
		LongDescription string
		// Packages are dotted package names under Metadata.PackageDir.
		Packages []string
		Files    []DataFile
	}

	// DataFile is one package-data file matched by a glob.
	DataFile struct {
		Package string
		// Name is slash-separated and relative to the package directory.
		Name string
		// Source is the absolute path on disk.
		Source string
		Size   int64
	}

	// NoPackageDataError names the globs that matched nothing.
	NoPackageDataError struct {
		Dir      string
		Patterns map[string][]string
	}
)

func (e *NoPackageDataError) Error() string {
	var parts []string
	for _, pkg := range slices.Sorted(maps.Keys(e.Patterns)) {
		parts = append(parts, fmt.Sprintf("%s: %s", pkg, strings.Join(e.Patterns[pkg], ", ")))
	}
	return fmt.Sprintf("%s under %s (%s)", ErrNoPackageData, e.Dir, strings.Join(parts, "; "))
}

func (e *NoPackageDataError) Unwrap() error { return ErrNoPackageData }

// ArchivePath returns the file's slash path relative to the project root.
func (f DataFile) ArchivePath(packageDir string) string {
	return path.Join(filepath.ToSlash(packageDir), strings.ReplaceAll(f.Package, ".", "/"), f.Name)
}

// Declare resolves md against root: it reads the long description, finds the
// packages and expands the package-data globs.
func Declare(ctx context.Context, root string, md *Metadata) (*Declaration, error) {
	if err := md.Validate(); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	readmePath := filepath.Join(root, filepath.FromSlash(md.Readme))
	readme, err := os.ReadFile(readmePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadmeNotFound, err)
	}

	pkgRoot := filepath.Join(root, filepath.FromSlash(md.PackageDir))
	packages := md.Packages
	if len(packages) == 0 {
		if packages, err = FindPackages(pkgRoot); err != nil {
			return nil, err
		}
	}

	decl := &Declaration{
		Metadata:        md,
		Root:            root,
		LongDescription: string(readme),
		Packages:        packages,
	}

	for _, pkg := range slices.Sorted(maps.Keys(md.PackageData)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := globPackageData(pkgRoot, pkg, md.PackageData[pkg])
		if err != nil {
			return nil, err
		}
		decl.Files = append(decl.Files, files...)
	}
	if len(decl.Files) == 0 {
		return nil, &NoPackageDataError{Dir: pkgRoot, Patterns: md.PackageData}
	}
	return decl, nil
}

// FindPackages returns the dotted names of every directory under dir that
// holds an __init__.py, sorted. A missing dir yields no packages.
func FindPackages(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/__init__.py")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("find packages in %s: %w", dir, err)
	}

	packages := make([]string, 0, len(matches))
	for _, m := range matches {
		d := path.Dir(m)
		if d == "." {
			continue
		}
		packages = append(packages, strings.ReplaceAll(d, "/", "."))
	}
	slices.Sort(packages)
	return packages, nil
}

func globPackageData(pkgRoot, pkg string, patterns []string) ([]DataFile, error) {
	dir := filepath.Join(pkgRoot, filepath.FromSlash(strings.ReplaceAll(pkg, ".", "/")))
	fsys := os.DirFS(dir)

	seen := make(map[string]bool)
	var files []DataFile
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("package_data.%s: %w", pkg, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			info, err := fs.Stat(fsys, m)
			if err != nil {
				return nil, err
			}
			if !info.Mode().IsRegular() {
				continue
			}
			seen[m] = true
			files = append(files, DataFile{
				Package: pkg,
				Name:    m,
				Source:  filepath.Join(dir, filepath.FromSlash(m)),
				Size:    info.Size(),
			})
		}
	}
	slices.SortFunc(files, func(a, b DataFile) int { return strings.Compare(a.Name, b.Name) })
	return files, nil
}
