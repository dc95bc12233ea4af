// SPDX-License-Identifier: MPL-2.0

// Package workspace locates the coral-server project root: the directory that
// holds the Gradle wrapper and from which all configured paths are resolved.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrRootNotFound is returned when no marker exists in the start directory or
// any of its parents.
var ErrRootNotFound = errors.New("project root not found")

// DefaultMarkers are checked in each directory, in order.
var DefaultMarkers = []string{
	"coral.cue",
	"gradlew",
	"gradlew.bat",
	"settings.gradle.kts",
	"build.gradle.kts",
}

type (
	// Finder walks upward from a start directory looking for marker files.
	Finder struct {
		Markers []string
	}

	// RootNotFoundError records where the search began.
	RootNotFoundError struct {
		Start string
	}
)

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("no project root above %s (looked for a Gradle wrapper or coral.cue)", e.Start)
}

func (e *RootNotFoundError) Unwrap() error { return ErrRootNotFound }

// NewFinder returns a Finder using DefaultMarkers.
func NewFinder() *Finder {
	return &Finder{Markers: DefaultMarkers}
}

// FindRoot returns the nearest directory at or above start containing one of
// the markers. A file path as start searches from its directory.
func (f *Finder) FindRoot(start string) (string, error) {
	if start == "" {
		return "", errors.New("workspace: start directory is empty")
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("workspace: %w", err)
	}
	if info, statErr := os.Stat(abs); statErr == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	for cur := filepath.Clean(abs); ; {
		if f.hasMarker(cur) {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", &RootNotFoundError{Start: abs}
		}
		cur = parent
	}
}

func (f *Finder) hasMarker(dir string) bool {
	for _, m := range f.Markers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}

// Resolve picks the project root: explicit wins as-is (made absolute),
// otherwise the nearest marked ancestor of cwd, otherwise cwd itself.
func Resolve(explicit, cwd string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("workspace: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("workspace: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("workspace: %s is not a directory", abs)
		}
		return abs, nil
	}

	root, err := NewFinder().FindRoot(cwd)
	if errors.Is(err, ErrRootNotFound) {
		return filepath.Abs(cwd)
	}
	return root, err
}
