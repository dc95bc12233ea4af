// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		marker string
	}{
		{"unix wrapper", "gradlew"},
		{"windows wrapper", "gradlew.bat"},
		{"kotlin build", "build.gradle.kts"},
		{"manifest", "coral.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			touch(t, filepath.Join(root, tt.marker))
			nested := filepath.Join(root, "python", "coral_server", "jar")
			if err := os.MkdirAll(nested, 0o755); err != nil {
				t.Fatal(err)
			}

			got, err := NewFinder().FindRoot(nested)
			if err != nil {
				t.Fatalf("FindRoot: %v", err)
			}
			want, _ := filepath.EvalSymlinks(root)
			if gotEval, _ := filepath.EvalSymlinks(got); gotEval != want {
				t.Errorf("FindRoot = %q, want %q", got, root)
			}
		})
	}
}

func TestFindRoot_FromFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "gradlew"))
	file := filepath.Join(root, "src", "Main.kt")
	touch(t, file)

	got, err := NewFinder().FindRoot(file)
	if err != nil {
		t.Fatalf("FindRoot: %v", err)
	}
	if filepath.Base(got) != filepath.Base(root) {
		t.Errorf("FindRoot = %q, want %q", got, root)
	}
}

func TestFindRoot_NotFound(t *testing.T) {
	t.Parallel()

	f := &Finder{Markers: []string{"no-such-marker-for-coral-tests"}}
	_, err := f.FindRoot(t.TempDir())
	if !errors.Is(err, ErrRootNotFound) {
		t.Fatalf("expected ErrRootNotFound, got %v", err)
	}
	var rnf *RootNotFoundError
	if !errors.As(err, &rnf) || rnf.Start == "" {
		t.Errorf("expected RootNotFoundError with start, got %v", err)
	}
}

func TestFindRoot_Empty(t *testing.T) {
	t.Parallel()

	if _, err := NewFinder().FindRoot(""); err == nil {
		t.Error("expected error for empty start")
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "gradlew"))
	sub := filepath.Join(root, "docs")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Resolve("", sub)
	if err != nil || filepath.Base(got) != filepath.Base(root) {
		t.Errorf("Resolve(\"\", sub) = %q, %v", got, err)
	}

	explicit := t.TempDir()
	if got, err := Resolve(explicit, sub); err != nil || got != explicit {
		t.Errorf("Resolve(explicit) = %q, %v", got, err)
	}

	if _, err := Resolve(filepath.Join(explicit, "missing"), sub); err == nil {
		t.Error("Resolve with missing explicit root should fail")
	}
	if _, err := Resolve(filepath.Join(root, "gradlew"), sub); err == nil {
		t.Error("Resolve with a file as root should fail")
	}
}
