// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	fired chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) onChange(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, changed)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func startWatcher(t *testing.T, cfg Config) (cancel func()) {
	t.Helper()
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancelFn := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	return func() {
		cancelFn()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run did not return after cancel")
		}
	}
}

func waitFired(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("OnChange not called")
	}
}

func TestWatcher_DebouncesBuildOutput(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	libs := filepath.Join(root, "build", "libs")
	if err := os.MkdirAll(libs, 0o755); err != nil {
		t.Fatal(err)
	}

	rec := newRecorder()
	stop := startWatcher(t, Config{
		BaseDir:  root,
		Patterns: []string{"build/libs/*.jar"},
		Debounce: 100 * time.Millisecond,
		OnChange: rec.onChange,
	})
	defer stop()

	jar := filepath.Join(libs, "coral-server-1.0-SNAPSHOT.jar")
	for range 3 {
		if err := os.WriteFile(jar, []byte("jar"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	// Not matching: must not be reported.
	if err := os.WriteFile(filepath.Join(libs, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFired(t, rec)
	time.Sleep(300 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("OnChange called %d times, want 1: %v", len(calls), calls)
	}
	if !slices.Equal(calls[0], []string{"build/libs/coral-server-1.0-SNAPSHOT.jar"}) {
		t.Errorf("changed = %v", calls[0])
	}
}

func TestWatcher_FollowsRecreatedDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	rec := newRecorder()
	stop := startWatcher(t, Config{
		BaseDir:  root,
		Patterns: []string{"build/libs/*.jar"},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
	})
	defer stop()

	libs := filepath.Join(root, "build", "libs")
	if err := os.MkdirAll(libs, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to register the new directories.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(libs, "server.jar"), []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFired(t, rec)
}

func TestWatcher_IgnoresGradleCaches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cache := filepath.Join(root, ".gradle", "8.5")
	if err := os.MkdirAll(cache, 0o755); err != nil {
		t.Fatal(err)
	}

	rec := newRecorder()
	stop := startWatcher(t, Config{
		BaseDir:  root,
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
	})
	defer stop()

	if err := os.WriteFile(filepath.Join(cache, "file-hashes.bin"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("ignored path fired OnChange: %v", calls)
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run = %v, want ErrAlreadyRunning", err)
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{BaseDir: t.TempDir(), Patterns: []string{"build/[libs"}}); err == nil {
		t.Error("expected invalid pattern error")
	}
	if _, err := New(Config{BaseDir: t.TempDir(), Ignore: []string{"{a"}}); err == nil {
		t.Error("expected invalid ignore error")
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want bool
	}{
		{".gradle", true},
		{".gradle/8.5/checksums", true},
		{".git/HEAD", true},
		{"build/tmp/jar/MANIFEST.MF", true},
		{"build/classes/kotlin/main", true},
		{"python/coral_server/__pycache__/cli.pyc", true},
		{"build/libs/coral-server-1.0-SNAPSHOT.jar", false},
		{"src/main/kotlin/Main.kt", false},
	}

	for _, tt := range tests {
		if got := matchAny(defaultIgnores, tt.rel); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestPatternFor(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work/coral")
	got, err := PatternFor(root, filepath.Join(root, "build", "libs", "coral-server[1].jar"))
	if err != nil {
		t.Fatal(err)
	}
	if got != `build/libs/coral-server\[1\].jar` {
		t.Errorf("PatternFor = %q", got)
	}
	if !matchAny([]string{got}, "build/libs/coral-server[1].jar") {
		t.Error("escaped pattern should match the literal path")
	}
}
