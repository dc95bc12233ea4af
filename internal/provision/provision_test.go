// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	goruntime "runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coralprotocol/coral-server-dist/internal/runtime"
	"github.com/coralprotocol/coral-server-dist/pkg/platform"
	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

var jarBytes = []byte("PK\x03\x04 coral-server opaque archive bytes")

// fakeRunner records invocations. When produce is set it writes jarBytes to
// that path on each call, standing in for a successful Gradle build.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []runtime.Command
	produce  string
	exitCode types.ExitCode
	startErr error
	runErr   error
	// seenTarget records whether the target existed when the build ran.
	target     string
	seenTarget []bool
	delay      time.Duration
}

func (f *fakeRunner) Run(_ context.Context, cmd runtime.Command) (*runtime.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cmd)
	if f.target != "" {
		_, err := os.Stat(f.target)
		f.seenTarget = append(f.seenTarget, err == nil)
	}
	time.Sleep(f.delay)
	if f.runErr != nil {
		return nil, f.runErr
	}
	if f.startErr != nil {
		return runtime.NewErrorResult(runtime.ExitNotFound, f.startErr), nil
	}
	if f.exitCode != 0 {
		return runtime.NewExitCodeResult(f.exitCode), nil
	}
	if f.produce != "" {
		if err := os.MkdirAll(filepath.Dir(f.produce), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(f.produce, jarBytes, 0o644); err != nil {
			return nil, err
		}
	}
	return runtime.NewSuccessResult(), nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	root   string
	target string
	output string
	runner *fakeRunner
	stdout *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	fx := &fixture{
		root:   root,
		target: filepath.Join(root, filepath.FromSlash(string(DefaultTarget))),
		output: filepath.Join(root, filepath.FromSlash(string(DefaultBuildOutput))),
		stdout: &bytes.Buffer{},
	}
	fx.runner = &fakeRunner{produce: fx.output, target: fx.target}
	return fx
}

func (fx *fixture) provisioner(t *testing.T, opts ...Option) *ArtifactProvisioner {
	t.Helper()
	base := []Option{
		WithRoot(fx.root),
		WithRunner(fx.runner),
		WithPlatform(platform.FamilyUnix),
		WithSandbox(platform.SandboxNone),
		WithEnviron([]string{}),
		WithLock(false),
		WithOutput(fx.stdout, io.Discard),
	}
	p, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProvision_TargetExistsIsNoop(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeFile(t, fx.target, []byte("already staged"))
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(fx.target, old, old); err != nil {
		t.Fatal(err)
	}

	p := fx.provisioner(t)
	for range 2 {
		res, err := p.Provision(context.Background())
		if err != nil {
			t.Fatalf("Provision: %v", err)
		}
		if res.State != StateStaged || res.Built || res.Copied {
			t.Errorf("unexpected result %+v", res)
		}
	}

	if fx.runner.count() != 0 {
		t.Errorf("build tool invoked %d times, want 0", fx.runner.count())
	}
	got, _ := os.ReadFile(fx.target)
	if string(got) != "already staged" {
		t.Errorf("target modified: %q", got)
	}
	if info, _ := os.Stat(fx.target); !info.ModTime().Equal(old) {
		t.Errorf("target mtime changed to %v", info.ModTime())
	}
	if fx.stdout.Len() != 0 {
		t.Errorf("fast path should print nothing, got %q", fx.stdout.String())
	}
}

func TestProvision_BuildOutputExistsSkipsBuild(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeFile(t, fx.output, jarBytes)

	res, err := fx.provisioner(t).Provision(context.Background())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if fx.runner.count() != 0 {
		t.Errorf("build tool invoked %d times, want 0", fx.runner.count())
	}
	if res.Built || !res.Copied || res.State != StateStaged {
		t.Errorf("unexpected result %+v", res)
	}
	got, err := os.ReadFile(fx.target)
	if err != nil || !bytes.Equal(got, jarBytes) {
		t.Errorf("target content mismatch: %q, %v", got, err)
	}
	if res.Size != int64(len(jarBytes)) || len(res.Digest) != 64 {
		t.Errorf("Size=%d Digest=%q", res.Size, res.Digest)
	}
	if !strings.Contains(fx.stdout.String(), BuildingMessage) {
		t.Errorf("stdout = %q, want progress message", fx.stdout.String())
	}
}

func TestProvision_BuildsWhenBothMissing(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	res, err := fx.provisioner(t).Provision(context.Background())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if fx.runner.count() != 1 {
		t.Fatalf("build tool invoked %d times, want 1", fx.runner.count())
	}
	if fx.runner.seenTarget[0] {
		t.Error("target existed before the build ran; copy must follow the build")
	}
	call := fx.runner.calls[0]
	if !slices.Equal(call.Argv, []string{filepath.Join(fx.root, "gradlew"), "build"}) {
		t.Errorf("argv = %q", call.Argv)
	}
	if call.Dir != fx.root {
		t.Errorf("build dir = %q, want %q", call.Dir, fx.root)
	}
	if !res.Built || !res.Copied || res.State != StateStaged {
		t.Errorf("unexpected result %+v", res)
	}
	if got, _ := os.ReadFile(fx.target); !bytes.Equal(got, jarBytes) {
		t.Errorf("target content mismatch: %q", got)
	}
}

func TestProvision_BuildFailureIsFatal(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.runner.exitCode = 1

	res, err := fx.provisioner(t).Provision(context.Background())
	if !errors.Is(err, ErrBuildToolFailure) {
		t.Fatalf("expected ErrBuildToolFailure, got %v", err)
	}
	var bte *BuildToolError
	if !errors.As(err, &bte) {
		t.Fatalf("expected *BuildToolError, got %T", err)
	}
	if bte.ExitCode != 1 || bte.Hint() != ManualBuildHint {
		t.Errorf("BuildToolError = %+v", bte)
	}
	if res.State != StateFatal || res.Copied {
		t.Errorf("unexpected result %+v", res)
	}
	if fx.runner.count() != 1 {
		t.Errorf("build tool invoked %d times, want 1", fx.runner.count())
	}
	if _, statErr := os.Stat(fx.target); !os.IsNotExist(statErr) {
		t.Error("target must not exist after a failed build")
	}
	if _, statErr := os.Stat(filepath.Dir(fx.target)); !os.IsNotExist(statErr) {
		t.Error("target directory must not be created after a failed build")
	}
}

func TestProvision_BuildToolNotStartable(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.runner.startErr = os.ErrNotExist

	_, err := fx.provisioner(t).Provision(context.Background())
	if !errors.Is(err, ErrBuildToolFailure) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected build failure wrapping ErrNotExist, got %v", err)
	}
}

func TestProvision_RunnerError(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.runner.runErr = runtime.ErrEmptyCommand

	_, err := fx.provisioner(t).Provision(context.Background())
	var bte *BuildToolError
	if !errors.As(err, &bte) || bte.ExitCode != types.ExitFailure {
		t.Fatalf("expected BuildToolError with exit 1, got %v", err)
	}
}

func TestProvision_BuildSucceedsWithoutOutput(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.runner.produce = ""

	res, err := fx.provisioner(t).Provision(context.Background())
	if !errors.Is(err, ErrBuildOutputMissing) {
		t.Fatalf("expected ErrBuildOutputMissing, got %v", err)
	}
	if res.State != StateFatal || !res.Built || res.Copied {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestProvision_CreatesNestedTargetDirectory(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeFile(t, fx.output, jarBytes)
	target := filepath.Join(fx.root, "a", "b", "c", "server.jar")

	_, err := fx.provisioner(t, WithPaths(Paths{
		Target:      types.FilesystemPath(target),
		BuildOutput: DefaultBuildOutput,
	})).Provision(context.Background())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !types.FilesystemPath(target).IsRegularFile() {
		t.Error("target should be a regular file")
	}
}

func TestProvision_PreservesMetadata(t *testing.T) {
	t.Parallel()
	if goruntime.GOOS == "windows" {
		t.Skip("permission bits are not preserved on Windows")
	}
	fx := newFixture(t)
	writeFile(t, fx.output, jarBytes)
	if err := os.Chmod(fx.output, 0o640); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(fx.output, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if _, err := fx.provisioner(t).Provision(context.Background()); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	info, err := os.Stat(fx.target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), mtime)
	}
	entries, _ := os.ReadDir(filepath.Dir(fx.target))
	if len(entries) != 1 {
		t.Errorf("target dir should hold only the JAR, got %d entries", len(entries))
	}
}

func TestProvision_StagingFailure(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeFile(t, fx.output, jarBytes)
	// A non-empty directory at the target path cannot be replaced.
	writeFile(t, filepath.Join(fx.target, "occupied"), nil)

	res, err := fx.provisioner(t).Provision(context.Background())
	if !errors.Is(err, ErrStagingFailed) {
		t.Fatalf("expected ErrStagingFailed, got %v", err)
	}
	var se *StagingError
	if !errors.As(err, &se) || se.Op != "rename" {
		t.Errorf("expected rename StagingError, got %v", err)
	}
	if res.State != StateFatal {
		t.Errorf("State = %v", res.State)
	}
}

func TestProvision_ForceRebuilds(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeFile(t, fx.target, []byte("stale"))
	writeFile(t, fx.output, []byte("stale output"))

	res, err := fx.provisioner(t, WithForce(true)).Provision(context.Background())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if fx.runner.count() != 1 || !res.Built || !res.Copied {
		t.Errorf("force should build once and copy: calls=%d res=%+v", fx.runner.count(), res)
	}
	if got, _ := os.ReadFile(fx.target); !bytes.Equal(got, jarBytes) {
		t.Errorf("target = %q, want fresh build", got)
	}
}

func TestProvision_DigestOnFastPath(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeFile(t, fx.target, jarBytes)

	res, err := fx.provisioner(t, WithDigest(true)).Provision(context.Background())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	_, want, _ := FileDigest(fx.target)
	if res.Digest != want || res.Size != int64(len(jarBytes)) {
		t.Errorf("digest=%q size=%d", res.Digest, res.Size)
	}
}

func TestProvision_BuildEnvironment(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeFile(t, filepath.Join(fx.root, "build.env"), []byte("GRADLE_OPTS=-Xmx2g\nORG=file\n"))

	_, err := fx.provisioner(t,
		WithEnviron([]string{"HOME=/home/coral", "ORG=base"}),
		WithEnvFiles("build.env", "absent.env?"),
		WithEnv(map[string]string{"ORG": "config"}),
	).Provision(context.Background())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	env := fx.runner.calls[0].Env
	for _, want := range []string{"HOME=/home/coral", "GRADLE_OPTS=-Xmx2g", "ORG=config"} {
		if !slices.Contains(env, want) {
			t.Errorf("env %v missing %q", env, want)
		}
	}
}

func TestProvision_CommandOverride(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	_, err := fx.provisioner(t,
		WithEnv(map[string]string{"TASK": "shadowJar"}),
		WithCommand(`./gradlew -Pprofile="release build" $TASK`),
	).Provision(context.Background())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	want := []string{"./gradlew", "-Pprofile=release build", "shadowJar"}
	if got := fx.runner.calls[0].Argv; !slices.Equal(got, want) {
		t.Errorf("argv = %q, want %q", got, want)
	}
}

func TestProvision_ConcurrentRunsBuildOnce(t *testing.T) {
	t.Parallel()
	switch goruntime.GOOS {
	case "linux", "darwin", "freebsd":
	default:
		t.Skip("flock not available")
	}
	fx := newFixture(t)
	fx.runner.delay = 50 * time.Millisecond

	provisioners := make([]*ArtifactProvisioner, 4)
	for i := range provisioners {
		provisioners[i] = fx.provisioner(t, WithLock(true))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(provisioners))
	for i, p := range provisioners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = p.Provision(context.Background())
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("run %d: %v", i, err)
		}
	}
	if fx.runner.count() != 1 {
		t.Errorf("build tool invoked %d times, want 1", fx.runner.count())
	}
}

func TestProvision_Canceled(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeFile(t, fx.output, jarBytes)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := fx.provisioner(t).Provision(ctx)
	if !errors.Is(err, context.Canceled) || res.Copied {
		t.Errorf("expected cancellation before copy, got res=%+v err=%v", res, err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(WithPaths(Paths{Target: "a.jar", BuildOutput: "a.jar"})); !errors.Is(err, ErrInvalidPaths) {
		t.Errorf("same paths: %v", err)
	}
	if _, err := New(WithPaths(Paths{Target: " "})); !errors.Is(err, ErrInvalidPaths) {
		t.Errorf("blank paths: %v", err)
	}
	if _, err := New(WithPlatform("plan9")); !errors.Is(err, platform.ErrInvalidFamily) {
		t.Errorf("bad platform: %v", err)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	for s, want := range map[State]string{
		StateMissingTarget: "missing-target",
		StateBuilding:      "building",
		StateStaged:        "staged",
		StateFatal:         "fatal",
		State(0):           "state(0)",
	} {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
	if !StateStaged.Terminal() || !StateFatal.Terminal() || StateBuilding.Terminal() {
		t.Error("Terminal() mismatch")
	}
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	p := fx.provisioner(t)

	for _, final := range []State{StateStaged, StateFatal} {
		res := &Result{State: final}
		p.transition(res, StateBuilding)
		if res.State != final {
			t.Errorf("transition out of %s moved to %s", final, res.State)
		}
	}

	res := &Result{State: StateMissingTarget}
	p.transition(res, StateBuilding)
	p.transition(res, StateStaged)
	if res.State != StateStaged {
		t.Errorf("state = %s, want staged", res.State)
	}
}

func TestRestage_OverwritesTargetWithoutBuilding(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeFile(t, fx.target, []byte("stale"))
	writeFile(t, fx.output, jarBytes)

	res, err := fx.provisioner(t).Restage(context.Background())
	if err != nil {
		t.Fatalf("Restage: %v", err)
	}
	if !res.Copied || res.Built || res.State != StateStaged {
		t.Errorf("result = %+v", res)
	}
	if fx.runner.count() != 0 {
		t.Errorf("build tool ran %d times", fx.runner.count())
	}
	got, err := os.ReadFile(fx.target)
	if err != nil || !bytes.Equal(got, jarBytes) {
		t.Errorf("target = %q, %v", got, err)
	}
	if fx.stdout.Len() != 0 {
		t.Errorf("unexpected output %q", fx.stdout.String())
	}
}

func TestRestage_MissingOutput(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	writeFile(t, fx.target, []byte("staged"))

	res, err := fx.provisioner(t).Restage(context.Background())
	if !errors.Is(err, ErrBuildOutputMissing) {
		t.Fatalf("Restage() = %v, want ErrBuildOutputMissing", err)
	}
	if res.State != StateFatal {
		t.Errorf("state = %v", res.State)
	}
	got, _ := os.ReadFile(fx.target)
	if string(got) != "staged" {
		t.Errorf("target modified: %q", got)
	}
}

func TestProvision_UnusableRuntimeDirFallsBack(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(t.TempDir(), "missing-runtime-dir"))

	fx := newFixture(t)
	writeFile(t, fx.output, jarBytes)

	res, err := fx.provisioner(t, WithLock(true)).Provision(context.Background())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !res.Copied || res.State != StateStaged {
		t.Errorf("unexpected result %+v", res)
	}
	if fx.runner.count() != 0 {
		t.Errorf("build tool invoked %d times, want 0", fx.runner.count())
	}
}

func TestRestage_UnusableRuntimeDirFallsBack(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(t.TempDir(), "missing-runtime-dir"))

	fx := newFixture(t)
	writeFile(t, fx.output, jarBytes)

	if _, err := fx.provisioner(t, WithLock(true)).Restage(context.Background()); err != nil {
		t.Fatalf("Restage: %v", err)
	}
	if got, _ := os.ReadFile(fx.target); !bytes.Equal(got, jarBytes) {
		t.Errorf("target content mismatch: %q", got)
	}
}

func TestProvision_WindowsWrapperRunsFromRoot(t *testing.T) {
	if goruntime.GOOS == "windows" {
		t.Skip("wrapper fixture is a shell script")
	}
	t.Parallel()

	fx := newFixture(t)
	script := "#!/bin/sh\nmkdir -p build/libs\nprintf 'PK built' > build/libs/coral-server-1.0-SNAPSHOT.jar\n"
	if err := os.WriteFile(filepath.Join(fx.root, "gradlew.bat"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	p := fx.provisioner(t,
		WithPlatform(platform.FamilyWindows),
		WithRunner(runtime.NewExecRunner(nil)),
		WithEnviron(os.Environ()),
	)
	res, err := p.Provision(context.Background())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !res.Built || !res.Copied {
		t.Errorf("unexpected result %+v", res)
	}
	if got, _ := os.ReadFile(fx.target); string(got) != "PK built" {
		t.Errorf("target content = %q", got)
	}
}
