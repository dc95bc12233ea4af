// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/coralprotocol/coral-server-dist/internal/provision"
	"github.com/coralprotocol/coral-server-dist/internal/runtime"
	"github.com/coralprotocol/coral-server-dist/pkg/platform"
	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

var (
	// ErrJavaNotFound is returned when no java executable can be located.
	ErrJavaNotFound = errors.New("java not found")
	// ErrArtifactNotStaged is returned when no server JAR has been staged.
	ErrArtifactNotStaged = errors.New("server JAR not staged")
)

type (
	// Config configures a Launcher.
	Config struct {
		// Root resolves a relative Target.
		Root string
		// Target is the staged JAR. When it is missing the newest *.jar in
		// its directory is used.
		Target string
		// Java overrides executable lookup. A bare name is looked up on PATH.
		Java    string
		JVMArgs []string
		// Environ is the child environment and the source of JAVA_HOME; nil
		// means os.Environ().
		Environ  []string
		Platform platform.Family

		Runner runtime.Runner
		Logger *slog.Logger

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer

		// LookPath defaults to exec.LookPath.
		LookPath func(string) (string, error)
	}

	// Launcher runs the server JAR.
	Launcher struct {
		cfg Config
	}

	// ArtifactNotStagedError names the location that was searched.
	ArtifactNotStagedError struct {
		Target string
	}

	// JavaNotFoundError lists the candidates that were tried.
	JavaNotFoundError struct {
		Tried []string
	}
)

func (e *ArtifactNotStagedError) Error() string {
	return fmt.Sprintf("server JAR not staged: no %s and no *.jar in %s", e.Target, filepath.Dir(e.Target))
}

func (e *ArtifactNotStagedError) Unwrap() error { return ErrArtifactNotStaged }

func (e *JavaNotFoundError) Error() string {
	return fmt.Sprintf("java not found (tried %v)", e.Tried)
}

func (e *JavaNotFoundError) Unwrap() error { return ErrJavaNotFound }

// New fills in defaults for the unset fields of cfg.
func New(cfg Config) *Launcher {
	if cfg.Environ == nil {
		cfg.Environ = os.Environ()
	}
	if cfg.Platform == "" {
		cfg.Platform = platform.CurrentFamily()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = runtime.NewExecRunner(cfg.Logger)
	}
	if cfg.LookPath == nil {
		cfg.LookPath = exec.LookPath
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	return &Launcher{cfg: cfg}
}

// Run executes `java [jvm args] -jar <jar> [args]` with stdio attached and
// returns the child's exit code.
func (l *Launcher) Run(ctx context.Context, args []string) (types.ExitCode, error) {
	jar, err := l.FindJar()
	if err != nil {
		return types.ExitFailure, err
	}
	java, err := l.FindJava()
	if err != nil {
		return types.ExitFailure, err
	}

	argv := make([]string, 0, len(l.cfg.JVMArgs)+3+len(args))
	argv = append(argv, java)
	argv = append(argv, l.cfg.JVMArgs...)
	argv = append(argv, "-jar", jar)
	argv = append(argv, args...)

	l.cfg.Logger.Debug("launching server", "java", java, "jar", jar)
	res, err := l.cfg.Runner.Run(ctx, runtime.Command{
		Argv:   argv,
		Dir:    l.cfg.Root,
		Env:    l.cfg.Environ,
		Stdin:  l.cfg.Stdin,
		Stdout: l.cfg.Stdout,
		Stderr: l.cfg.Stderr,
	})
	if err != nil {
		return types.ExitFailure, err
	}
	if res.Error != nil {
		return res.ExitCode.Normalize(), fmt.Errorf("launch %s: %w", java, res.Error)
	}
	return res.ExitCode, nil
}

// FindJar returns the configured target when it is a regular file, otherwise
// the most recently modified *.jar beside it.
func (l *Launcher) FindJar() (string, error) {
	target := l.cfg.Target
	if target == "" {
		target = string(provision.DefaultTarget)
	}
	if !filepath.IsAbs(target) && l.cfg.Root != "" {
		target = filepath.Join(l.cfg.Root, target)
	}
	if info, err := os.Stat(target); err == nil && info.Mode().IsRegular() {
		return target, nil
	}

	dir := filepath.Dir(target)
	matches, err := doublestar.Glob(os.DirFS(dir), "*.jar")
	if err != nil {
		return "", fmt.Errorf("search %s: %w", dir, err)
	}

	var (
		newest  string
		newestT time.Time
	)
	slices.Sort(matches)
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(dir, m))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if newest == "" || info.ModTime().After(newestT) {
			newest, newestT = m, info.ModTime()
		}
	}
	if newest == "" {
		return "", &ArtifactNotStagedError{Target: target}
	}
	return filepath.Join(dir, newest), nil
}

// FindJava resolves the java executable: the configured override, then
// $JAVA_HOME/bin/java, then PATH.
func (l *Launcher) FindJava() (string, error) {
	if l.cfg.Java != "" {
		if filepath.IsAbs(l.cfg.Java) || filepath.Base(l.cfg.Java) != l.cfg.Java {
			if isExecutableFile(l.cfg.Java) {
				return l.cfg.Java, nil
			}
			return "", &JavaNotFoundError{Tried: []string{l.cfg.Java}}
		}
		p, err := l.cfg.LookPath(l.cfg.Java)
		if err != nil {
			return "", &JavaNotFoundError{Tried: []string{l.cfg.Java}}
		}
		return p, nil
	}

	exe := "java"
	if l.cfg.Platform == platform.FamilyWindows {
		exe = "java.exe"
	}

	var tried []string
	if home := runtime.EnvToMap(l.cfg.Environ)["JAVA_HOME"]; home != "" {
		candidate := filepath.Join(home, "bin", exe)
		if isExecutableFile(candidate) {
			return candidate, nil
		}
		tried = append(tried, candidate)
	}
	p, err := l.cfg.LookPath(exe)
	if err == nil {
		return p, nil
	}
	tried = append(tried, exe+" on PATH")
	return "", &JavaNotFoundError{Tried: tried}
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
