// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"io"
	"log/slog"
	"os"

	"github.com/coralprotocol/coral-server-dist/internal/runtime"
	"github.com/coralprotocol/coral-server-dist/pkg/platform"
	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

// Default artifact locations, relative to the project root.
const (
	DefaultTarget      types.FilesystemPath = "python/coral_server/jar/coral-server-1.0-SNAPSHOT.jar"
	DefaultBuildOutput types.FilesystemPath = "build/libs/coral-server-1.0-SNAPSHOT.jar"
)

type (
	// Config holds everything an ArtifactProvisioner needs.
	Config struct {
		Paths Paths

		// Root is the project root; relative paths and the build run here.
		// Empty means the current directory.
		Root string

		// Platform picks the Gradle wrapper. Empty means the running OS.
		Platform platform.Family

		// Sandbox prefixes the build with the host spawn command.
		Sandbox platform.SandboxType

		// Command replaces the platform wrapper and Args when non-empty.
		Command string

		// Args follow the platform wrapper.
		Args []string

		// Environ is the base child environment; nil means os.Environ().
		Environ []string

		// EnvFiles and Env are layered over Environ.
		EnvFiles []string
		Env      map[string]string

		// Lock serializes concurrent runs on the same target.
		Lock bool

		// Force skips the fast path and always rebuilds.
		Force bool

		// Digest computes Size and Digest on the fast path too.
		Digest bool

		Runner runtime.Runner
		Logger *slog.Logger

		// Stdout and Stderr receive the build tool's output and the progress
		// line ("Building JAR file...").
		Stdout io.Writer
		Stderr io.Writer
	}

	// Option is a functional option for configuring a Config.
	Option func(*Config)
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Paths: Paths{
			Target:      DefaultTarget,
			BuildOutput: DefaultBuildOutput,
		},
		Platform: platform.CurrentFamily(),
		Sandbox:  platform.DetectSandbox(),
		Args:     []string{"build"},
		Lock:     true,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// WithPaths sets the target and build-output paths.
func WithPaths(p Paths) Option {
	return func(c *Config) { c.Paths = p }
}

// WithRoot sets the project root.
func WithRoot(root string) Option {
	return func(c *Config) { c.Root = root }
}

// WithPlatform overrides the platform family used to pick the wrapper.
func WithPlatform(f platform.Family) Option {
	return func(c *Config) { c.Platform = f }
}

// WithSandbox overrides sandbox detection.
func WithSandbox(st platform.SandboxType) Option {
	return func(c *Config) { c.Sandbox = st }
}

// WithCommand replaces the build command line.
func WithCommand(cmd string) Option {
	return func(c *Config) { c.Command = cmd }
}

// WithArgs sets the wrapper arguments.
func WithArgs(args ...string) Option {
	return func(c *Config) { c.Args = args }
}

// WithEnviron sets the base environment.
func WithEnviron(environ []string) Option {
	return func(c *Config) { c.Environ = environ }
}

// WithEnvFiles sets dotenv files loaded into the build environment.
func WithEnvFiles(files ...string) Option {
	return func(c *Config) { c.EnvFiles = files }
}

// WithEnv sets variables overlaid on the build environment.
func WithEnv(env map[string]string) Option {
	return func(c *Config) { c.Env = env }
}

// WithLock toggles the cross-process lock.
func WithLock(enabled bool) Option {
	return func(c *Config) { c.Lock = enabled }
}

// WithForce forces a rebuild and restage.
func WithForce(force bool) Option {
	return func(c *Config) { c.Force = force }
}

// WithDigest requests Size and Digest even on the fast path.
func WithDigest(enabled bool) Option {
	return func(c *Config) { c.Digest = enabled }
}

// WithRunner sets the process runner.
func WithRunner(r runtime.Runner) Option {
	return func(c *Config) { c.Runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithOutput sets where build output and progress go.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *Config) {
		c.Stdout = stdout
		c.Stderr = stderr
	}
}

// Apply applies the given options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
