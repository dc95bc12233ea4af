// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/coralprotocol/coral-server-dist/internal/config"
	"github.com/coralprotocol/coral-server-dist/internal/issue"
	"github.com/coralprotocol/coral-server-dist/internal/packaging"
	"github.com/coralprotocol/coral-server-dist/internal/provision"
	"github.com/coralprotocol/coral-server-dist/internal/runtime"
	"github.com/coralprotocol/coral-server-dist/internal/workspace"
	"github.com/coralprotocol/coral-server-dist/pkg/platform"
	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives an App and delegates through it.
	App struct {
		Config config.Provider
		// Runner executes the build tool and the JVM. Nil means os/exec.
		Runner runtime.Runner
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Runner runtime.Runner
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// rootFlagValues holds the persistent flags.
	rootFlagValues struct {
		configPath string
		verbose    bool
		root       string
		platform   string
	}

	// session is the per-invocation state shared by command handlers.
	session struct {
		root     string
		cfg      *config.Config
		verbose  bool
		platform platform.Family
		logger   *log.Logger
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		Runner: deps.Runner,
		stdin:  deps.Stdin,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

// newSession resolves the project root, loads configuration and sets up
// logging for one command invocation.
func (a *App) newSession(ctx context.Context, flags *rootFlagValues) (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := workspace.Resolve(flags.root, cwd)
	if err != nil {
		return nil, err
	}

	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(flags.configPath),
		ProjectRoot:    types.FilesystemPath(root),
	})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, errorLine(err))
	}

	s := &session{
		root:    root,
		cfg:     cfg,
		verbose: flags.verbose || cfg.UI.Verbose,
	}
	if flags.platform != "" {
		if s.platform, err = platform.ParseFamily(flags.platform); err != nil {
			return nil, err
		}
	}
	s.logger = newLogger(a.stderr, s.verbose)
	s.logger.Debug("session", "root", root, "platform", s.platform.OrCurrent())
	return s, nil
}

// glamourStyle is the issue rendering style for this session.
func (s *session) glamourStyle() string {
	if s == nil {
		return config.ColorSchemeAuto.GlamourStyle()
	}
	return s.cfg.UI.ColorScheme.GlamourStyle()
}

// provisioner builds the ArtifactProvisioner from configuration.
func (a *App) provisioner(s *session, force bool) (*provision.ArtifactProvisioner, error) {
	envFiles := make([]string, len(s.cfg.Build.EnvFiles))
	for i, f := range s.cfg.Build.EnvFiles {
		envFiles[i] = string(f)
	}

	opts := []provision.Option{
		provision.WithRoot(s.root),
		provision.WithPaths(provision.Paths{
			Target:      s.cfg.Paths.Target,
			BuildOutput: s.cfg.Paths.BuildOutput,
		}),
		provision.WithCommand(s.cfg.Build.Command),
		provision.WithArgs(s.cfg.Build.Args...),
		provision.WithEnvFiles(envFiles...),
		provision.WithEnv(s.cfg.Build.Env),
		provision.WithLock(s.cfg.Provision.Lock),
		provision.WithForce(force),
		provision.WithLogger(componentLogger(s.logger, "provision")),
		provision.WithOutput(a.stdout, a.stderr),
	}
	if s.platform != "" {
		opts = append(opts, provision.WithPlatform(s.platform))
	}
	if a.Runner != nil {
		opts = append(opts, provision.WithRunner(a.Runner))
	}
	return provision.New(opts...)
}

// metadata returns the declared metadata: the coral.cue manifest when the
// project has one, otherwise the defaults with the configured README.
func (a *App) metadata(s *session) (*packaging.Metadata, error) {
	manifest := filepath.Join(s.root, packaging.ManifestFileName)
	md, err := packaging.LoadManifest(manifest)
	switch {
	case err == nil:
		s.logger.Debug("loaded manifest", "path", manifest)
		return md, nil
	case errors.Is(err, fs.ErrNotExist):
		md = packaging.DefaultMetadata()
		md.Readme = filepath.ToSlash(string(s.cfg.Paths.Readme))
		return md, nil
	default:
		return nil, issue.WrapWithContext(err, "load manifest", manifest)
	}
}

// provisionFailure maps a provisioning error to what the user sees.
func (a *App) provisionFailure(s *session, err error) error {
	var bte *provision.BuildToolError
	switch {
	case errors.As(err, &bte):
		fmt.Fprintln(a.stdout, buildFailurePrefix+bte.Hint())
		if s.verbose {
			renderServiceError(a.stderr, newServiceError(err, issue.BuildToolFailedId, errorLine(err)), s.glamourStyle())
		}
		return &ExitError{Code: types.ExitFailure, Err: err}
	case errors.Is(err, provision.ErrBuildOutputMissing):
		return newServiceError(err, issue.BuildOutputMissingId, errorLine(err))
	case errors.Is(err, provision.ErrStagingFailed):
		return newServiceError(err, issue.StagingFailedId, errorLine(err))
	default:
		return err
	}
}

// declareFailure maps a declaration error to what the user sees.
func declareFailure(err error) error {
	switch {
	case errors.Is(err, packaging.ErrReadmeNotFound):
		return newServiceError(err, issue.ReadmeNotFoundId, errorLine(err))
	case errors.Is(err, packaging.ErrNoPackageData):
		return newServiceError(err, issue.NoPackageDataId, errorLine(err))
	default:
		return err
	}
}

func sortedEnvKeys(env map[string]string) []string {
	return slices.Sorted(maps.Keys(env))
}
