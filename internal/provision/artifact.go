// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/coralprotocol/coral-server-dist/internal/runtime"
	"github.com/coralprotocol/coral-server-dist/pkg/fspath"
	"github.com/coralprotocol/coral-server-dist/pkg/types"

	"github.com/dustin/go-humanize"
)

// BuildingMessage is printed before the artifact is built or copied.
const BuildingMessage = "Building JAR file..."

// ArtifactProvisioner implements Provisioner for the server JAR.
type ArtifactProvisioner struct {
	cfg *Config
}

var _ Provisioner = (*ArtifactProvisioner)(nil)

// New creates an ArtifactProvisioner from DefaultConfig and opts.
func New(opts ...Option) (*ArtifactProvisioner, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return NewWithConfig(cfg)
}

// NewWithConfig creates an ArtifactProvisioner from an explicit Config.
func NewWithConfig(cfg *Config) (*ArtifactProvisioner, error) {
	if err := cfg.Paths.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Platform.OrCurrent().Validate(); err != nil {
		return nil, err
	}
	if cfg.Runner == nil {
		cfg.Runner = runtime.NewExecRunner(cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	if cfg.Stderr == nil {
		cfg.Stderr = io.Discard
	}
	return &ArtifactProvisioner{cfg: cfg}, nil
}

// Config returns the provisioner's configuration.
func (p *ArtifactProvisioner) Config() *Config { return p.cfg }

// TargetPath returns the resolved target path.
func (p *ArtifactProvisioner) TargetPath() string {
	return string(fspath.Resolve(types.FilesystemPath(p.cfg.Root), p.cfg.Paths.Target))
}

// BuildOutputPath returns the resolved build-output path.
func (p *ArtifactProvisioner) BuildOutputPath() string {
	return string(fspath.Resolve(types.FilesystemPath(p.cfg.Root), p.cfg.Paths.BuildOutput))
}

// Provision makes sure the artifact exists at the target path.
//
// An existing target returns immediately without building or copying. A
// missing build output triggers exactly one build tool invocation; a failed
// build returns a *BuildToolError before anything is copied.
func (p *ArtifactProvisioner) Provision(ctx context.Context) (*Result, error) {
	target := p.TargetPath()
	output := p.BuildOutputPath()
	res := &Result{State: StateMissingTarget, Target: target}

	if !p.cfg.Force && types.FilesystemPath(target).IsRegularFile() {
		return p.fastPath(res)
	}

	if p.cfg.Lock {
		lock := p.acquireLock(target)
		defer lock.Release()

		// Another run may have staged the artifact while we waited.
		if !p.cfg.Force && types.FilesystemPath(target).IsRegularFile() {
			return p.fastPath(res)
		}
	}

	p.cfg.Logger.Debug("artifact missing", "state", res.State, "target", target)
	_, _ = fmt.Fprintln(p.cfg.Stdout, BuildingMessage)

	if p.cfg.Force || !types.FilesystemPath(output).IsRegularFile() {
		p.transition(res, StateBuilding)
		if err := p.build(ctx); err != nil {
			return p.fatal(res, err)
		}
		res.Built = true

		if !types.FilesystemPath(output).IsRegularFile() {
			return p.fatal(res, fmt.Errorf("%w: %s", ErrBuildOutputMissing, output))
		}
	}

	if err := ctx.Err(); err != nil {
		return p.fatal(res, err)
	}

	st, err := stageFile(output, target)
	if err != nil {
		return p.fatal(res, err)
	}
	res.Copied = true
	res.Size = st.size
	res.Digest = st.digest
	p.transition(res, StateStaged)

	p.cfg.Logger.Info("staged artifact",
		"target", target,
		"size", humanize.Bytes(uint64(st.size)), //nolint:gosec // file sizes are non-negative
		"sha256", st.digest,
		"built", res.Built)

	return res, nil
}

// Restage copies the build output over the target without building. Watch
// mode calls it after Gradle rewrites the archive.
func (p *ArtifactProvisioner) Restage(ctx context.Context) (*Result, error) {
	target := p.TargetPath()
	output := p.BuildOutputPath()
	res := &Result{State: StateMissingTarget, Target: target}

	if p.cfg.Lock {
		lock := p.acquireLock(target)
		defer lock.Release()
	}
	if !types.FilesystemPath(output).IsRegularFile() {
		return p.fatal(res, fmt.Errorf("%w: %s", ErrBuildOutputMissing, output))
	}
	if err := ctx.Err(); err != nil {
		return p.fatal(res, err)
	}

	st, err := stageFile(output, target)
	if err != nil {
		return p.fatal(res, err)
	}
	res.Copied = true
	res.Size = st.size
	res.Digest = st.digest
	p.transition(res, StateStaged)

	p.cfg.Logger.Info("restaged artifact",
		"target", target,
		"size", humanize.Bytes(uint64(st.size)), //nolint:gosec // file sizes are non-negative
		"sha256", st.digest)
	return res, nil
}

func (p *ArtifactProvisioner) fastPath(res *Result) (*Result, error) {
	if p.cfg.Digest {
		size, digest, err := FileDigest(res.Target)
		if err != nil {
			return p.fatal(res, &StagingError{Op: "hash", Path: res.Target, Err: err})
		}
		res.Size, res.Digest = size, digest
	}
	p.transition(res, StateStaged)
	p.cfg.Logger.Debug("artifact already staged", "target", res.Target)
	return res, nil
}

func (p *ArtifactProvisioner) build(ctx context.Context) error {
	base := p.cfg.Environ
	if base == nil {
		base = os.Environ()
	}
	environ, err := runtime.BuildEnv(runtime.EnvSpec{
		Base:    base,
		Files:   p.cfg.EnvFiles,
		BaseDir: p.cfg.Root,
		Vars:    p.cfg.Env,
	})
	if err != nil {
		return fmt.Errorf("build environment: %w", err)
	}

	argv, err := BuildArgv(p.cfg, environ)
	if err != nil {
		return err
	}

	p.cfg.Logger.Debug("running build tool", "argv", argv, "dir", p.cfg.Root)

	result, err := p.cfg.Runner.Run(ctx, runtime.Command{
		Argv:   argv,
		Dir:    p.cfg.Root,
		Env:    environ,
		Stdout: p.cfg.Stdout,
		Stderr: p.cfg.Stderr,
	})
	if err != nil {
		return &BuildToolError{Argv: argv, ExitCode: types.ExitFailure, Err: err}
	}
	if !result.Success() {
		return &BuildToolError{Argv: argv, ExitCode: result.ExitCode.Normalize(), Err: result.Error}
	}
	return nil
}

// transition moves res to the next state. Staged and Fatal are final.
func (p *ArtifactProvisioner) transition(res *Result, to State) {
	if res.State.Terminal() {
		p.cfg.Logger.Warn("ignoring transition out of terminal state", "from", res.State, "to", to)
		return
	}
	p.cfg.Logger.Debug("provision state", "from", res.State, "to", to)
	res.State = to
}

func (p *ArtifactProvisioner) fatal(res *Result, err error) (*Result, error) {
	p.transition(res, StateFatal)
	return res, err
}
