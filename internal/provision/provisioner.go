// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

// State values. StateStaged and StateFatal are terminal.
const (
	StateMissingTarget State = iota + 1
	StateBuilding
	StateStaged
	StateFatal
)

// ErrInvalidPaths is the sentinel error wrapped by InvalidPathsError.
var ErrInvalidPaths = errors.New("invalid provisioning paths")

type (
	// Provisioner makes the server artifact present at its packaging location.
	Provisioner interface {
		Provision(ctx context.Context) (*Result, error)
	}

	// State is the provisioner's position in its run.
	State int

	// Paths locates both ends of the copy. Relative paths are resolved against
	// the project root.
	Paths struct {
		// Target is where the artifact is staged for packaging.
		Target types.FilesystemPath
		// BuildOutput is where the build tool deposits the artifact.
		BuildOutput types.FilesystemPath
	}

	// InvalidPathsError collects field errors from Paths.Validate.
	InvalidPathsError struct {
		FieldErrors []error
	}

	// Result describes a finished provisioning run.
	Result struct {
		State State
		// Built is true when the build tool was invoked.
		Built bool
		// Copied is true when the artifact was (re)staged.
		Copied bool
		// Target is the resolved artifact path.
		Target string
		// Size and Digest describe the staged file; both are zero on the fast
		// path unless the caller asked for a digest.
		Size   int64
		Digest string
	}
)

func (s State) String() string {
	switch s {
	case StateMissingTarget:
		return "missing-target"
	case StateBuilding:
		return "building"
	case StateStaged:
		return "staged"
	case StateFatal:
		return "fatal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateStaged || s == StateFatal
}

// Validate checks that both paths are set and distinct.
func (p Paths) Validate() error {
	var errs []error
	if err := p.Target.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("target: %w", err))
	}
	if err := p.BuildOutput.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("build output: %w", err))
	}
	if len(errs) == 0 && p.Target == p.BuildOutput {
		errs = append(errs, fmt.Errorf("target and build output are the same path %q", p.Target))
	}
	if len(errs) > 0 {
		return &InvalidPathsError{FieldErrors: errs}
	}
	return nil
}

func (e *InvalidPathsError) Error() string {
	return fmt.Sprintf("invalid provisioning paths: %v", errors.Join(e.FieldErrors...))
}

func (e *InvalidPathsError) Unwrap() error { return ErrInvalidPaths }
