// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrEmptyCommand is returned when a Command has no program.
var ErrEmptyCommand = errors.New("empty command")

type (
	// Command describes one child process.
	Command struct {
		// Argv is the program followed by its arguments.
		Argv []string
		// Dir is the working directory; empty means the current directory.
		Dir string
		// Env is the full child environment in KEY=value form. Nil inherits
		// the parent environment.
		Env    []string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Runner executes a Command synchronously.
	Runner interface {
		Run(ctx context.Context, cmd Command) (*Result, error)
	}

	// ExecRunner runs commands with os/exec.
	ExecRunner struct {
		logger *slog.Logger
	}
)

// Validate returns ErrEmptyCommand when Argv has no program.
func (c Command) Validate() error {
	if len(c.Argv) == 0 || strings.TrimSpace(c.Argv[0]) == "" {
		return ErrEmptyCommand
	}
	return nil
}

// String renders Argv for logs.
func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// NewExecRunner creates an ExecRunner. A nil logger uses slog.Default.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger}
}

// Run starts cmd, waits for it and reports its exit status. The returned error
// is non-nil only when cmd is malformed; start failures and non-zero exits are
// carried in the Result.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	r.logger.Debug("exec", "argv", cmd.String(), "dir", cmd.Dir)

	err := c.Run()
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return NewErrorResult(1, fmt.Errorf("%s: %w", cmd.Argv[0], ctxErr)), nil
	}
	return extractExitCode(err), nil
}
