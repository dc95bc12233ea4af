// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"io/fs"
	"os/exec"

	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

// ExitNotFound mirrors the shell's status for a program that cannot be found.
const ExitNotFound types.ExitCode = 127

// Result is the outcome of one child process.
type Result struct {
	// ExitCode is the child's exit status.
	ExitCode types.ExitCode
	// Error is set when the child could not be started or its status was
	// unusable. ExitCode is non-zero whenever Error is set.
	Error error
}

// NewErrorResult creates a Result with the given exit code and error.
func NewErrorResult(code types.ExitCode, err error) *Result {
	return &Result{ExitCode: code, Error: err}
}

// NewSuccessResult creates a Result with exit code 0 and no error.
func NewSuccessResult() *Result {
	return &Result{}
}

// NewExitCodeResult creates a Result for a child that ran and exited with code.
func NewExitCodeResult(code types.ExitCode) *Result {
	return &Result{ExitCode: code}
}

// Success reports a zero exit without error.
func (r *Result) Success() bool {
	return r.ExitCode.IsSuccess() && r.Error == nil
}

// extractExitCode maps the error returned by exec.Cmd.Run to a Result.
func extractExitCode(err error) *Result {
	if err == nil {
		return NewSuccessResult()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := types.ExitCode(exitErr.ExitCode())
		if validateErr := code.Validate(); validateErr != nil {
			// Killed by signal (-1) or a platform status outside 0-255.
			return NewErrorResult(types.ExitFailure, err)
		}
		return NewExitCodeResult(code)
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return NewErrorResult(ExitNotFound, err)
	}

	return NewErrorResult(types.ExitFailure, err)
}
