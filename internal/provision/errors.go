// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

// ManualBuildHint is printed when the build tool fails.
const ManualBuildHint = "Please build it manually using './gradlew build'"

var (
	// ErrBuildToolFailure is wrapped by BuildToolError.
	ErrBuildToolFailure = errors.New("failed to build JAR file")
	// ErrBuildOutputMissing is returned when the build succeeded but left no
	// artifact at the build-output path.
	ErrBuildOutputMissing = errors.New("build output missing after build")
	// ErrStagingFailed is wrapped by StagingError.
	ErrStagingFailed = errors.New("failed to stage artifact")
)

type (
	// BuildToolError reports a build tool that exited non-zero or could not
	// be started. The CLI maps it to exit status 1.
	BuildToolError struct {
		Argv     []string
		ExitCode types.ExitCode
		// Err is the start failure, if any.
		Err error
	}

	// StagingError reports a filesystem failure while creating the target
	// directory or copying the artifact.
	StagingError struct {
		Op   string
		Path string
		Err  error
	}
)

func (e *BuildToolError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrBuildToolFailure.Error())
	fmt.Fprintf(&sb, ": %s exited with status %d", strings.Join(e.Argv, " "), e.ExitCode)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both ErrBuildToolFailure and the start failure.
func (e *BuildToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBuildToolFailure}
	}
	return []error{ErrBuildToolFailure, e.Err}
}

// Hint returns the remediation message.
func (e *BuildToolError) Hint() string { return ManualBuildHint }

func (e *StagingError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrStagingFailed, e.Op, e.Path, e.Err)
}

func (e *StagingError) Unwrap() []error {
	return []error{ErrStagingFailed, e.Err}
}
