// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/fang"

	"github.com/coralprotocol/coral-server-dist/internal/issue"
	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

func TestIsLauncherInvocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg0 string
		want bool
	}{
		{"coral-server", true},
		{"/usr/local/bin/coral-server", true},
		{"coral-server.exe", true},
		{"coralpkg", false},
		{"/opt/coral/bin/coralpkg", false},
		{"coral-server-dev", false},
	}

	for _, tt := range tests {
		t.Run(tt.arg0, func(t *testing.T) {
			t.Parallel()
			if got := isLauncherInvocation(tt.arg0); got != tt.want {
				t.Errorf("isLauncherInvocation(%q) = %v, want %v", tt.arg0, got, tt.want)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	bare := &ExitError{Code: 3}
	if bare.Error() != "exit status 3" {
		t.Errorf("Error() = %q", bare.Error())
	}

	cause := errors.New("build failed")
	wrapped := &ExitError{Code: types.ExitFailure, Err: cause}
	if wrapped.Error() != "build failed" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is(wrapped, cause) = false")
	}
}

func TestNewServiceError_NilPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("newServiceError(nil) did not panic")
		}
	}()
	_ = newServiceError(nil, 0, "")
}

func TestRenderServiceError(t *testing.T) {
	t.Parallel()

	cause := errors.New("no jar here")
	var buf bytes.Buffer
	renderServiceError(&buf, newServiceError(cause, issue.ArtifactNotStagedId, errorLine(cause)), "notty")

	out := buf.String()
	if !strings.Contains(out, "Error:") || !strings.Contains(out, "no jar here") {
		t.Errorf("missing styled message in %q", out)
	}
	if !strings.Contains(out, "staged") {
		t.Errorf("missing issue page in %q", out)
	}
}

func TestHandleError_ExitErrorIsSilent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handleError(&buf, fang.Styles{}, &ExitError{Code: types.ExitFailure, Err: errors.New("already reported")})
	if buf.Len() != 0 {
		t.Errorf("handleError wrote %q for an ExitError", buf.String())
	}
}

func TestHandleError_ServiceErrorWithoutIssue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handleError(&buf, fang.Styles{}, newServiceError(errors.New("boom"), 0, "styled boom\n"))
	if buf.String() != "styled boom\n" {
		t.Errorf("handleError wrote %q", buf.String())
	}
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	app, err := NewApp(Dependencies{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	root := NewRootCommand(app)

	for _, name := range []string{"provision", "build", "dist", "metadata", "config", "run"} {
		c, _, err := root.Find([]string{name})
		if err != nil || c == root {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"verbose", "config", "root", "platform"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}
