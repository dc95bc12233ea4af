// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coralprotocol/coral-server-dist/internal/issue"
	"github.com/coralprotocol/coral-server-dist/internal/launcher"
	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

func newRunCommand(app *App, rf *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "run [-- server args...]",
		Short: "Launch the staged server JAR",
		Long: `Run the staged server JAR with java. Arguments after -- are passed to
the server. The exit code is the server's.`,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(cmd.Context(), rf)
			if err != nil {
				return err
			}
			code, err := app.runServer(cmd.Context(), s, args)
			if err != nil {
				return err
			}
			if !code.IsSuccess() {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
}

func (a *App) runServer(ctx context.Context, s *session, args []string) (types.ExitCode, error) {
	l := launcher.New(launcher.Config{
		Root:     s.root,
		Target:   string(s.cfg.Paths.Target),
		Java:     s.cfg.Launcher.Java,
		JVMArgs:  s.cfg.Launcher.JVMArgs,
		Platform: s.platform,
		Runner:   a.Runner,
		Logger:   componentLogger(s.logger, "run"),
		Stdin:    a.stdin,
		Stdout:   a.stdout,
		Stderr:   a.stderr,
	})

	code, err := l.Run(ctx, args)
	switch {
	case err == nil:
		return code, nil
	case errors.Is(err, launcher.ErrJavaNotFound):
		return code, newServiceError(err, issue.JavaNotFoundId, errorLine(err))
	case errors.Is(err, launcher.ErrArtifactNotStaged):
		return code, newServiceError(err, issue.ArtifactNotStagedId, errorLine(err))
	default:
		return code, err
	}
}

// launch is the coral-server entry point: no subcommands, every argument
// goes to the server.
func (a *App) launch(ctx context.Context, rf *rootFlagValues, args []string) types.ExitCode {
	s, err := a.newSession(ctx, rf)
	if err == nil {
		var code types.ExitCode
		if code, err = a.runServer(ctx, s, args); err == nil {
			return code
		}
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(a.stderr, svcErr, s.glamourStyle())
	} else {
		fmt.Fprintln(a.stderr, ErrorStyle.Render("Error:")+" "+err.Error())
	}
	return types.ExitFailure
}
