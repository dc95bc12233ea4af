// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/coralprotocol/coral-server-dist/internal/provision"
	"github.com/coralprotocol/coral-server-dist/internal/watch"
)

func newProvisionCommand(app *App, rf *rootFlagValues) *cobra.Command {
	var force, watchMode bool

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Build (if needed) and stage the server JAR",
		Long: `Make sure the server JAR is present in the Python package.

If the staged JAR already exists nothing happens. Otherwise the Gradle
wrapper is run when the build output is missing, and the build output is
copied into the package. A failed build exits with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.newSession(cmd.Context(), rf)
			if err != nil {
				return err
			}
			p, err := app.provisioner(s, force)
			if err != nil {
				return err
			}

			res, err := p.Provision(cmd.Context())
			if err != nil {
				return app.provisionFailure(s, err)
			}
			app.reportProvision(res)

			if watchMode {
				return app.watchBuildOutput(cmd.Context(), s, p)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "rebuild and restage even if the JAR is already staged")
	cmd.Flags().BoolVar(&watchMode, "watch", false, "keep running and restage whenever the build output changes")
	return cmd
}

func (a *App) reportProvision(res *provision.Result) {
	if !res.Copied {
		fmt.Fprintf(a.stdout, "%s Server JAR already staged at %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(res.Target))
		return
	}
	fmt.Fprintf(a.stdout, "%s Staged %s (%s)\n",
		SuccessStyle.Render("✓"),
		CmdStyle.Render(res.Target),
		humanize.Bytes(uint64(res.Size))) //nolint:gosec // file sizes are non-negative
}

// watchBuildOutput restages the JAR whenever Gradle rewrites it, until ctx
// is cancelled.
func (a *App) watchBuildOutput(ctx context.Context, s *session, p *provision.ArtifactProvisioner) error {
	pattern, err := watch.PatternFor(s.root, p.BuildOutputPath())
	if err != nil {
		return err
	}

	w, err := watch.New(watch.Config{
		BaseDir:  s.root,
		Patterns: []string{pattern},
		Logger:   componentLogger(s.logger, "watch"),
		OnChange: func(ctx context.Context, _ []string) error {
			res, err := p.Restage(ctx)
			if err != nil {
				fmt.Fprintf(a.stderr, "%s Restage failed: %v\n", WarningStyle.Render("!"), err)
				return nil
			}
			a.reportProvision(res)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Fprintf(a.stdout, "%s Watching %s for changes (Ctrl+C to stop)...\n",
		VerboseHighlightStyle.Render("→"), CmdStyle.Render(pattern))
	return w.Run(ctx)
}
