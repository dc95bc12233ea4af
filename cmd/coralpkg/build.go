// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coralprotocol/coral-server-dist/internal/packaging"
)

func newBuildCommand(app *App, rf *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Provision the server JAR and declare the package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, decl, err := app.provisionAndDeclare(cmd.Context(), rf)
			if err != nil {
				return err
			}
			md := decl.Metadata
			fmt.Fprintf(app.stdout, "%s Declared %s %s: %d package(s), %d data file(s)\n",
				SuccessStyle.Render("✓"), TitleStyle.Render(md.Name), md.Version,
				len(decl.Packages), len(decl.Files))
			if s.verbose {
				for _, f := range decl.Files {
					fmt.Fprintf(app.stdout, "  %s\n", VerboseStyle.Render(f.ArchivePath(md.PackageDir)))
				}
			}
			return nil
		},
	}
}

// provisionAndDeclare is the linear packaging run: provision the artifact,
// then declare the package around it.
func (a *App) provisionAndDeclare(ctx context.Context, rf *rootFlagValues) (*session, *packaging.Declaration, error) {
	s, err := a.newSession(ctx, rf)
	if err != nil {
		return nil, nil, err
	}
	p, err := a.provisioner(s, false)
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.Provision(ctx); err != nil {
		return nil, nil, a.provisionFailure(s, err)
	}

	md, err := a.metadata(s)
	if err != nil {
		return nil, nil, err
	}
	decl, err := packaging.Declare(ctx, s.root, md)
	if err != nil {
		return nil, nil, declareFailure(err)
	}
	return s, decl, nil
}
