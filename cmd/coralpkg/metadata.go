// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/coralprotocol/coral-server-dist/internal/packaging"
)

func newMetadataCommand(app *App, rf *rootFlagValues) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Print the declared package metadata",
		Long: `Print the package metadata without provisioning. The metadata comes
from coral.cue in the project root when present, otherwise the defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := packaging.ParseFormat(format)
			if err != nil {
				return err
			}
			s, err := app.newSession(cmd.Context(), rf)
			if err != nil {
				return err
			}
			md, err := app.metadata(s)
			if err != nil {
				return err
			}
			out, err := packaging.Render(md, f)
			if err != nil {
				return err
			}
			_, err = app.stdout.Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(packaging.FormatJSON), "output format: "+packaging.FormatNames())
	return cmd
}
