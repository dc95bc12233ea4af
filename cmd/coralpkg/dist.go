// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/coralprotocol/coral-server-dist/internal/packaging"
)

func newDistCommand(app *App, rf *rootFlagValues) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "dist",
		Short: "Provision, declare and write a distributable archive",
		Long: `Write the package as <name>-<version>.zip (or a directory tree when
--out does not end in .zip). The archive holds the package sources, the
staged server JAR, README.md, PKG-INFO.json and a SHA256SUMS manifest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, decl, err := app.provisionAndDeclare(cmd.Context(), rf)
			if err != nil {
				return err
			}

			dest := out
			if dest == "" {
				dest = packaging.DefaultDistPath(filepath.Join(s.root, "dist"), decl.Metadata)
			}
			log := componentLogger(s.logger, "dist")
			log.Debug("writing dist", "out", dest, "zip", packaging.IsZip(dest))

			res, err := packaging.WriteDist(cmd.Context(), decl, dest)
			if err != nil {
				return err
			}
			if err := packaging.VerifyDist(res); err != nil {
				return fmt.Errorf("verify %s: %w", res.Location, err)
			}
			log.Info("wrote dist", "files", len(res.Checksums), "size", humanize.Bytes(uint64(res.Size))) //nolint:gosec // sizes are non-negative

			fmt.Fprintf(app.stdout, "%s Wrote %s (%d files, %s, checksums verified)\n",
				SuccessStyle.Render("✓"), CmdStyle.Render(res.Location),
				len(res.Checksums)+1, humanize.Bytes(uint64(res.Size))) //nolint:gosec // sizes are non-negative
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output zip file or directory (default <root>/dist/<name>-<version>.zip)")
	return cmd
}
