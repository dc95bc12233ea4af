// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coralprotocol/coral-server-dist/internal/config"
	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

// newConfigCommand creates the `coralpkg config` command tree.
func newConfigCommand(app *App, rf *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage coralpkg configuration",
		Long: `Manage coralpkg configuration.

Configuration is read from the first of:
  - the --config file
  - Linux: ~/.config/coralpkg/config.cue
    macOS: ~/Library/Application Support/coralpkg/config.cue
    Windows: %APPDATA%\coralpkg\config.cue
  - coralpkg.cue in the project root

CORALPKG_* environment variables override file values
(e.g. CORALPKG_PATHS_TARGET).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.newSession(cmd.Context(), rf)
			if err != nil {
				return err
			}
			path, err := app.Config.Resolve(config.LoadOptions{
				ConfigFilePath: types.FilesystemPath(rf.configPath),
				ProjectRoot:    types.FilesystemPath(s.root),
			})
			if err != nil {
				return err
			}
			app.showConfig(s, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, created, err := config.CreateDefaultConfig()
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			if !created {
				fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
				return nil
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			cfgPath, err := config.UserConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", cfgPath)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.newSession(cmd.Context(), rf)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(s.cfg))
			return nil
		},
	})

	return cfgCmd
}

func (a *App) showConfig(s *session, path string) {
	cfg := s.cfg
	key := CmdStyle.Render
	val := SuccessStyle.Render
	w := a.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintf(w, "%s: %s\n", key("Project root"), s.root)

	fmt.Fprintf(w, "\n%s:\n", key("paths"))
	fmt.Fprintf(w, "  target: %s\n", val(string(cfg.Paths.Target)))
	fmt.Fprintf(w, "  build_output: %s\n", val(string(cfg.Paths.BuildOutput)))
	fmt.Fprintf(w, "  readme: %s\n", val(string(cfg.Paths.Readme)))

	fmt.Fprintf(w, "\n%s:\n", key("build"))
	if cfg.Build.Command != "" {
		fmt.Fprintf(w, "  command: %s\n", val(cfg.Build.Command))
	} else {
		fmt.Fprintf(w, "  command: %s\n", SubtitleStyle.Render("(gradle wrapper)"))
	}
	fmt.Fprintf(w, "  args: %s\n", val(strings.Join(cfg.Build.Args, " ")))
	for _, k := range sortedEnvKeys(cfg.Build.Env) {
		fmt.Fprintf(w, "  env.%s: %s\n", k, val(cfg.Build.Env[k]))
	}
	for _, f := range cfg.Build.EnvFiles {
		fmt.Fprintf(w, "  env_file: %s\n", val(string(f)))
	}

	fmt.Fprintf(w, "\n%s:\n", key("provision"))
	fmt.Fprintf(w, "  lock: %s\n", val(fmt.Sprintf("%v", cfg.Provision.Lock)))

	fmt.Fprintf(w, "\n%s:\n", key("launcher"))
	java := cfg.Launcher.Java
	if java == "" {
		java = "(JAVA_HOME or PATH)"
	}
	fmt.Fprintf(w, "  java: %s\n", val(java))
	fmt.Fprintf(w, "  jvm_args: %s\n", val(strings.Join(cfg.Launcher.JVMArgs, " ")))

	fmt.Fprintf(w, "\n%s:\n", key("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", val(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  verbose: %s\n", val(fmt.Sprintf("%v", cfg.UI.Verbose)))
}
