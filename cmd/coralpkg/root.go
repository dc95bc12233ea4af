// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/coralprotocol/coral-server-dist/internal/issue"
	"github.com/coralprotocol/coral-server-dist/pkg/types"
)

const (
	appName = "coralpkg"

	// launcherName is the console entry point; a binary invoked under this
	// name runs the server directly.
	launcherName = "coral-server"

	buildFailurePrefix = "Failed to build JAR file. "
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the coralpkg command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Build, stage and package the Coral server JAR",
		Long: TitleStyle.Render(appName) + SubtitleStyle.Render(" - packaging for the Coral Protocol server") + `

coralpkg makes sure the coral-server JAR is built by Gradle and staged into
the Python package, then declares and distributes that package.

` + SubtitleStyle.Render("Examples:") + `
  coralpkg provision          Build (if needed) and stage the server JAR
  coralpkg provision --watch  Re-stage whenever Gradle rebuilds the JAR
  coralpkg build              Provision and declare the package
  coralpkg dist               Write coral-server-<version>.zip
  coralpkg metadata -f yaml   Print the package metadata
  coralpkg run -- --help      Launch the staged server`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&flags.configPath, "config", "", "config file (default is <config dir>/coralpkg/config.cue)")
	pf.StringVar(&flags.root, "root", "", "project root (default: nearest directory with gradlew or coral.cue)")
	pf.StringVar(&flags.platform, "platform", "", "build platform family (windows or unix)")
	_ = pf.MarkHidden("platform")

	rootCmd.AddCommand(
		newProvisionCommand(app, flags),
		newBuildCommand(app, flags),
		newDistCommand(app, flags),
		newMetadataCommand(app, flags),
		newConfigCommand(app, flags),
		newRunCommand(app, flags),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process. Invoked as coral-server it
// launches the staged JAR instead.
func Execute() {
	ctx := context.Background()

	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if isLauncherInvocation(os.Args[0]) {
		os.Exit(int(app.launch(ctx, &rootFlagValues{}, os.Args[1:]).Normalize()))
	}

	if err := fang.Execute(
		ctx,
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code.Normalize()))
		}
		os.Exit(int(types.ExitFailure))
	}
}

func isLauncherInvocation(arg0 string) bool {
	name := strings.TrimSuffix(filepath.Base(arg0), filepath.Ext(arg0))
	return name == launcherName
}

// handleError prints errors that were not already reported by the handler.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr, "auto")
		return
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+ae.Format(false))
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
