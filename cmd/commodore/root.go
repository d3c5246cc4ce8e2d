// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for commodore.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"commodore-cli/internal/config"
)

// AppName is the binary name.
const AppName = "commodore"

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	configPath string
	rootDir    string
	verbose    bool
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: "Provision the shared DB2 Community container for dev-env applications",
		Long: TitleStyle.Render(AppName) + SubtitleStyle.Render(" - commodity provisioning for dev-env") + `

commodore walks the applications listed in dev-env-config/configuration.yml,
and for every application that declares the db2_community commodity it copies
the application's init fragments into the container and runs them, once.
Outcomes are recorded in a ledger so later runs skip finished work.

` + SubtitleStyle.Render("Examples:") + `
  commodore provision                           Provision every application
  commodore provision --new-container db2_community
                                                Re-run fragments after recreating the container
  commodore status                              Show recorded provision state
  commodore reset billing                       Forget billing so it is provisioned again
  commodore watch                               Re-provision apps when fragments change`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/commodore/config.cue)")
	rootCmd.PersistentFlags().StringVarP(&flags.rootDir, "root", "r", "", "dev-env root directory (overrides root_dir)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(
		newProvisionCommand(app, flags),
		newStatusCommand(app, flags),
		newResetCommand(app, flags),
		newWatchCommand(app, flags),
		newConfigCommand(app, flags),
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

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)
	verbose := func() bool {
		v, _ := rootCmd.PersistentFlags().GetBool("verbose")
		return v
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			reportError(w, err, verbose())
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}

// reportError prints err and, for service errors, the matching issue help.
// An ExitError without a cause has already been reported by its command.
func reportError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr, glamourStyle(os.Stderr, config.ColorSchemeAuto))
	}
}
