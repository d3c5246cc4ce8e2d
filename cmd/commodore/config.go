// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"commodore-cli/internal/config"
	"commodore-cli/internal/issue"
)

// newConfigCommand creates the `commodore config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage commodore configuration",
		Long: `Manage commodore configuration.

Configuration is read, in increasing priority, from built-in defaults, the
CUE file ($XDG_CONFIG_HOME/commodore/config.cue, or ./commodore.cue), and
COMMODORE_* environment variables such as COMMODORE_READINESS_MAX_ATTEMPTS.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), rootFlags)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg.Config))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfigPath(app.stdout)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(app.stdout)
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, rootFlags *rootFlagValues) error {
	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return err
	}

	w := app.stdout
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	kv := func(indent, key, value string) {
		fmt.Fprintf(w, "%s%s: %s\n", indent, keyStyle.Render(key), valueStyle.Render(value))
	}
	section := func(name string) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", keyStyle.Render(name))
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if cfg.Path != "" {
		kv("", "Config file", cfg.Path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	kv("", "root_dir", cfg.RootDir)

	section("container")
	kv("  ", "engine", string(cfg.Container.Engine))
	kv("  ", "compose_command", cfg.Container.ComposeCommand)
	kv("  ", "name", cfg.Container.Name)

	section("commodity")
	kv("  ", "name", cfg.Commodity.Name)
	kv("  ", "fragment_prefix", cfg.Commodity.FragmentPrefix)
	kv("  ", "admin_user", cfg.Commodity.AdminUser)
	kv("  ", "client_path", cfg.Commodity.ClientPath)

	section("readiness")
	kv("  ", "poll_interval", cfg.Readiness.PollInterval.String())
	kv("  ", "grace_delay", cfg.Readiness.GraceDelay.String())
	maxAttempts := "unbounded"
	if cfg.Readiness.MaxAttempts > 0 {
		maxAttempts = strconv.Itoa(cfg.Readiness.MaxAttempts)
	}
	kv("  ", "max_attempts", maxAttempts)

	section("acceptance")
	kv("  ", "sql", joinInts(cfg.Acceptance.SQL))
	kv("  ", "shell", joinInts(cfg.Acceptance.Shell))

	section("ledger")
	kv("  ", "backend", string(cfg.Ledger.Backend))
	kv("  ", "path", cfg.LedgerPath())

	section("ui")
	kv("  ", "verbose", strconv.FormatBool(cfg.UI.Verbose))
	kv("  ", "color_scheme", string(cfg.UI.ColorScheme))

	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func showConfigPath(w io.Writer) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(w, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName))
	fmt.Fprintf(w, "Local override: %s\n", config.LocalConfigFileName)
	return nil
}

// initConfig writes the default configuration unless a file already exists.
func initConfig(w io.Writer) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	path := filepath.Join(cfgDir, config.ConfigFileName)

	if _, statErr := os.Stat(path); statErr == nil {
		fmt.Fprintf(w, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return issue.WrapWithContext(statErr, "inspect configuration file", path)
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return newServiceError(issue.WrapWithContext(err, "create config directory", cfgDir), 0, "")
	}
	if err := os.WriteFile(path, []byte(config.GenerateCUE(config.DefaultConfig())), 0o644); err != nil {
		return newServiceError(issue.WrapWithContext(err, "write configuration file", path), 0, "")
	}

	fmt.Fprintf(w, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
