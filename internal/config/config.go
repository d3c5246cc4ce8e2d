// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"commodore-cli/internal/cueutil"
	"commodore-cli/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "commodore"
	// ConfigFileName is the config file name inside ConfigDir.
	ConfigFileName = "config.cue"
	// LocalConfigFileName is the config file looked up in the working directory.
	LocalConfigFileName = "commodore.cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "COMMODORE"
)

// ErrInvalidConfig is the sentinel error wrapped by ValidationError.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed config_schema.cue
var configSchema string

// ValidationError lists configuration values CUE cannot check, such as
// environment overrides.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// ConfigDir returns $XDG_CONFIG_HOME/commodore, falling back to the
// platform's user configuration directory.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// loadWithOptions loads the configuration and returns it with the path of
// the file it came from, or "" when only defaults and environment apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'commodore config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if opts.RootDir != "" {
		cfg.RootDir = opts.RootDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check COMMODORE_* environment variables for typos").
			Wrap(err).
			BuildError()
	}
	return &cfg, path, nil
}

// resolvePath picks the config file. An explicit path must exist; the
// implicit locations are optional.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	if p := filepath.Join(dir, ConfigFileName); fileExists(p) {
		return p, nil
	}
	if fileExists(LocalConfigFileName) {
		return LocalConfigFileName, nil
	}
	return "", nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("root_dir", d.RootDir)
	v.SetDefault("container.engine", string(d.Container.Engine))
	v.SetDefault("container.compose_command", d.Container.ComposeCommand)
	v.SetDefault("container.name", d.Container.Name)
	v.SetDefault("commodity.name", d.Commodity.Name)
	v.SetDefault("commodity.fragment_prefix", d.Commodity.FragmentPrefix)
	v.SetDefault("commodity.admin_user", d.Commodity.AdminUser)
	v.SetDefault("commodity.client_path", d.Commodity.ClientPath)
	v.SetDefault("readiness.poll_interval", d.Readiness.PollInterval)
	v.SetDefault("readiness.grace_delay", d.Readiness.GraceDelay)
	v.SetDefault("readiness.max_attempts", d.Readiness.MaxAttempts)
	v.SetDefault("acceptance.sql", d.Acceptance.SQL)
	v.SetDefault("acceptance.shell", d.Acceptance.Shell)
	v.SetDefault("ledger.backend", string(d.Ledger.Backend))
	v.SetDefault("ledger.path", d.Ledger.Path)
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
}

// loadCUEIntoViper validates the CUE file at path against #Config and merges
// it over the defaults already set on v.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	m, err := cueutil.DecodeMap(configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// Validate checks values that may have bypassed the schema.
func (c *Config) Validate() error {
	var problems []string
	if !slices.Contains([]EngineType{EngineDocker, EnginePodman}, c.Container.Engine) {
		problems = append(problems, fmt.Sprintf("container.engine: unknown engine %q", c.Container.Engine))
	}
	if len(c.ComposeArgs()) == 0 {
		problems = append(problems, "container.compose_command: must not be empty")
	}
	if c.Container.Name == "" || c.Commodity.Name == "" || c.Commodity.FragmentPrefix == "" {
		problems = append(problems, "container.name, commodity.name and commodity.fragment_prefix must be set")
	}
	if c.Readiness.PollInterval <= 0 {
		problems = append(problems, "readiness.poll_interval: must be positive")
	}
	if c.Readiness.GraceDelay < 0 {
		problems = append(problems, "readiness.grace_delay: must not be negative")
	}
	if c.Readiness.MaxAttempts < 0 {
		problems = append(problems, "readiness.max_attempts: must not be negative")
	}
	if len(c.Acceptance.SQL) == 0 || len(c.Acceptance.Shell) == 0 {
		problems = append(problems, "acceptance: sql and shell sets must not be empty")
	}
	if c.Ledger.Backend != LedgerFile && c.Ledger.Backend != LedgerSQLite {
		problems = append(problems, fmt.Sprintf("ledger.backend: unknown backend %q", c.Ledger.Backend))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// GenerateCUE renders cfg as a commodore.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder
	sb.WriteString("// commodore configuration\n\n")
	fmt.Fprintf(&sb, "root_dir: %q\n", cfg.RootDir)

	sb.WriteString("\ncontainer: {\n")
	fmt.Fprintf(&sb, "\tengine:          %q\n", cfg.Container.Engine)
	fmt.Fprintf(&sb, "\tcompose_command: %q\n", cfg.Container.ComposeCommand)
	fmt.Fprintf(&sb, "\tname:            %q\n", cfg.Container.Name)
	sb.WriteString("}\n")

	sb.WriteString("\ncommodity: {\n")
	fmt.Fprintf(&sb, "\tname:            %q\n", cfg.Commodity.Name)
	fmt.Fprintf(&sb, "\tfragment_prefix: %q\n", cfg.Commodity.FragmentPrefix)
	fmt.Fprintf(&sb, "\tadmin_user:      %q\n", cfg.Commodity.AdminUser)
	fmt.Fprintf(&sb, "\tclient_path:     %q\n", cfg.Commodity.ClientPath)
	sb.WriteString("}\n")

	sb.WriteString("\nreadiness: {\n")
	fmt.Fprintf(&sb, "\tpoll_interval: %q\n", cfg.Readiness.PollInterval.String())
	fmt.Fprintf(&sb, "\tgrace_delay:   %q\n", cfg.Readiness.GraceDelay.String())
	fmt.Fprintf(&sb, "\tmax_attempts:  %d\n", cfg.Readiness.MaxAttempts)
	sb.WriteString("}\n")

	sb.WriteString("\nacceptance: {\n")
	fmt.Fprintf(&sb, "\tsql:   %s\n", cueList(cfg.Acceptance.SQL))
	fmt.Fprintf(&sb, "\tshell: %s\n", cueList(cfg.Acceptance.Shell))
	sb.WriteString("}\n")

	sb.WriteString("\nledger: {\n")
	fmt.Fprintf(&sb, "\tbackend: %q\n", cfg.Ledger.Backend)
	fmt.Fprintf(&sb, "\tpath:    %q\n", cfg.Ledger.Path)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")
	return sb.String()
}

func cueList(codes []int) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprint(c)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
