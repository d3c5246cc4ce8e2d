// SPDX-License-Identifier: MPL-2.0

package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	// EngineDocker selects the docker CLI.
	EngineDocker EngineType = "docker"
	// EnginePodman selects the podman CLI.
	EnginePodman EngineType = "podman"

	// LedgerFile stores provision records in a TOML file.
	LedgerFile LedgerBackend = "file"
	// LedgerSQLite stores provision records and attempt history in SQLite.
	LedgerSQLite LedgerBackend = "sqlite"

	// ColorSchemeAuto picks the glamour style from the terminal background.
	ColorSchemeAuto ColorScheme = "auto"
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight is the light glamour style.
	ColorSchemeLight ColorScheme = "light"

	defaultLedgerFile   = ".commodities.toml"
	defaultLedgerSQLite = ".commodities.db"
)

type (
	// EngineType names a container CLI.
	EngineType string

	// LedgerBackend names a ledger storage implementation.
	LedgerBackend string

	// ColorScheme selects Markdown rendering colours.
	ColorScheme string

	// Config is the effective tool configuration.
	Config struct {
		RootDir    string           `json:"root_dir" mapstructure:"root_dir"`
		Container  ContainerConfig  `json:"container" mapstructure:"container"`
		Commodity  CommodityConfig  `json:"commodity" mapstructure:"commodity"`
		Readiness  ReadinessConfig  `json:"readiness" mapstructure:"readiness"`
		Acceptance AcceptanceConfig `json:"acceptance" mapstructure:"acceptance"`
		Ledger     LedgerConfig     `json:"ledger" mapstructure:"ledger"`
		UI         UIConfig         `json:"ui" mapstructure:"ui"`
	}

	// ContainerConfig selects the engine and the commodity container.
	ContainerConfig struct {
		Engine EngineType `json:"engine" mapstructure:"engine"`
		// ComposeCommand starts the service, e.g. "docker-compose" or "docker compose".
		ComposeCommand string `json:"compose_command" mapstructure:"compose_command"`
		Name           string `json:"name" mapstructure:"name"`
	}

	// CommodityConfig describes the database commodity.
	CommodityConfig struct {
		// Name is matched against manifests and the --new-container list.
		Name string `json:"name" mapstructure:"name"`
		// FragmentPrefix names fragment files: <prefix>-init-fragment.{sql,sh}.
		FragmentPrefix string `json:"fragment_prefix" mapstructure:"fragment_prefix"`
		AdminUser      string `json:"admin_user" mapstructure:"admin_user"`
		ClientPath     string `json:"client_path" mapstructure:"client_path"`
	}

	// ReadinessConfig tunes the health polling loop.
	ReadinessConfig struct {
		PollInterval time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
		GraceDelay   time.Duration `json:"grace_delay" mapstructure:"grace_delay"`
		MaxAttempts  int           `json:"max_attempts" mapstructure:"max_attempts"`
	}

	// AcceptanceConfig holds the accepted exit codes per fragment kind.
	AcceptanceConfig struct {
		SQL   []int `json:"sql" mapstructure:"sql"`
		Shell []int `json:"shell" mapstructure:"shell"`
	}

	// LedgerConfig selects where provision records are kept.
	LedgerConfig struct {
		Backend LedgerBackend `json:"backend" mapstructure:"backend"`
		// Path overrides the backend's default file under RootDir.
		Path string `json:"path" mapstructure:"path"`
	}

	UIConfig struct {
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		RootDir: ".",
		Container: ContainerConfig{
			Engine:         EngineDocker,
			ComposeCommand: "docker-compose",
			Name:           "db2_community",
		},
		Commodity: CommodityConfig{
			Name:           "db2_community",
			FragmentPrefix: "db2-community",
			AdminUser:      "db2inst1",
			ClientPath:     "~/sqllib/bin/db2",
		},
		Readiness: ReadinessConfig{
			PollInterval: 5 * time.Second,
			GraceDelay:   7 * time.Second,
		},
		Acceptance: AcceptanceConfig{
			SQL:   []int{0, 2, 4, 6},
			Shell: []int{0},
		},
		Ledger: LedgerConfig{Backend: LedgerFile},
		UI:     UIConfig{ColorScheme: ColorSchemeAuto},
	}
}

// LedgerPath returns Ledger.Path, or the backend's default file in RootDir.
func (c *Config) LedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	name := defaultLedgerFile
	if c.Ledger.Backend == LedgerSQLite {
		name = defaultLedgerSQLite
	}
	return filepath.Join(c.RootDir, name)
}

// ComposeArgs splits ComposeCommand into argv words.
func (c *Config) ComposeArgs() []string {
	return strings.Fields(c.Container.ComposeCommand)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Acceptance.SQL = slices.Clone(c.Acceptance.SQL)
	out.Acceptance.Shell = slices.Clone(c.Acceptance.Shell)
	return &out
}
