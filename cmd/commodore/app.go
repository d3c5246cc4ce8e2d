// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"commodore-cli/internal/config"
	"commodore-cli/internal/container"
	"commodore-cli/internal/executor"
	"commodore-cli/internal/fragment"
	"commodore-cli/internal/issue"
	"commodore-cli/internal/ledger"
	"commodore-cli/internal/manifest"
	"commodore-cli/internal/provision"
	"commodore-cli/internal/readiness"
	"commodore-cli/internal/shell"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and builds a
	// per-invocation session from it.
	App struct {
		Config config.Provider
		runner shell.Runner
		clock  readiness.Clock
		newID  func() string
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		// Runner executes host command lines. Defaults to the embedded
		// interpreter rooted at the dev-env directory.
		Runner shell.Runner
		// Clock drives readiness polling.
		Clock readiness.Clock
		// NewRunID generates the identifier attached to logs and ledger history.
		NewRunID func() string
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// session holds everything one command invocation needs.
	session struct {
		cfg    *config.Loaded
		runID  string
		logger *slog.Logger
		runner shell.Runner
		store  ledger.Store
		client *container.LazyClient
		clock  readiness.Clock
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Clock == nil {
		deps.Clock = readiness.RealClock{}
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	return &App{
		Config: deps.Config,
		runner: deps.Runner,
		clock:  deps.Clock,
		newID:  deps.NewRunID,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// loadConfig applies the root flags to the config provider.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Loaded, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		RootDir:        flags.rootDir,
	})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, "")
	}
	if flags.verbose {
		cfg.UI.Verbose = true
	}
	return cfg, nil
}

// openSession loads configuration and opens the ledger. With withContainer
// the session also carries a container client; its engine is detected on the
// first container command, so a run with nothing to provision never needs one.
func (a *App) openSession(ctx context.Context, flags *rootFlagValues, withContainer bool) (*session, error) {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, runID: a.newID(), clock: a.clock}
	s.logger = newLogger(a.stderr, cfg.UI.Verbose).With("run", s.runID)

	s.store, err = openLedger(cfg.Config, s.runID)
	if err != nil {
		return nil, newServiceError(err, issue.LedgerUnavailableId, "")
	}

	if !withContainer {
		return s, nil
	}

	s.runner = a.runner
	if s.runner == nil {
		s.runner = shell.NewInterpRunner(shell.WithDir(cfg.RootDir), shell.WithLogger(s.logger))
	}
	engine := container.EngineType(cfg.Container.Engine)
	composeArgs := cfg.ComposeArgs()
	s.client = container.NewLazyClient(cfg.Container.Name, func(ctx context.Context) (*container.Client, error) {
		c, err := container.Detect(ctx, s.runner, engine, cfg.Container.Name, container.WithComposeCommand(composeArgs...))
		if err != nil {
			return nil, err
		}
		s.logger.Debug("container engine selected", "engine", c.Engine().Name(), "container", c.Name())
		return c, nil
	})
	return s, nil
}

// Close releases the ledger.
func (s *session) Close(stderr io.Writer) {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		fmt.Fprintln(stderr, WarningStyle.Render("Warning: ")+"close ledger: "+err.Error())
	}
}

// orchestrator builds an orchestrator with a fresh readiness monitor, so
// every provisioning pass waits for the container at most once.
func (s *session) orchestrator() *provision.Orchestrator {
	cfg := s.cfg.Config

	monitor := readiness.NewMonitor(s.client, s.client.Name(),
		readiness.WithClock(s.clock),
		readiness.WithLogger(s.logger),
		readiness.WithConfig(readiness.Config{
			PollInterval: cfg.Readiness.PollInterval,
			GraceDelay:   cfg.Readiness.GraceDelay,
			MaxAttempts:  cfg.Readiness.MaxAttempts,
		}),
	)

	exec := executor.New(s.client,
		executor.WithLogger(s.logger),
		executor.WithConfig(executor.Config{
			AdminUser:       cfg.Commodity.AdminUser,
			ClientPath:      cfg.Commodity.ClientPath,
			SQLAcceptance:   executor.AcceptanceSet(cfg.Acceptance.SQL),
			ShellAcceptance: executor.AcceptanceSet(cfg.Acceptance.Shell),
		}),
	)

	return provision.New(cfg.Commodity.Name, provision.Deps{
		Gate:      manifest.NewGate(cfg.RootDir, cfg.Commodity.Name),
		Locator:   fragment.NewLocator(cfg.RootDir, cfg.Commodity.FragmentPrefix, cfg.Commodity.Name, s.store),
		Readiness: monitor,
		Executor:  exec,
		Ledger:    s.store,
	}, provision.WithLogger(s.logger), provision.WithNow(s.clock.Now))
}

// applications returns the dev-env applications in file order, narrowed to
// only when it is non-empty.
func (s *session) applications(only []string) ([]string, error) {
	devEnv, err := config.LoadDevEnv(s.cfg.RootDir)
	if err != nil {
		return nil, newServiceError(err, issue.DevEnvConfigInvalidId, "")
	}
	if len(only) == 0 {
		return devEnv.Applications, nil
	}

	known := make(map[string]bool, len(devEnv.Applications))
	for _, app := range devEnv.Applications {
		known[app] = true
	}
	var unknown []error
	for _, app := range only {
		if !known[app] {
			unknown = append(unknown, fmt.Errorf("application %q is not listed in %s", app, devEnv.Path))
		}
	}
	if len(unknown) > 0 {
		return nil, newServiceError(errors.Join(unknown...), issue.DevEnvConfigInvalidId, "")
	}

	// Keep file order regardless of flag order.
	wanted := make(map[string]bool, len(only))
	for _, app := range only {
		wanted[app] = true
	}
	apps := make([]string, 0, len(only))
	for _, app := range devEnv.Applications {
		if wanted[app] {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

// openLedger opens the configured ledger backend.
func openLedger(cfg *config.Config, runID string) (ledger.Store, error) {
	path := cfg.LedgerPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, issue.WrapWithContext(err, "create ledger directory", filepath.Dir(path))
	}

	switch cfg.Ledger.Backend {
	case config.LedgerSQLite:
		store, err := ledger.OpenSQLiteLedger(path, ledger.WithRunID(runID))
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("open provision ledger").
				WithResource(path).
				WithSuggestion("Check that the directory is writable").
				WithSuggestion("Set ledger.backend to \"file\" to use the TOML ledger instead").
				Wrap(err).
				BuildError()
		}
		return store, nil
	case config.LedgerFile, "":
		return ledger.NewFileLedger(path), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}
