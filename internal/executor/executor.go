// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"commodore-cli/internal/container"
	"commodore-cli/internal/fragment"
	"commodore-cli/internal/shell"
)

const (
	// DefaultAdminUser is the database administrative account in the container.
	DefaultAdminUser = "db2inst1"
	// DefaultClientPath is the batch client inside the admin user's home.
	DefaultClientPath = "~/sqllib/bin/db2"
)

type (
	// Container is the slice of the container protocol fragments need.
	Container interface {
		Name() string
		CopyIn(ctx context.Context, hostPath string) (shell.Result, error)
		Exec(ctx context.Context, script string, opts container.ExecOptions) (shell.Result, error)
	}

	// Config selects the account, client and acceptance policies.
	Config struct {
		AdminUser       string
		ClientPath      string
		SQLAcceptance   AcceptanceSet
		ShellAcceptance AcceptanceSet
	}

	// Outcome is the result of a fragment that ran.
	Outcome struct {
		Fragment fragment.Fragment
		ExitCode int
		Lines    []string
	}

	// Executor runs fragments in a container.
	Executor struct {
		container  Container
		cfg        Config
		reconciler *Reconciler
		logger     *slog.Logger
	}

	// Option configures an Executor.
	Option func(*Executor)
)

// DefaultConfig returns the stock account, client and acceptance sets.
func DefaultConfig() Config {
	return Config{
		AdminUser:       DefaultAdminUser,
		ClientPath:      DefaultClientPath,
		SQLAcceptance:   SQLAcceptance,
		ShellAcceptance: ShellAcceptance,
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Executor) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates an Executor for c.
func New(c Container, opts ...Option) *Executor {
	e := &Executor{
		container: c,
		cfg:       DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reconciler = NewReconciler(c, e.cfg.AdminUser, e.cfg.ClientPath, e.logger)
	return e
}

// Reconciler returns the reconciler run after each fragment.
func (e *Executor) Reconciler() *Reconciler { return e.reconciler }

// Run dispatches f to ExecuteSQL or ExecuteShell by kind.
func (e *Executor) Run(ctx context.Context, f fragment.Fragment) (Outcome, error) {
	switch f.Kind {
	case fragment.KindSQL:
		return e.ExecuteSQL(ctx, f)
	case fragment.KindShell:
		return e.ExecuteShell(ctx, f)
	default:
		return Outcome{Fragment: f}, fmt.Errorf("unknown fragment kind %q for %s", f.Kind, f.Path)
	}
}

// ExecuteSQL injects f and runs it with the batch client as the admin user.
func (e *Executor) ExecuteSQL(ctx context.Context, f fragment.Fragment) (Outcome, error) {
	target, err := shell.Join(container.ContainerPath(f.Base()))
	if err != nil {
		return Outcome{Fragment: f}, err
	}
	script := e.cfg.ClientPath + " -tvf " + target
	return e.execute(ctx, f, script, container.ExecOptions{User: e.cfg.AdminUser}, e.cfg.SQLAcceptance)
}

// ExecuteShell injects f and runs it as an executable from the container root.
func (e *Executor) ExecuteShell(ctx context.Context, f fragment.Fragment) (Outcome, error) {
	target, err := shell.Join("./" + f.Base())
	if err != nil {
		return Outcome{Fragment: f}, err
	}
	return e.execute(ctx, f, target, container.ExecOptions{User: e.cfg.AdminUser, WorkDir: "/"}, e.cfg.ShellAcceptance)
}

// Inject copies the fragment into the container root and makes it readable
// and executable by other users.
func (e *Executor) Inject(ctx context.Context, f fragment.Fragment) error {
	res, err := e.container.CopyIn(ctx, f.Path)
	if err != nil || res.ExitCode != 0 {
		return &InjectionError{Step: "copy", File: f.Base(), ExitCode: res.ExitCode, Err: err}
	}

	target, err := shell.Join(container.ContainerPath(f.Base()))
	if err != nil {
		return &InjectionError{Step: "chmod", File: f.Base(), ExitCode: 1, Err: err}
	}
	res, err = e.container.Exec(ctx, "chmod o+rx "+target, container.ExecOptions{})
	if err != nil || res.ExitCode != 0 {
		return &InjectionError{Step: "chmod", File: f.Base(), ExitCode: res.ExitCode, Err: err}
	}
	return nil
}

// execute injects, runs, reconciles, then judges the exit code. A fragment
// failure takes precedence over a reconcile failure; both are returned.
func (e *Executor) execute(ctx context.Context, f fragment.Fragment, script string, opts container.ExecOptions, accepted AcceptanceSet) (Outcome, error) {
	out := Outcome{Fragment: f}
	if err := e.Inject(ctx, f); err != nil {
		return out, err
	}

	e.logger.Info("running fragment", "app", f.App, "file", f.Base())
	res, runErr := e.container.Exec(ctx, script, opts)
	out.ExitCode, out.Lines = res.ExitCode, res.Lines
	for _, line := range res.Lines {
		e.logger.Debug(line, "app", f.App, "file", f.Base())
	}

	reconcileErr := e.reconciler.DisconnectAll(ctx)
	e.logger.Info("completed fragment", "app", f.App, "file", f.Base())

	if runErr != nil {
		return out, errors.Join(fmt.Errorf("run %s for %s: %w", f.Base(), f.App, runErr), reconcileErr)
	}
	if !accepted.Accepts(res.ExitCode) {
		e.logger.Error("fragment failed", "app", f.App, "file", f.Base(), "exit_code", res.ExitCode)
		fragErr := &FragmentError{Kind: f.Kind, App: f.App, File: f.Base(), ExitCode: res.ExitCode, Accepted: accepted}
		return out, errors.Join(fragErr, reconcileErr)
	}
	if reconcileErr != nil {
		return out, reconcileErr
	}

	if f.Kind == fragment.KindSQL {
		e.logger.Info("database objects created", "app", f.App, "exit_code", res.ExitCode, "meaning", SQLCodeMeaning(res.ExitCode))
	} else {
		e.logger.Info("shell script ran correctly", "app", f.App, "exit_code", res.ExitCode)
	}
	return out, nil
}
