// SPDX-License-Identifier: MPL-2.0

package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"commodore-cli/internal/container"
	"commodore-cli/internal/shell"
)

const (
	// DefaultPollInterval is the pause between unhealthy health queries.
	DefaultPollInterval = 5 * time.Second
	// DefaultGraceDelay is the pause after the first healthy answer.
	DefaultGraceDelay = 7 * time.Second
)

// ErrNotReady is the sentinel error wrapped by NotReadyError.
var ErrNotReady = errors.New("container not ready")

// State is a step of the readiness state machine.
type State int

const (
	StateUnknown State = iota
	StateUnhealthy
	StateHealthy
	StateReady
)

type (
	// Clock abstracts time for the polling loop.
	Clock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
	}

	// RealClock implements Clock using actual system time.
	RealClock struct{}

	// Prober is the slice of the container protocol the monitor needs.
	Prober interface {
		Start(ctx context.Context) (shell.Result, error)
		Health(ctx context.Context) (container.HealthReport, error)
	}

	// Config tunes the polling loop.
	Config struct {
		// PollInterval is the sleep between unhealthy polls.
		PollInterval time.Duration
		// GraceDelay is slept once after the container turns healthy.
		GraceDelay time.Duration
		// MaxAttempts bounds the number of health queries. Zero means unbounded.
		MaxAttempts int
	}

	// Stats describes a completed wait.
	Stats struct {
		Polls  int
		Waited time.Duration
	}

	// NotReadyError is returned when MaxAttempts polls never saw a healthy container.
	NotReadyError struct {
		Container  string
		Attempts   int
		LastStatus container.HealthStatus
	}

	// Monitor brings a container to the ready state. EnsureReady does the work
	// once; later calls return the first outcome.
	Monitor struct {
		prober Prober
		name   string
		clock  Clock
		cfg    Config
		logger *slog.Logger

		mu    sync.Mutex
		state State
		done  bool
		stats Stats
		err   error
	}

	// Option configures a Monitor.
	Option func(*Monitor)
)

// DefaultConfig returns the documented timings with no retry limit.
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		GraceDelay:   DefaultGraceDelay,
	}
}

// Now returns the current system time.
func (RealClock) Now() time.Time { return time.Now() }

// After returns a channel that receives the time after duration d.
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Error implements the error interface.
func (e *NotReadyError) Error() string {
	status := string(e.LastStatus)
	if status == "" {
		status = "unknown"
	}
	return fmt.Sprintf("container %s not healthy after %d health checks (last status: %s)", e.Container, e.Attempts, status)
}

// Unwrap returns ErrNotReady for errors.Is() compatibility.
func (e *NotReadyError) Unwrap() error { return ErrNotReady }

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnhealthy:
		return "unhealthy"
	case StateHealthy:
		return "healthy"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// WithClock replaces the real clock.
func WithClock(c Clock) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// WithConfig sets the loop timings.
func WithConfig(cfg Config) Option {
	return func(m *Monitor) {
		m.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// NewMonitor creates a Monitor for the container named name.
func NewMonitor(prober Prober, name string, opts ...Option) *Monitor {
	m := &Monitor{
		prober: prober,
		name:   name,
		clock:  RealClock{},
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// EnsureReady starts the container and blocks until it is ready. Only the
// first call waits; subsequent calls return the first call's outcome.
func (m *Monitor) EnsureReady(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done {
		return m.stats, m.err
	}
	m.stats, m.err = m.wait(ctx)
	m.done = true
	return m.stats, m.err
}

// wait runs the state machine. Must be called with mu held.
func (m *Monitor) wait(ctx context.Context) (Stats, error) {
	start := m.clock.Now()
	stats := Stats{}

	res, err := m.prober.Start(ctx)
	if err != nil {
		return stats, fmt.Errorf("start container %s: %w", m.name, err)
	}
	if res.ExitCode != 0 {
		// Start is idempotent and often fails harmlessly when the service is
		// already up under another project; the health loop decides.
		m.logger.Warn("container start command failed", "container", m.name, "exit_code", res.ExitCode)
	}

	m.logger.Info("waiting for container to finish initialising", "container", m.name)
	var last container.HealthStatus
	for {
		report, err := m.prober.Health(ctx)
		if err != nil {
			return stats, fmt.Errorf("query health of %s: %w", m.name, err)
		}
		stats.Polls++
		last = report.Status

		if report.Healthy() {
			m.transition(StateHealthy)
			break
		}
		m.transition(StateUnhealthy)
		m.logger.Info("container is unavailable - sleeping", "container", m.name, "status", report.Status, "exit_code", report.ExitCode)

		if m.cfg.MaxAttempts > 0 && stats.Polls >= m.cfg.MaxAttempts {
			stats.Waited = m.clock.Now().Sub(start)
			return stats, &NotReadyError{Container: m.name, Attempts: stats.Polls, LastStatus: last}
		}
		if err := m.sleep(ctx, m.cfg.PollInterval); err != nil {
			stats.Waited = m.clock.Now().Sub(start)
			return stats, err
		}
	}

	m.logger.Info("container is healthy", "container", m.name, "polls", stats.Polls)
	if err := m.sleep(ctx, m.cfg.GraceDelay); err != nil {
		stats.Waited = m.clock.Now().Sub(start)
		return stats, err
	}
	m.transition(StateReady)
	stats.Waited = m.clock.Now().Sub(start)
	m.logger.Info("container is ready", "container", m.name, "waited", stats.Waited)
	return stats, nil
}

// transition records a state change. Must be called with mu held.
func (m *Monitor) transition(to State) {
	if m.state != to {
		m.logger.Debug("readiness state change", "container", m.name, "from", m.state, "to", to)
	}
	m.state = to
}

// sleep waits d or until ctx is done.
func (m *Monitor) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for container %s: %w", m.name, ctx.Err())
	case <-m.clock.After(d):
		return nil
	}
}
