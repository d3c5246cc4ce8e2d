// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"sync"

	"commodore-cli/internal/shell"
)

type (
	// ResolveFunc produces the Client a LazyClient delegates to.
	ResolveFunc func(ctx context.Context) (*Client, error)

	// LazyClient defers engine resolution until the first protocol call, so a
	// run with nothing to provision never probes for an engine. A failed
	// resolution is not cached; the next call tries again.
	LazyClient struct {
		name    string
		resolve ResolveFunc

		mu     sync.Mutex
		client *Client
	}
)

// NewLazyClient creates a LazyClient for containerName that calls resolve on
// first use.
func NewLazyClient(containerName string, resolve ResolveFunc) *LazyClient {
	return &LazyClient{name: containerName, resolve: resolve}
}

// Name returns the container name without resolving the engine.
func (l *LazyClient) Name() string { return l.name }

// Resolved reports whether an engine has been selected.
func (l *LazyClient) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.client != nil
}

// Client returns the underlying Client, resolving it on first use.
func (l *LazyClient) Client(ctx context.Context) (*Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}
	c, err := l.resolve(ctx)
	if err != nil {
		return nil, err
	}
	l.client = c
	return c, nil
}

// Start resolves the engine and starts the container.
func (l *LazyClient) Start(ctx context.Context) (shell.Result, error) {
	c, err := l.Client(ctx)
	if err != nil {
		return shell.Result{ExitCode: 1}, err
	}
	return c.Start(ctx)
}

// Health resolves the engine and queries container health.
func (l *LazyClient) Health(ctx context.Context) (HealthReport, error) {
	c, err := l.Client(ctx)
	if err != nil {
		return HealthReport{ExitCode: 1}, err
	}
	return c.Health(ctx)
}

// CopyIn resolves the engine and copies hostPath into the container.
func (l *LazyClient) CopyIn(ctx context.Context, hostPath string) (shell.Result, error) {
	c, err := l.Client(ctx)
	if err != nil {
		return shell.Result{ExitCode: 1}, err
	}
	return c.CopyIn(ctx, hostPath)
}

// Exec resolves the engine and runs script inside the container.
func (l *LazyClient) Exec(ctx context.Context, script string, opts ExecOptions) (shell.Result, error) {
	c, err := l.Client(ctx)
	if err != nil {
		return shell.Result{ExitCode: 1}, err
	}
	return c.Exec(ctx, script, opts)
}
