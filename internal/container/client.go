// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"commodore-cli/internal/shell"
)

// HealthStatus is the health state reported by the container engine.
type HealthStatus string

const (
	// HealthUnknown means the query failed or its output could not be decoded.
	HealthUnknown HealthStatus = ""
	// HealthStarting means the health check has not passed yet.
	HealthStarting HealthStatus = "starting"
	// HealthHealthy means the health check passes.
	HealthHealthy HealthStatus = "healthy"
	// HealthUnhealthy means the health check is failing.
	HealthUnhealthy HealthStatus = "unhealthy"
)

type (
	// HealthReport is the outcome of one health query.
	HealthReport struct {
		// ExitCode is the exit code of the query command.
		ExitCode int
		// Status is the decoded status string.
		Status HealthStatus
		// Raw is the first non-empty output line, undecoded.
		Raw string
	}

	// Client runs the container runtime protocol against one named container.
	Client struct {
		runner shell.Runner
		engine Engine
		name   string
	}
)

// NewClient creates a Client for containerName.
func NewClient(runner shell.Runner, engine Engine, containerName string) *Client {
	return &Client{runner: runner, engine: engine, name: containerName}
}

// Name returns the container name.
func (c *Client) Name() string { return c.name }

// Engine returns the engine used to build commands.
func (c *Client) Engine() Engine { return c.engine }

// Available reports whether the engine daemon answers.
func (c *Client) Available(ctx context.Context) bool {
	res, err := c.run(ctx, c.engine.VersionArgs())
	return err == nil && res.ExitCode == 0
}

// Start brings the container's compose service up. It is idempotent.
func (c *Client) Start(ctx context.Context) (shell.Result, error) {
	return c.run(ctx, c.engine.StartArgs(c.name))
}

// Health queries the container health status once.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	res, err := c.run(ctx, c.engine.HealthArgs(c.name))
	if err != nil {
		return HealthReport{ExitCode: res.ExitCode}, err
	}
	report := HealthReport{ExitCode: res.ExitCode}
	for _, line := range res.Lines {
		if strings.TrimSpace(line) != "" {
			report.Raw = strings.TrimSpace(line)
			break
		}
	}
	report.Status = decodeHealth(report.Raw)
	return report, nil
}

// Healthy reports whether the query succeeded and the status is healthy.
func (r HealthReport) Healthy() bool {
	return r.ExitCode == 0 && r.Status == HealthHealthy
}

// CopyIn streams the single host file at hostPath into the container root as
// a one-entry tar archive. The file lands at ContainerPath(filepath.Base(hostPath)).
//
// Generated command: tar -c -C <dir> <file> | <binary> cp - <container>:/
func (c *Client) CopyIn(ctx context.Context, hostPath string) (shell.Result, error) {
	tarLine, err := shell.Join("tar", "-c", "-C", filepath.Dir(hostPath), filepath.Base(hostPath))
	if err != nil {
		return shell.Result{ExitCode: 1}, err
	}
	cpLine, err := shell.Join(c.engine.CopyArgs(c.name)...)
	if err != nil {
		return shell.Result{ExitCode: 1}, err
	}
	return c.runner.Run(ctx, tarLine+" | "+cpLine)
}

// Exec runs script with bash -c inside the container.
func (c *Client) Exec(ctx context.Context, script string, opts ExecOptions) (shell.Result, error) {
	return c.run(ctx, c.engine.ExecArgs(c.name, []string{"bash", "-c", script}, opts))
}

// run quotes args into a command line and runs it.
func (c *Client) run(ctx context.Context, args []string) (shell.Result, error) {
	line, err := shell.Join(args...)
	if err != nil {
		return shell.Result{ExitCode: 1}, err
	}
	return c.runner.Run(ctx, line)
}

// decodeHealth decodes the JSON string printed by the health query.
func decodeHealth(raw string) HealthStatus {
	if raw == "" {
		return HealthUnknown
	}
	var status string
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return HealthUnknown
	}
	return HealthStatus(status)
}

// Detect returns a Client for the preferred engine, falling back to the other
// engine when the preferred one does not answer.
func Detect(ctx context.Context, runner shell.Runner, preferred EngineType, containerName string, opts ...BaseCLIEngineOption) (*Client, error) {
	order := []EngineType{EngineTypeDocker, EngineTypePodman}
	if preferred == EngineTypePodman {
		order = []EngineType{EngineTypePodman, EngineTypeDocker}
	} else if preferred != EngineTypeDocker {
		return nil, fmt.Errorf("unknown container engine type: %s", preferred)
	}

	for i, t := range order {
		engineOpts := opts
		if i > 0 {
			// Overrides were meant for the preferred engine.
			engineOpts = nil
		}
		engine, err := NewEngine(t, engineOpts...)
		if err != nil {
			return nil, err
		}
		client := NewClient(runner, engine, containerName)
		if client.Available(ctx) {
			return client, nil
		}
	}
	return nil, &ErrEngineNotAvailable{
		Engine: string(preferred),
		Reason: fmt.Sprintf("%s is not installed or not accessible, and the fallback engine is also not available", preferred),
	}
}
