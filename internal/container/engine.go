// SPDX-License-Identifier: MPL-2.0

package container

import (
	"fmt"
	"path"
)

// EngineType identifies the container engine type
type EngineType string

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
)

type (
	// Engine builds the argument vectors of the container runtime protocol.
	Engine interface {
		// Name returns the engine name (docker or podman)
		Name() string
		// VersionArgs returns the command used to probe that the engine daemon answers.
		VersionArgs() []string
		// StartArgs starts a compose service in the background. Starting an
		// already running service is a no-op.
		StartArgs(service string) []string
		// HealthArgs queries the health status of a container as a JSON string.
		HealthArgs(containerName string) []string
		// CopyArgs streams a tar archive from stdin into the container root.
		CopyArgs(containerName string) []string
		// ExecArgs runs command inside a running container.
		ExecArgs(containerName string, command []string, opts ExecOptions) []string
	}

	// ExecOptions contains options for running a command in a container.
	ExecOptions struct {
		// User runs the command as this user (empty = container default).
		User string
		// WorkDir is the working directory inside the container.
		WorkDir string
	}

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the argument construction shared by CLI-based
	// container engines. Docker and Podman engines embed this struct.
	BaseCLIEngine struct {
		name    string
		binary  string
		compose []string
	}

	// ErrEngineNotAvailable is returned when a container engine is not available
	ErrEngineNotAvailable struct {
		Engine string
		Reason string
	}
)

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// WithBinary overrides the engine binary (default: the engine name).
func WithBinary(binary string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// WithComposeCommand overrides the compose invocation, e.g. "docker compose"
// given as []string{"docker", "compose"}.
func WithComposeCommand(command ...string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		if len(command) > 0 {
			e.compose = command
		}
	}
}

// NewBaseCLIEngine creates a base engine.
func NewBaseCLIEngine(name string, compose []string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{name: name, binary: name, compose: compose}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewEngine creates an engine of the given type.
func NewEngine(engineType EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	switch engineType {
	case EngineTypeDocker:
		return NewDockerEngine(opts...), nil
	case EngineTypePodman:
		return NewPodmanEngine(opts...), nil
	default:
		return nil, fmt.Errorf("unknown container engine type: %s", engineType)
	}
}

// Name returns the engine name.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// Binary returns the engine binary.
func (e *BaseCLIEngine) Binary() string {
	return e.binary
}

// StartArgs constructs the compose invocation for a service.
//
// Generated command: <compose> up -d <service>
func (e *BaseCLIEngine) StartArgs(service string) []string {
	args := append([]string{}, e.compose...)
	return append(args, "up", "-d", service)
}

// HealthArgs constructs a health status query.
//
// Generated command: <binary> inspect --format {{json .State.Health.Status}} <container>
func (e *BaseCLIEngine) HealthArgs(containerName string) []string {
	return []string{e.binary, "inspect", "--format", "{{json .State.Health.Status}}", containerName}
}

// CopyArgs constructs a copy-from-stdin into the container root.
//
// Generated command: <binary> cp - <container>:/
func (e *BaseCLIEngine) CopyArgs(containerName string) []string {
	return []string{e.binary, "cp", "-", containerName + ":/"}
}

// ExecArgs constructs arguments for a container exec command.
//
// Generated command: <binary> exec [-u user] [-w dir] <container> <command...>
func (e *BaseCLIEngine) ExecArgs(containerName string, command []string, opts ExecOptions) []string {
	args := []string{e.binary, "exec"}

	if opts.User != "" {
		args = append(args, "-u", opts.User)
	}

	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}

	args = append(args, containerName)
	return append(args, command...)
}

// ContainerPath returns where a host file named base lands after CopyArgs.
func ContainerPath(base string) string {
	return path.Join("/", base)
}
