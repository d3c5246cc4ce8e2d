// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type (
	// Result is the outcome of one command line.
	Result struct {
		// ExitCode is the exit status of the last command in the line.
		ExitCode int
		// Lines holds combined stdout and stderr, one entry per line.
		Lines []string
	}

	// Runner executes a command line and reports its exit code and output.
	// A nonzero exit code is not an error; err is reserved for lines that
	// could not be run at all (syntax errors, cancellation).
	Runner interface {
		Run(ctx context.Context, command string) (Result, error)
	}

	// InterpRunner runs command lines with the mvdan/sh interpreter.
	InterpRunner struct {
		dir    string
		env    []string
		echo   io.Writer
		logger *slog.Logger
	}

	// InterpOption configures an InterpRunner.
	InterpOption func(*InterpRunner)
)

// WithDir sets the working directory commands start in.
func WithDir(dir string) InterpOption {
	return func(r *InterpRunner) {
		r.dir = dir
	}
}

// WithEnv replaces the inherited environment.
func WithEnv(env []string) InterpOption {
	return func(r *InterpRunner) {
		r.env = env
	}
}

// WithEcho copies command output to w as it is produced.
func WithEcho(w io.Writer) InterpOption {
	return func(r *InterpRunner) {
		r.echo = w
	}
}

// WithLogger sets the logger used for per-command debug output.
func WithLogger(logger *slog.Logger) InterpOption {
	return func(r *InterpRunner) {
		r.logger = logger
	}
}

// NewInterpRunner creates an InterpRunner that inherits the process
// environment and working directory unless overridden.
func NewInterpRunner(opts ...InterpOption) *InterpRunner {
	r := &InterpRunner{
		env:    os.Environ(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run parses and executes command.
func (r *InterpRunner) Run(ctx context.Context, command string) (Result, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return Result{ExitCode: 1}, fmt.Errorf("failed to parse command %q: %w", command, err)
	}

	var out bytes.Buffer
	var w io.Writer = &out
	if r.echo != nil {
		w = io.MultiWriter(&out, r.echo)
	}
	// Both sides of a pipeline write here concurrently.
	w = &lockedWriter{w: w}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(r.env...)),
		interp.StdIO(nil, w, w),
	}
	if r.dir != "" {
		opts = append(opts, interp.Dir(r.dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return Result{ExitCode: 1}, fmt.Errorf("failed to create interpreter: %w", err)
	}

	r.logger.Debug("running command", "command", command)

	result := Result{}
	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if !errors.As(err, &exitStatus) {
			result.ExitCode = 1
			result.Lines = SplitLines(out.String())
			return result, fmt.Errorf("command %q failed: %w", command, err)
		}
		result.ExitCode = int(exitStatus)
	}
	result.Lines = SplitLines(out.String())

	r.logger.Debug("command finished", "command", command, "exit_code", result.ExitCode)
	return result, nil
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// SplitLines splits output into lines, dropping the trailing newline and any
// carriage returns before line ends. Lines are not length limited.
func SplitLines(output string) []string {
	if output == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Join quotes each argument for bash and joins them with spaces.
func Join(args ...string) (string, error) {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("cannot quote argument %q: %w", arg, err)
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " "), nil
}
