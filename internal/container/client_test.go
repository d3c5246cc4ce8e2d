// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"strings"
	"testing"

	"commodore-cli/internal/shell"
	"commodore-cli/internal/testutil"
)

func TestClient_Health(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		result      shell.Result
		wantStatus  HealthStatus
		wantHealthy bool
	}{
		{"healthy", shell.Result{Lines: []string{`"healthy"`}}, HealthHealthy, true},
		{"starting", shell.Result{Lines: []string{`"starting"`}}, HealthStarting, false},
		{"unhealthy", shell.Result{Lines: []string{`"unhealthy"`}}, HealthUnhealthy, false},
		{"not json", shell.Result{Lines: []string{"healthy"}}, HealthUnknown, false},
		{"no container", shell.Result{ExitCode: 1, Lines: []string{"Error: No such object: db2_community"}}, HealthUnknown, false},
		{"healthy text but failed exit", shell.Result{ExitCode: 1, Lines: []string{`"healthy"`}}, HealthHealthy, false},
		{"leading blank line", shell.Result{Lines: []string{"", ` "healthy" `}}, HealthHealthy, true},
		{"empty", shell.Result{}, HealthUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := testutil.NewScriptedRunner().On("inspect", tt.result)
			c := NewClient(runner, NewDockerEngine(), "db2_community")

			report, err := c.Health(context.Background())
			if err != nil {
				t.Fatalf("Health() error = %v", err)
			}
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", report.Status, tt.wantStatus)
			}
			if report.Healthy() != tt.wantHealthy {
				t.Errorf("Healthy() = %v, want %v", report.Healthy(), tt.wantHealthy)
			}
		})
	}
}

func TestClient_Commands(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	runner := testutil.NewScriptedRunner()
	c := NewClient(runner, NewDockerEngine(), "db2_community")

	if _, err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := c.CopyIn(ctx, "/dev-env/apps/app-a/fragments/db2-community-init-fragment.sql"); err != nil {
		t.Fatalf("CopyIn() error = %v", err)
	}
	if _, err := c.Exec(ctx, "~/sqllib/bin/db2 disconnect all", ExecOptions{User: "db2inst1"}); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	cmds := runner.Commands()
	want := []string{
		"docker-compose up -d db2_community",
		"tar -c -C /dev-env/apps/app-a/fragments db2-community-init-fragment.sql | docker cp - db2_community:/",
		"docker exec -u db2inst1 db2_community bash -c '~/sqllib/bin/db2 disconnect all'",
	}
	if len(cmds) != len(want) {
		t.Fatalf("ran %d commands, want %d: %q", len(cmds), len(want), cmds)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, cmds[i], want[i])
		}
	}
}

func TestClient_HealthRunnerError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	runner := testutil.NewScriptedRunner().OnError("inspect", boom)
	c := NewClient(runner, NewDockerEngine(), "db2_community")

	if _, err := c.Health(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Health() error = %v, want %v", err, boom)
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("preferred available", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewScriptedRunner()
		c, err := Detect(ctx, runner, EngineTypePodman, "db")
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if c.Engine().Name() != "podman" {
			t.Errorf("engine = %q, want podman", c.Engine().Name())
		}
	})

	t.Run("falls back", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewScriptedRunner().OnExit("docker version", 1)
		c, err := Detect(ctx, runner, EngineTypeDocker, "db")
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if c.Engine().Name() != "podman" {
			t.Errorf("engine = %q, want podman", c.Engine().Name())
		}
	})

	t.Run("none available", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewScriptedRunner().OnExit("version", 127)
		_, err := Detect(ctx, runner, EngineTypeDocker, "db")
		var notAvail *ErrEngineNotAvailable
		if !errors.As(err, &notAvail) {
			t.Fatalf("Detect() error = %v, want *ErrEngineNotAvailable", err)
		}
		if !strings.Contains(err.Error(), "docker") {
			t.Errorf("error %q should name the preferred engine", err)
		}
	})

	t.Run("unknown engine", func(t *testing.T) {
		t.Parallel()
		if _, err := Detect(ctx, testutil.NewScriptedRunner(), EngineType("lxc"), "db"); err == nil {
			t.Fatal("Detect() expected error for unknown engine")
		}
	})
}

func TestLazyClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	detecting := func(runner shell.Runner) *LazyClient {
		return NewLazyClient("db2_community", func(ctx context.Context) (*Client, error) {
			return Detect(ctx, runner, EngineTypeDocker, "db2_community")
		})
	}

	t.Run("no calls no detection", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewScriptedRunner()
		c := detecting(runner)

		if c.Name() != "db2_community" {
			t.Errorf("Name() = %q", c.Name())
		}
		if c.Resolved() {
			t.Error("Resolved() = true before any protocol call")
		}
		if cmds := runner.Commands(); len(cmds) != 0 {
			t.Errorf("ran %q before any protocol call", cmds)
		}
	})

	t.Run("detects once", func(t *testing.T) {
		t.Parallel()
		runner := testutil.NewScriptedRunner()
		c := detecting(runner)

		if _, err := c.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if _, err := c.Health(ctx); err != nil {
			t.Fatalf("Health() error = %v", err)
		}
		if _, err := c.Exec(ctx, "true", ExecOptions{}); err != nil {
			t.Fatalf("Exec() error = %v", err)
		}
		if got := runner.Count("version"); got != 1 {
			t.Errorf("engine probed %d times, want 1", got)
		}
		if !c.Resolved() {
			t.Error("Resolved() = false after a protocol call")
		}
	})

	t.Run("failure is retried", func(t *testing.T) {
		t.Parallel()
		calls := 0
		want := &ErrEngineNotAvailable{Engine: "docker", Reason: "not installed"}
		c := NewLazyClient("db", func(context.Context) (*Client, error) {
			calls++
			if calls == 1 {
				return nil, want
			}
			return NewClient(testutil.NewScriptedRunner(), NewDockerEngine(), "db"), nil
		})

		res, err := c.CopyIn(ctx, "/tmp/a.sql")
		var notAvail *ErrEngineNotAvailable
		if !errors.As(err, &notAvail) {
			t.Fatalf("CopyIn() error = %v, want *ErrEngineNotAvailable", err)
		}
		if res.ExitCode == 0 {
			t.Error("failed resolution reported exit code 0")
		}
		if _, err := c.CopyIn(ctx, "/tmp/a.sql"); err != nil {
			t.Fatalf("second CopyIn() error = %v", err)
		}
		if calls != 2 {
			t.Errorf("resolve called %d times, want 2", calls)
		}
	})
}
