// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"commodore-cli/internal/fragment"
	"commodore-cli/internal/issue"
	"commodore-cli/internal/ledger"
	"commodore-cli/internal/shell"
	"commodore-cli/internal/testutil"
)

const (
	testCommodity = "db2_community"
	testPrefix    = "db2-community"
	healthQuery   = "docker inspect"
	sqlRun        = "-tvf /db2-community-init-fragment.sql"
)

type cliHarness struct {
	env    *testutil.DevEnv
	runner *testutil.ScriptedRunner
	config string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newCLIHarness builds a dev-env with billing (declares the commodity, ships
// a SQL fragment) and web (does not declare it), plus a config file.
func newCLIHarness(t *testing.T, configBody string) *cliHarness {
	t.Helper()

	env := testutil.NewDevEnv(t)
	env.WriteDevEnvConfig(t, "billing", "web")
	env.WriteManifest(t, "billing", testCommodity)
	env.WriteFragment(t, "billing", fragment.FileName(testPrefix, fragment.KindSQL), "CREATE DATABASE billing;\n")
	env.WriteManifest(t, "web", "postgres")

	cfgPath := filepath.Join(t.TempDir(), "config.cue")
	testutil.MustWriteFile(t, cfgPath, configBody)

	runner := testutil.NewScriptedRunner()
	runner.On(healthQuery, shell.Result{Lines: []string{`"healthy"`}})

	return &cliHarness{
		env:    env,
		runner: runner,
		config: cfgPath,
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
}

// run executes the command tree with the harness flags prepended.
func (h *cliHarness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()

	app := NewApp(Dependencies{
		Runner:   h.runner,
		Clock:    testutil.NewAutoClock(),
		NewRunID: func() string { return "run-1" },
		Stdout:   h.stdout,
		Stderr:   h.stderr,
	})
	root := NewRootCommand(app)
	root.SetArgs(append(args, "--config", h.config, "--root", h.env.Root))
	return root.ExecuteContext(context.Background())
}

func TestProvision_EndToEnd(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, "")

	if err := h.run(t, "provision"); err != nil {
		t.Fatalf("provision error = %v\nstderr: %s", err, h.stderr)
	}
	out := h.stdout.String()
	for _, want := range []string{"billing", "1 fragment", "web", "not-required", "1 ok, 0 failed, 1 skipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("provision output missing %q:\n%s", want, out)
		}
	}
	if got := h.runner.Count(sqlRun); got != 1 {
		t.Errorf("sql fragment ran %d times, want 1", got)
	}

	// The ledger suppresses a second run.
	if err := h.run(t, "provision"); err != nil {
		t.Fatalf("second provision error = %v", err)
	}
	if !strings.Contains(h.stdout.String(), "already-provisioned") {
		t.Errorf("second run output missing already-provisioned:\n%s", h.stdout)
	}
	if got := h.runner.Count(sqlRun); got != 1 {
		t.Errorf("sql fragment ran %d times after second run, want 1", got)
	}

	// A new container overrides the ledger.
	if err := h.run(t, "provision", "--new-container", testCommodity); err != nil {
		t.Fatalf("provision --new-container error = %v", err)
	}
	if got := h.runner.Count(sqlRun); got != 2 {
		t.Errorf("sql fragment ran %d times after new container, want 2", got)
	}
}

func TestProvision_FailureIsNotAnErrorWithoutStrict(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, "")
	h.runner.OnExit(sqlRun, 8)

	if err := h.run(t, "provision"); err != nil {
		t.Fatalf("provision error = %v", err)
	}
	if !strings.Contains(h.stdout.String(), "0 ok, 1 failed") {
		t.Errorf("output missing failure summary:\n%s", h.stdout)
	}
}

func TestProvision_Strict(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, "")
	h.runner.OnExit(sqlRun, 8)

	err := h.run(t, "provision", "--strict")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitProvisionFailed {
		t.Fatalf("provision --strict error = %v, want ExitError code %d", err, ExitProvisionFailed)
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.IssueID != issue.FragmentFailedId {
		t.Fatalf("ServiceError = %+v, want issue %d", svcErr, issue.FragmentFailedId)
	}
	if !strings.Contains(err.Error(), "1 of 2 applications failed") {
		t.Errorf("error = %q", err)
	}
}

func TestProvision_AppFilter(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, "")

	if err := h.run(t, "provision", "--app", "web"); err != nil {
		t.Fatalf("provision --app web error = %v", err)
	}
	if strings.Contains(h.stdout.String(), "billing") {
		t.Errorf("filtered run processed billing:\n%s", h.stdout)
	}
	if got := h.runner.Count(sqlRun); got != 0 {
		t.Errorf("sql fragment ran %d times, want 0", got)
	}

	err := h.run(t, "provision", "--app", "payments")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.IssueID != issue.DevEnvConfigInvalidId {
		t.Fatalf("unknown app error = %v, want DevEnvConfigInvalid service error", err)
	}
}

func TestProvision_InvalidConfig(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, `ledger: backend: "redis"`+"\n")

	err := h.run(t, "provision")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.IssueID != issue.ConfigLoadFailedId {
		t.Fatalf("error = %v, want ConfigLoadFailed service error", err)
	}
	if h.runner.Count("docker") != 0 {
		t.Errorf("container commands ran despite invalid config: %v", h.runner.Commands())
	}
}

func TestStatusAndReset(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, "")
	if err := h.run(t, "provision"); err != nil {
		t.Fatalf("provision error = %v", err)
	}

	if err := h.run(t, "status"); err != nil {
		t.Fatalf("status error = %v", err)
	}
	if out := h.stdout.String(); !strings.Contains(out, "billing") || !strings.Contains(out, "provisioned") {
		t.Errorf("status output:\n%s", out)
	}

	if err := h.run(t, "status", "--markdown"); err != nil {
		t.Fatalf("status --markdown error = %v", err)
	}
	if out := h.stdout.String(); !strings.Contains(out, "Provision status") || !strings.Contains(out, "billing") {
		t.Errorf("markdown status output:\n%s", out)
	}

	if err := h.run(t, "reset", "billing"); err != nil {
		t.Fatalf("reset error = %v", err)
	}
	if err := h.run(t, "status"); err != nil {
		t.Fatalf("status error = %v", err)
	}
	if out := h.stdout.String(); !strings.Contains(out, "no provision attempts recorded") {
		t.Errorf("status after reset:\n%s", out)
	}

	if err := h.run(t, "provision"); err != nil {
		t.Fatalf("provision after reset error = %v", err)
	}
	if got := h.runner.Count(sqlRun); got != 2 {
		t.Errorf("sql fragment ran %d times, want 2 after reset", got)
	}
}

func TestReset_Arguments(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, "")
	if err := h.run(t, "reset"); err == nil {
		t.Error("reset with no apps and no --all succeeded")
	}
	if err := h.run(t, "reset", "--all", "billing"); err == nil {
		t.Error("reset with apps and --all succeeded")
	}
	if err := h.run(t, "reset", ""); !errors.Is(err, ledger.ErrInvalidKey) {
		t.Errorf("reset with an empty app name error = %v, want ErrInvalidKey", err)
	}
	if err := h.run(t, "reset", "--all"); err != nil {
		t.Fatalf("reset --all error = %v", err)
	}
	if !strings.Contains(h.stdout.String(), "nothing to reset") {
		t.Errorf("reset --all on empty ledger:\n%s", h.stdout)
	}
}

func TestStatus_HistoryNeedsSQLite(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, "")
	err := h.run(t, "status", "--history", "billing")
	if !errors.Is(err, errNoHistory) {
		t.Fatalf("status --history error = %v, want errNoHistory", err)
	}
}

func TestStatus_HistorySQLite(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, `ledger: backend: "sqlite"`+"\n")
	h.runner.OnExit(sqlRun, 8, 0)

	if err := h.run(t, "provision"); err != nil {
		t.Fatalf("first provision error = %v", err)
	}
	if err := h.run(t, "provision"); err != nil {
		t.Fatalf("second provision error = %v", err)
	}

	if err := h.run(t, "status", "--history", "billing"); err != nil {
		t.Fatalf("status --history error = %v", err)
	}
	out := h.stdout.String()
	if strings.Count(out, "run run-1") != 2 {
		t.Errorf("history should list two attempts:\n%s", out)
	}
	if !strings.Contains(out, "failed") || !strings.Contains(out, "ok") {
		t.Errorf("history should show both outcomes:\n%s", out)
	}
}

func TestConfigShowAndDump(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, "readiness: max_attempts: 12\n")

	if err := h.run(t, "config", "show"); err != nil {
		t.Fatalf("config show error = %v", err)
	}
	out := h.stdout.String()
	for _, want := range []string{h.config, "db2_community", "max_attempts", "12", "[0, 2, 4, 6]"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}

	if err := h.run(t, "config", "dump"); err != nil {
		t.Fatalf("config dump error = %v", err)
	}
	if !strings.Contains(h.stdout.String(), "max_attempts:  12") {
		t.Errorf("config dump:\n%s", h.stdout)
	}
}

func TestProvision_NoWorkNeedsNoEngine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		arrange func(t *testing.T, h *cliHarness)
		want    string
	}{
		{
			name: "no applications",
			arrange: func(t *testing.T, h *cliHarness) {
				h.env.WriteDevEnvConfig(t)
			},
			want: "no applications configured",
		},
		{
			name: "no application declares the commodity",
			arrange: func(t *testing.T, h *cliHarness) {
				h.env.WriteManifest(t, "billing", "postgres")
			},
			want: "0 ok, 0 failed, 2 skipped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newCLIHarness(t, "")
			h.runner.OnExit("version", 1)
			tt.arrange(t, h)

			if err := h.run(t, "provision", "--strict"); err != nil {
				t.Fatalf("provision error = %v\nstderr: %s", err, h.stderr)
			}
			if cmds := h.runner.Commands(); len(cmds) != 0 {
				t.Errorf("ran container commands with nothing to provision: %q", cmds)
			}
			if out := h.stdout.String(); !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestProvision_MissingEngineFailsTheApp(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, "")
	h.runner.OnExit("version", 1)

	err := h.run(t, "provision", "--strict")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.IssueID != issue.ContainerEngineNotFoundId {
		t.Fatalf("provision --strict error = %v, want ContainerEngineNotFound service error", err)
	}
	if !strings.Contains(h.stdout.String(), "0 ok, 1 failed, 1 skipped") {
		t.Errorf("output missing failure summary:\n%s", h.stdout)
	}
	if got := h.runner.Count(sqlRun); got != 0 {
		t.Errorf("sql fragment ran %d times without an engine, want 0", got)
	}
}
