// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"commodore-cli/internal/container"
	"commodore-cli/internal/executor"
	"commodore-cli/internal/issue"
	"commodore-cli/internal/manifest"
	"commodore-cli/internal/provision"
	"commodore-cli/internal/readiness"
	"commodore-cli/internal/testutil"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version, Commit, BuildDate = "v0.3.0", "9f1c2ab", "2026-03-02T08:00:00Z"
		want := "v0.3.0 (commit: 9f1c2ab, built: 2026-03-02T08:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{
			name: "not ready",
			err:  &readiness.NotReadyError{Container: "db2_community", Attempts: 3},
			want: issue.ContainerNotReadyId,
		},
		{
			name: "injection",
			err:  &executor.InjectionError{Step: "copy", File: "a.sql", ExitCode: 1},
			want: issue.FragmentInjectionFailedId,
		},
		{
			name: "fragment joined with reconcile error",
			err:  errors.Join(&executor.FragmentError{Kind: "sql", App: "billing", ExitCode: 8}, errors.New("disconnect failed")),
			want: issue.FragmentFailedId,
		},
		{
			name: "manifest",
			err:  fmt.Errorf("gate: %w", &manifest.ParseError{Path: "apps/a/configuration.yml", Err: errors.New("bad yaml")}),
			want: issue.ManifestInvalidId,
		},
		{
			name: "engine",
			err:  &container.ErrEngineNotAvailable{Engine: "docker", Reason: "not installed"},
			want: issue.ContainerEngineNotFoundId,
		},
		{
			name: "permission",
			err:  &fs.PathError{Op: "open", Path: ".commodities.toml", Err: fs.ErrPermission},
			want: issue.PermissionDeniedId,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewServiceError_NilPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("newServiceError(nil) did not panic")
		}
	}()
	_ = newServiceError(nil, 0, "")
}

func TestReportError(t *testing.T) {
	t.Parallel()

	t.Run("silent exit", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		reportError(&buf, &ExitError{Code: 3}, false)
		if buf.Len() != 0 {
			t.Errorf("reportError wrote %q for a bare ExitError", buf.String())
		}
	})

	t.Run("service error with issue", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := &ExitError{Code: 3, Err: newServiceError(errors.New("1 of 2 applications failed to provision"), issue.FragmentFailedId, "")}
		reportError(&buf, err, false)
		out := buf.String()
		if !strings.Contains(out, "1 of 2 applications failed to provision") {
			t.Errorf("missing error message:\n%s", out)
		}
		if len(out) <= len("Error: 1 of 2 applications failed to provision\n") {
			t.Errorf("issue help was not rendered:\n%s", out)
		}
	})
}

func TestResultDetail(t *testing.T) {
	t.Parallel()

	failed := provision.Result{
		App:     "billing",
		Status:  provision.StatusFailed,
		Kind:    provision.FailureFragment,
		Message: "failed to run init sql for billing\ndisconnect failed",
	}
	if got := resultDetail(failed); strings.Contains(got, "\n") || !strings.Contains(got, "disconnect failed") {
		t.Errorf("resultDetail(failed) = %q", got)
	}

	skipped := provision.Result{App: "web", Status: provision.StatusSkipped, Reason: provision.SkipNotRequired}
	if got := resultDetail(skipped); !strings.Contains(got, "not-required") {
		t.Errorf("resultDetail(skipped) = %q", got)
	}
}

func TestReprovision_IgnoresLedger(t *testing.T) {
	t.Parallel()

	h := newCLIHarness(t, "")
	app := NewApp(Dependencies{
		Runner: h.runner,
		Clock:  testutil.NewAutoClock(),
		Stdout: h.stdout,
		Stderr: h.stderr,
	})
	flags := &rootFlagValues{configPath: h.config, rootDir: h.env.Root}

	s, err := app.openSession(context.Background(), flags, true)
	if err != nil {
		t.Fatalf("openSession() error = %v", err)
	}
	t.Cleanup(func() { s.Close(h.stderr) })

	reprovision(context.Background(), app, s, []string{"billing", "web"})
	reprovision(context.Background(), app, s, []string{"billing"})

	if got := h.runner.Count(sqlRun); got != 2 {
		t.Errorf("sql fragment ran %d times, want 2", got)
	}
	if out := h.stdout.String(); !strings.Contains(out, "not-required") {
		t.Errorf("web should be skipped by the gate:\n%s", out)
	}
}
