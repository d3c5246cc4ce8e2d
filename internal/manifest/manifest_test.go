// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"commodore-cli/internal/testutil"
)

func TestGate_Requires(t *testing.T) {
	t.Parallel()

	env := testutil.NewDevEnv(t)
	env.WriteManifest(t, "alpha", "db2_community", "postgres")
	env.WriteManifest(t, "beta", "postgres")
	env.WriteManifest(t, "gamma")
	testutil.MustMkdirAll(t, env.AppDir("delta"))

	gate := NewGate(env.Root, "db2_community")
	tests := []struct {
		app  string
		want bool
	}{
		{"alpha", true},
		{"beta", false},
		{"gamma", false},
		{"delta", false},
		{"missing", false},
	}
	for _, tt := range tests {
		t.Run(tt.app, func(t *testing.T) {
			t.Parallel()
			got, err := gate.Requires(context.Background(), tt.app)
			if err != nil {
				t.Fatalf("Requires(%q) error = %v", tt.app, err)
			}
			if got != tt.want {
				t.Errorf("Requires(%q) = %v, want %v", tt.app, got, tt.want)
			}
		})
	}
}

func TestGate_MalformedManifest(t *testing.T) {
	t.Parallel()

	env := testutil.NewDevEnv(t)
	testutil.MustWriteFile(t, Path(env.Root, "broken"), "commodities: [db2_community\n  - :")

	gate := NewGate(env.Root, "db2_community")
	_, err := gate.Requires(context.Background(), "broken")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Requires() error = %v, want *ParseError", err)
	}
	if parseErr.Path != Path(env.Root, "broken") {
		t.Errorf("ParseError.Path = %q", parseErr.Path)
	}
}

func TestGate_CancelledContext(t *testing.T) {
	t.Parallel()

	env := testutil.NewDevEnv(t)
	env.WriteManifest(t, "alpha", "db2_community")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewGate(env.Root, "db2_community").Requires(ctx, "alpha"); !errors.Is(err, context.Canceled) {
		t.Errorf("Requires() error = %v, want context.Canceled", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	env := testutil.NewDevEnv(t)
	env.WriteManifest(t, "alpha", "db2_community", "redis")

	m, found, err := Load(env.Root, "alpha")
	if err != nil || !found {
		t.Fatalf("Load() = %v, %v", found, err)
	}
	if len(m.Commodities) != 2 || !m.Requires("redis") || m.Requires("postgres") {
		t.Errorf("Commodities = %v", m.Commodities)
	}

	_, found, err = Load(env.Root, "nope")
	if err != nil || found {
		t.Errorf("Load(missing) = %v, %v; want not found and no error", found, err)
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	if got, want := Path("/dev-env", "alpha"), filepath.Join("/dev-env", "apps", "alpha", "configuration.yml"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}
