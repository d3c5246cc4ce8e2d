// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

// MustMkdirAll creates a directory along with any necessary parents.
// The test fails immediately if the operation fails.
func MustMkdirAll(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustWriteFile writes content to path, creating parent directories.
// The test fails immediately if the operation fails.
func MustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustClose closes the given io.Closer.
// The test fails immediately if the close fails.
func MustClose(t testing.TB, c io.Closer) {
	t.Helper()
	if err := c.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
}

// DevEnv is a throwaway dev-env root used by tests.
type DevEnv struct {
	Root string
}

// NewDevEnv creates an empty dev-env root under t.TempDir().
func NewDevEnv(t testing.TB) *DevEnv {
	t.Helper()
	root := t.TempDir()
	MustMkdirAll(t, filepath.Join(root, "apps"))
	MustMkdirAll(t, filepath.Join(root, "dev-env-config"))
	return &DevEnv{Root: root}
}

// AppDir returns the directory of app.
func (d *DevEnv) AppDir(app string) string {
	return filepath.Join(d.Root, "apps", app)
}

// WriteManifest writes apps/<app>/configuration.yml declaring commodities.
func (d *DevEnv) WriteManifest(t testing.TB, app string, commodities ...string) {
	t.Helper()
	content := "commodities:\n"
	for _, c := range commodities {
		content += "  - " + c + "\n"
	}
	MustWriteFile(t, filepath.Join(d.AppDir(app), "configuration.yml"), content)
}

// WriteFragment writes apps/<app>/fragments/<name>.
func (d *DevEnv) WriteFragment(t testing.TB, app, name, content string) string {
	t.Helper()
	path := filepath.Join(d.AppDir(app), "fragments", name)
	MustWriteFile(t, path, content)
	return path
}

// WriteDevEnvConfig writes dev-env-config/configuration.yml listing apps in order.
func (d *DevEnv) WriteDevEnvConfig(t testing.TB, apps ...string) {
	t.Helper()
	content := "applications:\n"
	for _, app := range apps {
		content += "  " + app + ":\n    repo: git@example.com:" + app + ".git\n"
	}
	MustWriteFile(t, filepath.Join(d.Root, "dev-env-config", "configuration.yml"), content)
}
