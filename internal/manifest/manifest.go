// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"
)

const (
	// AppsDirName is the directory under the dev-env root holding application checkouts.
	AppsDirName = "apps"
	// FileName is the manifest file name inside an application directory.
	FileName = "configuration.yml"
)

type (
	// Manifest is the part of an application's configuration this tool reads.
	Manifest struct {
		// Path is the manifest file the values were read from.
		Path string
		// Commodities lists the commodity names the application declares.
		Commodities []string
	}

	// Gate decides whether applications depend on one commodity.
	Gate struct {
		root      string
		commodity string
	}

	// ParseError is returned when a manifest exists but cannot be read.
	ParseError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("read manifest %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// AppDir returns the directory of app under root.
func AppDir(root, app string) string {
	return filepath.Join(root, AppsDirName, app)
}

// Path returns the manifest path of app under root.
func Path(root, app string) string {
	return filepath.Join(AppDir(root, app), FileName)
}

// Load reads the manifest of app. A missing manifest yields (Manifest{}, false, nil).
func Load(root, app string) (Manifest, bool, error) {
	path := Path(root, app)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{Path: path}, false, nil
		}
		return Manifest{Path: path}, false, &ParseError{Path: path, Err: err}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Manifest{Path: path}, true, &ParseError{Path: path, Err: err}
	}
	return Manifest{Path: path, Commodities: v.GetStringSlice("commodities")}, true, nil
}

// Requires reports whether the manifest declares commodity.
func (m Manifest) Requires(commodity string) bool {
	return slices.Contains(m.Commodities, commodity)
}

// NewGate creates a Gate for commodity over the dev-env rooted at root.
func NewGate(root, commodity string) *Gate {
	return &Gate{root: root, commodity: commodity}
}

// Commodity returns the commodity name the gate checks for.
func (g *Gate) Commodity() string { return g.commodity }

// Requires reports whether app's manifest lists the gate's commodity.
// A missing manifest is not an error.
func (g *Gate) Requires(ctx context.Context, app string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m, found, err := Load(g.root, app)
	if err != nil || !found {
		return false, err
	}
	return m.Requires(g.commodity), nil
}
