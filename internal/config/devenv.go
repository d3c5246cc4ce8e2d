// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"commodore-cli/internal/cueutil"
	"commodore-cli/internal/issue"
)

const (
	// DevEnvDirName is the dev-env configuration directory under the root.
	DevEnvDirName = "dev-env-config"
	// DevEnvFileName is the dev-env configuration file name.
	DevEnvFileName = "configuration.yml"
)

// DevEnv is the dev-env configuration: the applications to provision.
type DevEnv struct {
	Path string
	// Applications are the keys of the applications mapping, in file order.
	Applications []string
}

// DevEnvPath returns the dev-env configuration path under root.
func DevEnvPath(root string) string {
	return filepath.Join(root, DevEnvDirName, DevEnvFileName)
}

// LoadDevEnv reads <root>/dev-env-config/configuration.yml. A document
// without an applications mapping yields no applications.
func LoadDevEnv(root string) (*DevEnv, error) {
	path := DevEnvPath(root)
	data, err := os.ReadFile(path)
	if err != nil {
		ctx := issue.NewErrorContext().WithOperation("read dev-env configuration").WithResource(path)
		if errors.Is(err, fs.ErrNotExist) {
			ctx.WithSuggestion("Set root_dir or --root to your dev-env checkout")
		}
		return nil, ctx.Wrap(err).BuildError()
	}

	doc, err := cueutil.ParseYAML(data, cueutil.WithFilename(path))
	if err != nil {
		return nil, issue.WrapWithContext(err, "parse dev-env configuration", path)
	}
	apps, err := cueutil.FieldNames(doc, "applications")
	if err != nil {
		return nil, issue.WrapWithContext(fmt.Errorf("%s: %w", path, err), "parse dev-env configuration", path)
	}
	return &DevEnv{Path: path, Applications: apps}, nil
}
