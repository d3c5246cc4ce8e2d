// SPDX-License-Identifier: MPL-2.0

// Package config handles commodore configuration using Viper with CUE as the
// file format, plus the dev-env configuration that lists the applications.
//
// The tool configuration is looked up at the --config path, then
// $XDG_CONFIG_HOME/commodore/config.cue, then ./commodore.cue. A missing file
// means defaults. The file is validated against the embedded config_schema.cue
// before being merged into Viper, and every key can be overridden from the
// environment with the COMMODORE_ prefix (COMMODORE_CONTAINER_ENGINE=podman).
package config
