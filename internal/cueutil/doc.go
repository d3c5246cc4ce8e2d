// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates configuration documents against embedded CUE
// schemas and turns CUE errors into path-prefixed messages.
//
//	//go:embed config_schema.cue
//	var schema string
//
//	m, err := cueutil.DecodeMap(schema, data, "#Config", cueutil.WithFilename(path))
//
// It also reads YAML documents as CUE values, which keeps mapping keys in
// file order.
package cueutil
