// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

// DecodeMap compiles data, unifies it with the definition def of schema,
// validates the result and decodes it to a map suitable for viper.MergeConfigMap.
func DecodeMap(schema string, data []byte, def string, opts ...Option) (map[string]any, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	root := schemaValue.LookupPath(cue.ParsePath(def))
	if !root.Exists() {
		return nil, fmt.Errorf("internal error: schema definition %s not found", def)
	}

	userValue := ctx.CompileBytes(data, cue.Filename(o.filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), o.filename)
	}

	unified := root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var out map[string]any
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return out, nil
}

// ParseYAML reads a YAML document as a CUE value. Struct fields keep the
// order of the mapping keys in the document.
func ParseYAML(data []byte, opts ...Option) (cue.Value, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return cue.Value{}, err
	}

	file, err := yaml.Extract(o.filename, data)
	if err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}
	v := cuecontext.New().BuildFile(file)
	if v.Err() != nil {
		return cue.Value{}, FormatError(v.Err(), o.filename)
	}
	return v, nil
}

// FieldNames returns the regular field labels of the struct at path in v, in
// declaration order. A missing or null value yields no names.
func FieldNames(v cue.Value, path string) ([]string, error) {
	field := v.LookupPath(cue.ParsePath(path))
	if !field.Exists() || field.IsNull() {
		return nil, nil
	}
	iter, err := field.Fields()
	if err != nil {
		return nil, fmt.Errorf("%s: expected a mapping: %w", path, err)
	}
	var names []string
	for iter.Next() {
		names = append(names, iter.Selector().Unquoted())
	}
	return names, nil
}
