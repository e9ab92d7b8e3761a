// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package iniconv renders an ini.Store in other configuration formats.
package iniconv

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/yourbase/inistore/ini"
	"gopkg.in/yaml.v3"
)

// Options holds optional parameters for the writers in this package.
type Options struct {
	// Typed emits values that parse as integers or finite floating-point
	// numbers as numbers instead of strings.
	Typed bool
}

// WriteTOML writes s to w as a TOML document with one table per section.
// TOML tables are unordered, so sections and keys are written sorted.
func WriteTOML(w io.Writer, s *ini.Store, opts *Options) error {
	doc := make(map[string]map[string]interface{}, s.Len())
	for _, name := range s.Sections() {
		table := make(map[string]interface{})
		for _, p := range s.Section(name) {
			table[p.Key] = typedValue(p.Value, opts)
		}
		doc[name] = table
	}
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("write toml: %w", err)
	}
	return nil
}

// WriteYAML writes s to w as a YAML mapping of sections to mappings of keys.
// Sections and keys keep their order in s.
func WriteYAML(w io.Writer, s *ini.Store, opts *Options) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range s.Sections() {
		section := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range s.Section(name) {
			section.Content = append(section.Content, stringNode(p.Key), valueNode(p.Value, opts))
		}
		root.Content = append(root.Content, stringNode(name), section)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return nil
}

func typedValue(v string, opts *Options) interface{} {
	if opts == nil || !opts.Typed {
		return v
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, ok := parseFinite(v); ok {
		return f
	}
	return v
}

func stringNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func valueNode(v string, opts *Options) *yaml.Node {
	switch typedValue(v, opts).(type) {
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: v}
	default:
		return stringNode(v)
	}
}

// parseFinite parses v as a decimal floating-point number. Spellings like
// "inf", "nan" and hexadecimal floats stay strings.
func parseFinite(v string) (float64, bool) {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if !('0' <= c && c <= '9') && c != '.' && c != '-' && c != '+' && c != 'e' && c != 'E' {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
