// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package iniconv

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"
	"github.com/yourbase/inistore/ini"
	"gopkg.in/yaml.v3"
)

const source = "[server]\nhost=example\nport=8080\nratio=0.75\n\n[paths]\nroot=/srv/app\n"

func parse(t *testing.T) *ini.Store {
	t.Helper()
	s, err := ini.Parse(strings.NewReader(source), nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestWriteTOML(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
		want map[string]map[string]interface{}
	}{
		{
			name: "Strings",
			want: map[string]map[string]interface{}{
				"server": {"host": "example", "port": "8080", "ratio": "0.75"},
				"paths":  {"root": "/srv/app"},
			},
		},
		{
			name: "Typed",
			opts: &Options{Typed: true},
			want: map[string]map[string]interface{}{
				"server": {"host": "example", "port": int64(8080), "ratio": 0.75},
				"paths":  {"root": "/srv/app"},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sb := new(strings.Builder)
			if err := WriteTOML(sb, parse(t), test.opts); err != nil {
				t.Fatal("WriteTOML:", err)
			}
			var got map[string]map[string]interface{}
			if err := toml.Unmarshal([]byte(sb.String()), &got); err != nil {
				t.Fatalf("toml.Unmarshal(%q): %v", sb.String(), err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("decoded TOML (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteYAML(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
		want map[string]map[string]interface{}
	}{
		{
			name: "Strings",
			want: map[string]map[string]interface{}{
				"server": {"host": "example", "port": "8080", "ratio": "0.75"},
				"paths":  {"root": "/srv/app"},
			},
		},
		{
			name: "Typed",
			opts: &Options{Typed: true},
			want: map[string]map[string]interface{}{
				"server": {"host": "example", "port": 8080, "ratio": 0.75},
				"paths":  {"root": "/srv/app"},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sb := new(strings.Builder)
			if err := WriteYAML(sb, parse(t), test.opts); err != nil {
				t.Fatal("WriteYAML:", err)
			}
			out := sb.String()
			var got map[string]map[string]interface{}
			if err := yaml.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("yaml.Unmarshal(%q): %v", out, err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("decoded YAML (-want +got):\n%s", diff)
			}
			if strings.Index(out, "server:") > strings.Index(out, "paths:") {
				t.Errorf("sections out of order:\n%s", out)
			}
		})
	}
}

func TestParseFinite(t *testing.T) {
	tests := []struct {
		v      string
		want   float64
		wantOK bool
	}{
		{"1.5", 1.5, true},
		{"-2", -2, true},
		{"1e3", 1000, true},
		{"inf", 0, false},
		{"nan", 0, false},
		{"0x1p4", 0, false},
		{"1.2.3", 0, false},
		{"1e999", 0, false},
	}
	for _, test := range tests {
		got, ok := parseFinite(test.v)
		if got != test.want || ok != test.wantOK {
			t.Errorf("parseFinite(%q) = %g, %t; want %g, %t", test.v, got, ok, test.want, test.wantOK)
		}
	}
}
