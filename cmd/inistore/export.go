// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yourbase/inistore/ini"
	"github.com/yourbase/inistore/iniconv"
)

func newExportCommand(cc *commandContext) *cobra.Command {
	var format string
	var typed bool
	c := &cobra.Command{
		Use:   "export FILE",
		Short: "Convert a file to TOML or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ini.ReadFile(args[0], cc.parseOptions())
			if err != nil {
				return err
			}
			opts := &iniconv.Options{Typed: typed}
			out := cmd.OutOrStdout()
			switch format {
			case "toml":
				return iniconv.WriteTOML(out, s, opts)
			case "yaml", "yml":
				return iniconv.WriteYAML(out, s, opts)
			default:
				return fmt.Errorf("unknown format %q (want toml or yaml)", format)
			}
		},
	}
	c.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: toml or yaml")
	c.Flags().BoolVar(&typed, "typed", false, "Emit values that parse as numbers as numbers")
	return c
}
