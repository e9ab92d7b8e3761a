// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"github.com/spf13/cobra"
	"github.com/yourbase/inistore/ini"
)

func newProcessCommand(cc *commandContext) *cobra.Command {
	var quiet bool
	c := &cobra.Command{
		Use:   "process IN OUT",
		Short: "Load a file, print it and write its canonical form",
		Long: "Process loads IN, prints the parsed contents and writes them to OUT.\n" +
			"Problems with either file are reported as diagnostics and do not fail the command.",
		Args:                  cobra.ExactArgs(2),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := ini.New(cc.parseOptions())
			s.Load(ctx, args[0])
			if !quiet {
				s.Print(ctx, cmd.OutOrStdout())
			}
			s.WriteFile(ctx, args[1])
			return nil
		},
	}
	c.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the parsed contents")
	return c
}
