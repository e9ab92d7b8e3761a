// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/yourbase/inistore/ini"
)

func newShowCommand(cc *commandContext) *cobra.Command {
	var asTable bool
	c := &cobra.Command{
		Use:   "show FILE",
		Short: "Print the parsed contents of a file",
		Long: "Show prints the canonical form of FILE. When standard output is a terminal,\n" +
			"or --table is given, the properties are printed as a table instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ini.ReadFile(args[0], cc.parseOptions())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cmd.Flags().Changed("table") {
				asTable = isTerminal(out)
			}
			if !asTable || s.Len() == 0 {
				s.Print(cmd.Context(), out)
				return nil
			}
			_, err = fmt.Fprintln(out, renderStore(s))
			return err
		},
	}
	c.Flags().BoolVar(&asTable, "table", false, "Print properties as a table (default when stdout is a terminal)")
	return c
}

// renderStore formats every property of s as a row of a section/key/value
// table, in stored order.
func renderStore(s *ini.Store) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Section", "Key", "Value"})
	for _, name := range s.Sections() {
		props := s.Section(name)
		if len(props) == 0 {
			tw.AppendRow(table.Row{name, "", ""})
			continue
		}
		for _, p := range props {
			tw.AppendRow(table.Row{name, p.Key, p.Value})
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true, AlignHeader: text.AlignLeft},
		{Number: 2, AlignHeader: text.AlignLeft},
		{Number: 3, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
