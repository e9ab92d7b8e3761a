// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yourbase/inistore/ini"
	"zombiezen.com/go/log"
)

func newSetCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set FILE SECTION KEY VALUE",
		Short: "Set one value and save the file",
		Long: "Set assigns VALUE to KEY in SECTION, creating the section and the file if\n" +
			"needed, and atomically rewrites FILE in canonical form.",
		Args:                  cobra.ExactArgs(4),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			s, err := openForEdit(cc, path)
			if err != nil {
				return err
			}
			if err := s.Set(args[1], args[2], args[3]); err != nil {
				return err
			}
			if err := s.SaveFile(ctx, path); err != nil {
				return err
			}
			log.Debugf(ctx, "Set [%s] %s in %s", args[1], args[2], path)
			return nil
		},
	}
}

func newDeleteCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete FILE SECTION [KEY]",
		Short: "Remove a key or a whole section and save the file",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, sectionName := args[0], args[1]
			s, err := ini.ReadFile(path, cc.parseOptions())
			if err != nil {
				return err
			}
			if len(args) == 2 {
				if !s.DeleteSection(sectionName) {
					return fmt.Errorf("delete [%s]: %w", sectionName, ini.ErrSectionNotFound)
				}
			} else if !s.Delete(sectionName, args[2]) {
				if !s.HasSection(sectionName) {
					return fmt.Errorf("delete [%s] %s: %w", sectionName, args[2], ini.ErrSectionNotFound)
				}
				return fmt.Errorf("delete [%s] %s: %w", sectionName, args[2], ini.ErrKeyNotFound)
			}
			return s.SaveFile(ctx, path)
		},
	}
}

// openForEdit reads path, or returns an empty store if it does not exist.
func openForEdit(cc *commandContext, path string) (*ini.Store, error) {
	s, err := ini.ReadFile(path, cc.parseOptions())
	if errors.Is(err, ini.ErrSourceNotFound) {
		return ini.New(cc.parseOptions()), nil
	}
	return s, err
}
