// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"github.com/spf13/cobra"
	"github.com/yourbase/inistore/ini"
	"zombiezen.com/go/log"
)

// commandContext carries the global flags to subcommands.
type commandContext struct {
	validation      string
	caseInsensitive bool
	hashComments    bool
	mergeDuplicates bool
	verbose         bool

	opts ini.ParseOptions
}

// prepare validates the global flags and installs the logger.
func (cc *commandContext) prepare(cmd *cobra.Command) error {
	policy, err := ini.ParseValidationPolicy(cc.validation)
	if err != nil {
		return err
	}
	cc.opts = ini.ParseOptions{
		Validation:   policy,
		HashComments: cc.hashComments,
	}
	if cc.caseInsensitive {
		cc.opts.Keys = ini.CaseInsensitive
	}
	if cc.mergeDuplicates {
		cc.opts.Duplicates = ini.MergeDuplicate
	}

	level := log.Info
	if cc.verbose {
		level = log.Debug
	}
	log.SetDefault(&lineLogger{w: cmd.ErrOrStderr(), min: level})
	return nil
}

func (cc *commandContext) parseOptions() *ini.ParseOptions {
	opts := cc.opts
	return &opts
}

func newRootCommand() *cobra.Command {
	cc := new(commandContext)
	rootCmd := &cobra.Command{
		Use:           "inistore",
		Short:         "Read, query, edit and serve INI files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cc.validation, "validation", envString(envValidation, ini.StrictAlphabet.String()),
		"Validation policy for names and values: strict or structural (env "+envValidation+")")
	flags.BoolVar(&cc.caseInsensitive, "case-insensitive", envBool(envCaseInsensitive),
		"Match section names and keys case-insensitively (env "+envCaseInsensitive+")")
	flags.BoolVar(&cc.hashComments, "hash-comments", envBool(envHashComments),
		"Treat '#' as a comment marker in addition to ';' (env "+envHashComments+")")
	flags.BoolVar(&cc.mergeDuplicates, "merge-duplicates", envBool(envMergeDuplicates),
		"Merge repeated sections instead of discarding them (env "+envMergeDuplicates+")")
	flags.BoolVarP(&cc.verbose, "verbose", "v", false, "Log debug messages")

	rootCmd.AddCommand(newProcessCommand(cc))
	rootCmd.AddCommand(newShowCommand(cc))
	rootCmd.AddCommand(newGetCommand(cc))
	rootCmd.AddCommand(newSetCommand(cc))
	rootCmd.AddCommand(newDeleteCommand(cc))
	rootCmd.AddCommand(newExportCommand(cc))
	rootCmd.AddCommand(newServeCommand(cc))
	return rootCmd
}
