// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yourbase/inistore/ini"
)

func newGetCommand(cc *commandContext) *cobra.Command {
	var valueType string
	var def string
	c := &cobra.Command{
		Use:   "get SECTION KEY FILE [FILE...]",
		Short: "Print one value",
		Long: "Get prints the value of KEY in SECTION. When several files are given, the\n" +
			"first file that defines the key wins. Without --default, a missing section or\n" +
			"key is an error.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkType(valueType); err != nil {
				return err
			}
			sectionName, key, paths := args[0], args[1], args[2:]
			fset, err := ini.ReadFiles(cc.parseOptions(), paths...)
			if err != nil {
				return err
			}
			if allMissing(fset) {
				return fmt.Errorf("%s: %w", strings.Join(paths, ", "), ini.ErrSourceNotFound)
			}
			v, err := getValue(fset, sectionName, key, valueType)
			if err != nil {
				if !cmd.Flags().Changed("default") {
					return err
				}
				if v, err = formatDefault(def, valueType); err != nil {
					return fmt.Errorf("--default: %w", err)
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	}
	c.Flags().StringVarP(&valueType, "type", "t", "string", "Value type: string, int or float")
	c.Flags().StringVarP(&def, "default", "d", "", "Value to print if the key is missing or not of the requested type")
	return c
}

func allMissing(fset ini.FileSet) bool {
	for _, s := range fset {
		if s != nil {
			return false
		}
	}
	return true
}

func checkType(valueType string) error {
	switch valueType {
	case "string", "int", "float":
		return nil
	default:
		return fmt.Errorf("unknown type %q (want string, int or float)", valueType)
	}
}

// getValue reads a value with the typed FileSet accessor for valueType.
func getValue(fset ini.FileSet, sectionName, key, valueType string) (string, error) {
	switch valueType {
	case "int":
		n, err := fset.Int(sectionName, key)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	case "float":
		f, err := fset.Float(sectionName, key)
		if err != nil {
			return "", err
		}
		return formatFloat(f), nil
	default:
		return fset.Value(sectionName, key)
	}
}

// formatDefault checks that def parses as valueType and formats it the way
// getValue formats stored values.
func formatDefault(def, valueType string) (string, error) {
	switch valueType {
	case "int":
		n, err := ini.ParseInt(def)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	case "float":
		f, err := ini.ParseFloat(def)
		if err != nil {
			return "", err
		}
		return formatFloat(f), nil
	default:
		return def, nil
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
