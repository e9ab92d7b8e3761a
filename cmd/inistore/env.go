// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"os"
	"strconv"
)

// Environment variables that supply defaults for the global flags.
const (
	envValidation      = "INISTORE_VALIDATION"
	envCaseInsensitive = "INISTORE_CASE_INSENSITIVE"
	envHashComments    = "INISTORE_HASH_COMMENTS"
	envMergeDuplicates = "INISTORE_MERGE_DUPLICATES"
)

// envString returns the value of the given environment variable. If it is
// empty or unset, it returns the default value.
func envString(key string, defaultValue string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	return v
}

// envBool returns the value of a boolean environment variable. If it is unset
// or not one of the strings 1, t, T, TRUE, true, or True, then it returns
// false.
func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
