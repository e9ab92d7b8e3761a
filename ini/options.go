// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package ini

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// AllowedChars is the alphabet accepted by StrictAlphabet, after lowercasing.
const AllowedChars = "0123456789abcdefghijklmnopqrstuvwxyz_"

// ValueExemptChars lists characters that StrictAlphabet accepts in values
// but not in section names or keys, so values like "1.5" or "/var/lib" load.
const ValueExemptChars = "./"

// A ValidationPolicy decides which section names, keys and values a Store
// accepts.
type ValidationPolicy int

const (
	// StrictAlphabet accepts only characters from AllowedChars
	// (case-insensitive), plus ValueExemptChars in values.
	StrictAlphabet ValidationPolicy = iota

	// StructuralRegex accepts word-character keys and any trimmed text for
	// section names and values that does not contain syntax characters.
	StructuralRegex
)

// String returns the policy's flag name.
func (p ValidationPolicy) String() string {
	switch p {
	case StrictAlphabet:
		return "strict"
	case StructuralRegex:
		return "structural"
	default:
		return "ValidationPolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParseValidationPolicy returns the policy named by s, as printed by
// ValidationPolicy.String.
func ParseValidationPolicy(s string) (ValidationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "":
		return StrictAlphabet, nil
	case "structural":
		return StructuralRegex, nil
	default:
		return 0, fmt.Errorf("unknown validation policy %q (want strict or structural)", s)
	}
}

// A KeyComparison decides whether section names and keys are matched
// case-sensitively.
type KeyComparison int

const (
	// CaseSensitive matches names byte for byte.
	CaseSensitive KeyComparison = iota
	// CaseInsensitive matches names after Unicode case folding. The first
	// spelling seen is the one that is stored and serialized.
	CaseInsensitive
)

// A DuplicatePolicy decides what happens when a section header repeats the
// name of a section that already exists.
type DuplicatePolicy int

const (
	// DiscardDuplicate ignores the repeated header and drops the properties
	// that follow it until the next valid header.
	DiscardDuplicate DuplicatePolicy = iota
	// MergeDuplicate reopens the existing section so that following
	// properties are added to it.
	MergeDuplicate
)

// ParseOptions holds optional parameters for Parse and New. Nil options are
// treated identically as passing the zero value.
type ParseOptions struct {
	Validation ValidationPolicy
	Keys       KeyComparison
	Duplicates DuplicatePolicy

	// HashComments makes '#' start a comment in addition to ';'.
	HashComments bool
}

var (
	keyPattern     = regexp.MustCompile(`^\w+$`)
	sectionPattern = regexp.MustCompile(`^[^\[\]]+$`)
)

func (opts *ParseOptions) commentChars() string {
	if opts.HashComments {
		return ";#"
	}
	return ";"
}

// stripComment truncates line at the first comment character and trims the
// surrounding whitespace.
func (opts *ParseOptions) stripComment(line string) string {
	if i := strings.IndexAny(line, opts.commentChars()); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// fold returns the name used to compare section names and keys.
func (opts *ParseOptions) fold(name string) string {
	if opts.Keys != CaseInsensitive {
		return name
	}
	// Casers carry state, so each call gets its own.
	return cases.Fold().String(name)
}

func (opts *ParseOptions) validSection(name string) bool {
	if name == "" {
		return false
	}
	switch opts.Validation {
	case StructuralRegex:
		return opts.validText(name) && sectionPattern.MatchString(name)
	default:
		return inAlphabet(name, "")
	}
}

func (opts *ParseOptions) validKey(key string) bool {
	if key == "" {
		return false
	}
	switch opts.Validation {
	case StructuralRegex:
		return keyPattern.MatchString(key)
	default:
		return inAlphabet(key, "")
	}
}

func (opts *ParseOptions) validValue(value string) bool {
	if value == "" {
		return false
	}
	switch opts.Validation {
	case StructuralRegex:
		return opts.validText(value) && !strings.Contains(value, "=")
	default:
		return inAlphabet(value, ValueExemptChars)
	}
}

// validText reports whether s would read back unchanged from a line: it must
// be trimmed and free of line breaks and comment characters.
func (opts *ParseOptions) validText(s string) bool {
	return strings.TrimSpace(s) == s &&
		!strings.ContainsAny(s, "\r\n") &&
		!strings.ContainsAny(s, opts.commentChars())
}

// inAlphabet reports whether every character of s, lowercased, is in
// AllowedChars or in exempt.
func inAlphabet(s string, exempt string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(exempt, c) >= 0 {
			continue
		}
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if strings.IndexByte(AllowedChars, c) < 0 {
			return false
		}
	}
	return true
}
