// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

/*
Package ini provides a parser and serializer for a restricted dialect of the
INI file format. See https://en.wikipedia.org/wiki/INI_file.

A Store holds an ordered list of sections, each of which holds an ordered list
of properties. Loading a file rebuilds the store from scratch; writing it back
produces a canonical rendering of the same sections and properties in the
order they were first seen.

Syntax

An INI file is text encoded in UTF-8. Lines may end in LF or CRLF.

	; comment
	[section]
	key = value

Everything from the first semicolon (';') on a line is a comment. When
ParseOptions.HashComments is set, a hash ('#') starts a comment too. Whitespace
around section names, keys and values is ignored.

A section header is a line that starts with '[' and ends with ']' and contains
no other brackets. A property is a line with exactly one equals sign ('=') and a
non-empty key and value on either side. Properties that appear before any
section header are dropped. Lines that are neither are ignored.

Malformed content is never an error: the offending line is skipped. Only I/O
failures are reported by Parse and ReadFile.

Validation

Section names, keys and values are checked against the store's
ValidationPolicy. Under StrictAlphabet (the default) every character must be
an ASCII letter, digit or underscore, compared case-insensitively; values may
also contain the characters in ValueExemptChars so that decimals and paths
survive. Under StructuralRegex keys must be word characters and values are
free-form text.

Repeated names

A property that repeats a key in the same section overwrites the earlier value
and keeps its position. A section header that repeats an existing section name
is discarded along with the properties that follow it, until the next valid
header. Set ParseOptions.Duplicates to MergeDuplicate to reopen the existing
section instead.

Canonical form

Serialization writes each section as a "[name]" line, one "key=value" line per
property and a blank line. Comments and original formatting are not preserved.
*/
package ini
