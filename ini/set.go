// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package ini

import (
	"errors"
	"fmt"
)

// FileSet is a list of stores to obtain configuration from in descending
// order of precedence. Nil elements are treated as empty stores.
type FileSet []*Store

// ReadFiles parses the files at the given paths and returns a FileSet. If the
// returned error is nil, the returned file set's length will be the same as
// the number of arguments. ReadFiles will stop on the first error, but ignores
// missing file errors, instead filling the corresponding element of the set
// with a nil *Store.
func ReadFiles(opts *ParseOptions, paths ...string) (FileSet, error) {
	fset := make(FileSet, 0, len(paths))
	for _, p := range paths {
		s, err := ReadFile(p, opts)
		if errors.Is(err, ErrSourceNotFound) {
			fset = append(fset, nil)
			continue
		}
		if err != nil {
			return fset, fmt.Errorf("read ini files: %w", err)
		}
		fset = append(fset, s)
	}
	return fset, nil
}

// Value returns the value of key in the named section from the first store
// that has it. If no store has the section, the error wraps
// ErrSectionNotFound; if some store has the section but none has the key, it
// wraps ErrKeyNotFound.
func (fset FileSet) Value(sectionName, key string) (string, error) {
	err := fmt.Errorf("get [%s] %s: %w", sectionName, key, ErrSectionNotFound)
	for _, s := range fset {
		v, lookupErr := s.lookup(sectionName, key)
		if lookupErr == nil {
			return v, nil
		}
		if errors.Is(lookupErr, ErrKeyNotFound) {
			err = lookupErr
		}
	}
	return "", err
}

// Int returns the value that Value finds parsed with ParseInt. A value that
// is not an integer is an error; lower precedence stores are not consulted.
func (fset FileSet) Int(sectionName, key string) (int, error) {
	v, err := fset.Value(sectionName, key)
	if err != nil {
		return 0, err
	}
	n, err := ParseInt(v)
	if err != nil {
		return 0, fmt.Errorf("get [%s] %s: %w", sectionName, key, err)
	}
	return n, nil
}

// Float returns the value that Value finds parsed with ParseFloat.
func (fset FileSet) Float(sectionName, key string) (float64, error) {
	v, err := fset.Value(sectionName, key)
	if err != nil {
		return 0, err
	}
	f, err := ParseFloat(v)
	if err != nil {
		return 0, fmt.Errorf("get [%s] %s: %w", sectionName, key, err)
	}
	return f, nil
}

// Lookup returns the value of key in the named section from the first store
// that has it and whether any store did.
func (fset FileSet) Lookup(sectionName, key string) (string, bool) {
	v, err := fset.Value(sectionName, key)
	return v, err == nil
}

// Get returns the value of key in the named section from the first store that
// has it, or def if none does.
func (fset FileSet) Get(sectionName, key, def string) string {
	if v, ok := fset.Lookup(sectionName, key); ok {
		return v
	}
	return def
}

// Sections returns the names of the sections present in any store, in order
// of first appearance from the highest precedence store down.
func (fset FileSet) Sections() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, s := range fset {
		for _, name := range s.Sections() {
			id := s.opts.fold(name)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// Merge returns a single store holding every section and property of the set,
// with higher precedence stores winning. Sections and keys appear in the order
// they are first found from the lowest precedence store up, so that a value
// overridden by an earlier store keeps its position. The result uses the
// options of the first non-nil store.
func (fset FileSet) Merge() *Store {
	merged := new(Store)
	for _, s := range fset {
		if s != nil {
			merged.opts = s.opts
			break
		}
	}
	for i := len(fset) - 1; i >= 0; i-- {
		s := fset[i]
		if s == nil {
			continue
		}
		for _, sect := range s.sections {
			j, ok := merged.index[merged.opts.fold(sect.name)]
			if !ok {
				j = merged.addSection(sect.name)
			}
			for _, p := range sect.properties {
				merged.sections[j].set(merged.opts.fold(p.key), p.key, p.value)
			}
		}
	}
	return merged
}
