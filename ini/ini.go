// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package ini

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"zombiezen.com/go/log"
)

// Errors reported by Store operations. Returned errors wrap one of these and
// can be checked with errors.Is.
var (
	ErrSourceNotFound  = errors.New("file not found")
	ErrSourceIO        = errors.New("read error")
	ErrSectionNotFound = errors.New("section not found")
	ErrKeyNotFound     = errors.New("key not found")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrEmptyStore      = errors.New("no data")
	ErrInvalid         = errors.New("invalid characters")
)

// errNoSections is the diagnostic for a load that produced no sections.
var errNoSections = fmt.Errorf("empty or no sections: %w", ErrEmptyStore)

// A Store is an ordered collection of sections. The zero value is an empty
// store with default options.
//
// A Store must not be modified concurrently with any other call. Concurrent
// reads of a Store that is no longer modified are safe.
type Store struct {
	opts     ParseOptions
	sections []section
	index    map[string]int // folded name -> position in sections
}

type section struct {
	name       string
	properties []property
	index      map[string]int // folded key -> position in properties
}

type property struct {
	id    string // folded key
	key   string
	value string
}

// A Property is a key and its value.
type Property struct {
	Key   string
	Value string
}

// New returns an empty store that validates and compares names according to
// opts. Nil options are treated identically as passing the zero value.
func New(opts *ParseOptions) *Store {
	s := new(Store)
	if opts != nil {
		s.opts = *opts
	}
	return s
}

// Parse reads INI text from r into a new store. Malformed lines are skipped;
// Parse returns an error wrapping ErrSourceIO only if reading r fails, in
// which case the store holds what was parsed before the failure.
//
// See the Syntax section in the package documentation for the format
// recognized by Parse.
func Parse(r io.Reader, opts *ParseOptions) (*Store, error) {
	s := New(opts)
	if err := s.parse(r); err != nil {
		return s, fmt.Errorf("parse ini: %w", err)
	}
	return s, nil
}

// ReadFile parses the file at the given path. It returns an error wrapping
// ErrSourceNotFound if the file does not exist and ErrSourceIO for any other
// I/O failure.
func ReadFile(path string, opts *ParseOptions) (*Store, error) {
	s := New(opts)
	if err := s.readFile(path); err != nil {
		return s, err
	}
	return s, nil
}

// Load replaces the contents of s with the sections in the file at the given
// path. Load does not return errors: a missing or unreadable file, or a file
// without any sections, is reported as a diagnostic on the Context's logger.
// If the file cannot be opened, s is left unchanged. If reading fails midway,
// s holds the sections parsed up to the failure.
func (s *Store) Load(ctx context.Context, path string) {
	if err := s.load(path); err != nil {
		diagnose(ctx, err)
	}
}

func (s *Store) load(path string) error {
	if err := s.readFile(path); err != nil {
		return err
	}
	if len(s.sections) == 0 {
		return fmt.Errorf("load %s: %w", path, errNoSections)
	}
	return nil
}

func (s *Store) readFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, ErrSourceNotFound)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w: %v", path, ErrSourceIO, err)
	}
	defer f.Close()
	s.reset()
	if err := s.parse(f); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// diagnose reports a best-effort failure. An empty result is a warning;
// everything else is an error.
func diagnose(ctx context.Context, err error) {
	if errors.Is(err, ErrEmptyStore) {
		log.Warnf(ctx, "ini: %v", err)
		return
	}
	log.Errorf(ctx, "ini: %v", err)
}

func (s *Store) reset() {
	s.sections = nil
	s.index = nil
}

func (s *Store) parse(r io.Reader) error {
	sc := bufio.NewScanner(r)
	// Lines have no length limit.
	sc.Buffer(nil, math.MaxInt)
	curr := -1
	lineno := 1
	for ; sc.Scan(); lineno++ {
		line := s.opts.stripComment(sc.Text())
		if line == "" {
			continue
		}
		if name, ok := sectionHeader(line); ok {
			curr = s.openSection(name)
			continue
		}
		key, value, ok := splitProperty(line)
		if !ok || curr < 0 {
			continue
		}
		if !s.opts.validKey(key) || !s.opts.validValue(value) {
			continue
		}
		s.sections[curr].set(s.opts.fold(key), key, value)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("line %d: %w: %v", lineno, ErrSourceIO, err)
	}
	return nil
}

// sectionHeader returns the text between the brackets of a "[name]" line.
// The line must contain exactly one '[' at the start and one ']' at the end.
func sectionHeader(line string) (name string, ok bool) {
	if len(line) < 3 || line[0] != '[' || line[len(line)-1] != ']' {
		return "", false
	}
	name = line[1 : len(line)-1]
	if strings.ContainsAny(name, "[]") {
		return "", false
	}
	return name, true
}

// splitProperty splits a line with exactly one '=' into its trimmed key and
// value. Both must be non-empty.
func splitProperty(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, '=')
	if i < 0 || strings.IndexByte(line[i+1:], '=') >= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	value = strings.TrimSpace(line[i+1:])
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

// openSection handles a section header during parsing and returns the index
// of the section that following properties belong to, or -1 if they should be
// dropped.
func (s *Store) openSection(name string) int {
	if s.opts.Validation == StructuralRegex {
		name = strings.TrimSpace(name)
	}
	if !s.opts.validSection(name) {
		return -1
	}
	if i, exists := s.index[s.opts.fold(name)]; exists {
		if s.opts.Duplicates == MergeDuplicate {
			return i
		}
		return -1
	}
	return s.addSection(name)
}

func (s *Store) addSection(name string) int {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	i := len(s.sections)
	s.index[s.opts.fold(name)] = i
	s.sections = append(s.sections, section{name: name})
	return i
}

func (sect *section) set(id, key, value string) {
	if j, ok := sect.index[id]; ok {
		sect.properties[j].value = value
		return
	}
	if sect.index == nil {
		sect.index = make(map[string]int)
	}
	sect.index[id] = len(sect.properties)
	sect.properties = append(sect.properties, property{id: id, key: key, value: value})
}

// Options returns the options s was created with.
func (s *Store) Options() ParseOptions {
	if s == nil {
		return ParseOptions{}
	}
	return s.opts
}

// Len returns the number of sections in s.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.sections)
}

// Sections returns the section names in s in the order they were added.
func (s *Store) Sections() []string {
	if s.Len() == 0 {
		return nil
	}
	names := make([]string, 0, len(s.sections))
	for _, sect := range s.sections {
		names = append(names, sect.name)
	}
	return names
}

// HasSection reports whether s contains a section with the given name.
func (s *Store) HasSection(name string) bool {
	return s.findSection(name) != nil
}

// Section returns a copy of the properties in the named section in the order
// they were added. It returns nil if there is no such section.
func (s *Store) Section(name string) []Property {
	sect := s.findSection(name)
	if sect == nil {
		return nil
	}
	props := make([]Property, 0, len(sect.properties))
	for _, p := range sect.properties {
		props = append(props, Property{Key: p.key, Value: p.value})
	}
	return props
}

func (s *Store) findSection(name string) *section {
	if s == nil {
		return nil
	}
	i, ok := s.index[s.opts.fold(name)]
	if !ok {
		return nil
	}
	return &s.sections[i]
}

// lookup is the single path behind every accessor.
func (s *Store) lookup(sectionName, key string) (string, error) {
	sect := s.findSection(sectionName)
	if sect == nil {
		return "", fmt.Errorf("get [%s] %s: %w", sectionName, key, ErrSectionNotFound)
	}
	j, ok := sect.index[s.opts.fold(key)]
	if !ok {
		return "", fmt.Errorf("get [%s] %s: %w", sectionName, key, ErrKeyNotFound)
	}
	return sect.properties[j].value, nil
}

// Value returns the value of key in the named section. The error wraps
// ErrSectionNotFound or ErrKeyNotFound if either is absent.
func (s *Store) Value(sectionName, key string) (string, error) {
	return s.lookup(sectionName, key)
}

// Int returns the value of key in the named section parsed with ParseInt.
func (s *Store) Int(sectionName, key string) (int, error) {
	v, err := s.lookup(sectionName, key)
	if err != nil {
		return 0, err
	}
	n, err := ParseInt(v)
	if err != nil {
		return 0, fmt.Errorf("get [%s] %s: %w", sectionName, key, err)
	}
	return n, nil
}

// Float returns the value of key in the named section parsed with
// ParseFloat.
func (s *Store) Float(sectionName, key string) (float64, error) {
	v, err := s.lookup(sectionName, key)
	if err != nil {
		return 0, err
	}
	f, err := ParseFloat(v)
	if err != nil {
		return 0, fmt.Errorf("get [%s] %s: %w", sectionName, key, err)
	}
	return f, nil
}

// ParseInt parses a value as a base-10 integer, the way Int does. The error
// wraps ErrTypeMismatch if v is not an integer.
func ParseInt(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer: %w", v, ErrTypeMismatch)
	}
	return n, nil
}

// ParseFloat parses a value as a 64-bit floating-point number, the way Float
// does. The error wraps ErrTypeMismatch if v is not a number.
func ParseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number: %w", v, ErrTypeMismatch)
	}
	return f, nil
}

// Lookup returns the value of key in the named section and whether it was
// present.
func (s *Store) Lookup(sectionName, key string) (string, bool) {
	v, err := s.lookup(sectionName, key)
	return v, err == nil
}

// Get returns the value of key in the named section, or def if the section or
// key is absent.
func (s *Store) Get(sectionName, key, def string) string {
	v, err := s.lookup(sectionName, key)
	if err != nil {
		return def
	}
	return v
}

// GetInt is like Int, but returns def instead of an error.
func (s *Store) GetInt(sectionName, key string, def int) int {
	n, err := s.Int(sectionName, key)
	if err != nil {
		return def
	}
	return n
}

// GetFloat is like Float, but returns def instead of an error.
func (s *Store) GetFloat(sectionName, key string, def float64) float64 {
	f, err := s.Float(sectionName, key)
	if err != nil {
		return def
	}
	return f
}

// Set sets the property to the given value, creating the section at the end
// of s if necessary. If the property already exists, its value is replaced
// and it keeps its position. Set returns an error wrapping ErrInvalid if the
// section name, key or value would be rejected when parsing.
func (s *Store) Set(sectionName, key, value string) error {
	switch {
	case !s.opts.validSection(sectionName):
		return fmt.Errorf("set [%s] %s: section name: %w", sectionName, key, ErrInvalid)
	case !s.opts.validKey(key):
		return fmt.Errorf("set [%s] %s: key: %w", sectionName, key, ErrInvalid)
	case !s.opts.validValue(value):
		return fmt.Errorf("set [%s] %s: value %q: %w", sectionName, key, value, ErrInvalid)
	}
	i, ok := s.index[s.opts.fold(sectionName)]
	if !ok {
		i = s.addSection(sectionName)
	}
	s.sections[i].set(s.opts.fold(key), key, value)
	return nil
}

// Delete removes the property with the given key from the named section and
// reports whether it was present. The section remains even if it becomes
// empty.
func (s *Store) Delete(sectionName, key string) bool {
	sect := s.findSection(sectionName)
	if sect == nil {
		return false
	}
	j, ok := sect.index[s.opts.fold(key)]
	if !ok {
		return false
	}
	copy(sect.properties[j:], sect.properties[j+1:])
	// Zero out truncated element for garbage collection.
	sect.properties[len(sect.properties)-1] = property{}
	sect.properties = sect.properties[:len(sect.properties)-1]
	delete(sect.index, s.opts.fold(key))
	for ; j < len(sect.properties); j++ {
		sect.index[sect.properties[j].id] = j
	}
	return true
}

// DeleteSection removes the named section and all of its properties and
// reports whether it was present.
func (s *Store) DeleteSection(name string) bool {
	if s == nil {
		return false
	}
	id := s.opts.fold(name)
	i, ok := s.index[id]
	if !ok {
		return false
	}
	copy(s.sections[i:], s.sections[i+1:])
	s.sections[len(s.sections)-1] = section{}
	s.sections = s.sections[:len(s.sections)-1]
	delete(s.index, id)
	for ; i < len(s.sections); i++ {
		s.index[s.opts.fold(s.sections[i].name)] = i
	}
	return true
}
