// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package ini

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
	"github.com/yourbase/inistore/filelock"
)

// MarshalText serializes s in canonical INI form: each section as a "[name]"
// line followed by its "key=value" lines and a blank line. An empty store
// marshals to empty text.
func (s *Store) MarshalText() ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	var buf []byte
	for i := range s.sections {
		buf = s.sections[i].appendText(buf)
	}
	return buf, nil
}

// MarshalSection serializes a single section in the same form as
// MarshalText. The error wraps ErrSectionNotFound if there is no such section.
func (s *Store) MarshalSection(name string) ([]byte, error) {
	sect := s.findSection(name)
	if sect == nil {
		return nil, fmt.Errorf("marshal [%s]: %w", name, ErrSectionNotFound)
	}
	return sect.appendText(nil), nil
}

func (sect *section) appendText(buf []byte) []byte {
	buf = append(buf, '[')
	buf = append(buf, sect.name...)
	buf = append(buf, "]\n"...)
	for _, p := range sect.properties {
		buf = append(buf, p.key...)
		buf = append(buf, '=')
		buf = append(buf, p.value...)
		buf = append(buf, '\n')
	}
	return append(buf, '\n')
}

// UnmarshalText parses INI data with the store's options, replacing any
// sections in s.
func (s *Store) UnmarshalText(data []byte) error {
	s.reset()
	if err := s.parse(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse ini: %w", err)
	}
	return nil
}

// WriteTo writes the canonical form of s to w. It returns ErrEmptyStore
// without writing anything if s has no sections.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	if s.Len() == 0 {
		return 0, ErrEmptyStore
	}
	text, err := s.MarshalText()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(text)
	return int64(n), err
}

// Print writes the canonical form of s to a display sink such as os.Stdout.
// An empty store or a write failure is reported as a diagnostic on the
// Context's logger instead of being returned.
func (s *Store) Print(ctx context.Context, w io.Writer) {
	if _, err := s.WriteTo(w); err != nil {
		diagnose(ctx, fmt.Errorf("print: %w", err))
	}
}

// WriteFile replaces the file at the given path with the canonical form of s.
// It is the best-effort counterpart of SaveFile: an empty store or a failed
// write is reported as a diagnostic on the Context's logger and the file is
// left as it was.
func (s *Store) WriteFile(ctx context.Context, path string) {
	if err := s.SaveFile(ctx, path); err != nil {
		diagnose(ctx, err)
	}
}

// SaveFile replaces the file at the given path with the canonical form of s.
// The replacement is atomic: readers see either the old or the new content.
// Concurrent SaveFile calls on the same path, from this or other processes,
// are serialized by locking the destination's directory; no lock file is
// created. SaveFile returns an error wrapping ErrEmptyStore without touching
// the file if s has no sections.
func (s *Store) SaveFile(ctx context.Context, path string) (err error) {
	if s.Len() == 0 {
		return fmt.Errorf("write %s: %w", path, ErrEmptyStore)
	}
	lock, err := filelock.Acquire(ctx, path, filelock.DefaultBackoff())
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer func() {
		if unlockErr := lock.Release(); unlockErr != nil && err == nil {
			err = fmt.Errorf("write %s: %w", path, unlockErr)
		}
	}()

	pending, err := renameio.NewPendingFile(path,
		renameio.WithPermissions(0o644),
		renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// Cleanup is a no-op once the file has been committed.
	defer pending.Cleanup()
	if _, err := s.WriteTo(pending); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
