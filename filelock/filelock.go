// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package filelock serializes writers of a file across processes by holding
// an advisory lock on the directory that contains it. No lock file is
// created, so nothing is left behind after a write. Directory locks need
// flock(2) semantics and are not supported on Windows, AIX or Solaris.
package filelock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"zombiezen.com/go/log"
)

// A BackoffStrategy can be called repeatedly to obtain (presumably) increasing
// durations to wait between attempts to take the lock.
type BackoffStrategy interface {
	Duration() time.Duration
}

// Backoff is an exponential BackoffStrategy. Each call to Duration doubles
// the previous duration, starting at Initial and never exceeding Max.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration

	next time.Duration
}

// DefaultBackoff returns the strategy used by writers that do not pick one.
func DefaultBackoff() *Backoff {
	return &Backoff{Initial: 10 * time.Millisecond, Max: 500 * time.Millisecond}
}

// Duration returns the time to wait before the next attempt.
func (b *Backoff) Duration() time.Duration {
	if b.next == 0 {
		b.next = b.Initial
	}
	d := b.next
	b.next *= 2
	if b.Max > 0 && b.next > b.Max {
		b.next = b.Max
	}
	return d
}

// A Lock is an exclusive lock on the directory of a file path. Writers of
// different files in the same directory share the lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the exclusive lock for path, waiting between attempts as
// directed by strategy until the lock is free or the Context is Done. The
// lock is taken at least once without waiting. The directory must exist.
func Acquire(ctx context.Context, path string, strategy BackoffStrategy) (*Lock, error) {
	// Open read-only without O_CREATE: directories cannot be created or
	// opened for writing by open(2).
	fl := flock.New(filepath.Dir(path), flock.SetFlag(os.O_RDONLY))
	var t *time.Timer
	for {
		ok, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		if ok {
			return &Lock{fl: fl}, nil
		}
		d := strategy.Duration()
		log.Debugf(ctx, "Waiting %v for lock on %s", d, path)
		if t == nil {
			t = time.NewTimer(d)
			defer t.Stop()
		} else {
			t.Reset(d)
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", path, ctx.Err())
		}
	}
}

// Path returns the locked directory.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release gives up the lock and closes the directory.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", l.fl.Path(), err)
	}
	return nil
}
