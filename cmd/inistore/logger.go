// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"zombiezen.com/go/log"
)

// lineLogger writes one line per log entry, prefixed with the program name.
type lineLogger struct {
	min log.Level

	mu sync.Mutex
	w  io.Writer
}

func (l *lineLogger) LogEnabled(entry log.Entry) bool {
	return entry.Level >= l.min
}

func (l *lineLogger) Log(ctx context.Context, entry log.Entry) {
	if !l.LogEnabled(entry) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "inistore: %s%s\n", levelPrefix(entry.Level), entry.Msg)
}

func levelPrefix(level log.Level) string {
	switch {
	case level >= log.Error:
		return "error: "
	case level >= log.Warn:
		return "warning: "
	case level >= log.Info:
		return ""
	default:
		return "debug: "
	}
}
