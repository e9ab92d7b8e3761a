// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Command inistore reads, queries, edits and serves INI configuration files.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "inistore:", err)
		}
		os.Exit(1)
	}
}
