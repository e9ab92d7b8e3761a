// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourbase/inistore/iniserve"
	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/log"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(cc *commandContext) *cobra.Command {
	var addr string
	var httpsHost string
	var watch bool
	c := &cobra.Command{
		Use:   "serve FILE",
		Short: "Serve a file over HTTP and reload it when it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := iniserve.NewHolder(args[0], cc.parseOptions())
			handler := iniserve.NewHandler(h, &iniserve.HandlerOptions{HTTPSHost: httpsHost})
			return serve(cmd.Context(), h, handler, addr, watch)
		},
	}
	c.Flags().StringVar(&addr, "addr", envString("INISTORE_ADDR", "localhost:8080"), "Address to listen on (env INISTORE_ADDR)")
	c.Flags().StringVar(&httpsHost, "https-host", "", "Redirect plain HTTP requests to this host over HTTPS")
	c.Flags().BoolVar(&watch, "watch", true, "Reload the file when it changes")
	return c
}

func serve(ctx context.Context, h *iniserve.Holder, handler http.Handler, addr string, watch bool) error {
	if err := h.Reload(ctx); err != nil {
		return err
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Infof(ctx, "Serving %s on http://%s", h.Path(), l.Addr())

	grp, ctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	grp.Go(func() error {
		if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if watch {
		grp.Go(func() error {
			return h.Watch(ctx)
		})
	}
	return grp.Wait()
}
