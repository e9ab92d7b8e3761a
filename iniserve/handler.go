// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package iniserve

import (
	"errors"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourbase/inistore/ini"
	"zombiezen.com/go/log"
)

// HTTP header names and values used by the handler.
const (
	contentType         = "Content-Type"
	xContentTypeOptions = "X-Content-Type-Options"
	xForwardedProto     = "X-Forwarded-Proto"

	textPlain = "text/plain; charset=utf-8"
	noSniff   = "nosniff"
)

// HandlerOptions holds optional parameters for NewHandler.
type HandlerOptions struct {
	// HTTPSHost, if not empty, redirects requests that arrived over plain
	// HTTP at a proxy to HTTPS on this host. See forceHTTPS.
	HTTPSHost string
}

// NewHandler returns a handler that serves the holder's store:
//
//	GET /                         canonical text of the whole file
//	GET /sections/{section}       canonical text of one section
//	GET /sections/{section}/{key} raw value of one property
//	GET /watch                    WebSocket stream of the canonical text
//	GET /metrics                  Prometheus metrics
//
// An X-Request-ID header on the request is echoed on the response and is
// available to log messages through RequestID.
func NewHandler(h *Holder, opts *HandlerOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.serveAll)
	mux.HandleFunc("GET /sections/{section}", h.serveSection)
	mux.HandleFunc("GET /sections/{section}/{key}", h.serveValue)
	mux.HandleFunc("GET /watch", h.serveWatch)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	var handler http.Handler = mux
	if opts != nil && opts.HTTPSHost != "" {
		handler = forceHTTPS(opts.HTTPSHost, handler)
	}
	return withRequestID(handler)
}

func (h *Holder) serveAll(w http.ResponseWriter, r *http.Request) {
	text, err := h.Store().MarshalText()
	if err != nil {
		log.Errorf(r.Context(), "Marshal %s: %v", h.path, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeText(w, r, text)
}

func (h *Holder) serveSection(w http.ResponseWriter, r *http.Request) {
	text, err := h.Store().MarshalSection(r.PathValue("section"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeText(w, r, text)
}

func (h *Holder) serveValue(w http.ResponseWriter, r *http.Request) {
	v, err := h.Store().Value(r.PathValue("section"), r.PathValue("key"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeText(w, r, []byte(v+"\n"))
}

func writeText(w http.ResponseWriter, r *http.Request, text []byte) {
	w.Header().Set(contentType, textPlain)
	w.Header().Set(xContentTypeOptions, noSniff)
	if _, err := w.Write(text); err != nil {
		log.Debugf(r.Context(), "Write response: %v", err)
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ini.ErrSectionNotFound), errors.Is(err, ini.ErrKeyNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// forceHTTPS redirects requests that a proxy received over plain HTTP, as
// indicated by X-Forwarded-Proto, to HTTPS on host. Requests without the
// header are passed through so that local access keeps working. The host
// must not come from user input.
func forceHTTPS(host string, wrap http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proto := r.Header.Get(xForwardedProto)
		if proto == "" || proto == "https" {
			wrap.ServeHTTP(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			// Fail loudly instead of redirecting a request that may already
			// have leaked its body.
			w.Header().Set(contentType, textPlain)
			w.WriteHeader(http.StatusGone)
			io.WriteString(w, "Resource requested over HTTP instead of HTTPS\n")
			return
		}
		u := *r.URL
		u.Scheme = "https"
		u.Host = host
		http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
	})
}
