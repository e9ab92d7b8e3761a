// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package iniserve

import (
	"context"
	"net/http"

	"zombiezen.com/go/log"
)

const xRequestID = "X-Request-ID"

type requestIDKey struct{}

// withRequestID passes the wrapped handler a request whose Context carries the
// X-Request-ID header set by a fronting proxy, and logs each request with it.
func withRequestID(wrap http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(xRequestID)
		if id != "" {
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
			w.Header().Set(xRequestID, id)
			log.Debugf(r.Context(), "%s %s (request %s)", r.Method, r.URL.Path, id)
		} else {
			log.Debugf(r.Context(), "%s %s", r.Method, r.URL.Path)
		}
		wrap.ServeHTTP(w, r)
	})
}

// RequestID returns the proxy request ID stored in the Context or the empty
// string if the request did not carry one.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
