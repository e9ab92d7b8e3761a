// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package iniserve

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/yourbase/inistore/ini"
	"zombiezen.com/go/log/testlog"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestHolder(t *testing.T, content string) *Holder {
	t.Helper()
	ctx := testlog.WithTB(context.Background(), t)
	path := filepath.Join(t.TempDir(), "app.ini")
	writeFile(t, path, content)
	h := NewHolder(path, nil)
	if err := h.Reload(ctx); err != nil {
		t.Fatal("Reload:", err)
	}
	return h
}

func TestReload(t *testing.T) {
	ctx := testlog.WithTB(context.Background(), t)
	h := newTestHolder(t, "[a]\nx=1\n")
	before := h.Store()
	if got := before.Get("a", "x", ""); got != "1" {
		t.Errorf("Get(\"a\", \"x\") = %q; want \"1\"", got)
	}

	writeFile(t, h.Path(), "[a]\nx=2\n[b]\ny=3\n")
	if err := h.Reload(ctx); err != nil {
		t.Fatal("Reload:", err)
	}
	if got := h.Store().Get("a", "x", ""); got != "2" {
		t.Errorf("after reload, Get(\"a\", \"x\") = %q; want \"2\"", got)
	}
	// Stores already handed out are not modified.
	if got := before.Get("a", "x", ""); got != "1" {
		t.Errorf("old store Get(\"a\", \"x\") = %q; want \"1\"", got)
	}
	if got := testutil.ToFloat64(h.sections); got != 2 {
		t.Errorf("inistore_sections = %g; want 2", got)
	}

	if err := os.Remove(h.Path()); err != nil {
		t.Fatal(err)
	}
	if err := h.Reload(ctx); !errors.Is(err, ini.ErrSourceNotFound) {
		t.Errorf("Reload of missing file = %v; want %v", err, ini.ErrSourceNotFound)
	}
	if got := h.Store().Get("a", "x", ""); got != "2" {
		t.Errorf("after failed reload, Get(\"a\", \"x\") = %q; want \"2\"", got)
	}
	if got := testutil.ToFloat64(h.reloads.WithLabelValues("ok")); got != 2 {
		t.Errorf("inistore_reloads_total{result=\"ok\"} = %g; want 2", got)
	}
	if got := testutil.ToFloat64(h.reloads.WithLabelValues("error")); got != 1 {
		t.Errorf("inistore_reloads_total{result=\"error\"} = %g; want 1", got)
	}
}

func TestReloadConcurrent(t *testing.T) {
	ctx := testlog.WithTB(context.Background(), t)
	h := newTestHolder(t, "[a]\nx=0\n")
	updates, cancel := h.Subscribe()
	defer cancel()

	const n = 20
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		tmp := h.Path() + ".tmp"
		writeFile(t, tmp, "[a]\nx="+strconv.Itoa(i)+"\n")
		if err := os.Rename(tmp, h.Path()); err != nil {
			t.Fatal(err)
		}
		wg.Add(2)
		for j := 0; j < 2; j++ {
			go func() {
				defer wg.Done()
				if err := h.Reload(ctx); err != nil {
					t.Error("Reload:", err)
				}
			}()
		}
	}
	wg.Wait()

	var last []byte
	select {
	case last = <-updates:
	default:
		t.Fatal("no update received")
	}
	want, err := h.Store().MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(want), string(last)); diff != "" {
		t.Errorf("last broadcast differs from installed store (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(h.sections); got != 1 {
		t.Errorf("inistore_sections = %g; want 1", got)
	}
	if got := testutil.ToFloat64(h.reloads.WithLabelValues("ok")); got != 2*n+1 {
		t.Errorf("inistore_reloads_total{result=\"ok\"} = %g; want %d", got, 2*n+1)
	}
}

func TestSubscribe(t *testing.T) {
	ctx := testlog.WithTB(context.Background(), t)
	h := newTestHolder(t, "[a]\nx=1\n")
	updates, cancel := h.Subscribe()
	defer cancel()

	// Two reloads without a reader in between leave only the latest text.
	writeFile(t, h.Path(), "[a]\nx=2\n")
	if err := h.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	writeFile(t, h.Path(), "[a]\nx=3\n")
	if err := h.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-updates:
		if diff := cmp.Diff("[a]\nx=3\n\n", string(got)); diff != "" {
			t.Errorf("update (-want +got):\n%s", diff)
		}
	default:
		t.Fatal("no update received")
	}
	select {
	case got := <-updates:
		t.Errorf("unexpected second update %q", got)
	default:
	}

	cancel()
	if err := h.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-updates:
		t.Errorf("update %q after cancel", got)
	default:
	}
}

func TestHandler(t *testing.T) {
	h := newTestHolder(t, "[server]\nhost=example\nport=8080\n[paths]\nroot=/srv/app\n")
	srv := httptest.NewServer(NewHandler(h, nil))
	defer srv.Close()

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "[server]\nhost=example\nport=8080\n\n[paths]\nroot=/srv/app\n\n"},
		{"/sections/paths", http.StatusOK, "[paths]\nroot=/srv/app\n\n"},
		{"/sections/server/port", http.StatusOK, "8080\n"},
		{"/sections/nope", http.StatusNotFound, ""},
		{"/sections/server/nope", http.StatusNotFound, ""},
		{"/sections/nope/port", http.StatusNotFound, ""},
	}
	for _, test := range tests {
		resp, err := http.Get(srv.URL + test.path)
		if err != nil {
			t.Errorf("GET %s: %v", test.path, err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Errorf("GET %s: %v", test.path, err)
			continue
		}
		if resp.StatusCode != test.wantStatus {
			t.Errorf("GET %s status = %d; want %d", test.path, resp.StatusCode, test.wantStatus)
		}
		if test.wantStatus != http.StatusOK {
			continue
		}
		if diff := cmp.Diff(test.wantBody, string(body)); diff != "" {
			t.Errorf("GET %s body (-want +got):\n%s", test.path, diff)
		}
		if got := resp.Header.Get(contentType); got != textPlain {
			t.Errorf("GET %s Content-Type = %q; want %q", test.path, got, textPlain)
		}
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "inistore_reloads_total") {
		t.Errorf("/metrics does not mention inistore_reloads_total:\n%s", body)
	}
}

func TestForceHTTPS(t *testing.T) {
	h := newTestHolder(t, "[a]\nx=1\n")
	handler := NewHandler(h, &HandlerOptions{HTTPSHost: "config.example.com"})

	tests := []struct {
		name         string
		method       string
		proto        string
		wantStatus   int
		wantLocation string
	}{
		{name: "NoHeader", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "HTTPS", method: http.MethodGet, proto: "https", wantStatus: http.StatusOK},
		{
			name:         "HTTP",
			method:       http.MethodGet,
			proto:        "http",
			wantStatus:   http.StatusMovedPermanently,
			wantLocation: "https://config.example.com/sections/a/x",
		},
		{name: "HTTPPost", method: http.MethodPost, proto: "http", wantStatus: http.StatusGone},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(test.method, "http://localhost/sections/a/x", nil)
			if test.proto != "" {
				req.Header.Set(xForwardedProto, test.proto)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != test.wantStatus {
				t.Errorf("status = %d; want %d", rec.Code, test.wantStatus)
			}
			if got := rec.Header().Get("Location"); got != test.wantLocation {
				t.Errorf("Location = %q; want %q", got, test.wantLocation)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name string
		hdr  http.Header
		want string
	}{
		{
			name: "NoHeader",
			want: "",
		},
		{
			name: "HeaderEmpty",
			hdr: http.Header{
				http.CanonicalHeaderKey(xRequestID): {""},
			},
			want: "",
		},
		{
			name: "Set",
			hdr: http.Header{
				http.CanonicalHeaderKey(xRequestID): {"abcdefghijklmnopqrst"},
			},
			want: "abcdefghijklmnopqrst",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ch := make(chan string, 1)
			handler := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ch <- RequestID(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))
			req := httptest.NewRequest(http.MethodGet, "http://localhost/", nil)
			req = req.WithContext(testlog.WithTB(req.Context(), t))
			for k, v := range test.hdr {
				req.Header[k] = v
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if got := <-ch; got != test.want {
				t.Errorf("RequestID(r.Context()) = %q; want %q", got, test.want)
			}
			if got := rec.Header().Get(xRequestID); got != test.want {
				t.Errorf("response %s = %q; want %q", xRequestID, got, test.want)
			}
		})
	}
}

func TestWatchSocket(t *testing.T) {
	ctx := testlog.WithTB(context.Background(), t)
	h := newTestHolder(t, "[a]\nx=1\n")
	srv := httptest.NewServer(NewHandler(h, nil))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/watch", nil)
	if err != nil {
		t.Fatal("Dial:", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, got, err := conn.ReadMessage()
	if err != nil {
		t.Fatal("first ReadMessage:", err)
	}
	if diff := cmp.Diff("[a]\nx=1\n\n", string(got)); diff != "" {
		t.Errorf("first message (-want +got):\n%s", diff)
	}

	writeFile(t, h.Path(), "[a]\nx=2\n")
	if err := h.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	_, got, err = conn.ReadMessage()
	if err != nil {
		t.Fatal("second ReadMessage:", err)
	}
	if diff := cmp.Diff("[a]\nx=2\n\n", string(got)); diff != "" {
		t.Errorf("second message (-want +got):\n%s", diff)
	}
}

func TestWatch(t *testing.T) {
	h := newTestHolder(t, "[a]\nx=1\n")
	ctx, cancel := context.WithCancel(testlog.WithTB(context.Background(), t))
	updates, unsubscribe := h.Subscribe()
	defer unsubscribe()
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- h.Watch(ctx)
	}()
	defer func() {
		cancel()
		if err := <-watchDone; err != nil {
			t.Error("Watch:", err)
		}
	}()

	// The watcher may not be installed yet, so keep rewriting until a reload
	// is observed.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(3 * DebounceInterval)
	defer tick.Stop()
	for {
		select {
		case got := <-updates:
			if diff := cmp.Diff("[a]\nx=2\n\n", string(got)); diff != "" {
				t.Errorf("update (-want +got):\n%s", diff)
			}
			return
		case <-tick.C:
			writeFile(t, h.Path(), "[a]\nx=2\n")
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestMain(m *testing.M) {
	testlog.Main(nil)
	os.Exit(m.Run())
}
