// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package iniserve serves a read-only view of an INI file over HTTP and
// pushes its canonical form to WebSocket clients whenever the file changes.
package iniserve

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yourbase/inistore/ini"
	"zombiezen.com/go/log"
)

// DebounceInterval is how long Watch waits after the last change event
// before reloading.
const DebounceInterval = 100 * time.Millisecond

// A Holder owns the current contents of one INI file. Stores handed out by a
// Holder are never modified afterward, so they can be read concurrently.
type Holder struct {
	path string
	opts ini.ParseOptions

	// reloadMu is held for the whole of Reload.
	reloadMu sync.Mutex

	mu    sync.RWMutex
	store *ini.Store

	listenMu  sync.Mutex
	listeners map[chan []byte]struct{}

	registry *prometheus.Registry
	reloads  *prometheus.CounterVec
	sections prometheus.Gauge
}

// NewHolder returns a holder for the file at path. The holder starts out
// empty; call Reload to read the file.
func NewHolder(path string, opts *ini.ParseOptions) *Holder {
	h := &Holder{
		path:      path,
		store:     ini.New(opts),
		listeners: make(map[chan []byte]struct{}),
		registry:  prometheus.NewRegistry(),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inistore_reloads_total",
			Help: "Number of attempts to reload the served file, by result.",
		}, []string{"result"}),
		sections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inistore_sections",
			Help: "Number of sections in the served file.",
		}),
	}
	if opts != nil {
		h.opts = *opts
	}
	h.registry.MustRegister(h.reloads, h.sections)
	return h
}

// Path returns the path of the served file.
func (h *Holder) Path() string {
	return h.path
}

// Store returns the most recently loaded store. Callers must not modify it.
func (h *Holder) Store() *ini.Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store
}

// Reload reads the file and, if that succeeds, replaces the current store and
// notifies subscribers. If reading fails, the current store is kept and the
// error is returned. Concurrent calls run one at a time.
func (h *Holder) Reload(ctx context.Context) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	s, err := ini.ReadFile(h.path, &h.opts)
	if err != nil {
		h.reloads.WithLabelValues("error").Inc()
		return fmt.Errorf("reload: %w", err)
	}
	h.reloads.WithLabelValues("ok").Inc()
	h.sections.Set(float64(s.Len()))

	h.mu.Lock()
	h.store = s
	h.mu.Unlock()

	text, _ := s.MarshalText()
	h.broadcast(text)
	log.Infof(ctx, "Loaded %s (%d sections)", h.path, s.Len())
	return nil
}

// Subscribe returns a channel that receives the canonical text of the store
// after each successful reload. A slow subscriber only sees the latest text.
// Call the returned function to stop receiving.
func (h *Holder) Subscribe() (updates <-chan []byte, cancel func()) {
	c := make(chan []byte, 1)
	h.listenMu.Lock()
	h.listeners[c] = struct{}{}
	h.listenMu.Unlock()
	return c, func() {
		h.listenMu.Lock()
		delete(h.listeners, c)
		h.listenMu.Unlock()
	}
}

func (h *Holder) broadcast(text []byte) {
	h.listenMu.Lock()
	defer h.listenMu.Unlock()
	for c := range h.listeners {
		// Replace any update the subscriber has not picked up yet.
		select {
		case <-c:
		default:
		}
		c <- text
	}
}

// Watch reloads the file whenever it is written, created or renamed into
// place, until the Context is Done. Failed reloads are logged and the previous
// store stays in effect. Watch returns nil when the Context is Done.
func (h *Holder) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", h.path, err)
	}
	defer w.Close()
	// Editors often replace the file, so watch its directory.
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		return fmt.Errorf("watch %s: %w", h.path, err)
	}
	target := filepath.Clean(h.path)

	debounce := time.NewTimer(DebounceInterval)
	debounce.Stop()
	defer debounce.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				log.Debugf(ctx, "%s changed (%v)", h.path, event.Op)
				debounce.Reset(DebounceInterval)
			}
		case <-debounce.C:
			if err := h.Reload(ctx); err != nil {
				log.Errorf(ctx, "Automatic reload failed: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnf(ctx, "Watching %s: %v", h.path, err)
		}
	}
}
