// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package iniserve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"zombiezen.com/go/log"
)

// PingInterval is how often idle /watch connections are pinged.
const PingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// serveWatch sends the canonical text of the store as a text message when the
// client connects and again after every successful reload.
func (h *Holder) serveWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Debugf(r.Context(), "Upgrade /watch: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	updates, unsubscribe := h.Subscribe()
	defer unsubscribe()

	// The client only sends control frames, but they must be read for close
	// and pong handling to work.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	text, _ := h.Store().MarshalText()
	if err := writeMessage(ctx, conn, websocket.TextMessage, text); err != nil {
		log.Debugf(ctx, "/watch: %v", err)
		return
	}
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case text := <-updates:
			if err := writeMessage(ctx, conn, websocket.TextMessage, text); err != nil {
				log.Debugf(ctx, "/watch: %v", err)
				return
			}
		case <-ticker.C:
			if err := ping(ctx, conn); err != nil {
				log.Debugf(ctx, "/watch: %v", err)
				return
			}
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

// writeMessage writes a message to the connection, abandoning the write if
// the Context is Done first.
func writeMessage(ctx context.Context, conn *websocket.Conn, messageType int, data []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("write websocket message: %w", ctx.Err())
	default:
	}
	written := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case <-written:
		case <-ctx.Done():
			// XXX This is racy because WriteMessage will unconditionally call
			// SetWriteDeadline.
			conn.UnderlyingConn().SetWriteDeadline(time.Now())
		}
	}()
	err := conn.WriteMessage(messageType, data)
	close(written)
	<-watchDone
	if err != nil {
		return fmt.Errorf("write websocket message: %w", err)
	}
	return nil
}

// ping writes a ping message to the connection. It is safe to call
// concurrently with writeMessage on the same connection.
func ping(ctx context.Context, conn *websocket.Conn) error {
	deadline := time.Now().Add(PingInterval / 2)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return fmt.Errorf("ping websocket: %w", err)
	}
	return nil
}
