// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package live streams collection bindings to browsers over websockets.
// Each connection owns one binding; the binding is closed when the
// connection ends.
package live

import (
	"cmp"
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/olegiv/corpsite/internal/binding"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxLimit   = 200
)

// Public collections may be streamed by anyone.
var publicCollections = map[string]bool{
	docstore.CollectionSiteSettings: true,
	docstore.CollectionSliders:      true,
	docstore.CollectionServices:     true,
	docstore.CollectionTeam:         true,
	docstore.CollectionProjects:     true,
	docstore.CollectionBlogPosts:    true,
}

// Admin collections require an admin session.
var adminCollections = map[string]bool{
	docstore.CollectionApplications:    true,
	docstore.CollectionContactMessages: true,
	docstore.CollectionUsers:           true,
	docstore.CollectionEventLog:        true,
}

// reserved query parameters that are not filters.
var reserved = map[string]bool{"orderBy": true, "dir": true, "limit": true}

// Message is one pushed state.
type Message struct {
	Collection string           `json:"collection"`
	Loading    bool             `json:"loading"`
	Error      string           `json:"error,omitempty"`
	Data       []map[string]any `json:"data"`
}

// Handler serves GET /api/live/{collection}.
type Handler struct {
	store    docstore.Store
	logger   *slog.Logger
	upgrader websocket.Upgrader
	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// NewHandler creates the live stream handler.
func NewHandler(store docstore.Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
		stop:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// ServeHTTP upgrades the request and streams the requested query.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	if !Allowed(r, collection) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	cfg := ConfigFromQuery(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	h.wg.Add(1)
	defer h.wg.Done()
	select {
	case <-h.stop:
		_ = conn.Close()
		return
	default:
	}
	h.stream(r.Context(), conn, collection, cfg)
}

// Shutdown tells every open stream to close and waits until they have
// ended or ctx is done. Streams are hijacked connections, so
// http.Server.Shutdown neither closes nor waits for them.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stop) })

	ended := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(ended)
	}()
	select {
	case <-ended:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Allowed reports whether the request may stream collection.
func Allowed(r *http.Request, collection string) bool {
	if publicCollections[collection] {
		return true
	}
	if !adminCollections[collection] {
		return false
	}
	m, err := session.FromContext(r.Context())
	return err == nil && m.IsAdmin()
}

// ConfigFromQuery reads orderBy, dir, limit and equality filters from the
// query string. Filter values that parse as numbers or booleans are
// compared as such.
func ConfigFromQuery(r *http.Request) binding.Config {
	q := r.URL.Query()
	cfg := binding.Config{
		OrderBy:   q.Get("orderBy"),
		Direction: docstore.ParseDirection(q.Get("dir")),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		cfg.Limit = min(n, maxLimit)
	}
	for key, values := range q {
		if reserved[key] || len(values) == 0 {
			continue
		}
		cfg.Filters = append(cfg.Filters, docstore.Filter{Field: key, Value: filterValue(values[0])})
	}
	// Map order is random; sorted filters keep equal queries equal.
	slices.SortFunc(cfg.Filters, func(a, b docstore.Filter) int {
		return cmp.Compare(a.Field, b.Field)
	})
	return cfg
}

func filterValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// latest holds the newest undelivered state.
type latest struct {
	mu    sync.Mutex
	state binding.State[[]map[string]any]
	ready chan struct{}
}

func (l *latest) set(s binding.State[[]map[string]any]) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latest) get() binding.State[[]map[string]any] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// stream runs until the client goes away, ctx ends or the handler shuts down.
func (h *Handler) stream(ctx context.Context, conn *websocket.Conn, collection string, cfg binding.Config) {
	defer func() { _ = conn.Close() }()

	pending := &latest{ready: make(chan struct{}, 1)}
	b := binding.NewCollection(h.store, collection, cfg, pending.set)
	defer b.Close()
	h.logger.Debug("live stream opened", "collection", collection)

	// The reader only detects the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send the current state even when the binding is still loading.
	if err := h.write(conn, collection, b.State()); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			h.logger.Debug("live stream closed", "collection", collection)
			return
		case <-ctx.Done():
			goingAway(conn)
			return
		case <-h.stop:
			goingAway(conn)
			return
		case <-pending.ready:
			if err := h.write(conn, collection, pending.get()); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func goingAway(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
}

func (h *Handler) write(conn *websocket.Conn, collection string, s binding.State[[]map[string]any]) error {
	msg := Message{Collection: collection, Loading: s.Loading, Data: s.Data}
	if s.Err != nil {
		msg.Error = s.Err.Error()
	}
	if msg.Data == nil {
		msg.Data = []map[string]any{}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("live stream write failed", "collection", collection, "error", err)
		return err
	}
	return nil
}
