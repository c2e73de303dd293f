// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that tees warnings and errors into
// the eventLog collection of the document store for the admin dashboard.
package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/olegiv/corpsite/internal/docstore"
)

// Event levels stored in the event log.
const (
	LevelWarning = "warning"
	LevelError   = "error"
	LevelInfo    = "info"
)

// Event categories stored in the event log.
const (
	CategoryAuth    = "auth"
	CategoryContent = "content"
	CategoryInbox   = "inbox"
	CategoryUser    = "user"
	CategoryMedia   = "media"
	CategoryConfig  = "config"
	CategorySystem  = "system"
)

// writeTimeout bounds a single event log write.
const writeTimeout = 5 * time.Second

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// records at or above its level to the eventLog collection.
type EventLogHandler struct {
	inner slog.Handler
	store docstore.Store
	level slog.Level
	attrs []slog.Attr
	// writing is shared between derived handlers; records logged while an
	// event is being written (by the store or the change feed) are not
	// written again.
	writing *atomic.Int32
}

// NewEventLogHandler creates a new EventLogHandler that wraps the given handler.
// Logs at WARN level and above are written to both the wrapped handler and the event log.
func NewEventLogHandler(inner slog.Handler, store docstore.Store) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, store, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, store docstore.Store, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		store:   store,
		level:   level,
		writing: new(atomic.Int32),
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.inner.Enabled(ctx, r.Level) {
		if err := h.inner.Handle(ctx, r); err != nil {
			return err
		}
	}

	if r.Level >= h.level {
		h.writeToEventLog(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	return &clone
}

// writeToEventLog appends the record to the event log. A background context
// is used so the event survives a cancelled request.
func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	if !h.writing.CompareAndSwap(0, 1) {
		return
	}
	defer h.writing.Store(0)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	_, _ = h.store.Add(ctx, docstore.CollectionEventLog, map[string]any{
		"level":     eventLevel(r.Level),
		"category":  h.category(r),
		"message":   r.Message,
		"metadata":  h.metadata(r),
		"createdAt": r.Time.UTC(),
	})
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// category uses a "category" attribute when present and otherwise infers
// one from the message.
func (h *EventLogHandler) category(r slog.Record) string {
	var category string
	for _, a := range h.attrs {
		if a.Key == "category" {
			category = a.Value.String()
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			category = a.Value.String()
			return false
		}
		return true
	})
	if category != "" {
		return category
	}

	msg := strings.ToLower(r.Message)
	switch {
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") ||
		strings.Contains(msg, "logout") || strings.Contains(msg, "sign"):
		return CategoryAuth
	case strings.Contains(msg, "upload") || strings.Contains(msg, "media"):
		return CategoryMedia
	case strings.Contains(msg, "application") || strings.Contains(msg, "contact") ||
		strings.Contains(msg, "inbox"):
		return CategoryInbox
	case strings.Contains(msg, "profile") || strings.Contains(msg, "user"):
		return CategoryUser
	case strings.Contains(msg, "config") || strings.Contains(msg, "setting"):
		return CategoryConfig
	case strings.Contains(msg, "record") || strings.Contains(msg, "content"):
		return CategoryContent
	default:
		return CategorySystem
	}
}

// metadata collects the handler and record attributes as strings.
func (h *EventLogHandler) metadata(r slog.Record) map[string]any {
	out := make(map[string]any, len(h.attrs)+r.NumAttrs())
	add := func(a slog.Attr) bool {
		if a.Key != "category" {
			out[a.Key] = a.Value.String()
		}
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)
	return out
}
