// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the HTTP handlers of the public site, the
// account pages and the admin panel.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/corpsite/internal/binding"
	"github.com/olegiv/corpsite/internal/content"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/editor"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/middleware"
	"github.com/olegiv/corpsite/internal/render"
	"github.com/olegiv/corpsite/internal/session"
)

// Config holds the dependencies of a Handler.
type Config struct {
	Renderer        *render.Renderer
	Sessions        *scs.SessionManager
	Store           docstore.Store
	Schemas         *editor.Registry
	Uploader        media.Uploader
	Settings        *content.Settings
	Inbox           *content.Inbox
	LoginProtection *middleware.LoginProtection
	// FederatedEnabled shows the federated sign-in link on the login page.
	FederatedEnabled bool
	SiteName         string
	Logger           *slog.Logger
}

// Handler serves every page of the site.
type Handler struct {
	renderer        *render.Renderer
	sm              *scs.SessionManager
	store           docstore.Store
	schemas         *editor.Registry
	uploader        media.Uploader
	settings        *content.Settings
	inbox           *content.Inbox
	loginProtection *middleware.LoginProtection
	federated       bool
	siteName        string
	logger          *slog.Logger
}

// New creates a Handler.
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	protection := cfg.LoginProtection
	if protection == nil {
		protection = middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig(), logger)
	}
	return &Handler{
		renderer:        cfg.Renderer,
		sm:              cfg.Sessions,
		store:           cfg.Store,
		schemas:         cfg.Schemas,
		uploader:        cfg.Uploader,
		settings:        cfg.Settings,
		inbox:           cfg.Inbox,
		loginProtection: protection,
		federated:       cfg.FederatedEnabled,
		siteName:        cfg.SiteName,
		logger:          logger,
	}
}

// manager returns the session manager of the request. A request that did
// not pass through the session middleware is answered with 503.
func (h *Handler) manager(w http.ResponseWriter, r *http.Request) (*session.Manager, bool) {
	m, err := session.FromContext(r.Context())
	if err != nil {
		logAndHTTPError(h.logger, w, "Service Unavailable", http.StatusServiceUnavailable,
			"request without session", "error", err, "path", r.URL.Path)
		return nil, false
	}
	return m, true
}

// page returns template data with the site settings loaded.
func (h *Handler) page(r *http.Request, title string, data any) render.TemplateData {
	settings, err := h.settings.Load(r.Context())
	if err != nil {
		h.logger.Warn("site settings unavailable", "error", err)
	}
	return render.TemplateData{
		Title:    title,
		SiteName: h.siteName,
		Settings: settings,
		Data:     data,
	}
}

// render writes a template, answering 500 if it fails.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data render.TemplateData) {
	if err := h.renderer.RenderStatus(w, r, status, name, data); err != nil {
		logAndInternalError(h.logger, w, "failed to render template", "template", name, "error", err)
	}
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "pages/notfound", h.page(r, "Page not found", nil))
}

// snapshot reads the current records of a collection through a binding:
// it subscribes, waits for the first result and unsubscribes.
func (h *Handler) snapshot(ctx context.Context, collection string, cfg binding.Config) ([]map[string]any, error) {
	b := binding.NewCollection(h.store, collection, cfg, nil)
	defer b.Close()

	st, err := b.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return st.Data, st.Err
}

// listing reads a managed collection in its schema order. Errors are
// logged and yield an empty list so public pages still render.
func (h *Handler) listing(ctx context.Context, collection string, limit int) []map[string]any {
	cfg := binding.Config{Limit: limit}
	if schema, ok := h.schemas.Lookup(collection); ok {
		cfg.OrderBy = schema.OrderBy
		cfg.Direction = schema.Direction
	}
	records, err := h.snapshot(ctx, collection, cfg)
	if err != nil {
		h.logger.Warn("collection unavailable", "collection", collection, "error", err)
		return []map[string]any{}
	}
	return records
}
