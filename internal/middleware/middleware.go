// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides the HTTP middleware of the site: the
// per-request session, CSRF protection, rate limits and security headers.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyRequestPath holds the request path for error logs.
const ContextKeyRequestPath ContextKey = "request_path"

// RequestPath creates middleware that stores the request path in the context.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, _ := ctx.Value(ContextKeyRequestPath).(string)
	return path
}

// SessionConfig holds the shared backends of every request's session.
type SessionConfig struct {
	Cookies   *scs.SessionManager
	Directory auth.Directory
	Store     docstore.Store
	Allow     *session.AllowList
	Federated *auth.FederatedVerifier // nil disables federated sign-in
	SiteName  string
	Logger    *slog.Logger
}

// Session builds the browser's session manager for each request and
// installs it in the request context. It must run inside Cookies.LoadAndSave.
// When the manager signs out a blocked account, the banner is kept as a
// flash message for the next page.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	persist := session.NewCookiePersistence(cfg.Cookies)
	clientOpts := []auth.ClientOption{auth.WithLogger(cfg.Logger)}
	if cfg.Federated != nil {
		clientOpts = append(clientOpts, auth.WithFederatedVerifier(cfg.Federated))
	}
	blocked := session.BlockedMessage(cfg.SiteName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			client := auth.NewClient(cfg.Directory, persist, clientOpts...)
			m := session.NewManager(client, cfg.Store, cfg.Allow,
				session.WithLogger(cfg.Logger),
				session.WithSiteName(cfg.SiteName),
			)
			m.Start(ctx)
			defer m.Close()

			if m.State().LastError == blocked {
				session.PutFlash(ctx, cfg.Cookies, blocked)
			}

			next.ServeHTTP(w, r.WithContext(session.WithManager(ctx, m)))
		})
	}
}
