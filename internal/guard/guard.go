// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package guard gates authenticated and admin-only routes on the session
// state. Decisions are pure functions of that state.
package guard

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/olegiv/corpsite/internal/session"
)

// Requirement is what a route needs from the session.
type Requirement int

const (
	// Authenticated requires a signed-in principal.
	Authenticated Requirement = iota
	// Admin requires a signed-in administrator.
	Admin
)

// Decision is the outcome of a guard check.
type Decision int

const (
	// Loading means the session has not resolved yet; nothing protected
	// may be rendered or fetched.
	Loading Decision = iota
	// Denied means the requirement is not met.
	Denied
	// Allowed means the route may render.
	Allowed
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Denied:
		return "denied"
	case Allowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Evaluate decides req for a session state. isAdmin is the session's
// derived admin flag.
func Evaluate(state session.State, isAdmin bool, req Requirement) Decision {
	if state.Initializing {
		return Loading
	}
	if !state.SignedIn() {
		return Denied
	}
	if req == Admin && !isAdmin {
		return Denied
	}
	return Allowed
}

// RedirectTarget is where a denied request is sent: the login page for
// authenticated routes, home for admin routes.
func RedirectTarget(req Requirement) string {
	if req == Admin {
		return "/"
	}
	return "/login"
}

// Options customise Require.
type Options struct {
	// Placeholder renders the loading state. Defaults to a short page that
	// refreshes itself.
	Placeholder http.Handler
	Logger      *slog.Logger
}

// Require returns middleware enforcing req with the session manager of the
// request context. A request without a manager is a configuration error
// and is answered with 503.
func Require(req Requirement, opts Options) func(http.Handler) http.Handler {
	placeholder := opts.Placeholder
	if placeholder == nil {
		placeholder = http.HandlerFunc(loadingPage)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m, err := session.FromContext(r.Context())
			if err != nil {
				logger.Error("route guard without session", "error", err, "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}

			switch Evaluate(m.State(), m.IsAdmin(), req) {
			case Loading:
				placeholder.ServeHTTP(w, r)
			case Denied:
				target := RedirectTarget(req)
				if req == Authenticated {
					target += "?next=" + url.QueryEscape(r.URL.RequestURI())
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireAuth is Require(Authenticated, opts).
func RequireAuth(opts Options) func(http.Handler) http.Handler {
	return Require(Authenticated, opts)
}

// RequireAdmin is Require(Admin, opts).
func RequireAdmin(opts Options) func(http.Handler) http.Handler {
	return Require(Admin, opts)
}

const loadingHTML = `<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body><p>Loading&hellip;</p></body></html>
`

func loadingPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(loadingHTML))
}
