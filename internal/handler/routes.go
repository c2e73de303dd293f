// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/corpsite/internal/guard"
)

// RouteOptions carries what Mount needs beyond the Handler itself.
type RouteOptions struct {
	// FormLimit throttles the public contact and apply forms.
	FormLimit func(http.Handler) http.Handler
	// Live serves /api/live/{collection}. Omitted when nil.
	Live http.Handler
	// Health serves /health. Omitted when nil.
	Health http.HandlerFunc
	Guard  guard.Options
}

func passthrough(next http.Handler) http.Handler { return next }

// Mount registers every page route on r.
func (h *Handler) Mount(r chi.Router, opts RouteOptions) {
	formLimit := opts.FormLimit
	if formLimit == nil {
		formLimit = passthrough
	}
	loginLimit := h.loginProtection.Middleware()

	if opts.Health != nil {
		r.Get("/health", opts.Health)
	}
	if opts.Live != nil {
		r.Handle("/api/live/{collection}", opts.Live)
	}

	// Public site
	r.Get("/", h.Home)
	r.Get("/about", h.About)
	r.Get("/services", h.Services)
	r.Get("/team", h.Team)
	r.Get("/portfolio", h.Portfolio)
	r.Get("/blog", h.Blog)
	r.Get("/blog/{slug}", h.Post)
	r.Get("/contact", h.Contact)
	r.With(formLimit).Post("/contact", h.SubmitContact)
	r.Get("/apply", h.Apply)
	r.With(formLimit).Post("/apply", h.SubmitApplication)

	// Accounts
	r.Get("/login", h.LoginForm)
	r.With(loginLimit).Post("/login", h.Login)
	r.Get("/register", h.RegisterForm)
	r.With(loginLimit).Post("/register", h.Register)
	r.Post("/logout", h.Logout)
	r.Get("/auth/federated", h.Federated)
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAuth(opts.Guard))
		r.Get("/profile", h.Profile)
		r.Post("/profile", h.UpdateProfile)
	})

	// Admin
	r.Route("/admin", func(r chi.Router) {
		r.Use(guard.RequireAdmin(opts.Guard))
		r.Get("/", h.Dashboard)

		r.Get("/settings", h.SettingsForm)
		r.Post("/settings", h.SaveSettings)

		r.Get("/users", h.Users)
		r.Post("/users/{id}/status", h.SetUserStatus)
		r.Post("/users/{id}/delete", h.DeleteUser)

		r.Get("/inbox/{collection}", h.Inbox)
		r.Post("/inbox/{collection}/{id}/status", h.AdvanceInbox)
		r.Post("/inbox/{collection}/{id}/delete", h.DeleteInbox)

		r.Get("/{collection}", h.Collection)
		r.Post("/{collection}", h.CreateRecord)
		r.Get("/{collection}/{id}/edit", h.EditRecord)
		r.Post("/{collection}/{id}", h.UpdateRecord)
		r.Post("/{collection}/{id}/delete", h.DeleteRecord)
	})

	r.NotFound(h.NotFound)
}
