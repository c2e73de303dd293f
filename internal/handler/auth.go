// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/session"
)

// LoginData is the login page.
type LoginData struct {
	Email            string
	Next             string
	Error            string
	FederatedEnabled bool
}

// RegisterData is the registration page.
type RegisterData struct {
	Email       string
	DisplayName string
	Error       string
}

// ProfileData is the profile page.
type ProfileData struct {
	DisplayName string
	Headline    string
	Error       string
}

// landing is where a fresh sign-in goes without an explicit next.
func landing(m *session.Manager) string {
	if m.IsAdmin() {
		return "/admin"
	}
	return "/profile"
}

// LoginForm handles GET /login.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	next := r.URL.Query().Get("next")
	if m.State().SignedIn() {
		http.Redirect(w, r, safeNext(next, landing(m)), http.StatusSeeOther)
		return
	}
	data := LoginData{Next: next, FederatedEnabled: h.federated}
	h.render(w, r, http.StatusOK, "auth/login", h.page(r, "Sign in", data))
}

// Login handles POST /login. Failed attempts count towards a per-email
// lockout; a blocked account is signed out again and sees the banner.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, "/login", "Invalid form data")
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	next := r.PostFormValue("next")

	fail := func(status int, msg string) {
		data := LoginData{Email: email, Next: next, Error: msg, FederatedEnabled: h.federated}
		h.render(w, r, status, "auth/login", h.page(r, "Sign in", data))
	}

	if locked, remaining := h.loginProtection.IsLocked(email); locked {
		h.logger.Warn("login attempt on locked account", "email", email, "category", "auth")
		fail(http.StatusTooManyRequests, lockedMessage(remaining))
		return
	}

	err := m.Login(r.Context(), email, password)
	var blocked *session.BlockedAccountError
	switch {
	case err == nil:
		h.loginProtection.RecordSuccess(email)
		h.logger.Info("user signed in", "email", email)
		http.Redirect(w, r, safeNext(next, landing(m)), http.StatusSeeOther)
	case errors.As(err, &blocked):
		h.logger.Warn("blocked account tried to sign in", "principal_id", blocked.PrincipalID, "category", "auth")
		fail(http.StatusForbidden, blocked.Message)
	case auth.IsCode(err, auth.CodeInvalidCredential):
		if locked, d := h.loginProtection.RecordFailure(email); locked {
			fail(http.StatusTooManyRequests, lockedMessage(d))
			return
		}
		fail(http.StatusUnauthorized, userMessage(err))
	default:
		h.logger.Error("sign-in failed", "error", err)
		fail(statusFor(err), userMessage(err))
	}
}

func lockedMessage(d time.Duration) string {
	return fmt.Sprintf("Too many failed attempts. Try again in %s.", d.Round(time.Minute).String())
}

// RegisterForm handles GET /register.
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if m.State().SignedIn() {
		http.Redirect(w, r, landing(m), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "auth/register", h.page(r, "Create account", RegisterData{}))
}

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, "/register", "Invalid form data")
		return
	}
	data := RegisterData{
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		DisplayName: strings.TrimSpace(r.PostFormValue("displayName")),
	}
	password := r.PostFormValue("password")

	if password != r.PostFormValue("confirmPassword") {
		data.Error = "Passwords do not match."
		h.render(w, r, http.StatusUnprocessableEntity, "auth/register", h.page(r, "Create account", data))
		return
	}

	if err := m.Register(r.Context(), data.Email, password, data.DisplayName); err != nil {
		status := statusFor(err)
		var authErr *auth.Error
		if errors.As(err, &authErr) && authErr.Code != auth.CodeUnavailable {
			status = http.StatusUnprocessableEntity
		}
		data.Error = userMessage(err)
		h.render(w, r, status, "auth/register", h.page(r, "Create account", data))
		return
	}

	h.logger.Info("account registered", "email", data.Email)
	flashSuccess(w, r, h.renderer, landing(m), "Welcome! Your account has been created.")
}

// Logout handles POST /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := m.Logout(r.Context()); err != nil {
		h.logger.Error("sign-out failed", "error", err)
		flashError(w, r, h.renderer, "/", userMessage(err))
		return
	}
	flashSuccess(w, r, h.renderer, "/", "You have been signed out.")
}

// Federated handles GET /auth/federated?id_token=..., the return leg of
// the identity broker.
func (h *Handler) Federated(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	token := r.URL.Query().Get("id_token")
	if token == "" {
		flashError(w, r, h.renderer, "/login", "The sign-in link is incomplete.")
		return
	}
	if err := m.LoginWithFederatedProvider(r.Context(), token); err != nil {
		h.logger.Warn("federated sign-in failed", "error", err, "category", "auth")
		flashError(w, r, h.renderer, "/login", userMessage(err))
		return
	}
	http.Redirect(w, r, safeNext(r.URL.Query().Get("next"), landing(m)), http.StatusSeeOther)
}

// Profile handles GET /profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	st := m.State()
	if !st.SignedIn() {
		http.Redirect(w, r, "/login?next=%2Fprofile", http.StatusSeeOther)
		return
	}
	data := ProfileData{DisplayName: st.Principal.DisplayName}
	if st.Profile != nil {
		data.DisplayName = st.Profile.DisplayName
		data.Headline = st.Profile.Headline
	}
	h.render(w, r, http.StatusOK, "auth/profile", h.page(r, "Your profile", data))
}

// UpdateProfile handles POST /profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, "/profile", "Invalid form data")
		return
	}
	data := ProfileData{
		DisplayName: r.PostFormValue("displayName"),
		Headline:    r.PostFormValue("headline"),
	}
	if err := m.UpdateProfile(r.Context(), data.DisplayName, data.Headline); err != nil {
		h.logger.Error("profile update failed", "error", err)
		data.Error = userMessage(err)
		h.render(w, r, statusFor(err), "auth/profile", h.page(r, "Your profile", data))
		return
	}
	flashSuccess(w, r, h.renderer, "/profile", "Profile updated.")
}
