// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/corpsite/internal/binding"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/model"
)

// UsersData is the user management page.
type UsersData struct {
	Profiles []model.Profile
	SelfID   string
	Error    string
}

// Users handles GET /admin/users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	var data UsersData
	if p := m.State().Principal; p != nil {
		data.SelfID = p.ID
	}

	records, err := h.snapshot(r.Context(), docstore.CollectionUsers, binding.Config{
		OrderBy:   docstore.FieldCreatedAt,
		Direction: docstore.Descending,
	})
	if err != nil {
		h.logger.Warn("user listing failed", "error", err)
		data.Error = userMessage(err)
	}
	for _, rec := range records {
		id, _ := rec["id"].(string)
		delete(rec, "id")
		data.Profiles = append(data.Profiles, model.ProfileFromDocument(docstore.Document{ID: id, Data: rec}))
	}

	h.render(w, r, http.StatusOK, "admin/users", h.page(r, "Users", data))
}

// SetUserStatus handles POST /admin/users/{id}/status.
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, "/admin/users", "Invalid form data")
		return
	}
	id := chi.URLParam(r, "id")
	if p := m.State().Principal; p != nil && p.ID == id {
		flashError(w, r, h.renderer, "/admin/users", "You cannot change the status of your own account.")
		return
	}

	status := model.Status(r.PostFormValue("status"))
	if err := m.SetUserStatus(r.Context(), id, status); err != nil {
		h.logger.Warn("user status not changed", "principal_id", id, "error", err, "category", "user")
		flashError(w, r, h.renderer, "/admin/users", userMessage(err))
		return
	}
	flashSuccess(w, r, h.renderer, "/admin/users", "User status updated.")
}

// DeleteUser handles POST /admin/users/{id}/delete.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, "/admin/users", "Invalid form data")
		return
	}
	id := chi.URLParam(r, "id")
	if p := m.State().Principal; p != nil && p.ID == id {
		flashError(w, r, h.renderer, "/admin/users", "You cannot delete your own account.")
		return
	}

	if err := m.DeleteUser(r.Context(), id, confirmed(r)); err != nil {
		h.logger.Warn("user not deleted", "principal_id", id, "error", err, "category", "user")
		flashError(w, r, h.renderer, "/admin/users", userMessage(err))
		return
	}
	flashSuccess(w, r, h.renderer, "/admin/users", "User deleted.")
}
