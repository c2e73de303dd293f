// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/corpsite/internal/content"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/model"
)

const inboxPerPage = 20

var inboxes = []struct {
	collection string
	title      string
}{
	{docstore.CollectionApplications, "Job applications"},
	{docstore.CollectionContactMessages, "Contact messages"},
}

var inboxStatuses = []model.InboxStatus{model.InboxNew, model.InboxReviewed, model.InboxResponded, model.InboxArchived}

// InboxData is one page of an inbox.
type InboxData struct {
	Collection string
	Items      []model.InboxItem
	Pagination Pagination
	Error      string
}

// Next returns the statuses item may move to.
func (InboxData) Next(item model.InboxItem) []model.InboxStatus {
	var out []model.InboxStatus
	for _, s := range inboxStatuses {
		if item.Status.CanAdvance(s) {
			out = append(out, s)
		}
	}
	return out
}

func inboxTitle(collection string) string {
	for _, in := range inboxes {
		if in.collection == collection {
			return in.title
		}
	}
	return collection
}

// inboxCollection resolves {collection}, rendering 404 for anything but
// the two inboxes.
func (h *Handler) inboxCollection(w http.ResponseWriter, r *http.Request) (string, bool) {
	collection := chi.URLParam(r, "collection")
	if !content.IsInboxCollection(collection) {
		h.NotFound(w, r)
		return "", false
	}
	return collection, true
}

// Inbox handles GET /admin/inbox/{collection}.
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	collection, ok := h.inboxCollection(w, r)
	if !ok {
		return
	}
	data := InboxData{Collection: collection}
	items, err := h.inbox.List(r.Context(), collection)
	if err != nil {
		h.logger.Warn("inbox listing failed", "collection", collection, "error", err)
		data.Error = userMessage(err)
	}
	data.Pagination = BuildPagination(pageParam(r), len(items), inboxPerPage, r.URL.Path, r.URL.Query())
	data.Items = paginate(items, data.Pagination)

	h.render(w, r, http.StatusOK, "admin/inbox", h.page(r, inboxTitle(collection), data))
}

// AdvanceInbox handles POST /admin/inbox/{collection}/{id}/status.
func (h *Handler) AdvanceInbox(w http.ResponseWriter, r *http.Request) {
	collection, ok := h.inboxCollection(w, r)
	if !ok {
		return
	}
	listURL := "/admin/inbox/" + collection
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, listURL, "Invalid form data")
		return
	}
	id := chi.URLParam(r, "id")
	next := model.InboxStatus(r.PostFormValue("status"))
	if err := h.inbox.Advance(r.Context(), collection, id, next); err != nil {
		h.logger.Warn("inbox status not changed", "collection", collection, "id", id, "error", err, "category", "inbox")
		flashError(w, r, h.renderer, listURL, userMessage(err))
		return
	}
	flashSuccess(w, r, h.renderer, listURL, "Status updated.")
}

// DeleteInbox handles POST /admin/inbox/{collection}/{id}/delete.
func (h *Handler) DeleteInbox(w http.ResponseWriter, r *http.Request) {
	collection, ok := h.inboxCollection(w, r)
	if !ok {
		return
	}
	listURL := "/admin/inbox/" + collection
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, listURL, "Invalid form data")
		return
	}
	if err := h.inbox.Delete(r.Context(), collection, chi.URLParam(r, "id"), confirmed(r)); err != nil {
		flashError(w, r, h.renderer, listURL, userMessage(err))
		return
	}
	flashSuccess(w, r, h.renderer, listURL, "Item deleted.")
}
