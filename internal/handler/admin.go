// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/corpsite/internal/binding"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/editor"
	"github.com/olegiv/corpsite/internal/model"
)

// maxListColumns is how many schema fields the admin tables show.
const maxListColumns = 3

// CollectionCount is one dashboard tile.
type CollectionCount struct {
	Title string
	URL   string
	Count int
	Err   string
}

// DashboardData is the admin dashboard.
type DashboardData struct {
	Collections []CollectionCount
	Inbox       []CollectionCount
	Users       CollectionCount
}

// Dashboard handles GET /admin.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count := func(collection string) (int, string) {
		records, err := h.snapshot(ctx, collection, binding.Config{})
		if err != nil {
			return 0, userMessage(err)
		}
		return len(records), ""
	}

	var data DashboardData
	for _, s := range h.schemas.All() {
		n, msg := count(s.Collection)
		data.Collections = append(data.Collections, CollectionCount{
			Title: s.Title, URL: "/admin/" + s.Collection, Count: n, Err: msg,
		})
	}
	for _, inbox := range inboxes {
		tile := CollectionCount{Title: inbox.title, URL: "/admin/inbox/" + inbox.collection}
		n, err := h.inbox.Count(ctx, inbox.collection, model.InboxNew)
		if err != nil {
			tile.Err = userMessage(err)
		}
		tile.Count = n
		data.Inbox = append(data.Inbox, tile)
	}
	n, msg := count(docstore.CollectionUsers)
	data.Users = CollectionCount{Title: "Users", URL: "/admin/users", Count: n, Err: msg}

	h.render(w, r, http.StatusOK, "admin/dashboard", h.page(r, "Dashboard", data))
}

// CollectionData is the listing and form of a managed collection.
type CollectionData struct {
	Schema    editor.Schema
	Columns   []editor.Field
	Records   []map[string]any
	Form      editor.Form
	EditingID string
	Errors    FormErrors
	ListErr   string
}

// Value returns the form text of field.
func (c CollectionData) Value(field string) string {
	return c.Form[field]
}

// Action is where the form posts.
func (c CollectionData) Action() string {
	if c.EditingID != "" {
		return "/admin/" + c.Schema.Collection + "/" + c.EditingID
	}
	return "/admin/" + c.Schema.Collection
}

func listColumns(schema editor.Schema) []editor.Field {
	var cols []editor.Field
	for _, f := range schema.Fields {
		switch f.Kind.(type) {
		case editor.Textarea, editor.Image:
			continue
		}
		cols = append(cols, f)
		if len(cols) == maxListColumns {
			break
		}
	}
	return cols
}

// collectionSchema resolves the {collection} parameter, rendering 404 for
// collections without a schema.
func (h *Handler) collectionSchema(w http.ResponseWriter, r *http.Request) (editor.Schema, bool) {
	schema, ok := h.schemas.Lookup(chi.URLParam(r, "collection"))
	if !ok {
		h.NotFound(w, r)
	}
	return schema, ok
}

func (h *Handler) newEditor(schema editor.Schema) *editor.Editor {
	return editor.New(schema, h.store, h.uploader, editor.WithLogger(h.logger))
}

// renderCollection renders the listing with the editor's form.
func (h *Handler) renderCollection(w http.ResponseWriter, r *http.Request, status int, ed *editor.Editor) {
	schema := ed.Schema()
	data := CollectionData{
		Schema:    schema,
		Columns:   listColumns(schema),
		Form:      ed.Form(),
		EditingID: ed.EditingID(),
		Errors:    newFormErrors(ed.Err()),
	}
	records, err := ed.List(r.Context())
	if err != nil {
		h.logger.Warn("collection listing failed", "collection", schema.Collection, "error", err)
		data.ListErr = userMessage(err)
	}
	data.Records = records
	h.render(w, r, status, "admin/collection", h.page(r, schema.Title, data))
}

// Collection handles GET /admin/{collection}.
func (h *Handler) Collection(w http.ResponseWriter, r *http.Request) {
	schema, ok := h.collectionSchema(w, r)
	if !ok {
		return
	}
	h.renderCollection(w, r, http.StatusOK, h.newEditor(schema))
}

// CreateRecord handles POST /admin/{collection}.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	schema, ok := h.collectionSchema(w, r)
	if !ok {
		return
	}
	h.submitRecord(w, r, h.newEditor(schema), "Record created.")
}

// EditRecord handles GET /admin/{collection}/{id}/edit.
func (h *Handler) EditRecord(w http.ResponseWriter, r *http.Request) {
	schema, ok := h.collectionSchema(w, r)
	if !ok {
		return
	}
	ed := h.newEditor(schema)
	if !h.loadRecord(w, r, ed) {
		return
	}
	h.renderCollection(w, r, http.StatusOK, ed)
}

// UpdateRecord handles POST /admin/{collection}/{id}.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	schema, ok := h.collectionSchema(w, r)
	if !ok {
		return
	}
	ed := h.newEditor(schema)
	if !h.loadRecord(w, r, ed) {
		return
	}
	h.submitRecord(w, r, ed, "Record updated.")
}

// loadRecord puts the editor in edit mode for {id}, redirecting to the
// listing when the record cannot be read.
func (h *Handler) loadRecord(w http.ResponseWriter, r *http.Request, ed *editor.Editor) bool {
	id := chi.URLParam(r, "id")
	listURL := "/admin/" + ed.Schema().Collection
	if err := ed.Load(r.Context(), id); err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			h.logger.Error("failed to load record", "collection", ed.Schema().Collection, "id", id, "error", err)
		}
		flashError(w, r, h.renderer, listURL, userMessage(err))
		return false
	}
	return true
}

func (h *Handler) submitRecord(w http.ResponseWriter, r *http.Request, ed *editor.Editor, message string) {
	collection := ed.Schema().Collection
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, "/admin/"+collection, "Invalid form data")
		return
	}
	in, err := editorInput(r, ed.Schema())
	if err != nil {
		flashError(w, r, h.renderer, "/admin/"+collection, "The uploaded file could not be read.")
		return
	}

	if _, err := ed.Submit(r.Context(), in); err != nil {
		h.logger.Warn("record not saved", "collection", collection, "error", err)
		h.renderCollection(w, r, statusFor(err), ed)
		return
	}
	flashSuccess(w, r, h.renderer, "/admin/"+collection, message)
}

// DeleteRecord handles POST /admin/{collection}/{id}/delete.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	schema, ok := h.collectionSchema(w, r)
	if !ok {
		return
	}
	listURL := "/admin/" + schema.Collection
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, listURL, "Invalid form data")
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.newEditor(schema).Remove(r.Context(), id, confirmed(r)); err != nil {
		flashError(w, r, h.renderer, listURL, userMessage(err))
		return
	}
	flashSuccess(w, r, h.renderer, listURL, "Record deleted.")
}
