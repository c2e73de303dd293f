// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package editor implements the create, edit, delete and list contract
// shared by every admin-managed collection. Collections are described by
// schemas; the editor dispatches on field kinds.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strconv"
	"strings"

	"github.com/olegiv/corpsite/internal/binding"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/util"
)

// FieldSlug is the field holding the URL slug of a record.
const FieldSlug = "slug"

// Form holds the raw text of every schema field as edited.
type Form map[string]string

// Input is one submission: raw field values and newly chosen files.
// Fields missing from Values keep their current form value.
type Input struct {
	Values map[string]string
	Files  map[string]media.File
}

// Editor edits the records of one collection. At most one record is being
// edited at a time. An Editor is not safe for concurrent use.
type Editor struct {
	schema   Schema
	store    docstore.Store
	uploader media.Uploader
	logger   *slog.Logger

	form      Form
	files     map[string]media.File
	editingID string
	err       error
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the editor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// New returns an editor with an empty form.
func New(schema Schema, store docstore.Store, uploader media.Uploader, opts ...Option) *Editor {
	e := &Editor{
		schema:   schema,
		store:    store,
		uploader: uploader,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reset()
	return e
}

// Schema returns the schema being edited.
func (e *Editor) Schema() Schema {
	return e.schema
}

// Form returns a copy of the form.
func (e *Editor) Form() Form {
	return maps.Clone(e.form)
}

// EditingID returns the id of the record being edited, or "" in create mode.
func (e *Editor) EditingID() string {
	return e.editingID
}

// Err returns the error of the last failed operation, or nil.
func (e *Editor) Err() error {
	return e.err
}

// PendingFile reports whether a new file was chosen for field.
func (e *Editor) PendingFile(field string) bool {
	_, ok := e.files[field]
	return ok
}

// Edit loads record into the form and enters edit mode. Absent fields
// become empty. Pending files are discarded.
func (e *Editor) Edit(record map[string]any) {
	id, _ := record["id"].(string)
	form := make(Form, len(e.schema.Fields))
	for _, f := range e.schema.Fields {
		form[f.Name] = formatValue(f.Kind, record[f.Name])
	}
	e.form = form
	e.files = map[string]media.File{}
	e.editingID = id
	e.err = nil
}

// Load reads collection/id from the store and edits it.
func (e *Editor) Load(ctx context.Context, id string) error {
	doc, err := e.store.Get(ctx, e.schema.Collection, id)
	if err != nil {
		return err
	}
	e.Edit(doc.Map())
	return nil
}

// Cancel discards the form and leaves edit mode without writing.
func (e *Editor) Cancel() {
	e.reset()
}

func (e *Editor) reset() {
	form := make(Form, len(e.schema.Fields))
	for _, f := range e.schema.Fields {
		form[f.Name] = ""
	}
	e.form = form
	e.files = map[string]media.File{}
	e.editingID = ""
	e.err = nil
}

// Submit applies in to the form and saves it: a new record in create mode,
// an update of the edited record otherwise. New images are uploaded before
// anything is written, so a failed upload leaves the store untouched. On
// success the form is reset and the record id returned; on failure the
// form keeps the input and Err reports the error.
func (e *Editor) Submit(ctx context.Context, in Input) (string, error) {
	for _, f := range e.schema.Fields {
		if v, ok := in.Values[f.Name]; ok {
			e.form[f.Name] = v
		}
	}
	for name, file := range in.Files {
		if _, ok := e.schema.Field(name); ok && len(file.Data) > 0 {
			e.files[name] = file
		}
	}

	id, err := e.save(ctx)
	if err != nil {
		e.err = err
		return "", err
	}
	e.reset()
	return id, nil
}

func (e *Editor) save(ctx context.Context) (string, error) {
	payload, err := e.payload()
	if err != nil {
		return "", err
	}

	for _, f := range e.schema.Fields {
		img, ok := f.Kind.(Image)
		if !ok {
			continue
		}
		file, chosen := e.files[f.Name]
		if !chosen {
			continue
		}
		u, err := e.uploader.Upload(ctx, file, img.Folder)
		if err != nil {
			return "", err
		}
		payload[f.Name] = u
		// Uploaded once; a retry after a failed write reuses the URL.
		e.form[f.Name] = u
		delete(e.files, f.Name)
	}

	if e.editingID != "" {
		payload[docstore.FieldUpdatedAt] = docstore.ServerTimestamp
		if err := e.store.Update(ctx, e.schema.Collection, e.editingID, payload); err != nil {
			return "", &StoreWriteError{Op: "update", Collection: e.schema.Collection, ID: e.editingID, Err: err}
		}
		e.logger.Info("record updated", "collection", e.schema.Collection, "id", e.editingID)
		return e.editingID, nil
	}

	payload[docstore.FieldCreatedAt] = docstore.ServerTimestamp
	payload[docstore.FieldUpdatedAt] = docstore.ServerTimestamp
	if e.schema.Publish {
		payload[docstore.FieldPublishedAt] = docstore.ServerTimestamp
	}
	if e.schema.Slug {
		title, _ := payload["title"].(string)
		slug, err := util.UniqueSlug(util.Slugify(title), e.schema.Collection, e.slugTaken(ctx))
		if err != nil {
			return "", &StoreWriteError{Op: "create", Collection: e.schema.Collection, Err: err}
		}
		payload[FieldSlug] = slug
	}
	id, err := e.store.Add(ctx, e.schema.Collection, payload)
	if err != nil {
		return "", &StoreWriteError{Op: "create", Collection: e.schema.Collection, Err: err}
	}
	e.logger.Info("record created", "collection", e.schema.Collection, "id", id)
	return id, nil
}

func (e *Editor) slugTaken(ctx context.Context) func(string) (bool, error) {
	return func(slug string) (bool, error) {
		docs, err := e.store.Query(ctx, docstore.Query{
			Collection: e.schema.Collection,
			Filters:    []docstore.Filter{{Field: FieldSlug, Value: slug}},
			Limit:      1,
		})
		return len(docs) > 0, err
	}
}

// payload converts the form to document fields and validates it.
func (e *Editor) payload() (map[string]any, error) {
	payload := make(map[string]any, len(e.schema.Fields)+4)
	var invalid []FieldError
	for _, f := range e.schema.Fields {
		raw := e.form[f.Name]
		switch f.Kind.(type) {
		case Number:
			raw = strings.TrimSpace(raw)
			if raw == "" {
				payload[f.Name] = ""
				break
			}
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				invalid = append(invalid, FieldError{Field: f.Name, Message: f.Label + " must be a number"})
				continue
			}
			payload[f.Name] = n
		case StringList:
			payload[f.Name] = ParseList(raw)
		case URL:
			raw = strings.TrimSpace(raw)
			if raw != "" && !validURL(raw) {
				invalid = append(invalid, FieldError{Field: f.Name, Message: f.Label + " must be an http or https URL"})
				continue
			}
			payload[f.Name] = raw
		case Image:
			payload[f.Name] = strings.TrimSpace(raw)
		default:
			payload[f.Name] = raw
		}

		if f.Required && e.missing(f) {
			invalid = append(invalid, FieldError{Field: f.Name, Message: f.Label + " is required"})
		}
	}
	if len(invalid) > 0 {
		return nil, &ValidationError{Fields: invalid}
	}
	return payload, nil
}

func (e *Editor) missing(f Field) bool {
	if _, ok := f.Kind.(Image); ok {
		if _, chosen := e.files[f.Name]; chosen {
			return false
		}
	}
	if _, ok := f.Kind.(StringList); ok {
		return len(ParseList(e.form[f.Name])) == 0
	}
	return strings.TrimSpace(e.form[f.Name]) == ""
}

// Remove deletes the record id. The caller must have obtained an explicit
// confirmation; there is no undo.
func (e *Editor) Remove(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := e.store.Delete(ctx, e.schema.Collection, id); err != nil {
		err = &StoreWriteError{Op: "delete", Collection: e.schema.Collection, ID: id, Err: err}
		e.err = err
		return err
	}
	if e.editingID == id {
		e.reset()
	}
	e.logger.Info("record deleted", "collection", e.schema.Collection, "id", id)
	return nil
}

// Query returns the listing query of the collection.
func (e *Editor) Query() docstore.Query {
	return docstore.Query{
		Collection: e.schema.Collection,
		OrderBy:    e.schema.OrderBy,
		Direction:  e.schema.Direction,
	}
}

// List returns the records in schema order with "id" merged in.
func (e *Editor) List(ctx context.Context) ([]map[string]any, error) {
	docs, err := e.store.Query(ctx, e.Query())
	if err != nil {
		return nil, err
	}
	records := make([]map[string]any, len(docs))
	for i, d := range docs {
		records[i] = d.Map()
	}
	return records, nil
}

// Watch returns a live binding of the listing.
func (e *Editor) Watch(listener binding.Listener[[]map[string]any]) *binding.Collection {
	return binding.NewCollection(e.store, e.schema.Collection, binding.Config{
		OrderBy:   e.schema.OrderBy,
		Direction: e.schema.Direction,
	}, listener)
}

// ParseList splits comma-separated input into trimmed, non-empty items.
func ParseList(raw string) []string {
	items := []string{}
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// FormatList joins items for editing.
func FormatList(items []string) string {
	return strings.Join(items, ", ")
}

// formatValue renders a stored value as form text.
func formatValue(kind Kind, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case []string:
		return FormatList(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, it := range val {
			if s := formatValue(kind, it); s != "" {
				items = append(items, s)
			}
		}
		if _, ok := kind.(StringList); ok {
			return FormatList(items)
		}
		return strings.Join(items, " ")
	default:
		return fmt.Sprint(val)
	}
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
