// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package docstore is a small document database: JSON objects grouped in
// named collections, with push subscriptions on single documents and on
// filtered, ordered queries.
package docstore

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/olegiv/corpsite/internal/config"
)

// Well-known collections.
const (
	CollectionSiteSettings    = "siteSettings"
	CollectionSliders         = "homepageSliders"
	CollectionServices        = "services"
	CollectionTeam            = "team"
	CollectionProjects        = "projects"
	CollectionBlogPosts       = "blogPosts"
	CollectionApplications    = "applications"
	CollectionContactMessages = "contactMessages"
	CollectionUsers           = "users"
	CollectionEventLog        = "eventLog"

	// SiteSettingsID is the fixed key of the site settings singleton.
	SiteSettingsID = "global"
)

// Timestamp field names written by the site.
const (
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldPublishedAt = "publishedAt"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidPath is returned for empty or malformed collection names and ids.
	ErrInvalidPath = errors.New("invalid document path")

	// ErrNotConfigured is returned by every operation of an unconfigured store.
	ErrNotConfigured error = &config.ConfigurationError{
		Component: "document store",
		Hint:      "set CORPSITE_DB_DRIVER",
	}
)

// serverTimestamp is the type of the ServerTimestamp sentinel.
type serverTimestamp struct{}

// ServerTimestamp is replaced by the store clock when a document is written.
var ServerTimestamp = serverTimestamp{}

// Document is one stored object.
type Document struct {
	ID   string
	Data map[string]any
}

// Map returns a copy of the document data with the id merged in under "id".
func (d Document) Map() map[string]any {
	m := make(map[string]any, len(d.Data)+1)
	maps.Copy(m, d.Data)
	m["id"] = d.ID
	return m
}

// String returns a string field, or "" when absent or not a string.
func (d Document) String(field string) string {
	s, _ := d.Data[field].(string)
	return s
}

// Time returns a timestamp field.
func (d Document) Time(field string) (time.Time, bool) {
	t, ok := d.Data[field].(time.Time)
	return t, ok
}

// Has reports whether the field is present.
func (d Document) Has(field string) bool {
	_, ok := d.Data[field]
	return ok
}

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Ascending Direction = iota
	Descending
)

// ParseDirection maps "desc"/"descending" to Descending and anything else to Ascending.
func ParseDirection(s string) Direction {
	switch strings.ToLower(s) {
	case "desc", "descending":
		return Descending
	}
	return Ascending
}

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Filter is an equality condition on a field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Direction  Direction
	Limit      int // 0 means unlimited
}

// setOptions configure Set.
type setOptions struct {
	merge bool
}

// SetOption configures a Set call.
type SetOption func(*setOptions)

// Merge makes Set update the given fields and keep the rest of the document.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// Store is the document database contract used by the site.
type Store interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Add creates a document with a generated id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Set creates or replaces a document; with Merge it updates the given fields.
	Set(ctx context.Context, collection, id string, data map[string]any, opts ...SetOption) error
	// Update changes fields of an existing document; ErrNotFound otherwise.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Query returns the documents matching q.
	Query(ctx context.Context, q Query) ([]Document, error)

	// WatchDocument delivers the document (nil when absent) now and after
	// every change, until the subscription is closed.
	WatchDocument(collection, id string, fn func(doc *Document, err error)) *Subscription
	// WatchQuery delivers the query result now and after every change to the
	// collection, until the subscription is closed.
	WatchQuery(q Query, fn func(docs []Document, err error)) *Subscription
}

// validPath checks a collection name and optional id.
func validPath(collection string, id ...string) error {
	if collection == "" || strings.Contains(collection, "/") {
		return ErrInvalidPath
	}
	for _, s := range id {
		if s == "" || strings.Contains(s, "/") {
			return ErrInvalidPath
		}
	}
	return nil
}
