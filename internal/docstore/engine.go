// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// backend persists encoded documents. Implementations need no locking of
// their own beyond what database/sql provides; the Engine serialises writes.
type backend interface {
	get(ctx context.Context, collection, id string) ([]byte, bool, error)
	put(ctx context.Context, collection, id string, data []byte) error
	delete(ctx context.Context, collection, id string) error
	list(ctx context.Context, collection string) (map[string][]byte, error)
}

// Option configures a store.
type Option func(*Engine)

// WithClock overrides the clock used for ServerTimestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides document id generation for Add.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithHub shares a change hub, e.g. one bridged to other instances.
func WithHub(h *Hub) Option {
	return func(e *Engine) { e.hub = h }
}

// Engine implements Store over a storage backend.
type Engine struct {
	b     backend
	hub   *Hub
	now   func() time.Time
	newID func() string
	mu    sync.Mutex // serialises read-modify-write cycles
}

func newEngine(b backend, opts ...Option) *Engine {
	e := &Engine{
		b:     b,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.hub == nil {
		e.hub = NewHub()
	}
	return e
}

// Hub returns the change hub of the store.
func (e *Engine) Hub() *Hub {
	return e.hub
}

func (e *Engine) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := validPath(collection, id); err != nil {
		return Document{}, err
	}
	raw, ok, err := e.b.get(ctx, collection, id)
	if err != nil {
		return Document{}, fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}
	if !ok {
		return Document{}, ErrNotFound
	}
	data, err := decode(raw)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: data}, nil
}

func (e *Engine) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := validPath(collection); err != nil {
		return "", err
	}
	id := e.newID()
	if err := e.write(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (e *Engine) Set(ctx context.Context, collection, id string, data map[string]any, opts ...SetOption) error {
	if err := validPath(collection, id); err != nil {
		return err
	}
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !o.merge {
		return e.write(ctx, collection, id, data)
	}
	return e.merge(ctx, collection, id, data, false)
}

func (e *Engine) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := validPath(collection, id); err != nil {
		return err
	}
	return e.merge(ctx, collection, id, fields, true)
}

func (e *Engine) Delete(ctx context.Context, collection, id string) error {
	if err := validPath(collection, id); err != nil {
		return err
	}
	e.mu.Lock()
	err := e.b.delete(ctx, collection, id)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	e.hub.publish(Change{Collection: collection, ID: id})
	return nil
}

func (e *Engine) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validPath(q.Collection); err != nil {
		return nil, err
	}
	rows, err := e.b.list(ctx, q.Collection)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", q.Collection, err)
	}
	docs := make([]Document, 0, len(rows))
	for id, raw := range rows {
		data, err := decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	return apply(docs, q), nil
}

func (e *Engine) WatchDocument(collection, id string, fn func(*Document, error)) *Subscription {
	if err := validPath(collection, id); err != nil {
		go fn(nil, err)
		return &Subscription{}
	}
	return e.hub.watch(collection, id,
		func(ctx context.Context) (any, error) {
			doc, err := e.Get(ctx, collection, id)
			if errors.Is(err, ErrNotFound) {
				return (*Document)(nil), nil
			}
			if err != nil {
				return nil, err
			}
			return &doc, nil
		},
		func(v any, err error) {
			doc, _ := v.(*Document)
			fn(doc, err)
		})
}

func (e *Engine) WatchQuery(q Query, fn func([]Document, error)) *Subscription {
	if err := validPath(q.Collection); err != nil {
		go fn(nil, err)
		return &Subscription{}
	}
	q.Filters = append([]Filter(nil), q.Filters...)
	return e.hub.watch(q.Collection, "",
		func(ctx context.Context) (any, error) {
			return e.Query(ctx, q)
		},
		func(v any, err error) {
			docs, _ := v.([]Document)
			fn(docs, err)
		})
}

func (e *Engine) write(ctx context.Context, collection, id string, data map[string]any) error {
	raw, err := encode(resolveSentinels(data, e.now()))
	if err != nil {
		return err
	}
	e.mu.Lock()
	err = e.b.put(ctx, collection, id, raw)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, id, err)
	}
	e.hub.publish(Change{Collection: collection, ID: id})
	return nil
}

// merge overlays fields on the stored document. With mustExist it fails
// with ErrNotFound instead of creating the document.
func (e *Engine) merge(ctx context.Context, collection, id string, fields map[string]any, mustExist bool) error {
	e.mu.Lock()
	raw, ok, err := e.b.get(ctx, collection, id)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}
	if !ok && mustExist {
		e.mu.Unlock()
		return ErrNotFound
	}

	current := map[string]any{}
	if ok {
		if current, err = decode(raw); err != nil {
			e.mu.Unlock()
			return err
		}
	}
	maps.Copy(current, resolveSentinels(fields, e.now()))

	encoded, err := encode(current)
	if err == nil {
		err = e.b.put(ctx, collection, id, encoded)
	}
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, id, err)
	}

	e.hub.publish(Change{Collection: collection, ID: id})
	return nil
}
