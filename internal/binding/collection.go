// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package binding

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/olegiv/corpsite/internal/docstore"
)

// Config selects the records of a collection binding.
type Config struct {
	Filters   []docstore.Filter
	OrderBy   string
	Direction docstore.Direction
	Limit     int
}

// equal compares configurations structurally. A nil and an empty filter
// list are the same.
func (c Config) equal(other Config) bool {
	if c.OrderBy != other.OrderBy || c.Direction != other.Direction || c.Limit != other.Limit {
		return false
	}
	if len(c.Filters) == 0 && len(other.Filters) == 0 {
		return true
	}
	return reflect.DeepEqual(c.Filters, other.Filters)
}

func (c Config) query(collection string) docstore.Query {
	return docstore.Query{
		Collection: collection,
		Filters:    slices.Clone(c.Filters),
		OrderBy:    c.OrderBy,
		Direction:  c.Direction,
		Limit:      c.Limit,
	}
}

// Collection binds a filtered, ordered and limited query. Data is an
// ordered list of records with "id" merged in; it is empty while the first
// result loads.
type Collection struct {
	*cell[[]map[string]any]

	store      docstore.Store
	collection string

	subMu  sync.Mutex
	config Config
	sub    *docstore.Subscription
}

// NewCollection subscribes to the query described by cfg. listener may be nil.
func NewCollection(store docstore.Store, collection string, cfg Config, listener Listener[[]map[string]any]) *Collection {
	c := &Collection{
		cell:       newCell([]map[string]any{}, listener),
		store:      store,
		collection: collection,
	}
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscribe(cfg)
	return c
}

// Configure replaces the query. It re-subscribes only when cfg differs
// structurally from the current configuration and reports whether it did.
// Records of the previous query stay visible until the new result arrives.
func (c *Collection) Configure(cfg Config) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.isClosed() || c.config.equal(cfg) {
		return false
	}
	c.sub.Close()
	c.subscribe(cfg)
	return true
}

// Config returns the current configuration.
func (c *Collection) Config() Config {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	cfg := c.config
	cfg.Filters = slices.Clone(cfg.Filters)
	return cfg
}

// subscribe opens the subscription for cfg. The caller holds subMu.
func (c *Collection) subscribe(cfg Config) {
	cfg.Filters = slices.Clone(cfg.Filters)
	c.config = cfg

	gen := c.begin()
	c.sub = c.store.WatchQuery(cfg.query(c.collection), func(docs []docstore.Document, err error) {
		c.deliver(gen, func(s *State[[]map[string]any]) {
			if err != nil {
				s.Err = err
				return
			}
			s.Err = nil
			records := make([]map[string]any, len(docs))
			for i, d := range docs {
				records[i] = d.Map()
			}
			s.Data = records
		})
	})
}

// State returns the current state.
func (c *Collection) State() State[[]map[string]any] {
	return c.get()
}

// Wait blocks until the current query has delivered or ctx is done.
func (c *Collection) Wait(ctx context.Context) (State[[]map[string]any], error) {
	return c.wait(ctx)
}

// Close unsubscribes. It is safe to call more than once.
func (c *Collection) Close() {
	c.close()
	c.subMu.Lock()
	sub := c.sub
	c.sub = nil
	c.subMu.Unlock()
	sub.Close()
}

func (c *Collection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
