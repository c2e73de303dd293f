// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package binding

import (
	"context"
	"sync"

	"github.com/olegiv/corpsite/internal/docstore"
)

// Document binds one document. Data is nil while loading and when the
// document does not exist; otherwise it holds the fields with "id" merged in.
type Document struct {
	*cell[map[string]any]

	subMu sync.Mutex
	sub   *docstore.Subscription
}

// NewDocument subscribes to collection/id. listener may be nil.
func NewDocument(store docstore.Store, collection, id string, listener Listener[map[string]any]) *Document {
	d := &Document{cell: newCell[map[string]any](nil, listener)}

	gen := d.begin()
	sub := store.WatchDocument(collection, id, func(doc *docstore.Document, err error) {
		d.deliver(gen, func(s *State[map[string]any]) {
			if err != nil {
				s.Err = err
				return
			}
			s.Err = nil
			if doc == nil {
				s.Data = nil
			} else {
				s.Data = doc.Map()
			}
		})
	})

	d.subMu.Lock()
	d.sub = sub
	d.subMu.Unlock()
	if d.isClosed() {
		sub.Close()
	}
	return d
}

// State returns the current state.
func (d *Document) State() State[map[string]any] {
	return d.get()
}

// Wait blocks until the first delivery or ctx is done.
func (d *Document) Wait(ctx context.Context) (State[map[string]any], error) {
	return d.wait(ctx)
}

// Close unsubscribes. It is safe to call more than once.
func (d *Document) Close() {
	d.close()
	d.subMu.Lock()
	sub := d.sub
	d.sub = nil
	d.subMu.Unlock()
	sub.Close()
}

func (d *Document) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
