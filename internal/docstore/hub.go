// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"context"
	"reflect"
	"sync"
)

// Change describes a write to one document.
type Change struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Origin     string `json:"origin,omitempty"`
}

// Hub fans document changes out to active watchers.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[*watcher]struct{}
	relays   []func(Change)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{watchers: make(map[string]map[*watcher]struct{})}
}

// Relay registers fn to receive every locally originated change, e.g. to
// forward it to other instances.
func (h *Hub) Relay(fn func(Change)) {
	h.mu.Lock()
	h.relays = append(h.relays, fn)
	h.mu.Unlock()
}

// Notify wakes the watchers interested in c without relaying it.
func (h *Hub) Notify(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers[c.Collection] {
		if w.id == "" || w.id == c.ID {
			w.wake()
		}
	}
}

// publish notifies local watchers and relays the change.
func (h *Hub) publish(c Change) {
	h.Notify(c)
	h.mu.Lock()
	relays := append([]func(Change){}, h.relays...)
	h.mu.Unlock()
	for _, fn := range relays {
		fn(c)
	}
}

// Watchers returns the number of live watchers across all collections.
func (h *Hub) Watchers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.watchers {
		n += len(set)
	}
	return n
}

func (h *Hub) add(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[w.collection]
	if !ok {
		set = make(map[*watcher]struct{})
		h.watchers[w.collection] = set
	}
	set[w] = struct{}{}
}

func (h *Hub) remove(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.watchers[w.collection]; ok {
		delete(set, w)
		if len(set) == 0 {
			delete(h.watchers, w.collection)
		}
	}
}

// watcher re-evaluates one subscription on its own goroutine. Wake-ups
// coalesce, so a burst of writes costs one evaluation.
type watcher struct {
	collection string
	id         string // empty for query watchers
	dirty      chan struct{}
	done       chan struct{}
}

func (w *watcher) wake() {
	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

// watch starts a watcher that calls eval and hands changed results to deliver.
func (h *Hub) watch(collection, id string, eval func(ctx context.Context) (any, error), deliver func(any, error)) *Subscription {
	w := &watcher{
		collection: collection,
		id:         id,
		dirty:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())

	h.add(w)
	w.wake()

	go func() {
		var (
			last    any
			current bool // last delivery was a result rather than an error
		)
		for {
			select {
			case <-w.done:
				return
			case <-w.dirty:
			}

			v, err := eval(ctx)

			select {
			case <-w.done:
				return
			default:
			}

			if err == nil && current && reflect.DeepEqual(v, last) {
				continue
			}
			last, current = v, err == nil
			deliver(v, err)
		}
	}()

	return &Subscription{stop: func() {
		h.remove(w)
		close(w.done)
		cancel()
	}}
}

// Subscription is the handle of a live watch. The owner must close it.
type Subscription struct {
	once sync.Once
	stop func()
}

// Close stops future deliveries. A delivery already running may still
// complete. Close is idempotent and safe on a nil handle.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}
