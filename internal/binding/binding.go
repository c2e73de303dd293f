// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package binding turns document store subscriptions into state values
// with loading and error flags. A binding holds at most one live
// subscription and never calls its listener after Close.
package binding

import (
	"context"
	"sync"
)

// State is the current value of a binding.
type State[T any] struct {
	Data    T
	Loading bool
	Err     error
}

// Listener is called after every state change, outside the state lock.
// It may be called before the constructor returns and must not call
// Configure or Close of its own binding.
type Listener[T any] func(State[T])

// cell holds a binding's state, its generation and the waiters for the
// next change. Callbacks from an older generation are dropped.
type cell[T any] struct {
	mu       sync.Mutex
	state    State[T]
	gen      uint64
	closed   bool
	changed  chan struct{}
	listener Listener[T]
}

func newCell[T any](initial T, listener Listener[T]) *cell[T] {
	return &cell[T]{
		state:    State[T]{Data: initial, Loading: true},
		changed:  make(chan struct{}),
		listener: listener,
	}
}

// begin starts a new generation in the loading state and returns its number.
func (c *cell[T]) begin() uint64 {
	c.mu.Lock()
	c.gen++
	c.state.Loading = true
	gen := c.gen
	c.mu.Unlock()
	return gen
}

// deliver applies update if gen is current and the binding is open.
func (c *cell[T]) deliver(gen uint64, update func(*State[T])) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	update(&c.state)
	c.state.Loading = false
	s := c.state
	listener := c.listener
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()

	if listener != nil {
		listener(s)
	}
}

func (c *cell[T]) get() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// wait blocks until the binding is not loading.
func (c *cell[T]) wait(ctx context.Context) (State[T], error) {
	for {
		c.mu.Lock()
		if !c.state.Loading || c.closed {
			s := c.state
			c.mu.Unlock()
			return s, nil
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return c.get(), ctx.Err()
		}
	}
}

// close marks the cell closed and reports whether it was open.
func (c *cell[T]) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.changed)
	c.changed = make(chan struct{})
	return true
}
