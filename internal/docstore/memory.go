// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"context"
	"sync"
)

// memoryBackend keeps encoded documents in process memory.
type memoryBackend struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte
}

// NewMemory returns a Store that lives in process memory. It is used for
// ephemeral deployments and throughout the tests.
func NewMemory(opts ...Option) *Engine {
	return newEngine(&memoryBackend{docs: make(map[string]map[string][]byte)}, opts...)
}

func (m *memoryBackend) get(_ context.Context, collection, id string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.docs[collection][id]
	return raw, ok, nil
}

func (m *memoryBackend) put(_ context.Context, collection, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[collection]
	if !ok {
		c = make(map[string][]byte)
		m.docs[collection] = c
	}
	c[id] = data
	return nil
}

func (m *memoryBackend) delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[collection], id)
	return nil
}

func (m *memoryBackend) list(_ context.Context, collection string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.docs[collection]))
	for id, raw := range m.docs[collection] {
		out[id] = raw
	}
	return out, nil
}
