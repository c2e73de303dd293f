// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import "context"

// Unconfigured is the Store used when no backend is configured. Every call
// fails with ErrNotConfigured and subscriptions resolve immediately with it.
type Unconfigured struct{}

func (Unconfigured) Get(context.Context, string, string) (Document, error) {
	return Document{}, ErrNotConfigured
}

func (Unconfigured) Add(context.Context, string, map[string]any) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Set(context.Context, string, string, map[string]any, ...SetOption) error {
	return ErrNotConfigured
}

func (Unconfigured) Update(context.Context, string, string, map[string]any) error {
	return ErrNotConfigured
}

func (Unconfigured) Delete(context.Context, string, string) error {
	return ErrNotConfigured
}

func (Unconfigured) Query(context.Context, Query) ([]Document, error) {
	return nil, ErrNotConfigured
}

// WatchDocument calls fn with ErrNotConfigured before returning.
func (Unconfigured) WatchDocument(_, _ string, fn func(*Document, error)) *Subscription {
	fn(nil, ErrNotConfigured)
	return &Subscription{}
}

// WatchQuery calls fn with ErrNotConfigured before returning.
func (Unconfigured) WatchQuery(_ Query, fn func([]Document, error)) *Subscription {
	fn(nil, ErrNotConfigured)
	return &Subscription{}
}
