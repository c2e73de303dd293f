// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"

	"github.com/olegiv/corpsite/internal/config"
)

type contextKey struct{}

// ErrNoManager is returned by FromContext when no manager was installed.
var ErrNoManager error = &config.ConfigurationError{
	Component: "session manager",
	Hint:      "route is not behind the session middleware",
}

// WithManager returns a context carrying m.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the manager installed by WithManager.
func FromContext(ctx context.Context) (*Manager, error) {
	m, ok := ctx.Value(contextKey{}).(*Manager)
	if !ok || m == nil {
		return nil, ErrNoManager
	}
	return m, nil
}
