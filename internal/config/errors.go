// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import "fmt"

// ConfigurationError reports that a backend component was used without the
// configuration it needs. Callers degrade instead of failing hard.
type ConfigurationError struct {
	Component string
	Hint      string
}

func (e *ConfigurationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s is not configured (%s)", e.Component, e.Hint)
	}
	return e.Component + " is not configured"
}

// Is matches any ConfigurationError for the same component, so sentinel
// values can be compared with errors.Is.
func (e *ConfigurationError) Is(target error) bool {
	t, ok := target.(*ConfigurationError)
	if !ok {
		return false
	}
	return t.Component == "" || t.Component == e.Component
}

// ErrNotConfigured matches every ConfigurationError with errors.Is.
var ErrNotConfigured = &ConfigurationError{}
