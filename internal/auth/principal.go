// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth is the site's identity provider: a directory of principals
// with Argon2id passwords, federated sign-in through signed ID tokens, and a
// per-browser Client that reports sign-in state changes to subscribers.
package auth

import (
	"net/mail"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Sign-in methods.
const (
	ProviderPassword  = "password"
	ProviderFederated = "federated"
)

// Principal is an authenticated identity.
type Principal struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
	Provider    string
	CreatedAt   time.Time
}

var folder = cases.Fold()

// EmailKey returns the case-folded form of an address used for uniqueness
// and allow-list checks.
func EmailKey(email string) string {
	return folder.String(strings.TrimSpace(email))
}

// normalizeEmail validates an address and returns it trimmed.
func normalizeEmail(email string) (string, bool) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
