// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/model"
)

// AllowList is the configured set of administrator emails. It is read-only
// after construction and safe for concurrent use.
type AllowList struct {
	keys map[string]struct{}
}

// NewAllowList builds an allow-list. Blank entries are ignored.
func NewAllowList(emails []string) *AllowList {
	a := &AllowList{keys: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if key := auth.EmailKey(e); key != "" {
			a.keys[key] = struct{}{}
		}
	}
	return a
}

// Contains reports whether email is on the list, ignoring case.
func (a *AllowList) Contains(email string) bool {
	if a == nil {
		return false
	}
	_, ok := a.keys[auth.EmailKey(email)]
	return ok
}

// Len returns the number of addresses on the list.
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// RoleFor returns the role a new profile with this email starts with.
func (a *AllowList) RoleFor(email string) model.Role {
	if a.Contains(email) {
		return model.RoleAdmin
	}
	return model.RoleUser
}

// IsAdmin combines the stored profile role with live allow-list membership.
// Either grants admin access, so removing an address from the list revokes
// access only for profiles whose stored role is user.
func IsAdmin(profileRole model.Role, allowListed bool) bool {
	return profileRole == model.RoleAdmin || allowListed
}
