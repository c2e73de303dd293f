// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the documents the site persists: user profiles,
// site settings and inbox items, with conversions to and from store
// documents.
package model

import (
	"time"

	"github.com/olegiv/corpsite/internal/docstore"
)

// Role is the persisted role of a profile.
type Role string

// Profile roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Status is the account status of a profile.
type Status string

// Profile statuses.
const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusBlocked
}

// Profile field names in the users collection.
const (
	FieldUID         = "uid"
	FieldEmail       = "email"
	FieldDisplayName = "displayName"
	FieldPhotoURL    = "photoURL"
	FieldRole        = "role"
	FieldStatus      = "status"
	FieldHeadline    = "headline"
)

// Profile is the site's record about a principal, keyed by principal id.
type Profile struct {
	ID          string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	Role        Role      `json:"role"`
	Status      Status    `json:"status"`
	Headline    string    `json:"headline,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsAdmin returns true if the profile has the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// IsBlocked returns true if the profile is blocked.
func (p *Profile) IsBlocked() bool {
	return p != nil && p.Status == StatusBlocked
}

// ProfileFromDocument reads a users document. Missing fields stay zero,
// except the role and status which default to user and active.
func ProfileFromDocument(doc docstore.Document) Profile {
	p := Profile{
		ID:          doc.ID,
		Email:       doc.String(FieldEmail),
		DisplayName: doc.String(FieldDisplayName),
		PhotoURL:    doc.String(FieldPhotoURL),
		Role:        Role(doc.String(FieldRole)),
		Status:      Status(doc.String(FieldStatus)),
		Headline:    doc.String(FieldHeadline),
	}
	if p.Role == "" {
		p.Role = RoleUser
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	p.CreatedAt, _ = doc.Time(docstore.FieldCreatedAt)
	p.UpdatedAt, _ = doc.Time(docstore.FieldUpdatedAt)
	return p
}

// NewProfileFields returns the fields of a freshly created profile. The
// timestamps are resolved by the store.
func NewProfileFields(id, email, displayName, photoURL string, role Role) map[string]any {
	return map[string]any{
		FieldUID:                id,
		FieldEmail:              email,
		FieldDisplayName:        displayName,
		FieldPhotoURL:           photoURL,
		FieldRole:               string(role),
		FieldStatus:             string(StatusActive),
		docstore.FieldCreatedAt: docstore.ServerTimestamp,
		docstore.FieldUpdatedAt: docstore.ServerTimestamp,
	}
}
