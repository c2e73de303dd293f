// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"time"

	"github.com/olegiv/corpsite/internal/docstore"
)

// InboxStatus is the review state of a contact message or job application.
type InboxStatus string

// Inbox statuses in their only allowed order.
const (
	InboxNew       InboxStatus = "new"
	InboxReviewed  InboxStatus = "reviewed"
	InboxResponded InboxStatus = "responded"
	InboxArchived  InboxStatus = "archived"
)

var inboxRanks = map[InboxStatus]int{
	InboxNew:       0,
	InboxReviewed:  1,
	InboxResponded: 2,
	InboxArchived:  3,
}

// Rank returns the position of s in the review order, or -1 if unknown.
func (s InboxStatus) Rank() int {
	if r, ok := inboxRanks[s]; ok {
		return r
	}
	return -1
}

// CanAdvance reports whether an item may move from s to next. Statuses
// only move forward; steps may be skipped.
func (s InboxStatus) CanAdvance(next InboxStatus) bool {
	from, to := s.Rank(), next.Rank()
	return from >= 0 && to > from
}

// InboxItem is a submission from the public contact or apply form.
type InboxItem struct {
	ID         string
	Collection string
	FullName   string
	Email      string
	Message    string
	Position   string
	CVURL      string
	Status     InboxStatus
	Country    string
	UserAgent  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Fields     map[string]any
}

// InboxItemFromDocument reads a contactMessages or applications document.
// Items without a status are treated as new.
func InboxItemFromDocument(collection string, doc docstore.Document) InboxItem {
	item := InboxItem{
		ID:         doc.ID,
		Collection: collection,
		FullName:   doc.String("fullName"),
		Email:      doc.String("email"),
		Message:    doc.String("message"),
		Position:   doc.String("position"),
		CVURL:      doc.String("cvUrl"),
		Status:     InboxStatus(doc.String("status")),
		Country:    doc.String("country"),
		UserAgent:  doc.String("userAgent"),
		Fields:     doc.Data,
	}
	if item.Status == "" {
		item.Status = InboxNew
	}
	if item.Message == "" {
		item.Message = doc.String("shortBio")
	}
	item.CreatedAt, _ = doc.Time(docstore.FieldCreatedAt)
	item.UpdatedAt, _ = doc.Time(docstore.FieldUpdatedAt)
	return item
}
