// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content provides the site's content services: the settings
// singleton, the public inbox of contact messages and job applications,
// blog markdown rendering and demo content seeding.
package content

import (
	"context"
	"errors"
	"log/slog"

	"github.com/olegiv/corpsite/internal/binding"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/editor"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/model"
)

// LogoFolder is the upload folder of the site logo.
const LogoFolder = "logos"

// DefaultSettings are shown while siteSettings/global does not exist.
var DefaultSettings = model.SiteSettings{
	Tagline:    "Software that moves your business forward",
	AboutIntro: "We are a product studio building web platforms for growing companies.",
	CTAText:    "Let's talk",
}

// Settings reads and writes the site settings singleton.
type Settings struct {
	store    docstore.Store
	uploader media.Uploader
	logger   *slog.Logger
}

// NewSettings creates the settings service.
func NewSettings(store docstore.Store, uploader media.Uploader, logger *slog.Logger) *Settings {
	return &Settings{store: store, uploader: uploader, logger: logger}
}

// Load returns the stored settings, or DefaultSettings when none were saved.
func (s *Settings) Load(ctx context.Context) (model.SiteSettings, error) {
	doc, err := s.store.Get(ctx, docstore.CollectionSiteSettings, docstore.SiteSettingsID)
	if errors.Is(err, docstore.ErrNotFound) {
		return DefaultSettings, nil
	}
	if err != nil {
		return DefaultSettings, err
	}
	return model.SettingsFromDocument(doc), nil
}

// Save merges settings into the singleton. A non-empty logo is uploaded
// first; a failed upload aborts the save. createdAt is set on the first save.
func (s *Settings) Save(ctx context.Context, settings model.SiteSettings, logo *media.File) (model.SiteSettings, error) {
	if logo != nil && len(logo.Data) > 0 {
		url, err := s.uploader.Upload(ctx, *logo, LogoFolder)
		if err != nil {
			return settings, err
		}
		settings.LogoURL = url
	}

	fields := settings.Fields()
	fields[docstore.FieldUpdatedAt] = docstore.ServerTimestamp
	existing, err := s.store.Get(ctx, docstore.CollectionSiteSettings, docstore.SiteSettingsID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		fields[docstore.FieldCreatedAt] = docstore.ServerTimestamp
	case err != nil:
		return settings, s.writeError(err)
	case !existing.Has(docstore.FieldCreatedAt):
		fields[docstore.FieldCreatedAt] = docstore.ServerTimestamp
	}

	if err := s.store.Set(ctx, docstore.CollectionSiteSettings, docstore.SiteSettingsID, fields, docstore.Merge()); err != nil {
		return settings, s.writeError(err)
	}
	s.logger.Info("site settings saved")
	return settings, nil
}

func (s *Settings) writeError(err error) error {
	s.logger.Error("saving site settings failed", "error", err)
	return &editor.StoreWriteError{
		Op:         "update",
		Collection: docstore.CollectionSiteSettings,
		ID:         docstore.SiteSettingsID,
		Err:        err,
	}
}

// Watch binds the settings document.
func (s *Settings) Watch(listener binding.Listener[map[string]any]) *binding.Document {
	return binding.NewDocument(s.store, docstore.CollectionSiteSettings, docstore.SiteSettingsID, listener)
}
