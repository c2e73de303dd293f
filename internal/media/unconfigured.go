// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"context"
	"log/slog"

	"github.com/olegiv/corpsite/internal/config"
)

// ErrNotConfigured is wrapped by every upload of an Unconfigured uploader.
var ErrNotConfigured error = &config.ConfigurationError{
	Component: "media upload",
	Hint:      "set CORPSITE_MEDIA_CLOUD_NAME and CORPSITE_MEDIA_UPLOAD_PRESET, or CORPSITE_S3_BUCKET",
}

// Unconfigured rejects every upload.
type Unconfigured struct {
	logger *slog.Logger
}

// NewUnconfigured returns an uploader that fails with ErrNotConfigured.
func NewUnconfigured(logger *slog.Logger) *Unconfigured {
	if logger == nil {
		logger = slog.Default()
	}
	return &Unconfigured{logger: logger}
}

// Upload implements Uploader.
func (u *Unconfigured) Upload(_ context.Context, file File, folder string) (string, error) {
	u.logger.Warn("media upload is not configured", "folder", folder, "file", file.Name)
	return "", &UploadError{Folder: folder, Err: ErrNotConfigured}
}
