// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media uploads files to the configured media host and returns
// their public URLs.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/olegiv/corpsite/internal/config"
	"github.com/olegiv/corpsite/internal/imaging"
)

// File is an uploaded file.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader stores a file in folder and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file File, folder string) (string, error)
}

// UploadError reports a failed upload.
type UploadError struct {
	Folder string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload to %q failed: %v", e.Folder, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// New returns the uploader selected by cfg: the upload preset host when
// configured, then S3, otherwise Unconfigured. Images are normalised before
// they are sent.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Uploader, error) {
	var up Uploader
	switch {
	case cfg.CloudinaryEnabled():
		up = NewCloudinary(cfg.MediaCloudName, cfg.MediaUploadPreset)
	case cfg.S3Enabled():
		s3up, err := NewS3(ctx, S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			BaseEndpoint: cfg.S3BaseEndpoint,
			PublicURL:    cfg.S3PublicURL,
		})
		if err != nil {
			return nil, err
		}
		up = s3up
	default:
		return NewUnconfigured(logger), nil
	}
	return &Normalizing{Next: up, MaxEdge: cfg.MediaMaxEdge, Logger: logger}, nil
}

// Normalizing prepares images before handing them to Next. Other files
// pass through unchanged.
type Normalizing struct {
	Next    Uploader
	MaxEdge int
	Logger  *slog.Logger
}

// Upload implements Uploader.
func (n *Normalizing) Upload(ctx context.Context, file File, folder string) (string, error) {
	prepared, err := Prepare(file, n.MaxEdge)
	if err != nil {
		return "", &UploadError{Folder: folder, Err: err}
	}
	url, err := n.Next.Upload(ctx, prepared, folder)
	if err != nil {
		if n.Logger != nil {
			n.Logger.Error("media upload failed", "error", err, "folder", folder, "file", file.Name)
		}
		return "", err
	}
	return url, nil
}

// Prepare normalises image files: EXIF orientation is applied and the
// longer edge is limited to maxEdge. The file name extension follows the
// output format.
func Prepare(file File, maxEdge int) (File, error) {
	mimeType := file.ContentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = imaging.DetectMimeType(file.Data)
	}
	if !imaging.IsImage(mimeType) {
		return file, nil
	}

	res, err := imaging.Normalize(file.Data, maxEdge)
	if err != nil {
		return File{}, err
	}
	name := strings.TrimSuffix(file.Name, path.Ext(file.Name)) + res.Ext
	return File{Name: name, ContentType: res.MimeType, Data: res.Data}, nil
}
