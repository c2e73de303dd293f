// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/olegiv/corpsite/internal/content"
	"github.com/olegiv/corpsite/internal/editor"
	"github.com/olegiv/corpsite/internal/imaging"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/middleware"
	"github.com/olegiv/corpsite/internal/util"
)

// MaxUploadSize bounds a multipart form with its files.
const MaxUploadSize = 10 << 20

// parseForm parses urlencoded and multipart bodies alike.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(MaxUploadSize)
	}
	return r.ParseForm()
}

// formFile reads the file uploaded as field. It returns nil when no file
// was chosen.
func formFile(r *http.Request, field string) (*media.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", field, err)
	}
	defer func() { _ = file.Close() }()
	return readFile(file, header)
}

func readFile(file multipart.File, header *multipart.FileHeader) (*media.File, error) {
	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", header.Filename, err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("%s exceeds the upload limit", header.Filename)
	}
	if len(data) == 0 {
		return nil, nil
	}
	name, err := util.SanitizeFilename(header.Filename)
	if err != nil {
		name = "upload"
	}
	return &media.File{
		Name:        name,
		ContentType: imaging.DetectMimeType(data),
		Data:        data,
	}, nil
}

// editorInput collects the schema fields of a submitted form and its files.
func editorInput(r *http.Request, schema editor.Schema) (editor.Input, error) {
	in := editor.Input{
		Values: make(map[string]string, len(schema.Fields)),
		Files:  make(map[string]media.File),
	}
	for _, f := range schema.Fields {
		if values, ok := r.PostForm[f.Name]; ok && len(values) > 0 {
			in.Values[f.Name] = values[0]
		}
	}
	for _, name := range schema.ImageFields() {
		file, err := formFile(r, name)
		if err != nil {
			return in, err
		}
		if file != nil {
			in.Files[name] = *file
		}
	}
	return in, nil
}

// requestMeta describes the submitter of a public form.
func requestMeta(r *http.Request) content.Meta {
	return content.Meta{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// safeNext returns next if it is a local path, fallback otherwise.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
