// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// DefaultCloudinaryEndpoint is the base URL of the upload API.
const DefaultCloudinaryEndpoint = "https://api.cloudinary.com/v1_1"

// maxResponseSize limits the upload API response read into memory.
const maxResponseSize = 1 << 20

// Cloudinary uploads through an unsigned upload preset.
type Cloudinary struct {
	CloudName string
	Preset    string
	Endpoint  string
	Client    *http.Client
}

// NewCloudinary returns an uploader for the account cloudName.
func NewCloudinary(cloudName, preset string) *Cloudinary {
	return &Cloudinary{
		CloudName: cloudName,
		Preset:    preset,
		Endpoint:  DefaultCloudinaryEndpoint,
		Client:    &http.Client{Timeout: 60 * time.Second},
	}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload implements Uploader. The returned URL is the secure URL of the
// stored asset.
func (c *Cloudinary) Upload(ctx context.Context, file File, folder string) (string, error) {
	u, err := c.upload(ctx, file, folder)
	if err != nil {
		return "", &UploadError{Folder: folder, Err: err}
	}
	return u, nil
}

func (c *Cloudinary) upload(ctx context.Context, file File, folder string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", file.Name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return "", err
	}
	if err := w.WriteField("upload_preset", c.Preset); err != nil {
		return "", err
	}
	if folder != "" {
		if err := w.WriteField("folder", folder); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/upload", c.Endpoint, url.PathEscape(c.CloudName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", err
	}
	var out cloudinaryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unexpected response (status %d)", resp.StatusCode)
	}
	if out.Error != nil && out.Error.Message != "" {
		return "", errors.New(out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out.SecureURL == "" {
		return "", errors.New("response has no secure_url")
	}
	return out.SecureURL, nil
}
