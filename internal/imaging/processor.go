// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging prepares uploaded images for publishing: EXIF orientation
// is applied and oversized images are scaled down.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Image MIME types.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

// DefaultQuality is the JPEG quality of re-encoded images.
const DefaultQuality = 90

// ErrUnsupportedFormat is returned for data that is not a supported image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Result is a prepared image.
type Result struct {
	Data     []byte
	MimeType string
	Ext      string
	Width    int
	Height   int
}

// Normalize decodes data, applies its EXIF orientation and fits it within
// maxEdge pixels on the longer side. A maxEdge of zero keeps the size.
// GIFs are returned unchanged to keep animation. WebP input is re-encoded
// as JPEG.
func Normalize(data []byte, maxEdge int) (*Result, error) {
	format := detectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	if format == "gif" {
		cfg, err := gif.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		return &Result{Data: data, MimeType: MimeTypeGIF, Ext: outputs[format].ext, Width: cfg.Width, Height: cfg.Height}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Read EXIF orientation and auto-rotate
	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	if maxEdge > 0 {
		b := img.Bounds()
		if b.Dx() > maxEdge || b.Dy() > maxEdge {
			img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
		}
	}

	// Encode without EXIF (pure Go encoders don't preserve EXIF metadata)
	out, err := encodeImage(img, format, DefaultQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := img.Bounds()
	return &Result{
		Data:     out,
		MimeType: outputs[format].mime,
		Ext:      outputs[format].ext,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// IsImage reports whether Normalize accepts mimeType.
func IsImage(mimeType string) bool {
	switch mimeType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return true
	}
	return false
}

// DetectMimeType detects the MIME type of data.
func DetectMimeType(data []byte) string {
	contentType := http.DetectContentType(data)
	// http.DetectContentType returns types like "text/plain; charset=utf-8"
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return contentType
}

// readExifOrientation returns the EXIF orientation of an image, 1 when
// it has none.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	if orientation, err := tag.Int(0); err == nil {
		return orientation
	}
	return 1
}

// applyOrientation applies an EXIF orientation value (1 to 8) to img.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encodeImage encodes img in format. WebP has no pure Go encoder and
// becomes JPEG.
func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// outputs maps a decoded format to the type it is published as.
var outputs = map[string]struct{ mime, ext string }{
	"jpeg": {MimeTypeJPEG, ".jpg"},
	"png":  {MimeTypePNG, ".png"},
	"gif":  {MimeTypeGIF, ".gif"},
	"webp": {MimeTypeJPEG, ".jpg"},
}

// detectFormat returns the decoder name of data, or "" for anything that
// is not a supported image. TIFF is never accepted (CVE-2023-36308 in
// disintegration/imaging).
func detectFormat(data []byte) string {
	switch DetectMimeType(data) {
	case MimeTypeJPEG:
		return "jpeg"
	case MimeTypePNG:
		return "png"
	case MimeTypeGIF:
		return "gif"
	case MimeTypeWebP:
		return "webp"
	}
	return ""
}
