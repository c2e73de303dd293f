// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown renders GitHub flavoured markdown. Raw HTML in the source is
// passed through and removed by the sanitizer.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// htmlSanitizer allows the safe tag set of user generated content.
var htmlSanitizer = bluemonday.UGCPolicy()

// RenderMarkdown converts a blog body to sanitised HTML.
func RenderMarkdown(source string) (template.HTML, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(htmlSanitizer.SanitizeBytes(buf.Bytes())), nil //nolint:gosec // sanitized by bluemonday
}

// Excerpt returns the first n runes of text on a word boundary, with an
// ellipsis when shortened.
func Excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, ",.;:") + "…"
}
