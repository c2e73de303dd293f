// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/docstore"
)

func TestHomeShowsContentAndSettings(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Set(context.Background(), docstore.CollectionSiteSettings, docstore.SiteSettingsID,
		map[string]any{"tagline": "Software that ships", "aboutSnippet": "We build things."}))
	env.add(docstore.CollectionSliders, map[string]any{"title": "Welcome aboard", "ctaLink": "/contact"})
	env.add(docstore.CollectionServices, map[string]any{"title": "Cloud migration", "description": "Lift and shift"})
	env.add(docstore.CollectionProjects, map[string]any{"title": "Harbor portal", "summary": "Logistics"})

	resp, body := env.get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome aboard")
	assert.Contains(t, body, "Get in touch")
	assert.Contains(t, body, "Cloud migration")
	assert.Contains(t, body, "Harbor portal")
	assert.Contains(t, body, "We build things.")
	assert.Contains(t, body, `data-live="homepageSliders"`)
}

func TestHomeShowsServicesByPriority(t *testing.T) {
	env := newTestEnv(t)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= homeServices+2; i++ {
		env.add(docstore.CollectionServices, map[string]any{
			"title":                 fmt.Sprintf("Service P%d", i),
			"priority":              i,
			docstore.FieldCreatedAt: created.Add(time.Duration(i) * time.Minute),
		})
	}

	_, body := env.get("/")
	for i := 1; i <= homeServices; i++ {
		assert.Contains(t, body, fmt.Sprintf("Service P%d", i))
	}
	assert.NotContains(t, body, fmt.Sprintf("Service P%d", homeServices+1))

	_, body = env.get("/services")
	first := strings.Index(body, "Service P1")
	last := strings.Index(body, fmt.Sprintf("Service P%d", homeServices+2))
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, last)
	assert.Less(t, first, last)
}

func TestPublicOrdering(t *testing.T) {
	env := newTestEnv(t)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)
	env.add(docstore.CollectionSliders, map[string]any{"title": "Second slide", "order": 2, docstore.FieldCreatedAt: created})
	env.add(docstore.CollectionSliders, map[string]any{"title": "First slide", "order": 1, docstore.FieldCreatedAt: later})
	env.add(docstore.CollectionTeam, map[string]any{"name": "Second member", "role": "Dev", "order": 2, docstore.FieldCreatedAt: created})
	env.add(docstore.CollectionTeam, map[string]any{"name": "First member", "role": "CEO", "order": 1, docstore.FieldCreatedAt: later})
	env.add(docstore.CollectionBlogPosts, map[string]any{"title": "Old news", "publishedAt": created, docstore.FieldCreatedAt: later})
	env.add(docstore.CollectionBlogPosts, map[string]any{"title": "Fresh news", "publishedAt": later, docstore.FieldCreatedAt: created})

	before := func(body, a, b string) {
		t.Helper()
		ia, ib := strings.Index(body, a), strings.Index(body, b)
		require.NotEqual(t, -1, ia, a)
		require.NotEqual(t, -1, ib, b)
		assert.Less(t, ia, ib, "%s before %s", a, b)
	}

	_, body := env.get("/")
	before(body, "First slide", "Second slide")
	_, body = env.get("/team")
	before(body, "First member", "Second member")
	_, body = env.get("/blog")
	before(body, "Fresh news", "Old news")
}

func TestPublicPagesRender(t *testing.T) {
	env := newTestEnv(t)
	env.add(docstore.CollectionTeam, map[string]any{"name": "Grace Hopper", "role": "CTO"})
	env.add(docstore.CollectionProjects, map[string]any{"title": "Compiler"})

	tests := []struct {
		path string
		want string
	}{
		{"/about", "Grace Hopper"},
		{"/team", "Grace Hopper"},
		{"/services", "Services"},
		{"/portfolio", "Compiler"},
		{"/blog", "No posts yet."},
		{"/contact", `name="fullName"`},
		{"/apply", `name="cvFile"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := env.get(tt.path)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, tt.want)
			assert.Contains(t, body, testSiteName)
		})
	}
}

func TestBlogPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= blogPerPage+1; i++ {
		env.add(docstore.CollectionBlogPosts, map[string]any{
			"title":       fmt.Sprintf("Post %02d", i),
			"slug":        fmt.Sprintf("post-%02d", i),
			"publishedAt": fmt.Sprintf("2025-01-%02dT10:00:00Z", i),
		})
	}

	_, first := env.get("/blog")
	_, second := env.get("/blog?page=2")
	assert.Contains(t, first, `href="/blog?page=2"`)

	count := func(body string) (n int) {
		for i := 1; i <= blogPerPage+1; i++ {
			if strings.Contains(body, fmt.Sprintf(">Post %02d<", i)) {
				n++
			}
		}
		return n
	}
	assert.Equal(t, blogPerPage, count(first))
	assert.Equal(t, 1, count(second))
}

func TestPostBySlugAndID(t *testing.T) {
	env := newTestEnv(t)
	id := env.add(docstore.CollectionBlogPosts, map[string]any{
		"title": "Hello world",
		"slug":  "hello-world",
		"body":  "Some **bold** text",
	})

	resp, body := env.get("/blog/hello-world")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<strong>bold</strong>")

	resp, body = env.get("/blog/" + id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Hello world")

	resp, body = env.get("/blog/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Page not found")
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get("/nowhere")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Page not found")
}

func TestPublicPagesWithoutBackend(t *testing.T) {
	env := newTestEnv(t, withStore(docstore.Unconfigured{}))

	resp, body := env.get("/services")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "pages render empty without a store")
	assert.Contains(t, body, testSiteName)
}
