// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/corpsite/internal/binding"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/editor"
	"github.com/olegiv/corpsite/internal/util"
)

// Public listing sizes.
const (
	homeServices = 3
	homeProjects = 3
	homePosts    = 3
	blogPerPage  = 9
)

// HomeData is the home page.
type HomeData struct {
	Sliders  []map[string]any
	Services []map[string]any
	Projects []map[string]any
	Posts    []map[string]any
}

// Home handles GET /.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := HomeData{
		Sliders:  h.listing(ctx, docstore.CollectionSliders, 0),
		Services: h.listing(ctx, docstore.CollectionServices, homeServices),
		Projects: h.listing(ctx, docstore.CollectionProjects, homeProjects),
		Posts:    h.listing(ctx, docstore.CollectionBlogPosts, homePosts),
	}
	h.render(w, r, http.StatusOK, "pages/home", h.page(r, "Home", data))
}

// About handles GET /about.
func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	team := h.listing(r.Context(), docstore.CollectionTeam, 0)
	h.render(w, r, http.StatusOK, "pages/about", h.page(r, "About us", team))
}

// Services handles GET /services.
func (h *Handler) Services(w http.ResponseWriter, r *http.Request) {
	services := h.listing(r.Context(), docstore.CollectionServices, 0)
	h.render(w, r, http.StatusOK, "pages/services", h.page(r, "Services", services))
}

// Team handles GET /team.
func (h *Handler) Team(w http.ResponseWriter, r *http.Request) {
	team := h.listing(r.Context(), docstore.CollectionTeam, 0)
	h.render(w, r, http.StatusOK, "pages/team", h.page(r, "Our team", team))
}

// Portfolio handles GET /portfolio.
func (h *Handler) Portfolio(w http.ResponseWriter, r *http.Request) {
	projects := h.listing(r.Context(), docstore.CollectionProjects, 0)
	h.render(w, r, http.StatusOK, "pages/portfolio", h.page(r, "Portfolio", projects))
}

// BlogData is one page of the blog listing.
type BlogData struct {
	Posts      []map[string]any
	Pagination Pagination
}

// Blog handles GET /blog.
func (h *Handler) Blog(w http.ResponseWriter, r *http.Request) {
	posts := h.listing(r.Context(), docstore.CollectionBlogPosts, 0)
	p := BuildPagination(pageParam(r), len(posts), blogPerPage, r.URL.Path, r.URL.Query())
	data := BlogData{Posts: paginate(posts, p), Pagination: p}
	h.render(w, r, http.StatusOK, "pages/blog", h.page(r, "Blog", data))
}

// Post handles GET /blog/{slug}. Posts are found by slug, then by id.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	ctx := r.Context()

	var posts []map[string]any
	if util.IsValidSlug(slug) {
		var err error
		posts, err = h.snapshot(ctx, docstore.CollectionBlogPosts, binding.Config{
			Filters: []docstore.Filter{{Field: editor.FieldSlug, Value: slug}},
			Limit:   1,
		})
		if err != nil {
			h.logger.Warn("blog post lookup failed", "slug", slug, "error", err)
		}
	}
	var post map[string]any
	if len(posts) > 0 {
		post = posts[0]
	} else if doc, err := h.store.Get(ctx, docstore.CollectionBlogPosts, slug); err == nil {
		post = doc.Map()
	} else if !errors.Is(err, docstore.ErrNotFound) {
		h.logger.Warn("blog post lookup failed", "id", slug, "error", err)
	}

	if post == nil {
		h.NotFound(w, r)
		return
	}
	title, _ := post["title"].(string)
	h.render(w, r, http.StatusOK, "pages/post", h.page(r, title, post))
}
