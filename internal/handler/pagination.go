// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Pagination holds pagination data for list templates.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int
	PerPage     int
	HasPrev     bool
	HasNext     bool
	PrevPage    int
	NextPage    int
	Pages       []PaginationPage
	BaseURL     string
	QueryString string
}

// PaginationPage represents a single page link.
type PaginationPage struct {
	Number     int
	URL        string
	IsCurrent  bool
	IsEllipsis bool
}

// CalculateTotalPages returns the number of pages, at least 1.
func CalculateTotalPages(totalItems, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	pages := (totalItems + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage keeps page within [1, totalPages].
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// pageParam reads the "page" query parameter, defaulting to 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// BuildPagination creates pagination data. baseURL is the path without
// query string; queryParams are preserved except "page".
func BuildPagination(currentPage, totalItems, perPage int, baseURL string, queryParams url.Values) Pagination {
	totalPages := CalculateTotalPages(totalItems, perPage)
	currentPage = ClampPage(currentPage, totalPages)

	p := Pagination{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
		PerPage:     perPage,
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
		PrevPage:    currentPage - 1,
		NextPage:    currentPage + 1,
		BaseURL:     baseURL,
	}

	// Build query string without page parameter
	params := make(url.Values)
	for k, v := range queryParams {
		if k != "page" && len(v) > 0 && v[0] != "" {
			params[k] = v
		}
	}
	if len(params) > 0 {
		p.QueryString = params.Encode()
	}

	// Show max 5 pages around current with ellipsis
	start := max(currentPage-2, 1)
	end := min(start+4, totalPages)
	start = max(end-4, 1)

	if start > 1 {
		p.Pages = append(p.Pages, PaginationPage{Number: 1, URL: p.PageURL(1)})
		if start > 2 {
			p.Pages = append(p.Pages, PaginationPage{IsEllipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, PaginationPage{Number: i, URL: p.PageURL(i), IsCurrent: i == currentPage})
	}
	if end < totalPages {
		if end < totalPages-1 {
			p.Pages = append(p.Pages, PaginationPage{IsEllipsis: true})
		}
		p.Pages = append(p.Pages, PaginationPage{Number: totalPages, URL: p.PageURL(totalPages)})
	}

	return p
}

// PageURL returns the URL for a specific page number.
func (p Pagination) PageURL(page int) string {
	if p.QueryString != "" {
		return fmt.Sprintf("%s?%s&page=%d", p.BaseURL, p.QueryString, page)
	}
	return fmt.Sprintf("%s?page=%d", p.BaseURL, page)
}

// PrevURL returns the URL for the previous page.
func (p Pagination) PrevURL() string {
	return p.PageURL(p.PrevPage)
}

// NextURL returns the URL for the next page.
func (p Pagination) NextURL() string {
	return p.PageURL(p.NextPage)
}

// ShouldShow returns true if pagination should be displayed (more than 1 page).
func (p Pagination) ShouldShow() bool {
	return p.TotalPages > 1
}

// paginate returns the items of the current page.
func paginate[T any](items []T, p Pagination) []T {
	start := (p.CurrentPage - 1) * p.PerPage
	if start >= len(items) {
		return []T{}
	}
	end := min(start+p.PerPage, len(items))
	return items[start:end]
}
