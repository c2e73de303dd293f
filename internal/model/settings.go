// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/corpsite/internal/docstore"
)

// Stat is one homepage figure, e.g. "120+" "Projects delivered".
type Stat struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Link is a labelled URL.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// SocialLinks are the company's social profiles.
type SocialLinks struct {
	Facebook string `json:"facebook"`
	Twitter  string `json:"twitter"`
	LinkedIn string `json:"linkedin"`
}

// SiteSettings is the singleton document siteSettings/global.
type SiteSettings struct {
	Tagline      string      `json:"tagline"`
	AboutIntro   string      `json:"aboutIntro"`
	AboutSnippet string      `json:"aboutSnippet"`
	Mission      string      `json:"mission"`
	Vision       string      `json:"vision"`
	CTAText      string      `json:"ctaText"`
	Address      string      `json:"address"`
	Phone        string      `json:"phone"`
	Email        string      `json:"email"`
	LogoURL      string      `json:"logoUrl"`
	Stats        []Stat      `json:"stats"`
	QuickLinks   []Link      `json:"quickLinks"`
	SocialLinks  SocialLinks `json:"socialLinks"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// SettingsFromDocument reads the settings document.
func SettingsFromDocument(doc docstore.Document) SiteSettings {
	s := SiteSettings{
		Tagline:      doc.String("tagline"),
		AboutIntro:   doc.String("aboutIntro"),
		AboutSnippet: doc.String("aboutSnippet"),
		Mission:      doc.String("mission"),
		Vision:       doc.String("vision"),
		CTAText:      doc.String("ctaText"),
		Address:      doc.String("address"),
		Phone:        doc.String("phone"),
		Email:        doc.String("email"),
		LogoURL:      doc.String("logoUrl"),
	}
	for _, item := range objects(doc.Data["stats"]) {
		s.Stats = append(s.Stats, Stat{Value: str(item["value"]), Label: str(item["label"])})
	}
	for _, item := range objects(doc.Data["quickLinks"]) {
		s.QuickLinks = append(s.QuickLinks, Link{Label: str(item["label"]), URL: str(item["url"])})
	}
	if social, ok := doc.Data["socialLinks"].(map[string]any); ok {
		s.SocialLinks = SocialLinks{
			Facebook: str(social["facebook"]),
			Twitter:  str(social["twitter"]),
			LinkedIn: str(social["linkedin"]),
		}
	}
	s.UpdatedAt, _ = doc.Time(docstore.FieldUpdatedAt)
	return s
}

// Fields returns the document fields of s, without timestamps.
func (s SiteSettings) Fields() map[string]any {
	stats := make([]any, 0, len(s.Stats))
	for _, st := range s.Stats {
		stats = append(stats, map[string]any{"value": st.Value, "label": st.Label})
	}
	links := make([]any, 0, len(s.QuickLinks))
	for _, l := range s.QuickLinks {
		links = append(links, map[string]any{"label": l.Label, "url": l.URL})
	}
	fields := map[string]any{
		"tagline":      s.Tagline,
		"aboutIntro":   s.AboutIntro,
		"aboutSnippet": s.AboutSnippet,
		"mission":      s.Mission,
		"vision":       s.Vision,
		"ctaText":      s.CTAText,
		"address":      s.Address,
		"phone":        s.Phone,
		"email":        s.Email,
		"stats":        stats,
		"quickLinks":   links,
		"socialLinks": map[string]any{
			"facebook": s.SocialLinks.Facebook,
			"twitter":  s.SocialLinks.Twitter,
			"linkedin": s.SocialLinks.LinkedIn,
		},
	}
	if s.LogoURL != "" {
		fields["logoUrl"] = s.LogoURL
	}
	return fields
}

// ParseStats reads one "value|label" pair per line. Incomplete lines are
// skipped.
func ParseStats(text string) []Stat {
	var out []Stat
	for _, pair := range parsePairs(text) {
		out = append(out, Stat{Value: pair[0], Label: pair[1]})
	}
	return out
}

// FormatStats is the inverse of ParseStats.
func FormatStats(stats []Stat) string {
	lines := make([]string, len(stats))
	for i, st := range stats {
		lines[i] = fmt.Sprintf("%s|%s", st.Value, st.Label)
	}
	return strings.Join(lines, "\n")
}

// ParseLinks reads one "label|url" pair per line. Incomplete lines are
// skipped.
func ParseLinks(text string) []Link {
	var out []Link
	for _, pair := range parsePairs(text) {
		out = append(out, Link{Label: pair[0], URL: pair[1]})
	}
	return out
}

// FormatLinks is the inverse of ParseLinks.
func FormatLinks(links []Link) string {
	lines := make([]string, len(links))
	for i, l := range links {
		lines[i] = fmt.Sprintf("%s|%s", l.Label, l.URL)
	}
	return strings.Join(lines, "\n")
}

func parsePairs(text string) [][2]string {
	var out [][2]string
	for line := range strings.SplitSeq(text, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}
		a, b := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if a == "" || b == "" {
			continue
		}
		out = append(out, [2]string{a, b})
	}
	return out
}

func objects(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
