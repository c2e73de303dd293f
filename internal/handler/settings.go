// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strings"

	"github.com/olegiv/corpsite/internal/model"
)

// SettingsData is the site settings form. Stats and quick links are edited
// as "value|label" and "label|url" lines.
type SettingsData struct {
	Settings  model.SiteSettings
	StatsText string
	LinksText string
	Errors    FormErrors
}

func newSettingsData(s model.SiteSettings, statsText, linksText string, err error) SettingsData {
	return SettingsData{Settings: s, StatsText: statsText, LinksText: linksText, Errors: newFormErrors(err)}
}

// SettingsForm handles GET /admin/settings.
func (h *Handler) SettingsForm(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Load(r.Context())
	data := newSettingsData(s, model.FormatStats(s.Stats), model.FormatLinks(s.QuickLinks), err)
	h.render(w, r, http.StatusOK, "admin/settings", h.page(r, "Site settings", data))
}

// SaveSettings handles POST /admin/settings. A new logo is uploaded before
// the settings are written.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, "/admin/settings", "Invalid form data")
		return
	}
	field := func(name string) string { return strings.TrimSpace(r.PostFormValue(name)) }

	statsText := r.PostFormValue("stats")
	linksText := r.PostFormValue("quickLinks")
	s := model.SiteSettings{
		Tagline:      field("tagline"),
		AboutIntro:   field("aboutIntro"),
		AboutSnippet: field("aboutSnippet"),
		Mission:      field("mission"),
		Vision:       field("vision"),
		CTAText:      field("ctaText"),
		Address:      field("address"),
		Phone:        field("phone"),
		Email:        field("email"),
		LogoURL:      field("logoUrl"),
		Stats:        model.ParseStats(statsText),
		QuickLinks:   model.ParseLinks(linksText),
		SocialLinks: model.SocialLinks{
			Facebook: field("facebook"),
			Twitter:  field("twitter"),
			LinkedIn: field("linkedin"),
		},
	}

	logo, err := formFile(r, "logo")
	if err == nil {
		_, err = h.settings.Save(r.Context(), s, logo)
	}
	if err != nil {
		h.logger.Error("site settings not saved", "error", err, "category", "config")
		data := newSettingsData(s, statsText, linksText, err)
		h.render(w, r, statusFor(err), "admin/settings", h.page(r, "Site settings", data))
		return
	}
	flashSuccess(w, r, h.renderer, "/admin/settings", "Settings saved.")
}
