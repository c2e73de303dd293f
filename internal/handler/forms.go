// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"slices"

	"github.com/olegiv/corpsite/internal/content"
	"github.com/olegiv/corpsite/internal/editor"
)

// FormErrors wraps a failed submission for templates.
type FormErrors struct {
	Err        error
	validation *editor.ValidationError
}

func newFormErrors(err error) FormErrors {
	fe := FormErrors{Err: err}
	errors.As(err, &fe.validation)
	return fe
}

// For returns the message for field, or "".
func (f FormErrors) For(field string) string {
	if f.validation == nil {
		return ""
	}
	return f.validation.For(field)
}

// Summary is the banner text of a failed submission.
func (f FormErrors) Summary() string {
	if f.Err == nil {
		return ""
	}
	if f.validation != nil {
		return "Please correct the highlighted fields."
	}
	return userMessage(f.Err)
}

// ContactData is the contact page.
type ContactData struct {
	Form   content.ContactForm
	Errors FormErrors
}

// Contact handles GET /contact.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/contact", h.page(r, "Contact us", ContactData{}))
}

// SubmitContact handles POST /contact.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, "/contact", "Invalid form data")
		return
	}
	form := content.ContactForm{
		FullName: r.PostFormValue("fullName"),
		Email:    r.PostFormValue("email"),
		Company:  r.PostFormValue("company"),
		Message:  r.PostFormValue("message"),
	}

	if _, err := h.inbox.SubmitContact(r.Context(), form, requestMeta(r)); err != nil {
		h.logger.Info("contact form rejected", "error", err)
		data := ContactData{Form: form, Errors: newFormErrors(err)}
		h.render(w, r, statusFor(err), "pages/contact", h.page(r, "Contact us", data))
		return
	}

	flashSuccess(w, r, h.renderer, "/contact", "Thank you! Your message has been sent.")
}

// ApplyField is one input of the apply form. Type is an input type,
// "textarea", or "select" when Options are set.
type ApplyField struct {
	Name     string
	Label    string
	Type     string
	Optional bool
	Options  []string
}

// ApplySection groups apply form fields under a heading.
type ApplySection struct {
	Title  string
	Fields []ApplyField
}

func applySections() []ApplySection {
	return []ApplySection{
		{Title: "Personal details", Fields: []ApplyField{
			{Name: "fullName", Label: "Full name", Type: "text"},
			{Name: "fatherName", Label: "Father's name", Type: "text"},
			{Name: "email", Label: "Email", Type: "email"},
			{Name: "phone", Label: "Phone", Type: "tel"},
			{Name: "whatsapp", Label: "WhatsApp", Type: "tel", Optional: true},
			{Name: "cnic", Label: "CNIC", Type: "text"},
			{Name: "dob", Label: "Date of birth", Type: "date"},
			{Name: "gender", Label: "Gender", Type: "select", Options: []string{"Male", "Female", "Other"}},
			{Name: "city", Label: "City", Type: "text"},
			{Name: "address", Label: "Address", Type: "textarea"},
		}},
		{Title: "Education", Fields: []ApplyField{
			{Name: "educationDegree", Label: "Degree", Type: "text"},
			{Name: "educationInstitute", Label: "Institute", Type: "text"},
			{Name: "educationYear", Label: "Graduation year", Type: "number"},
		}},
		{Title: "Experience", Fields: []ApplyField{
			{Name: "experienceYears", Label: "Years of experience", Type: "number"},
			{Name: "previousCompany", Label: "Previous company", Type: "text", Optional: true},
			{Name: "role", Label: "Current or last role", Type: "text"},
			{Name: "responsibilities", Label: "Key responsibilities", Type: "textarea"},
		}},
		{Title: "Position", Fields: []ApplyField{
			{Name: "position", Label: "Position", Type: "select", Options: content.Positions},
			{Name: "expectedSalary", Label: "Expected salary", Type: "text"},
			{Name: "availability", Label: "Availability", Type: "select", Options: content.Availability},
			{Name: "jobType", Label: "Job type", Type: "select", Options: content.JobTypes},
		}},
		{Title: "About you", Fields: []ApplyField{
			{Name: "shortBio", Label: "Short bio", Type: "textarea"},
			{Name: "portfolioLink", Label: "Portfolio", Type: "url", Optional: true},
			{Name: "githubLink", Label: "GitHub", Type: "url", Optional: true},
			{Name: "linkedinLink", Label: "LinkedIn", Type: "url", Optional: true},
		}},
	}
}

// ApplyData is the job application page.
type ApplyData struct {
	Sections     []ApplySection
	Values       map[string]string
	Skills       []string
	SkillOptions []string
	Errors       FormErrors
}

// Value returns the submitted text of field.
func (a ApplyData) Value(field string) string {
	return a.Values[field]
}

// HasSkill reports whether skill was picked.
func (a ApplyData) HasSkill(skill string) bool {
	return slices.Contains(a.Skills, skill)
}

func newApplyData(values map[string]string, skills []string, err error) ApplyData {
	if values == nil {
		values = map[string]string{}
	}
	return ApplyData{
		Sections:     applySections(),
		Values:       values,
		Skills:       skills,
		SkillOptions: content.Skills,
		Errors:       newFormErrors(err),
	}
}

// Apply handles GET /apply.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	data := newApplyData(map[string]string{"position": r.URL.Query().Get("position")}, nil, nil)
	h.render(w, r, http.StatusOK, "pages/apply", h.page(r, "Careers", data))
}

// SubmitApplication handles POST /apply.
func (h *Handler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		flashError(w, r, h.renderer, "/apply", "Invalid form data")
		return
	}

	values := make(map[string]string, len(r.PostForm))
	for name, v := range r.PostForm {
		if name != "skills" && len(v) > 0 {
			values[name] = v[0]
		}
	}
	skills := r.PostForm["skills"]

	cv, err := formFile(r, "cvFile")
	if err == nil {
		_, err = h.inbox.SubmitApplication(r.Context(), values, skills, cv, requestMeta(r))
	}
	if err != nil {
		h.logger.Info("application rejected", "error", err)
		data := newApplyData(values, skills, err)
		h.render(w, r, statusFor(err), "pages/apply", h.page(r, "Careers", data))
		return
	}

	flashSuccess(w, r, h.renderer, "/apply", "Thank you! Your application has been received.")
}
