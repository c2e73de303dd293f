// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/editor"
)

func TestSubmitContact(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post("/contact", url.Values{
		"fullName": {"Ada Lovelace"},
		"email":    {"ada@example.com"},
		"company":  {"Analytical Engines"},
		"message":  {"Please call me back."},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/contact", resp.Header.Get("Location"))

	_, body := env.follow(resp)
	assert.Contains(t, body, "Thank you! Your message has been sent.")

	docs, err := env.store.Query(context.Background(), docstore.Query{Collection: docstore.CollectionContactMessages})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Ada Lovelace", docs[0].String("fullName"))
	assert.Equal(t, "new", docs[0].String("status"))
}

func TestSubmitContactValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post("/contact", url.Values{
		"fullName": {"Ada"},
		"email":    {"not-an-email"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Please correct the highlighted fields.")
	assert.Contains(t, body, "Enter a valid email")
	assert.Contains(t, body, "This field is required")
	assert.Contains(t, body, `value="Ada"`, "submitted values are kept")

	docs, err := env.store.Query(context.Background(), docstore.Query{Collection: docstore.CollectionContactMessages})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSubmitContactWithoutBackend(t *testing.T) {
	env := newTestEnv(t, withStore(docstore.Unconfigured{}))

	resp, body := env.post("/contact", url.Values{
		"fullName": {"Ada"},
		"email":    {"ada@example.com"},
		"message":  {"Hello"},
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "The site backend is not available")
}

func applicationValues() url.Values {
	v := url.Values{}
	for name, value := range map[string]string{
		"fullName": "Grace Hopper", "fatherName": "Walter Murray", "email": "grace@example.com",
		"phone": "03001234567", "cnic": "12345-1234567-1", "dob": "1990-12-09", "gender": "Female",
		"city": "Lahore", "address": "1 Navy Way", "educationDegree": "PhD",
		"educationInstitute": "Yale", "educationYear": "2014", "experienceYears": "8",
		"role": "Engineer", "responsibilities": "Compilers", "position": "Backend Engineer",
		"expectedSalary": "200000", "availability": "Immediate", "shortBio": "Likes bugs.",
		"jobType": "Full-time",
	} {
		v.Set(name, value)
	}
	v.Add("skills", "Go")
	v.Add("skills", "SQL")
	return v
}

func TestSubmitApplication(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.postMultipart("/apply", applicationValues(),
		upload{field: "cvFile", name: "cv.pdf", data: pdfSignature + "resume"})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body := env.follow(resp)
	assert.Contains(t, body, "Your application has been received.")
	assert.Equal(t, 1, env.uploader.count())

	docs, err := env.store.Query(context.Background(), docstore.Query{Collection: docstore.CollectionApplications})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "https://cdn.example.com/applications/cv.pdf", docs[0].String("cvUrl"))
	assert.Equal(t, []any{"Go", "SQL"}, docs[0].Data["skills"])
}

func TestSubmitApplicationValidation(t *testing.T) {
	env := newTestEnv(t)
	values := applicationValues()
	values.Del("skills")
	values.Set("phone", "123")

	resp, body := env.postMultipart("/apply", values,
		upload{field: "cvFile", name: "cv.txt", data: "plain text"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Select at least one skill")
	assert.Contains(t, body, "Enter a valid phone number")
	assert.Contains(t, body, "Please upload an image (JPG, PNG, GIF, WebP) or a PDF")
	assert.Contains(t, body, `value="Grace Hopper"`)
	assert.Zero(t, env.uploader.count(), "nothing is uploaded for an invalid form")
}

func TestSubmitApplicationUploadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.uploader.err = errors.New("bucket unavailable")

	resp, body := env.postMultipart("/apply", applicationValues(),
		upload{field: "cvFile", name: "cv.png", data: pngSignature + "pixels"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "The file could not be uploaded.")

	docs, err := env.store.Query(context.Background(), docstore.Query{Collection: docstore.CollectionApplications})
	require.NoError(t, err)
	assert.Empty(t, docs, "a failed upload aborts the submit")
}

func TestFormErrors(t *testing.T) {
	var empty FormErrors
	assert.Empty(t, empty.Summary())
	assert.Empty(t, empty.For("email"))

	fe := newFormErrors(&editor.ValidationError{Fields: []editor.FieldError{{Field: "email", Message: "Enter a valid email"}}})
	assert.Equal(t, "Enter a valid email", fe.For("email"))
	assert.Empty(t, fe.For("name"))
	assert.Equal(t, "Please correct the highlighted fields.", fe.Summary())

	other := newFormErrors(&editor.StoreWriteError{Op: "create", Collection: "services", Err: errors.New("disk full")})
	assert.Equal(t, "The change could not be saved. Please try again.", other.Summary())
}
