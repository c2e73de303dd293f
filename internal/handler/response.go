// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/config"
	"github.com/olegiv/corpsite/internal/content"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/editor"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/render"
	"github.com/olegiv/corpsite/internal/session"
)

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashError)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashSuccess)
}

// logAndHTTPError logs an error and writes an HTTP error response.
func logAndHTTPError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int, logMsg string, args ...any) {
	logger.Error(logMsg, args...)
	http.Error(w, message, statusCode)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(logger *slog.Logger, w http.ResponseWriter, logMsg string, args ...any) {
	logAndHTTPError(logger, w, "Internal Server Error", http.StatusInternalServerError, logMsg, args...)
}

// userMessage turns an operation error into text for a banner or form.
func userMessage(err error) string {
	var (
		authErr    *auth.Error
		blocked    *session.BlockedAccountError
		profile    *session.ProfileError
		cfgErr     *config.ConfigurationError
		validation *editor.ValidationError
		upload     *media.UploadError
		write      *editor.StoreWriteError
		status     *content.StatusError
	)
	switch {
	case errors.As(err, &blocked):
		return blocked.Message
	case errors.As(err, &profile):
		return "Your profile could not be saved. Please try again."
	case errors.As(err, &authErr):
		return authErr.Message()
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &upload):
		if errors.As(err, &cfgErr) {
			return "File uploads are not available: " + cfgErr.Error() + "."
		}
		return "The file could not be uploaded. Please try again."
	case errors.As(err, &cfgErr):
		return "The site backend is not available: " + cfgErr.Error() + "."
	case errors.As(err, &status):
		return "That status change is not allowed."
	case errors.Is(err, docstore.ErrNotFound):
		return "The record no longer exists."
	case errors.As(err, &write):
		return "The change could not be saved. Please try again."
	case errors.Is(err, session.ErrNotAdmin):
		return "Administrator access is required."
	case errors.Is(err, session.ErrInvalidStatus):
		return "Unknown account status."
	case errors.Is(err, session.ErrNotConfirmed), errors.Is(err, editor.ErrNotConfirmed):
		return "Please confirm the deletion."
	default:
		return "Something went wrong. Please try again."
	}
}

// statusFor returns the response status for a failed form submission.
func statusFor(err error) int {
	var (
		validation *editor.ValidationError
		cfgErr     *config.ConfigurationError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// confirmed reports whether a destructive form carried the confirmation.
func confirmed(r *http.Request) bool {
	return strings.EqualFold(r.PostFormValue("confirm"), "yes")
}
