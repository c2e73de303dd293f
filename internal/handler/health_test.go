// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/testutil"
	"github.com/olegiv/corpsite/internal/version"
)

// failingStore answers every read with err.
type failingStore struct {
	docstore.Store
	err error
}

func (f failingStore) Get(context.Context, string, string) (docstore.Document, error) {
	return docstore.Document{}, f.err
}

func TestHealthPublic(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get("/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status HealthStatusPublic
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.NotContains(t, body, "checks", "anonymous callers get the status only")
}

func TestHealthAdminChecks(t *testing.T) {
	env := newTestEnv(t)
	env.signInAdmin()

	resp, body := env.get("/health?verbose=true")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status HealthStatus
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, "v1.0.0", status.Version)
	assert.Equal(t, StatusHealthy, status.Checks["store"].Status)
	assert.Equal(t, StatusHealthy, status.Checks["media"].Status)
	require.NotNil(t, status.System)
	assert.NotEmpty(t, status.System.GoVersion)
}

func TestHealthStatuses(t *testing.T) {
	tests := []struct {
		name     string
		store    docstore.Store
		uploader media.Uploader
		code     int
		want     string
	}{
		{"unconfigured store", docstore.Unconfigured{}, &fakeUploader{}, http.StatusOK, StatusDegraded},
		{"unconfigured media", docstore.NewMemory(), media.NewUnconfigured(testutil.TestLoggerSilent()), http.StatusOK, StatusDegraded},
		{"store down", failingStore{err: errors.New("connection refused")}, &fakeUploader{}, http.StatusServiceUnavailable, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.store, tt.uploader, version.Info{})
			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.code, rec.Code)
			var status HealthStatusPublic
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, tt.want, status.Status)
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.50 KB", formatBytes(1536))
	assert.Equal(t, "2.00 MB", formatBytes(2<<20))
}
