// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/corpsite/internal/config"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/session"
	"github.com/olegiv/corpsite/internal/version"
)

// Health check statuses.
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusUnhealthy    = "unhealthy"
	StatusUnconfigured = "unconfigured"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler handles health check requests.
type HealthHandler struct {
	store     docstore.Store
	uploader  media.Uploader
	version   version.Info
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store docstore.Store, uploader media.Uploader, info version.Info) *HealthHandler {
	return &HealthHandler{
		store:     store,
		uploader:  uploader,
		version:   info,
		startTime: time.Now(),
	}
}

// HealthStatusPublic is the minimal health response for non-admin callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus represents the overall health status (admins only).
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health. The site runs in degraded mode without a
// backend, so an unconfigured store answers 200 with status "degraded".
// Admins get the individual checks; ?verbose=true adds runtime figures.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	storeCheck := h.checkStore(r.Context())
	mediaCheck := h.checkMedia()

	overall := StatusHealthy
	code := http.StatusOK
	switch {
	case storeCheck.Status == StatusUnhealthy:
		overall = StatusUnhealthy
		code = http.StatusServiceUnavailable
	case storeCheck.Status != StatusHealthy || mediaCheck.Status != StatusHealthy:
		overall = StatusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)

	if !isAdminRequest(r) {
		_ = json.NewEncoder(w).Encode(HealthStatusPublic{Status: overall})
		return
	}

	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version.String(),
		Checks: map[string]Check{
			"store": storeCheck,
			"media": mediaCheck,
		},
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = systemInfo()
	}
	_ = json.NewEncoder(w).Encode(status)
}

func isAdminRequest(r *http.Request) bool {
	m, err := session.FromContext(r.Context())
	return err == nil && m.IsAdmin()
}

// checkStore reads the settings document.
func (h *HealthHandler) checkStore(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	_, err := h.store.Get(ctx, docstore.CollectionSiteSettings, docstore.SiteSettingsID)
	latency := time.Since(start).String()

	switch {
	case err == nil, errors.Is(err, docstore.ErrNotFound):
		return Check{Status: StatusHealthy, Message: "Connected", Latency: latency}
	case errors.Is(err, config.ErrNotConfigured):
		return Check{Status: StatusUnconfigured, Message: err.Error()}
	default:
		return Check{Status: StatusUnhealthy, Message: err.Error(), Latency: latency}
	}
}

func (h *HealthHandler) checkMedia() Check {
	if _, ok := h.uploader.(*media.Unconfigured); ok {
		return Check{Status: StatusUnconfigured, Message: media.ErrNotConfigured.Error()}
	}
	return Check{Status: StatusHealthy}
}

// systemInfo returns system-level metrics.
func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
