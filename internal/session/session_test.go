// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	// Create sessions table required by sqlite3store
	_, err = db.Exec(`
		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX sessions_expiry_idx ON sessions(expiry);
	`)
	if err != nil {
		t.Fatalf("failed to create sessions table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewCookieStore_DevMode(t *testing.T) {
	sm := NewCookieStore(setupTestDB(t), true, time.Hour)

	if sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = false in dev mode")
	}
	if sm.Cookie.Name == "__Host-session" {
		t.Error("expected default cookie name in dev mode")
	}
	if sm.Lifetime != time.Hour {
		t.Errorf("Lifetime = %v, want 1h", sm.Lifetime)
	}
}

func TestNewCookieStore_ProductionMode(t *testing.T) {
	sm := NewCookieStore(setupTestDB(t), false, 24*time.Hour)

	if !sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = true in production mode")
	}
	if sm.Cookie.Name != "__Host-session" {
		t.Errorf("expected __Host-session cookie name, got %q", sm.Cookie.Name)
	}
	if sm.Cookie.Path != "/" {
		t.Errorf("expected Cookie.Path = '/', got %q", sm.Cookie.Path)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected Cookie.HttpOnly = true")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite = Lax, got %v", sm.Cookie.SameSite)
	}
}

func TestNewCookieStore_MemoryFallback(t *testing.T) {
	sm := NewCookieStore(nil, true, time.Hour)
	if sm.Store == nil {
		t.Error("expected Store to be initialized")
	}
}

func TestCookiePersistence(t *testing.T) {
	sm := NewCookieStore(setupTestDB(t), true, time.Hour)
	p := NewCookiePersistence(sm)

	var cookie *http.Cookie

	// First request signs in.
	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, p.Load(r.Context()))
		require.NoError(t, p.Save(r.Context(), "principal-1"))
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, c := range rec.Result().Cookies() {
		if c.Name == sm.Cookie.Name {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie must be set")

	// Second request with the cookie sees the principal and signs out.
	var loaded string
	handler = sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loaded = p.Load(r.Context())
		require.NoError(t, p.Clear(r.Context()))
		assert.Empty(t, p.Load(r.Context()))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "principal-1", loaded)
}

func TestAllowList(t *testing.T) {
	a := NewAllowList([]string{" Admin@Example.com ", "", "ops@example.com"})
	assert.Equal(t, 2, a.Len())
	assert.True(t, a.Contains("admin@example.COM"))
	assert.False(t, a.Contains("user@example.com"))

	var empty *AllowList
	assert.False(t, empty.Contains("admin@example.com"))
	assert.Equal(t, 0, empty.Len())
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name        string
		role        string
		allowListed bool
		want        bool
	}{
		{"stored admin", "admin", false, true},
		{"allow-listed user", "user", true, true},
		{"both", "admin", true, true},
		{"neither", "user", false, false},
		{"no profile", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAdmin(model.Role(tt.role), tt.allowListed))
		})
	}
}

func TestFromContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoManager)

	m := &Manager{}
	got, err := FromContext(WithManager(context.Background(), m))
	require.NoError(t, err)
	assert.Same(t, m, got)
}
