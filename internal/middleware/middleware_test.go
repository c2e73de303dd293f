// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/session"
	"github.com/olegiv/corpsite/internal/testutil"
)

func TestRequestPath(t *testing.T) {
	var got string
	handler := RequestPath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestPath(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/services?x=1", nil))
	assert.Equal(t, "/admin/services", got)
	assert.Empty(t, GetRequestPath(context.Background()))
}

// sessionServer serves /register, /whoami and /flash through the session middleware.
type sessionServer struct {
	*httptest.Server
	store  docstore.Store
	client *http.Client
}

func newSessionServer(t *testing.T, dir auth.Directory) *sessionServer {
	t.Helper()
	sm := session.NewCookieStore(nil, true, time.Hour)
	s := &sessionServer{store: docstore.NewMemory()}

	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		m, err := session.FromContext(r.Context())
		require.NoError(t, err)
		if err := m.Register(r.Context(), "ada@example.com", "correct-horse-9", "Ada"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(m.State().Principal.ID))
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		m, err := session.FromContext(r.Context())
		require.NoError(t, err)
		st := m.State()
		if !st.SignedIn() {
			_, _ = w.Write([]byte("anonymous|" + st.LastError))
			return
		}
		_, _ = w.Write([]byte(st.Principal.Email))
	})
	mux.HandleFunc("/flash", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(session.PopFlash(r.Context(), sm)))
	})

	handler := sm.LoadAndSave(Session(SessionConfig{
		Cookies:   sm,
		Directory: dir,
		Store:     s.store,
		Allow:     session.NewAllowList(nil),
		SiteName:  "Acme",
		Logger:    testutil.TestLoggerSilent(),
	})(mux))

	s.Server = httptest.NewServer(handler)
	t.Cleanup(s.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	s.client = &http.Client{Jar: jar}
	return s
}

func (s *sessionServer) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := s.client.Get(s.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	buf := make([]byte, 512)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestSessionSignedOutByDefault(t *testing.T) {
	s := newSessionServer(t, auth.NewMemoryDirectory())

	_, body := s.get(t, "/whoami")
	assert.Equal(t, "anonymous|", body)
}

func TestSessionPersistsAcrossRequests(t *testing.T) {
	s := newSessionServer(t, auth.NewMemoryDirectory())

	code, id := s.get(t, "/register")
	require.Equal(t, http.StatusOK, code, id)
	require.NotEmpty(t, id)

	_, body := s.get(t, "/whoami")
	assert.Equal(t, "ada@example.com", body)
}

func TestSessionBlockedAccountIsSignedOutWithFlash(t *testing.T) {
	s := newSessionServer(t, auth.NewMemoryDirectory())

	code, id := s.get(t, "/register")
	require.Equal(t, http.StatusOK, code, id)
	require.NoError(t, s.store.Update(context.Background(), docstore.CollectionUsers, id,
		map[string]any{"status": "blocked"}))

	_, body := s.get(t, "/whoami")
	assert.Equal(t, "anonymous|"+session.BlockedMessage("Acme"), body)

	_, flash := s.get(t, "/flash")
	assert.Equal(t, session.BlockedMessage("Acme"), flash)

	_, body = s.get(t, "/whoami")
	assert.Equal(t, "anonymous|", body, "sign-out is persisted")

	_, flash = s.get(t, "/flash")
	assert.Empty(t, flash, "flash is shown once")
}

func TestSessionUnconfiguredBackend(t *testing.T) {
	s := newSessionServer(t, auth.UnconfiguredDirectory{})

	_, body := s.get(t, "/whoami")
	assert.Contains(t, body, "anonymous|")
	assert.Greater(t, len(body), len("anonymous|"), "configuration error is surfaced")
}
