// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/session"
	"github.com/olegiv/corpsite/internal/testutil"
)

var testFS = fstest.MapFS{
	"layouts/base.html": {Data: []byte(`{{define "base"}}<title>{{.Title}} | {{.SiteName}}</title>` +
		`{{if .Flash}}<p class="{{.FlashType}}">{{.Flash}}</p>{{end}}{{template "content" .}}<footer>{{.CurrentYear}}</footer>{{end}}`)},
	"layouts/admin.html": {Data: []byte(`{{define "content"}}<nav>admin</nav>{{template "admin" .}}{{end}}`)},
	"partials/greet.html": {Data: []byte(`{{define "greet"}}hello {{.}}{{end}}`)},
	"pages/home.html": {Data: []byte(`{{define "content"}}{{template "greet" "world"}}` +
		`{{if .Session.SignedIn}} signed-in{{end}}{{end}}`)},
	"pages/post.html": {Data: []byte(`{{define "content"}}{{markdown .Data}}{{end}}`)},
	"admin/dashboard.html": {Data: []byte(`{{define "admin"}}{{range list .Data}}[{{.}}]{{end}}{{end}}`)},
}

func newRenderer(t *testing.T, sm *scs.SessionManager) *Renderer {
	t.Helper()
	r, err := New(Config{
		TemplatesFS:    testFS,
		SessionManager: sm,
		SiteName:       "Acme",
		Logger:         testutil.TestLoggerSilent(),
	})
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestNewParsesGroups(t *testing.T) {
	r := newRenderer(t, nil)
	for _, name := range []string{"pages/home", "pages/post", "admin/dashboard"} {
		assert.True(t, r.Has(name), name)
	}
	assert.False(t, r.Has("auth/login"))
}

func TestNewWithoutTemplates(t *testing.T) {
	_, err := New(Config{TemplatesFS: fstest.MapFS{}})
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	r := newRenderer(t, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NoError(t, r.Render(w, req, "pages/home", TemplateData{Title: "Home"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "<title>Home | Acme</title>hello world<footer>2026</footer>", w.Body.String())
}

func TestRenderStatusAndAdminLayout(t *testing.T) {
	r := newRenderer(t, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)

	err := r.RenderStatus(w, req, http.StatusUnprocessableEntity, "admin/dashboard",
		TemplateData{Data: []any{"a", 2.0}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "<nav>admin</nav>[a][2]")
}

func TestRenderUnknownTemplate(t *testing.T) {
	r := newRenderer(t, nil)
	w := httptest.NewRecorder()
	err := r.Render(w, httptest.NewRequest(http.MethodGet, "/", nil), "pages/missing", TemplateData{})
	assert.Error(t, err)
	assert.Empty(t, w.Body.String())
}

func TestRenderMarkdownIsSanitized(t *testing.T) {
	r := newRenderer(t, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/blog/x", nil)

	require.NoError(t, r.Render(w, req, "pages/post", TemplateData{Data: "# Title\n\n<script>alert(1)</script>"}))
	assert.Contains(t, w.Body.String(), "<h1")
	assert.NotContains(t, w.Body.String(), "<script>")
}

func TestRenderSessionState(t *testing.T) {
	r := newRenderer(t, nil)
	ctx := context.Background()

	dir := auth.NewMemoryDirectory()
	persist := &auth.MemoryPersistence{}
	m := session.NewManager(auth.NewClient(dir, persist), docstore.NewMemory(), session.NewAllowList(nil))
	m.Start(ctx)
	defer m.Close()
	require.NoError(t, m.Register(ctx, "ada@example.com", "secret-pass", "Ada"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(session.WithManager(ctx, m))
	require.NoError(t, r.Render(w, req, "pages/home", TemplateData{}))
	assert.Contains(t, w.Body.String(), "signed-in")
}

func TestFlashIsShownOnce(t *testing.T) {
	sm := scs.New()
	sm.Store = memstore.New()
	r := newRenderer(t, sm)

	var bodies []string
	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/set" {
			r.SetFlash(req, "Saved", FlashSuccess)
			return
		}
		rec := httptest.NewRecorder()
		require.NoError(t, r.Render(rec, req, "pages/home", TemplateData{}))
		bodies = append(bodies, rec.Body.String())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[0], `<p class="success">Saved</p>`)
	assert.NotContains(t, bodies[1], "Saved")
}

func TestFieldString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"number", 3.5, "3.5"},
		{"integer number", 4.0, "4"},
		{"bool", true, "true"},
		{"time", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), "Jan 2, 2026"},
		{"list", []any{"a", "b"}, "a, b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldString(tt.in))
		})
	}
}
