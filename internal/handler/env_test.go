// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/content"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/editor"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/middleware"
	"github.com/olegiv/corpsite/internal/render"
	"github.com/olegiv/corpsite/internal/session"
	"github.com/olegiv/corpsite/internal/testutil"
	"github.com/olegiv/corpsite/internal/version"
	"github.com/olegiv/corpsite/web"
)

const (
	adminEmail    = "admin@example.com"
	testPassword  = "correct-horse-9"
	testSiteName  = "Acme"
	pngSignature  = "\x89PNG\r\n\x1a\n"
	pdfSignature  = "%PDF-1.4\n"
	blockedBanner = "Your account has been blocked. Please contact Acme support."
)

// fakeUploader records uploads and answers with a CDN-like URL.
type fakeUploader struct {
	mu    sync.Mutex
	files []media.File
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, file media.File, folder string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", &media.UploadError{Folder: folder, Err: f.err}
	}
	f.files = append(f.files, file)
	return "https://cdn.example.com/" + folder + "/" + file.Name, nil
}

func (f *fakeUploader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type envOptions struct {
	store      docstore.Store
	protection *middleware.LoginProtection
}

type envOption func(*envOptions)

func withStore(s docstore.Store) envOption {
	return func(o *envOptions) { o.store = s }
}

func withLoginProtection(lp *middleware.LoginProtection) envOption {
	return func(o *envOptions) { o.protection = lp }
}

// testEnv is the full page router behind an httptest server with a
// cookie-keeping client that does not follow redirects.
type testEnv struct {
	*httptest.Server
	t        *testing.T
	store    docstore.Store
	dir      *auth.MemoryDirectory
	uploader *fakeUploader
	client   *http.Client
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	o := envOptions{store: docstore.NewMemory()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := testutil.TestLoggerSilent()
	if o.protection == nil {
		o.protection = middleware.NewLoginProtection(middleware.LoginProtectionConfig{
			IPRateLimit: 1000,
			IPBurst:     1000,
		}, logger)
	}

	sm := session.NewCookieStore(nil, true, time.Hour)
	templates, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)
	renderer, err := render.New(render.Config{
		TemplatesFS:    templates,
		SessionManager: sm,
		SiteName:       testSiteName,
		Logger:         logger,
	})
	require.NoError(t, err)

	schemas, err := editor.DefaultRegistry()
	require.NoError(t, err)

	env := &testEnv{
		t:        t,
		store:    o.store,
		dir:      auth.NewMemoryDirectory(),
		uploader: &fakeUploader{},
	}
	h := New(Config{
		Renderer:        renderer,
		Sessions:        sm,
		Store:           o.store,
		Schemas:         schemas,
		Uploader:        env.uploader,
		Settings:        content.NewSettings(o.store, env.uploader, logger),
		Inbox:           content.NewInbox(o.store, env.uploader, logger),
		LoginProtection: o.protection,
		SiteName:        testSiteName,
		Logger:          logger,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestPath)
	r.Use(sm.LoadAndSave)
	r.Use(middleware.Session(middleware.SessionConfig{
		Cookies:   sm,
		Directory: env.dir,
		Store:     o.store,
		Allow:     session.NewAllowList([]string{adminEmail}),
		SiteName:  testSiteName,
		Logger:    logger,
	}))
	h.Mount(r, RouteOptions{
		Health: NewHealthHandler(o.store, env.uploader, version.Info{Version: "v1.0.0"}).Health,
	})

	env.Server = httptest.NewServer(r)
	t.Cleanup(env.Close)
	env.client = env.newClient()
	return env
}

func (e *testEnv) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(e.t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// anonymous returns a copy of e with its own empty cookie jar.
func (e *testEnv) anonymous() *testEnv {
	clone := *e
	clone.client = e.newClient()
	return &clone
}

func (e *testEnv) do(req *http.Request) (*http.Response, string) {
	e.t.Helper()
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, string(body)
}

func (e *testEnv) get(path string) (*http.Response, string) {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.URL+path, nil)
	require.NoError(e.t, err)
	return e.do(req)
}

func (e *testEnv) post(path string, values url.Values) (*http.Response, string) {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.URL+path, strings.NewReader(values.Encode()))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

// upload is one file part of a multipart post.
type upload struct {
	field string
	name  string
	data  string
}

func (e *testEnv) postMultipart(path string, values url.Values, files ...upload) (*http.Response, string) {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, vs := range values {
		for _, v := range vs {
			require.NoError(e.t, mw.WriteField(key, v))
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(e.t, err)
		_, err = part.Write([]byte(f.data))
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.URL+path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

// follow requests the Location of a redirect.
func (e *testEnv) follow(resp *http.Response) (*http.Response, string) {
	e.t.Helper()
	require.Equal(e.t, http.StatusSeeOther, resp.StatusCode, "expected a redirect")
	return e.get(resp.Header.Get("Location"))
}

// register signs up email through the form and returns its principal id.
func (e *testEnv) register(email string) string {
	e.t.Helper()
	resp, _ := e.post("/register", url.Values{
		"email":           {email},
		"displayName":     {"Test User"},
		"password":        {testPassword},
		"confirmPassword": {testPassword},
	})
	require.Equal(e.t, http.StatusSeeOther, resp.StatusCode)
	p, _, err := e.dir.ByEmail(context.Background(), email)
	require.NoError(e.t, err)
	return p.ID
}

// signInAdmin registers the allow-listed admin on e's client.
func (e *testEnv) signInAdmin() string {
	e.t.Helper()
	return e.register(adminEmail)
}

func (e *testEnv) add(collection string, fields map[string]any) string {
	e.t.Helper()
	id, err := e.store.Add(context.Background(), collection, fields)
	require.NoError(e.t, err)
	return id
}
