// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/middleware"
	"github.com/olegiv/corpsite/internal/testutil"
)

func login(env *testEnv, email, password, next string) (*http.Response, string) {
	env.t.Helper()
	return env.post("/login", url.Values{"email": {email}, "password": {password}, "next": {next}})
}

func TestRegisterAndProfile(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post("/register", url.Values{
		"email":           {"ada@example.com"},
		"displayName":     {"Ada"},
		"password":        {testPassword},
		"confirmPassword": {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))

	_, body := env.follow(resp)
	assert.Contains(t, body, "Your account has been created.")
	assert.Contains(t, body, `value="Ada"`)

	resp, _ = env.post("/profile", url.Values{"displayName": {"Ada L."}, "headline": {"Engineer"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = env.follow(resp)
	assert.Contains(t, body, "Profile updated.")
	assert.Contains(t, body, `value="Ada L."`)
	assert.Contains(t, body, `value="Engineer"`)
}

func TestRegisterErrors(t *testing.T) {
	env := newTestEnv(t)
	env.register("ada@example.com")

	tests := []struct {
		name    string
		email   string
		pass    string
		confirm string
		want    string
	}{
		{"mismatch", "new@example.com", testPassword, "other-password", "Passwords do not match."},
		{"weak", "new@example.com", "abc", "abc", "6 characters"},
		{"in use", "ada@example.com", testPassword, testPassword, "already"},
		{"bad email", "nope", testPassword, testPassword, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.anonymous().post("/register", url.Values{
				"email":           {tt.email},
				"password":        {tt.pass},
				"confirmPassword": {tt.confirm},
			})
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Contains(t, body, tt.want)
		})
	}
}

// failingUsers is a store whose writes to the users collection fail.
type failingUsers struct {
	*docstore.Engine
}

func (f failingUsers) Set(ctx context.Context, collection, id string, data map[string]any, opts ...docstore.SetOption) error {
	if collection == docstore.CollectionUsers {
		return errors.New("disk full")
	}
	return f.Engine.Set(ctx, collection, id, data, opts...)
}

func TestRegisterProfileWriteFails(t *testing.T) {
	env := newTestEnv(t, withStore(failingUsers{docstore.NewMemory()}))

	resp, body := env.post("/register", url.Values{
		"email":           {"ada@example.com"},
		"displayName":     {"Ada"},
		"password":        {testPassword},
		"confirmPassword": {testPassword},
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "Your profile could not be saved.")
	assert.NotContains(t, body, "Your account has been created.")
}

func TestLoginRedirects(t *testing.T) {
	env := newTestEnv(t)
	env.register("ada@example.com")
	resp, _ := env.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = login(env, "ada@example.com", testPassword, "/blog")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/blog", resp.Header.Get("Location"))

	resp, _ = env.get("/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "signed-in users skip the form")
	assert.Equal(t, "/profile", resp.Header.Get("Location"))
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	env := newTestEnv(t)
	env.register("ada@example.com")
	_, _ = env.post("/logout", nil)

	resp, _ := login(env, "ada@example.com", testPassword, "https://evil.example.com/")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))
}

func TestLoginAdminLandsOnDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.signInAdmin()
	_, _ = env.post("/logout", nil)

	resp, _ := login(env, adminEmail, testPassword, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestLoginInvalidCredential(t *testing.T) {
	env := newTestEnv(t)
	env.register("ada@example.com")
	anon := env.anonymous()

	resp, body := login(anon, "ada@example.com", "wrong-password", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, `value="ada@example.com"`)
	assert.Contains(t, body, `role="alert"`)
}

func TestLoginLockout(t *testing.T) {
	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       1000,
		IPBurst:           1000,
		MaxFailedAttempts: 2,
		LockoutDuration:   time.Hour,
	}, testutil.TestLoggerSilent())
	env := newTestEnv(t, withLoginProtection(lp))
	env.register("ada@example.com")
	anon := env.anonymous()

	resp, _ := login(anon, "ada@example.com", "wrong-1", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := login(anon, "ada@example.com", "wrong-2", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "Too many failed attempts.")

	resp, _ = login(anon, "ada@example.com", testPassword, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "a locked email rejects even the right password")
}

func TestBlockedAccount(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register("ada@example.com")

	admin := env.anonymous()
	admin.signInAdmin()
	resp, _ := admin.post("/admin/users/"+userID+"/status", url.Values{"status": {"blocked"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body := admin.follow(resp)
	require.Contains(t, body, "User status updated.")

	// The user's next request signs them out with a one-time banner.
	_, body = env.get("/")
	assert.Contains(t, body, blockedBanner)
	assert.Contains(t, body, `href="/login"`)
	_, body = env.get("/")
	assert.NotContains(t, body, blockedBanner)

	resp, _ = env.get("/profile")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fprofile", resp.Header.Get("Location"))

	// Signing in again is refused with the same message.
	resp, body = login(env, "ada@example.com", testPassword, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, blockedBanner)
	resp, _ = env.get("/profile")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// Unblocking restores access.
	resp, _ = admin.post("/admin/users/"+userID+"/status", url.Values{"status": {"active"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = login(env, "ada@example.com", testPassword, "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.register("ada@example.com")

	resp, _ := env.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	_, body := env.follow(resp)
	assert.Contains(t, body, "You have been signed out.")

	resp, _ = env.get("/profile")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestFederatedRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get("/auth/federated")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	_, body := env.follow(resp)
	assert.Contains(t, body, "The sign-in link is incomplete.")
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/fallback"},
		{"/admin/services", "/admin/services"},
		{"//evil.example.com", "/fallback"},
		{"https://evil.example.com", "/fallback"},
		{"/\\evil.example.com", "/fallback"},
		{"admin", "/fallback"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.next, "/fallback"), tt.next)
	}
}
