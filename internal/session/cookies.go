// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

// principalKey is the cookie session key holding the signed-in principal id.
const principalKey = "principal_id"

// NewCookieStore creates the browser session store. With a SQLite database
// sessions survive restarts; without one they live in memory.
func NewCookieStore(db *sql.DB, isDev bool, lifetime time.Duration) *scs.SessionManager {
	sm := scs.New()

	if db != nil {
		sm.Store = sqlite3store.New(db)
	} else {
		sm.Store = memstore.New()
	}

	sm.Lifetime = lifetime
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only
	sm.Cookie.Path = "/"
	if !isDev {
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}

// CookiePersistence stores the signed-in principal in the scs session of
// the current request. The request must pass through LoadAndSave.
type CookiePersistence struct {
	sm *scs.SessionManager
}

// NewCookiePersistence returns auth persistence backed by sm.
func NewCookiePersistence(sm *scs.SessionManager) *CookiePersistence {
	return &CookiePersistence{sm: sm}
}

func (p *CookiePersistence) Load(ctx context.Context) string {
	return p.sm.GetString(ctx, principalKey)
}

func (p *CookiePersistence) Save(ctx context.Context, principalID string) error {
	// New token on privilege change prevents session fixation
	if err := p.sm.RenewToken(ctx); err != nil {
		return err
	}
	p.sm.Put(ctx, principalKey, principalID)
	return nil
}

func (p *CookiePersistence) Clear(ctx context.Context) error {
	p.sm.Remove(ctx, principalKey)
	return p.sm.RenewToken(ctx)
}

// flashKey holds a one-time banner for the next rendered page.
const flashKey = "flash"

// PutFlash stores msg to be shown on the next page.
func PutFlash(ctx context.Context, sm *scs.SessionManager, msg string) {
	sm.Put(ctx, flashKey, msg)
}

// PopFlash returns and clears the pending banner.
func PopFlash(ctx context.Context, sm *scs.SessionManager) string {
	return sm.PopString(ctx, flashKey)
}
