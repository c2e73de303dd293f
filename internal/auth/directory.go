// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/corpsite/internal/config"
	"github.com/olegiv/corpsite/internal/store"
)

// Directory stores principals and their password hashes.
type Directory interface {
	Create(ctx context.Context, p Principal, passwordHash string) error
	ByID(ctx context.Context, id string) (Principal, error)
	ByEmail(ctx context.Context, email string) (Principal, string, error)
	UpdateDisplayName(ctx context.Context, id, name string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	List(ctx context.Context) ([]Principal, error)
}

// ErrDirectoryNotConfigured is returned by UnconfiguredDirectory.
var ErrDirectoryNotConfigured error = &config.ConfigurationError{
	Component: "auth provider",
	Hint:      "set CORPSITE_DB_DRIVER",
}

// SQLDirectory keeps principals in the "principals" table.
type SQLDirectory struct {
	db      *sql.DB
	dialect store.Dialect
}

// NewSQLDirectory returns a directory over db. Migrations must be applied.
func NewSQLDirectory(db *sql.DB, dialect store.Dialect) *SQLDirectory {
	return &SQLDirectory{db: db, dialect: dialect}
}

const principalColumns = `id, email, display_name, photo_url, provider, created_at`

func (d *SQLDirectory) Create(ctx context.Context, p Principal, passwordHash string) error {
	_, err := d.db.ExecContext(ctx, d.dialect.Rebind(`
		INSERT INTO principals (id, email, email_key, password_hash, display_name, photo_url, provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.Email, EmailKey(p.Email), passwordHash, p.DisplayName, p.PhotoURL, p.Provider, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errEmailTaken
		}
		return fmt.Errorf("creating principal: %w", err)
	}
	return nil
}

func (d *SQLDirectory) ByID(ctx context.Context, id string) (Principal, error) {
	row := d.db.QueryRowContext(ctx,
		d.dialect.Rebind(`SELECT `+principalColumns+`, password_hash FROM principals WHERE id = ?`), id)
	p, _, err := scanPrincipal(row)
	return p, err
}

func (d *SQLDirectory) ByEmail(ctx context.Context, email string) (Principal, string, error) {
	row := d.db.QueryRowContext(ctx,
		d.dialect.Rebind(`SELECT `+principalColumns+`, password_hash FROM principals WHERE email_key = ?`), EmailKey(email))
	return scanPrincipal(row)
}

func (d *SQLDirectory) UpdateDisplayName(ctx context.Context, id, name string) error {
	return d.exec(ctx, `UPDATE principals SET display_name = ? WHERE id = ?`, name, id)
}

func (d *SQLDirectory) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return d.exec(ctx, `UPDATE principals SET password_hash = ? WHERE id = ?`, hash, id)
}

func (d *SQLDirectory) List(ctx context.Context) ([]Principal, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+principalColumns+`, password_hash FROM principals ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing principals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Principal
	for rows.Next() {
		p, _, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *SQLDirectory) exec(ctx context.Context, query string, args ...any) error {
	res, err := d.db.ExecContext(ctx, d.dialect.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("updating principal: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row rowScanner) (Principal, string, error) {
	var (
		p    Principal
		hash string
	)
	err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &p.PhotoURL, &p.Provider, &p.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Principal{}, "", ErrPrincipalNotFound
	}
	if err != nil {
		return Principal{}, "", fmt.Errorf("reading principal: %w", err)
	}
	return p, hash, nil
}

// isUniqueViolation recognises duplicate-key errors of the supported drivers
// without importing their error types.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// MemoryDirectory keeps principals in process memory.
type MemoryDirectory struct {
	mu     sync.RWMutex
	byID   map[string]Principal
	hashes map[string]string
	keys   map[string]string // email key -> id
}

// NewMemoryDirectory returns an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byID:   make(map[string]Principal),
		hashes: make(map[string]string),
		keys:   make(map[string]string),
	}
}

func (d *MemoryDirectory) Create(_ context.Context, p Principal, passwordHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := EmailKey(p.Email)
	if _, ok := d.keys[key]; ok {
		return errEmailTaken
	}
	d.byID[p.ID] = p
	d.hashes[p.ID] = passwordHash
	d.keys[key] = p.ID
	return nil
}

func (d *MemoryDirectory) ByID(_ context.Context, id string) (Principal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byID[id]
	if !ok {
		return Principal{}, ErrPrincipalNotFound
	}
	return p, nil
}

func (d *MemoryDirectory) ByEmail(_ context.Context, email string) (Principal, string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.keys[EmailKey(email)]
	if !ok {
		return Principal{}, "", ErrPrincipalNotFound
	}
	return d.byID[id], d.hashes[id], nil
}

func (d *MemoryDirectory) UpdateDisplayName(_ context.Context, id, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.byID[id]
	if !ok {
		return ErrPrincipalNotFound
	}
	p.DisplayName = name
	d.byID[id] = p
	return nil
}

func (d *MemoryDirectory) UpdatePasswordHash(_ context.Context, id, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[id]; !ok {
		return ErrPrincipalNotFound
	}
	d.hashes[id] = hash
	return nil
}

func (d *MemoryDirectory) List(_ context.Context) ([]Principal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Principal, 0, len(d.byID))
	for _, p := range d.byID {
		out = append(out, p)
	}
	return out, nil
}

// UnconfiguredDirectory fails every call with ErrDirectoryNotConfigured.
type UnconfiguredDirectory struct{}

func (UnconfiguredDirectory) Create(context.Context, Principal, string) error {
	return ErrDirectoryNotConfigured
}

func (UnconfiguredDirectory) ByID(context.Context, string) (Principal, error) {
	return Principal{}, ErrDirectoryNotConfigured
}

func (UnconfiguredDirectory) ByEmail(context.Context, string) (Principal, string, error) {
	return Principal{}, "", ErrDirectoryNotConfigured
}

func (UnconfiguredDirectory) UpdateDisplayName(context.Context, string, string) error {
	return ErrDirectoryNotConfigured
}

func (UnconfiguredDirectory) UpdatePasswordHash(context.Context, string, string) error {
	return ErrDirectoryNotConfigured
}

func (UnconfiguredDirectory) List(context.Context) ([]Principal, error) {
	return nil, ErrDirectoryNotConfigured
}

// now is the directory clock; tests replace it.
var now = func() time.Time { return time.Now().UTC() }
