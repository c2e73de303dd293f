// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/olegiv/corpsite/internal/store"
)

// sqlBackend stores documents in the "documents" table created by the
// store migrations.
type sqlBackend struct {
	db      *sql.DB
	dialect store.Dialect
}

// NewSQL returns a Store backed by db. The migrations must have been applied.
func NewSQL(db *sql.DB, dialect store.Dialect, opts ...Option) *Engine {
	return newEngine(&sqlBackend{db: db, dialect: dialect}, opts...)
}

func (s *sqlBackend) get(ctx context.Context, collection, id string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		s.dialect.Rebind(`SELECT data FROM documents WHERE collection = ? AND id = ?`),
		collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *sqlBackend) put(ctx context.Context, collection, id string, data []byte) error {
	var q string
	switch s.dialect {
	case store.MySQL:
		q = `INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE data = VALUES(data)`
	default:
		q = `INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
			ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data`
	}
	// JSON columns accept text; passing a string keeps pgx from sending bytea.
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(q), collection, id, string(data))
	return err
}

func (s *sqlBackend) delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		s.dialect.Rebind(`DELETE FROM documents WHERE collection = ? AND id = ?`),
		collection, id)
	return err
}

func (s *sqlBackend) list(ctx context.Context, collection string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		s.dialect.Rebind(`SELECT id, data FROM documents WHERE collection = ?`), collection)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		out[id] = data
	}
	return out, rows.Err()
}
