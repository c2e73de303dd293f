// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command corpsitectl administers the accounts of a corpsite deployment.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/config"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/store"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(openApp).Execute(); err != nil {
		os.Exit(1)
	}
}

// openApp connects to the configured SQL store. Principals of the memory
// store live in the server process and cannot be administered from here.
func openApp(out io.Writer) (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if !cfg.UsesSQL() {
		return nil, nil, errors.New("corpsitectl needs a SQL store (CORPSITE_DB_DRIVER sqlite, postgres or mysql)")
	}

	dialect := store.Dialect(cfg.DBDriver)
	db, err := store.Open(dialect, cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(db, dialect); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	a := &app{
		store:        docstore.NewSQL(db, dialect),
		dir:          auth.NewSQLDirectory(db, dialect),
		out:          out,
		readPassword: terminalPassword(out),
	}
	return a, func() { _ = db.Close() }, nil
}

// terminalPassword prompts on out and reads without echo.
func terminalPassword(out io.Writer) func(prompt string) (string, error) {
	return func(prompt string) (string, error) {
		if _, err := fmt.Fprint(out, prompt); err != nil {
			return "", err
		}
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(pw), nil
	}
}
