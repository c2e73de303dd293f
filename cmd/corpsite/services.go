// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/olegiv/corpsite/internal/auth"
	"github.com/olegiv/corpsite/internal/config"
	"github.com/olegiv/corpsite/internal/content"
	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/geoip"
	"github.com/olegiv/corpsite/internal/media"
	"github.com/olegiv/corpsite/internal/middleware"
	"github.com/olegiv/corpsite/internal/notify"
	"github.com/olegiv/corpsite/internal/scheduler"
	"github.com/olegiv/corpsite/internal/store"
)

// pruneSchedule clears expired login failure records.
const pruneSchedule = "*/15 * * * *"

// backend is the document store and the principal directory.
type backend struct {
	db        *sql.DB
	dialect   store.Dialect
	store     docstore.Store
	engine    *docstore.Engine
	directory auth.Directory
	feed      *docstore.RedisBridge
}

func openBackend(cfg *config.Config, logger *slog.Logger) (*backend, error) {
	switch {
	case cfg.UsesSQL():
		dialect := store.Dialect(cfg.DBDriver)
		if dialect == store.SQLite {
			if err := os.MkdirAll(sqliteDir(cfg.DBDSN), 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}

		logger.Info("initializing database", "driver", dialect)
		db, err := store.Open(dialect, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("initializing database: %w", err)
		}

		logger.Info("running database migrations")
		if err := store.Migrate(db, dialect); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("database ready")

		engine := docstore.NewSQL(db, dialect)
		return &backend{
			db:        db,
			dialect:   dialect,
			store:     engine,
			engine:    engine,
			directory: auth.NewSQLDirectory(db, dialect),
		}, nil

	case cfg.DBDriver == config.DriverMemory:
		logger.Warn("using the in-memory store; content is lost on restart")
		engine := docstore.NewMemory()
		return &backend{store: engine, engine: engine, directory: auth.NewMemoryDirectory()}, nil

	default:
		logger.Warn("no document store configured; the site runs without a backend")
		return &backend{store: docstore.Unconfigured{}, directory: auth.UnconfiguredDirectory{}}, nil
	}
}

// sqliteDir returns the directory of a SQLite DSN such as
// "file:./data/site.db?_pragma=...".
func sqliteDir(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return filepath.Dir(path)
}

// sessionDB is the database holding browser sessions. Only SQLite keeps
// them; other drivers fall back to memory.
func (b *backend) sessionDB() *sql.DB {
	if b.dialect == store.SQLite {
		return b.db
	}
	return nil
}

// startFeed bridges the change hub to Redis so every instance sees every
// write.
func (b *backend) startFeed(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if b.engine == nil {
		logger.Warn("redis change feed ignored without a document store")
		return nil
	}
	feed, err := docstore.NewRedisBridge(cfg.RedisURL, cfg.RedisChannel, b.engine.Hub(), logger)
	if err != nil {
		return fmt.Errorf("starting change feed: %w", err)
	}
	b.feed = feed
	go feed.Run(ctx)
	logger.Info("redis change feed enabled", "channel", cfg.RedisChannel)
	return nil
}

func (b *backend) close(logger *slog.Logger) {
	if b.feed != nil {
		if err := b.feed.Close(); err != nil {
			logger.Error("error closing change feed", "error", err)
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}
}

// services are the application services built on the backend.
type services struct {
	store           docstore.Store
	uploader        media.Uploader
	settings        *content.Settings
	inbox           *content.Inbox
	geo             *geoip.Lookup
	federated       *auth.FederatedVerifier
	loginProtection *middleware.LoginProtection
	scheduler       *scheduler.Scheduler
}

func newServices(ctx context.Context, cfg *config.Config, b *backend, logger *slog.Logger) (*services, error) {
	uploader, err := media.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing media storage: %w", err)
	}

	var sender notify.Sender = notify.Log{Logger: logger}
	if cfg.ResendEnabled() {
		sender = notify.NewResend(cfg.ResendAPIKey, cfg.MailFrom)
	}
	notifier := notify.New(sender, cfg.AdminEmails, cfg.SiteName)

	svc := &services{
		store:     b.store,
		uploader:  uploader,
		settings:  content.NewSettings(b.store, uploader, logger),
		scheduler: scheduler.New(logger),
		loginProtection: middleware.NewLoginProtection(middleware.LoginProtectionConfig{
			IPRateLimit: cfg.LoginRateLimit,
			IPBurst:     cfg.LoginRateBurst,
		}, logger),
	}

	inboxOpts := []content.InboxOption{content.WithNotifier(notifier)}
	if cfg.GeoIPEnabled() {
		geo, err := geoip.Open(cfg.GeoIPDBPath)
		if err != nil {
			// Country lookup is optional; submissions are stored without it.
			logger.Warn("geoip database unavailable", "path", cfg.GeoIPDBPath, "error", err)
		} else {
			svc.geo = geo
			inboxOpts = append(inboxOpts, content.WithLocator(geo))
		}
	}
	svc.inbox = content.NewInbox(b.store, uploader, logger, inboxOpts...)

	if cfg.FederatedEnabled() {
		svc.federated = auth.NewFederatedVerifier([]byte(cfg.FederatedSecret), cfg.FederatedIssuer)
	}

	if err := svc.addJobs(cfg, notifier); err != nil {
		svc.close(logger)
		return nil, err
	}
	return svc, nil
}

func (s *services) addJobs(cfg *config.Config, notifier *notify.Notifier) error {
	digest := &notify.DigestJob{
		Counter:  s.inbox,
		Notifier: notifier,
		Sources: []notify.DigestSource{
			{Collection: docstore.CollectionContactMessages, Label: "Contact messages"},
			{Collection: docstore.CollectionApplications, Label: "Job applications"},
		},
	}
	if cfg.DigestSchedule != "" {
		if err := s.scheduler.Add("inbox digest", cfg.DigestSchedule, digest.Run); err != nil {
			return fmt.Errorf("scheduling inbox digest: %w", err)
		}
	}
	if s.geo != nil && cfg.GeoIPReloadSchedule != "" {
		if err := s.scheduler.Add("geoip reload", cfg.GeoIPReloadSchedule, s.geo.Reload); err != nil {
			return fmt.Errorf("scheduling geoip reload: %w", err)
		}
	}
	return s.scheduler.Add("login prune", pruneSchedule, func(context.Context) error {
		s.loginProtection.Prune()
		return nil
	})
}

func (s *services) seedDemo(ctx context.Context, logger *slog.Logger) error {
	if _, ok := s.store.(docstore.Unconfigured); ok {
		logger.Warn("demo mode ignored without a document store")
		return nil
	}
	return content.SeedDemo(ctx, s.store, logger)
}

func (s *services) close(logger *slog.Logger) {
	if s.geo != nil {
		if err := s.geo.Close(); err != nil {
			logger.Error("error closing geoip database", "error", err)
		}
	}
}
