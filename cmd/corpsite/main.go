// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/corpsite/internal/config"
	"github.com/olegiv/corpsite/internal/editor"
	"github.com/olegiv/corpsite/internal/guard"
	"github.com/olegiv/corpsite/internal/handler"
	"github.com/olegiv/corpsite/internal/live"
	"github.com/olegiv/corpsite/internal/logging"
	"github.com/olegiv/corpsite/internal/middleware"
	"github.com/olegiv/corpsite/internal/render"
	"github.com/olegiv/corpsite/internal/session"
	"github.com/olegiv/corpsite/internal/version"
	"github.com/olegiv/corpsite/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// Public form throttling: one submission every five seconds per IP with a
// small burst.
const (
	formRateLimit = 0.2
	formRateBurst = 3
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information and exit")
	showHelp := flag.Bool("help", false, "Show help message and exit")
	flag.BoolVar(showVersion, "v", false, "Show version information and exit (shorthand)")
	flag.BoolVar(showHelp, "h", false, "Show help message and exit (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "corpsite - Corporate site and admin CMS\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: corpsite [options]\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_SESSION_SECRET   Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_DB_DRIVER        sqlite, postgres, mysql or memory (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_DB_DSN           Database DSN (default: ./data/corpsite.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_ADMIN_EMAILS     Comma-separated administrator allow-list\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_SERVER_HOST      Server host (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_ENV              Environment: development, production\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_LOG_LEVEL        Log level: debug, info, warn, error\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_REDIS_URL        Redis URL for the shared change feed\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_S3_BUCKET        Bucket for uploaded media\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_RESEND_API_KEY   Resend API key for admin notifications\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_GEOIP_DB_PATH    Path to a GeoLite2-Country database\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CORPSITE_DEMO_MODE        Seed demo content into empty collections\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nExamples:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  corpsite                  Start the server\n")
		_, _ = fmt.Fprintf(os.Stderr, "  corpsite --version        Show version information\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("corpsite %s\n", appVersion)
		fmt.Printf("  Commit:     %s\n", appGitCommit)
		fmt.Printf("  Build Time: %s\n", appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close(logger)

	// Upgrade logger to also write WARN and ERROR logs to the event log
	logger = slog.New(logging.NewEventLogHandler(textHandler, backend.store))
	slog.SetDefault(logger)

	if cfg.UseRedisFeed() {
		if err := backend.startFeed(ctx, cfg, logger); err != nil {
			return err
		}
	}

	svc, err := newServices(ctx, cfg, backend, logger)
	if err != nil {
		return err
	}
	defer svc.close(logger)

	if cfg.DemoMode {
		if err := svc.seedDemo(ctx, logger); err != nil {
			return fmt.Errorf("seeding demo content: %w", err)
		}
	}

	svc.scheduler.Start()
	defer svc.scheduler.Stop()

	sessionManager := session.NewCookieStore(backend.sessionDB(), cfg.IsDevelopment(), cfg.SessionLifetime)

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		SiteName:       cfg.SiteName,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	schemas, err := editor.DefaultRegistry()
	if err != nil {
		return fmt.Errorf("loading collection schemas: %w", err)
	}

	h := handler.New(handler.Config{
		Renderer:         renderer,
		Sessions:         sessionManager,
		Store:            backend.store,
		Schemas:          schemas,
		Uploader:         svc.uploader,
		Settings:         svc.settings,
		Inbox:            svc.inbox,
		LoginProtection:  svc.loginProtection,
		FederatedEnabled: svc.federated != nil,
		SiteName:         cfg.SiteName,
		Logger:           logger,
	})
	healthHandler := handler.NewHealthHandler(backend.store, svc.uploader, versionInfo)
	liveHandler := live.NewHandler(backend.store, logger)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.Session(middleware.SessionConfig{
		Cookies:   sessionManager,
		Directory: backend.directory,
		Store:     backend.store,
		Allow:     session.NewAllowList(cfg.AdminEmails),
		Federated: svc.federated,
		SiteName:  cfg.SiteName,
		Logger:    logger,
	}))

	// Live feeds hold their connection open, so they skip compression and
	// the request timeout.
	r.Handle("/api/live/{collection}", liveHandler)

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("loading static files: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(chimw.GetHead)
		r.Use(chimw.Timeout(30 * time.Second))
		r.Use(chimw.RedirectSlashes)
		r.Use(middleware.SkipCSRF("/health"))
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerPort, logger)))

		h.Mount(r, handler.RouteOptions{
			FormLimit: middleware.RateLimit("forms", formRateLimit, formRateBurst, logger),
			Health:    healthHandler.Health,
			Guard:     guard.Options{Logger: logger},
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for uploads and slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := liveHandler.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("live stream shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
