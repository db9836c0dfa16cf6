// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command fedsite runs the federation back-office JSON API. It serves from a
// hosted backend-as-a-service when one is configured and reachable, and from
// a local SQLite demo store otherwise.
package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rmcosta/fedsite-go/internal/cache"
	"github.com/rmcosta/fedsite-go/internal/config"
	"github.com/rmcosta/fedsite-go/internal/facade"
	"github.com/rmcosta/fedsite-go/internal/handler"
	"github.com/rmcosta/fedsite-go/internal/identity"
	"github.com/rmcosta/fedsite-go/internal/logging"
	"github.com/rmcosta/fedsite-go/internal/remote"
	"github.com/rmcosta/fedsite-go/internal/scheduler"
	"github.com/rmcosta/fedsite-go/internal/session"
	"github.com/rmcosta/fedsite-go/internal/store"
)

// Build information, set via ldflags.
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "fedsite - Sports Federation Back-Office API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FEDSITE_SESSION_SECRET   Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FEDSITE_DB_PATH          SQLite database path (default: ./data/fedsite.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FEDSITE_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FEDSITE_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FEDSITE_REMOTE_URL       Remote backend URL (optional; absent means demo mode)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FEDSITE_REMOTE_ANON_KEY  Remote backend public API key\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FEDSITE_REDIS_URL        Redis URL for distributed caching (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Printf("fedsite %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(textHandler))

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready")

	// Route warnings and errors into the audit log from here on
	slog.SetDefault(slog.New(logging.NewAuditHandler(textHandler, db)))

	remoteClient := remote.New(cfg.RemoteURL, cfg.RemoteAnonKey)
	if remoteClient.Enabled() {
		slog.Info("remote backend configured", "url", cfg.RemoteURL)
	}

	resolver, err := identity.NewResolver(remoteClient, db, cfg.RemoteTimeout)
	if err != nil {
		return fmt.Errorf("creating identity resolver: %w", err)
	}

	appCache := cache.NewCache(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
		CleanupInterval: time.Minute,
	})
	defer func() {
		if err := appCache.Close(); err != nil {
			slog.Warn("closing cache", "error", err)
		}
	}()

	accessFacade := facade.New(facade.Options{
		Remote:          remoteClient,
		DB:              db,
		Timeout:         cfg.RemoteTimeout,
		DocumentsBucket: cfg.DocumentsBucket,
		EventsBucket:    cfg.EventsBucket,
		Cache:           appCache,
		CacheTTL:        time.Duration(cfg.CacheTTL) * time.Second,
	})

	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	sched := scheduler.New(db, remoteClient, accessFacade, slog.Default(), cfg.DemoReset)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Derive a fixed-size CSRF key from the session secret
	csrfKey := sha256.Sum256([]byte(cfg.SessionSecret))

	router := handler.NewRouter(handler.RouterOptions{
		DB:             db,
		Facade:         accessFacade,
		Resolver:       resolver,
		SessionManager: sessionManager,
		CSRFKey:        csrfKey[:],
		IsDevelopment:  cfg.IsDevelopment(),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Allow for uploads on slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
