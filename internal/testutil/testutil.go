// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared helpers for tests.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/rmcosta/fedsite-go/internal/store"

	_ "modernc.org/sqlite" // SQLite driver for test databases
)

// TestDB creates a temporary migrated SQLite database for a test. The file
// lives in the test's temp dir and the connection is closed on cleanup.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enabling foreign keys: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SeededDB creates a test database with the demo seed content loaded.
func SeededDB(t *testing.T) *sql.DB {
	t.Helper()

	db := TestDB(t)
	if err := store.SeedIfEmpty(context.Background(), db); err != nil {
		t.Fatalf("seeding test database: %v", err)
	}
	return db
}

// SilenceLogs replaces the default slog logger with a discarding one for the
// duration of the test.
func SilenceLogs(t *testing.T) {
	t.Helper()

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
}
