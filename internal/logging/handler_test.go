// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rmcosta/fedsite-go/internal/store"
	"github.com/rmcosta/fedsite-go/internal/testutil"
)

// discardHandler is a slog.Handler that discards all records.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func TestAuditHandlerCapturesWarnAndError(t *testing.T) {
	db := testutil.TestDB(t)
	logger := slog.New(NewAuditHandler(discardHandler{}, db))

	logger.Error("remote backend failed, falling back to demo store", "op", "documents.list")
	logger.Warn("persisting demo session failed")
	logger.Info("server started", "port", 8080)
	logger.Debug("request handled")

	entries, err := store.New(db).ListAuditEntries(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries (error + warn), got %d", len(entries))
	}
}

func TestAuditHandlerLevels(t *testing.T) {
	db := testutil.TestDB(t)
	logger := slog.New(NewAuditHandler(discardHandler{}, db))

	logger.Error("remote sign-in failed")

	entries, err := store.New(db).ListAuditEntries(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != LevelError {
		t.Errorf("Level = %q, want %q", entries[0].Level, LevelError)
	}
	if entries[0].Category != CategoryAuth {
		t.Errorf("Category = %q, want %q", entries[0].Category, CategoryAuth)
	}
}

func TestAuditHandlerExplicitCategory(t *testing.T) {
	db := testutil.TestDB(t)
	logger := slog.New(NewAuditHandler(discardHandler{}, db))

	logger.Warn("something odd", "category", CategoryScheduler)

	entries, err := store.New(db).ListAuditEntries(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Category != CategoryScheduler {
		t.Errorf("Category = %q, want explicit %q", entries[0].Category, CategoryScheduler)
	}
}

func TestAuditHandlerMetadata(t *testing.T) {
	db := testutil.TestDB(t)
	logger := slog.New(NewAuditHandler(discardHandler{}, db))

	logger.Warn("remote backend failed, falling back to demo store",
		"op", "events.list", "error", "context deadline exceeded")

	entries, err := store.New(db).ListAuditEntries(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	meta := entries[0].Metadata
	if !strings.Contains(meta, "events.list") || !strings.Contains(meta, "deadline") {
		t.Errorf("Metadata = %s, want op and error captured", meta)
	}
	if entries[0].Category != CategoryFallback {
		t.Errorf("Category = %q, want %q", entries[0].Category, CategoryFallback)
	}
}

func TestEscapeJSON(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{`hello`, `hello`},
		{`hello "world"`, `hello \"world\"`},
		{`path\to\file`, `path\\to\\file`},
		{"line1\nline2", `line1\nline2`},
		{"col1\tcol2", `col1\tcol2`},
	}

	for _, tc := range cases {
		if got := escapeJSON(tc.input); got != tc.expected {
			t.Errorf("escapeJSON(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestSlogLevelToAuditLevel(t *testing.T) {
	cases := []struct {
		level    slog.Level
		expected string
	}{
		{slog.LevelDebug, LevelInfo},
		{slog.LevelInfo, LevelInfo},
		{slog.LevelWarn, LevelWarning},
		{slog.LevelError, LevelError},
		{slog.LevelError + 4, LevelError},
	}

	for _, tc := range cases {
		if got := slogLevelToAuditLevel(tc.level); got != tc.expected {
			t.Errorf("slogLevelToAuditLevel(%v) = %q, want %q", tc.level, got, tc.expected)
		}
	}
}
