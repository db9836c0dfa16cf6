// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rmcosta/fedsite-go/internal/facade"
	"github.com/rmcosta/fedsite-go/internal/remote"
	"github.com/rmcosta/fedsite-go/internal/store"
	"github.com/rmcosta/fedsite-go/internal/testutil"
)

func newTestScheduler(t *testing.T, client *remote.Client) (*Scheduler, *facade.Facade) {
	t.Helper()
	db := testutil.TestDB(t)
	f := facade.New(facade.Options{
		Remote:  client,
		DB:      db,
		Timeout: time.Second,
	})
	s := New(db, client, f, slog.Default(), false)
	return s, f
}

func TestProbeRecoversFromDemoMode(t *testing.T) {
	testutil.SilenceLogs(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s, f := newTestScheduler(t, remote.New(server.URL, "anon-key"))
	f.SetDemoMode(true)

	s.probeRemote()

	if f.IsDemoMode() {
		t.Error("reachable backend should end demo mode")
	}
}

func TestProbeEntersDemoModeWhenUnreachable(t *testing.T) {
	testutil.SilenceLogs(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s, f := newTestScheduler(t, remote.New(server.URL, "anon-key"))
	if f.IsDemoMode() {
		t.Fatal("facade with a configured remote should start in remote mode")
	}

	s.probeRemote()

	if !f.IsDemoMode() {
		t.Error("unreachable backend should force demo mode")
	}
}

func TestResetDemoContent(t *testing.T) {
	testutil.SilenceLogs(t)

	db := testutil.SeededDB(t)
	client := remote.New("", "")
	f := facade.New(facade.Options{Remote: client, DB: db, Timeout: time.Second})
	s := New(db, client, f, slog.Default(), true)

	queries := store.New(db)
	ctx := context.Background()

	// Drift the content away from the seed state
	if err := queries.DeleteDocument(ctx, "demo-doc-1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	s.resetDemoContent()

	if _, err := queries.GetDocumentByID(ctx, "demo-doc-1"); err != nil {
		t.Errorf("seeded document missing after reset: %v", err)
	}
}
