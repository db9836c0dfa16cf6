// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package facade is the dual-backend access layer. Every operation goes to
// the remote backend first under a bounded time budget; any remote failure
// falls back to the local demo store so the back office keeps working
// offline. Blob storage is the exception: blobs live only on the remote
// backend and demo mode rejects blob operations outright.
package facade

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rmcosta/fedsite-go/internal/cache"
	"github.com/rmcosta/fedsite-go/internal/model"
	"github.com/rmcosta/fedsite-go/internal/remote"
	"github.com/rmcosta/fedsite-go/internal/store"
)

// Sentinel errors surfaced to handlers.
var (
	// ErrNotFound means neither backend has the requested record.
	ErrNotFound = errors.New("facade: not found")

	// ErrDemoModeUnsupported is returned by blob operations in demo mode.
	ErrDemoModeUnsupported = errors.New("facade: operation not available in demo mode")

	// ErrRemoteTimeout means the remote backend missed the time budget.
	ErrRemoteTimeout = errors.New("facade: remote backend timed out")
)

// Remote table and bucket names.
const (
	tableDocuments  = "documents"
	tableEvents     = "events"
	tableCategories = "doc_categories"
)

// Cache keys for the public read-through listings.
const (
	cacheKeyCategories   = "categories:public"
	cacheKeyAllDocuments = "documents:all"
)

// Facade routes entity operations across the remote backend and the demo
// store. Safe for concurrent use.
type Facade struct {
	remote  *remote.Client
	queries *store.Queries
	db      *sql.DB
	timeout time.Duration

	documentsBucket string
	eventsBucket    string

	catCache *cache.TypedCache[[]model.DocCategory]
	docCache *cache.TypedCache[[]model.Document]

	demoMode atomic.Bool
	seedOnce sync.Once
	seedErr  error
}

// Options configures a Facade.
type Options struct {
	Remote          *remote.Client
	DB              *sql.DB
	Timeout         time.Duration
	DocumentsBucket string
	EventsBucket    string
	Cache           cache.Cache
	CacheTTL        time.Duration
}

// New creates a Facade. When the remote client is not configured the façade
// starts in demo mode.
func New(opts Options) *Facade {
	f := &Facade{
		remote:          opts.Remote,
		queries:         store.New(opts.DB),
		db:              opts.DB,
		timeout:         opts.Timeout,
		documentsBucket: opts.DocumentsBucket,
		eventsBucket:    opts.EventsBucket,
	}
	if opts.Cache != nil {
		f.catCache = cache.NewTypedCache[[]model.DocCategory](opts.Cache, opts.CacheTTL)
		f.docCache = cache.NewTypedCache[[]model.Document](opts.Cache, opts.CacheTTL)
	}
	if !opts.Remote.Enabled() {
		f.demoMode.Store(true)
	}
	return f
}

// IsDemoMode reports whether the façade is currently serving from the demo
// store. The UI renders its demo banner from this flag.
func (f *Facade) IsDemoMode() bool {
	return f.demoMode.Load()
}

// SetDemoMode flips the serving mode. Demo sign-ins force demo mode on; the
// reachability probe turns it back off when the remote backend recovers.
func (f *Facade) SetDemoMode(on bool) {
	if f.demoMode.Swap(on) != on {
		slog.Info("demo mode changed", "enabled", on)
	}
}

// useDemo reports whether operations should skip the remote backend.
func (f *Facade) useDemo() bool {
	return f.demoMode.Load() || !f.remote.Enabled()
}

// ensureSeeded lazily seeds the demo store before its first use.
func (f *Facade) ensureSeeded(ctx context.Context) error {
	f.seedOnce.Do(func() {
		f.seedErr = store.SeedIfEmpty(ctx, f.db)
	})
	return f.seedErr
}

var (
	demoIDMu   sync.Mutex
	demoIDLast int64
)

// newDemoID synthesizes a locally unique id for demo-store creates. The
// millisecond clock is forced strictly monotonic so two creates in the same
// millisecond cannot collide and ids always sort in creation order.
func newDemoID(kind string) string {
	demoIDMu.Lock()
	now := time.Now().UnixMilli()
	if now <= demoIDLast {
		now = demoIDLast + 1
	}
	demoIDLast = now
	demoIDMu.Unlock()
	return "demo-" + kind + "-" + strconv.FormatInt(now, 10)
}

type raceResult[T any] struct {
	val T
	err error
}

// race runs fn against the time budget. The channel is buffered and drained
// by a goroutine on timeout so a late result is received and discarded, never
// applied.
func race[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ch := make(chan raceResult[T], 1)
	go func() {
		val, err := fn(ctx)
		ch <- raceResult[T]{val: val, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case res := <-ch:
		return res.val, res.err
	case <-timer.C:
		go func() { <-ch }()
		return zero, ErrRemoteTimeout
	case <-ctx.Done():
		go func() { <-ch }()
		return zero, ctx.Err()
	}
}

// remoteFirst implements the core access policy: remote under budget, demo
// store on any remote failure. ErrNotFound is a successful remote answer
// (the row does not exist) and passes through without triggering fallback.
func remoteFirst[T any](ctx context.Context, f *Facade, op string, remoteFn, demoFn func(context.Context) (T, error)) (T, error) {
	if f.useDemo() {
		return demoFn(ctx)
	}

	val, err := race(ctx, f.timeout, remoteFn)
	if err == nil || errors.Is(err, ErrNotFound) {
		return val, err
	}

	slog.Warn("remote backend failed, falling back to demo store", "op", op, "error", err)
	f.SetDemoMode(true)
	return demoFn(ctx)
}

// invalidateCategories drops the cached public category listing.
func (f *Facade) invalidateCategories(ctx context.Context) {
	if f.catCache != nil {
		_ = f.catCache.Delete(ctx, cacheKeyCategories)
	}
}

// invalidateDocuments drops the cached unfiltered document listing.
func (f *Facade) invalidateDocuments(ctx context.Context) {
	if f.docCache != nil {
		_ = f.docCache.Delete(ctx, cacheKeyAllDocuments)
	}
}

// actorID upserts the acting user into the demo store and returns the local
// id. Demo-store rows reference demo_users; a remote identity falling back
// mid-operation gets a local row on first write.
func (f *Facade) actorID(ctx context.Context, actor model.AdminUser) (string, error) {
	if actor.ID == "" {
		return "", &ValidationError{Field: "actor", Message: "acting user is required"}
	}
	now := time.Now().UTC()
	if actor.CreatedAt.IsZero() {
		actor.CreatedAt = now
	}
	actor.UpdatedAt = now
	local, err := f.queries.UpsertUser(ctx, actor)
	if err != nil {
		return "", err
	}
	return local.ID, nil
}
