// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the server-side HTTP session carrying the
// signed-in identity between requests.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/rmcosta/fedsite-go/internal/identity"
)

// Session keys for the signed-in identity.
const (
	KeyUserID      = "user_id"
	KeyProvenance  = "provenance"
	KeyAccessToken = "access_token"
)

// New creates a session manager backed by the SQLite sessions table.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	sm.Store = sqlite3store.New(db)

	sm.Lifetime = 24 * time.Hour
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only

	return sm
}

// StoreIdentity records the signed-in identity in the session.
func StoreIdentity(ctx context.Context, sm *scs.SessionManager, ident *identity.Identity) {
	sm.Put(ctx, KeyUserID, ident.User.ID)
	sm.Put(ctx, KeyProvenance, string(ident.Provenance))
	sm.Put(ctx, KeyAccessToken, ident.AccessToken)
}

// AccessToken returns the stored remote access token, if any.
func AccessToken(ctx context.Context, sm *scs.SessionManager) string {
	return sm.GetString(ctx, KeyAccessToken)
}

// Clear removes the identity from the session.
func Clear(ctx context.Context, sm *scs.SessionManager) {
	sm.Remove(ctx, KeyUserID)
	sm.Remove(ctx, KeyProvenance)
	sm.Remove(ctx, KeyAccessToken)
}
