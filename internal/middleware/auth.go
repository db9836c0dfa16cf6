// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/rmcosta/fedsite-go/internal/identity"
	"github.com/rmcosta/fedsite-go/internal/session"
)

// LoadIdentity resolves the identity behind the session, if any, and puts it
// into the request context. It never rejects the request; anonymous requests
// pass through without an identity.
func LoadIdentity(sm *scs.SessionManager, resolver *identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sm.GetString(r.Context(), session.KeyUserID) == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := session.AccessToken(r.Context(), sm)
			ident, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				slog.Warn("identity resolution failed", "error", err)
			}
			if ident == nil {
				// Stale session; drop the stored identity
				session.Clear(r.Context(), sm)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a resolved identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentity(r) == nil {
			WriteJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireModerator rejects requests whose identity cannot moderate.
func RequireModerator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := GetIdentity(r)
		if ident == nil {
			WriteJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !identity.CanModerate(ident) {
			WriteJSONError(w, http.StatusForbidden, "moderator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity retrieves the resolved identity from the request context.
// Returns nil for anonymous requests.
func GetIdentity(r *http.Request) *identity.Identity {
	ident, ok := r.Context().Value(ContextKeyIdentity).(*identity.Identity)
	if !ok {
		return nil
	}
	return ident
}
