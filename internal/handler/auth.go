// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/rmcosta/fedsite-go/internal/facade"
	"github.com/rmcosta/fedsite-go/internal/identity"
	"github.com/rmcosta/fedsite-go/internal/middleware"
	"github.com/rmcosta/fedsite-go/internal/session"
)

// AuthHandler handles sign-in, sign-out and session introspection.
type AuthHandler struct {
	sm         *scs.SessionManager
	resolver   *identity.Resolver
	facade     *facade.Facade
	protection *middleware.LoginProtection
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sm *scs.SessionManager, resolver *identity.Resolver, f *facade.Facade, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		sm:         sm,
		resolver:   resolver,
		facade:     f,
		protection: lp,
	}
}

// loginRequest is the body of POST /api/v1/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if h.protection.IsLocked(email) {
		slog.Warn("sign-in attempt on locked account", "email", email)
		writeJSONError(w, http.StatusTooManyRequests, "account temporarily locked, try again later")
		return
	}

	ident, err := h.resolver.SignIn(r.Context(), email, req.Password)
	if err != nil {
		h.protection.RecordFailure(email)
		writeFacadeError(w, err)
		return
	}
	h.protection.RecordSuccess(email)

	// Demo identities force demo mode on so subsequent reads stay local.
	if ident.Provenance == identity.ProvenanceDemo {
		h.facade.SetDemoMode(true)
	}

	// New session token on privilege change
	if err := h.sm.RenewToken(r.Context()); err != nil {
		slog.Error("session token renewal failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	session.StoreIdentity(r.Context(), h.sm, ident)

	writeJSONSuccess(w, map[string]any{
		"user":       ident.User,
		"provenance": ident.Provenance,
		"demo_mode":  h.facade.IsDemoMode(),
	})
}

// Logout handles POST /api/v1/auth/logout requests.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r)
	if ident != nil {
		h.resolver.SignOut(r.Context(), ident)
	}
	session.Clear(r.Context(), h.sm)
	if err := h.sm.RenewToken(r.Context()); err != nil {
		slog.Warn("session token renewal failed", "error", err)
	}

	writeJSONSuccess(w, nil)
}

// Session handles GET /api/v1/auth/session requests. It reports the resolved
// identity, or signed_out when the request carries no usable session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r)
	if ident == nil {
		writeJSONSuccess(w, map[string]any{
			"state":     identity.StateSignedOut.String(),
			"demo_mode": h.facade.IsDemoMode(),
		})
		return
	}

	writeJSONSuccess(w, map[string]any{
		"state":      ident.State().String(),
		"user":       ident.User,
		"provenance": ident.Provenance,
		"demo_mode":  h.facade.IsDemoMode(),
	})
}
