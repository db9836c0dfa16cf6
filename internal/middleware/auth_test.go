// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rmcosta/fedsite-go/internal/identity"
	"github.com/rmcosta/fedsite-go/internal/model"
)

func withIdentity(r *http.Request, ident *identity.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ContextKeyIdentity, ident))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)

	RequireAuth(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthPassesSignedIn(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req = withIdentity(req, &identity.Identity{
		User: model.AdminUser{ID: "u1", Role: model.RoleModerator},
	})

	RequireAuth(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireModerator(t *testing.T) {
	cases := []struct {
		name  string
		ident *identity.Identity
		want  int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"moderator", &identity.Identity{User: model.AdminUser{ID: "u1", Role: model.RoleModerator}}, http.StatusForbidden},
		{"admin", &identity.Identity{User: model.AdminUser{ID: "u2", Role: model.RoleAdmin}}, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/events/x/approve", nil)
			if tc.ident != nil {
				req = withIdentity(req, tc.ident)
			}

			RequireModerator(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestLoginProtectionLockout(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
	})

	email := "visitante@clube.org"
	if lp.IsLocked(email) {
		t.Fatal("fresh account should not be locked")
	}

	for i := 0; i < 3; i++ {
		lp.RecordFailure(email)
	}
	if !lp.IsLocked(email) {
		t.Error("account should lock after the threshold")
	}

	lp.RecordSuccess(email)
	if lp.IsLocked(email) {
		t.Error("successful sign-in should clear the lockout")
	}
}

func TestLoginProtectionRateLimit(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit: 0.001, // effectively one request
		IPBurst:     1,
	})

	handler := lp.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.7:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", rec.Code)
	}
}
