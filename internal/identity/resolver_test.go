// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rmcosta/fedsite-go/internal/model"
	"github.com/rmcosta/fedsite-go/internal/remote"
	"github.com/rmcosta/fedsite-go/internal/store"
	"github.com/rmcosta/fedsite-go/internal/testutil"
)

func newTestResolver(t *testing.T, client *remote.Client) (*Resolver, *sql.DB) {
	t.Helper()
	testutil.SilenceLogs(t)

	db := testutil.TestDB(t)
	r, err := NewResolver(client, db, 2*time.Second)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r, db
}

func TestSignInDemoAccount(t *testing.T) {
	r, _ := newTestResolver(t, remote.New("", ""))

	ident, err := r.SignIn(context.Background(), DemoAdminEmail, DemoPassword)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if ident.Provenance != ProvenanceDemo {
		t.Errorf("Provenance = %q, want demo", ident.Provenance)
	}
	if ident.User.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want admin", ident.User.Role)
	}
	if ident.State() != StateSignedInDemo {
		t.Errorf("State = %v, want StateSignedInDemo", ident.State())
	}
}

func TestSignInDemoAccountWrongPassword(t *testing.T) {
	r, _ := newTestResolver(t, remote.New("", ""))

	_, err := r.SignIn(context.Background(), DemoModeratorEmail, "nope")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("SignIn error = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignInMintsDemoIdentityWhenRemoteUnconfigured(t *testing.T) {
	r, _ := newTestResolver(t, remote.New("", ""))

	ident, err := r.SignIn(context.Background(), "someone@clube.org", "whatever")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if ident.Provenance != ProvenanceDemo {
		t.Errorf("Provenance = %q, want demo", ident.Provenance)
	}
	if ident.User.Role != model.RoleModerator {
		t.Errorf("Role = %q, want moderator", ident.User.Role)
	}
	if !strings.HasPrefix(ident.User.ID, "demo-user-") {
		t.Errorf("ID = %q, want demo-user- prefix", ident.User.ID)
	}
}

func TestSignInRoleInferenceFromEmail(t *testing.T) {
	r, _ := newTestResolver(t, remote.New("", ""))

	ident, err := r.SignIn(context.Background(), "admin.geral@clube.org", "whatever")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if ident.User.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want admin for email containing admin", ident.User.Role)
	}
}

func TestSignInFallsBackWhenRemoteFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, _ := newTestResolver(t, remote.New(srv.URL, "anon-key"))

	ident, err := r.SignIn(context.Background(), "visitante@clube.org", "whatever")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if ident.Provenance != ProvenanceDemo {
		t.Errorf("Provenance = %q, want demo after remote failure", ident.Provenance)
	}
}

func TestSignInRemote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_in":   3600,
			"user":         map[string]string{"id": "auth-1", "email": "rosa@federacao.org"},
		})
	})
	mux.HandleFunc("GET /rest/v1/admin_users", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"id":           "prof-1",
			"auth_user_id": "auth-1",
			"email":        "rosa@federacao.org",
			"name":         "Rosa",
			"role":         "admin",
			"created_at":   time.Now().UTC().Format(time.RFC3339),
			"updated_at":   time.Now().UTC().Format(time.RFC3339),
		}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r, _ := newTestResolver(t, remote.New(srv.URL, "anon-key"))

	ident, err := r.SignIn(context.Background(), "rosa@federacao.org", "secret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if ident.Provenance != ProvenanceRemote {
		t.Fatalf("Provenance = %q, want remote", ident.Provenance)
	}
	if ident.AccessToken != "tok-123" {
		t.Errorf("AccessToken = %q, want tok-123", ident.AccessToken)
	}
	if ident.User.ID != "prof-1" || ident.User.Role != model.RoleAdmin {
		t.Errorf("User = %+v, want remote profile", ident.User)
	}
}

func TestSignInRemoteProfileFailureSynthesizes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-456",
			"user":         map[string]string{"id": "auth-2", "email": "carlos@federacao.org"},
		})
	})
	mux.HandleFunc("/rest/v1/admin_users", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r, _ := newTestResolver(t, remote.New(srv.URL, "anon-key"))

	ident, err := r.SignIn(context.Background(), "carlos@federacao.org", "secret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if ident.Provenance != ProvenanceRemote {
		t.Errorf("Provenance = %q, want remote despite profile failure", ident.Provenance)
	}
	if ident.User.Email != "carlos@federacao.org" || ident.User.Role != model.RoleModerator {
		t.Errorf("synthesized user = %+v", ident.User)
	}
}

func TestResolvePersistedDemoSessionWins(t *testing.T) {
	// A remote backend that must never be contacted during demo resolution.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected remote call: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, _ := newTestResolver(t, remote.New(srv.URL, "anon-key"))

	if _, err := r.SignIn(context.Background(), DemoAdminEmail, DemoPassword); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	ident, err := r.Resolve(context.Background(), "stale-remote-token")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ident == nil || ident.Provenance != ProvenanceDemo {
		t.Fatalf("Resolve = %+v, want persisted demo identity", ident)
	}
	if ident.User.ID != store.DemoAdminID {
		t.Errorf("resolved user = %q, want %q", ident.User.ID, store.DemoAdminID)
	}
}

func TestResolveCorruptDemoSessionCleared(t *testing.T) {
	r, db := newTestResolver(t, remote.New("", ""))
	queries := store.New(db)

	ctx := context.Background()
	if err := queries.SetDemoSession(ctx, "{not json"); err != nil {
		t.Fatalf("SetDemoSession: %v", err)
	}

	ident, err := r.Resolve(ctx, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ident != nil {
		t.Fatalf("Resolve = %+v, want nil for corrupt session", ident)
	}
	if _, err := queries.GetDemoSession(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetDemoSession after corrupt resolve = %v, want ErrNotFound", err)
	}
}

func TestSignOutClearsDemoSession(t *testing.T) {
	r, db := newTestResolver(t, remote.New("", ""))

	ctx := context.Background()
	ident, err := r.SignIn(ctx, DemoAdminEmail, DemoPassword)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	r.SignOut(ctx, ident)

	if _, err := store.New(db).GetDemoSession(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("demo session still present after sign-out: %v", err)
	}
	if resolved, _ := r.Resolve(ctx, ""); resolved != nil {
		t.Errorf("Resolve after sign-out = %+v, want nil", resolved)
	}
}

func TestCanMutate(t *testing.T) {
	admin := &Identity{User: model.AdminUser{ID: "u1", Role: model.RoleAdmin}}
	mod := &Identity{User: model.AdminUser{ID: "u2", Role: model.RoleModerator}}

	if !CanMutate(admin, "someone-else") {
		t.Error("admin should mutate any record")
	}
	if !CanMutate(mod, "u2") {
		t.Error("owner should mutate own record")
	}
	if CanMutate(mod, "someone-else") {
		t.Error("moderator should not mutate others' records")
	}
	if CanMutate(nil, "u2") {
		t.Error("nil identity should not mutate")
	}
}

func TestCanModerate(t *testing.T) {
	admin := &Identity{User: model.AdminUser{ID: "u1", Role: model.RoleAdmin}}
	mod := &Identity{User: model.AdminUser{ID: "u2", Role: model.RoleModerator}}

	if !CanModerate(admin) {
		t.Error("admin should moderate")
	}
	if CanModerate(mod) {
		t.Error("moderator role should not approve events")
	}
	if CanModerate(nil) {
		t.Error("nil identity should not moderate")
	}
}
