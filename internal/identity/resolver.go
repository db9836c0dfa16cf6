// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rmcosta/fedsite-go/internal/auth"
	"github.com/rmcosta/fedsite-go/internal/model"
	"github.com/rmcosta/fedsite-go/internal/remote"
	"github.com/rmcosta/fedsite-go/internal/store"
)

// Built-in demo account credentials. These are published on the demo site's
// sign-in page; the hashes exist so the verification path matches real
// credential handling.
const (
	DemoAdminEmail     = "admin@demo.fedsite.org"
	DemoModeratorEmail = "moderador@demo.fedsite.org"
	DemoPassword       = "demo1234"
)

// ErrInvalidCredentials is returned when a built-in demo account is addressed
// with the wrong password.
var ErrInvalidCredentials = errors.New("identity: invalid credentials")

// Resolver implements the sign-in state machine over the two backends.
type Resolver struct {
	remote  *remote.Client
	queries *store.Queries
	db      *sql.DB
	timeout time.Duration

	demoAccounts map[string]demoAccount
}

type demoAccount struct {
	userID       string
	passwordHash string
}

// NewResolver creates a Resolver. timeout bounds every remote auth call;
// expiry of the budget is treated like any other remote failure.
func NewResolver(client *remote.Client, db *sql.DB, timeout time.Duration) (*Resolver, error) {
	accounts := make(map[string]demoAccount, 2)
	for email, userID := range map[string]string{
		DemoAdminEmail:     store.DemoAdminID,
		DemoModeratorEmail: store.DemoModeratorID,
	} {
		hash, err := auth.HashPassword(DemoPassword)
		if err != nil {
			return nil, fmt.Errorf("hashing demo credentials: %w", err)
		}
		accounts[email] = demoAccount{userID: userID, passwordHash: hash}
	}

	return &Resolver{
		remote:       client,
		queries:      store.New(db),
		db:           db,
		timeout:      timeout,
		demoAccounts: accounts,
	}, nil
}

// SignIn authenticates email/password and returns the established identity.
// Built-in demo accounts are checked first and never contact the remote
// backend. Any other email goes to the remote backend when it is configured;
// any remote failure, including timeout, mints a local demo identity instead
// of surfacing an error.
func (r *Resolver) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if account, ok := r.demoAccounts[email]; ok {
		return r.signInDemoAccount(ctx, account, password)
	}

	if r.remote.Enabled() {
		ident, err := r.signInRemote(ctx, email, password)
		if err == nil {
			return ident, nil
		}
		slog.Warn("remote sign-in failed, falling back to demo identity",
			"email", email, "error", err)
	}

	return r.mintDemoIdentity(ctx, email)
}

func (r *Resolver) signInDemoAccount(ctx context.Context, account demoAccount, password string) (*Identity, error) {
	ok, err := auth.CheckPassword(password, account.passwordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying demo credentials: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := store.SeedIfEmpty(ctx, r.db); err != nil {
		return nil, err
	}
	user, err := r.queries.GetUserByID(ctx, account.userID)
	if err != nil {
		return nil, fmt.Errorf("loading demo account: %w", err)
	}

	ident := &Identity{User: user, Provenance: ProvenanceDemo}
	if err := r.persistDemoSession(ctx, ident); err != nil {
		slog.Warn("persisting demo session failed", "error", err)
	}
	return ident, nil
}

func (r *Resolver) signInRemote(ctx context.Context, email, password string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	session, err := r.remote.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	user, err := r.loadOrCreateProfile(ctx, session.AccessToken, session.User)
	if err != nil {
		// Auth succeeded; a missing profile must not sign the user out.
		slog.Warn("loading remote profile failed, synthesizing local profile",
			"email", email, "error", err)
		user = synthesizeUser(session.User.ID, email)
	}

	return &Identity{
		User:        user,
		Provenance:  ProvenanceRemote,
		AccessToken: session.AccessToken,
	}, nil
}

// mintDemoIdentity creates a local stand-in identity so the back office stays
// usable while the remote backend is down. The role is inferred from the
// email address, matching the hosted demo's convention.
func (r *Resolver) mintDemoIdentity(ctx context.Context, email string) (*Identity, error) {
	if err := store.SeedIfEmpty(ctx, r.db); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user, err := r.queries.UpsertUser(ctx, model.AdminUser{
		ID:        "demo-user-" + strconv.FormatInt(now.UnixMilli(), 10),
		Email:     email,
		Name:      displayName(email),
		Role:      roleForEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("minting demo identity: %w", err)
	}

	ident := &Identity{User: user, Provenance: ProvenanceDemo}
	if err := r.persistDemoSession(ctx, ident); err != nil {
		slog.Warn("persisting demo session failed", "error", err)
	}
	return ident, nil
}

// Resolve restores the identity for a returning session. The persisted demo
// session is consulted first and wins without any remote traffic; only when
// it is absent is the remote access token, if any, validated.
func (r *Resolver) Resolve(ctx context.Context, accessToken string) (*Identity, error) {
	if ident := r.loadDemoSession(ctx); ident != nil {
		return ident, nil
	}

	if accessToken == "" || !r.remote.Enabled() {
		return nil, nil
	}

	rctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	authUser, err := r.remote.GetUser(rctx, accessToken)
	if err != nil {
		slog.Warn("remote session validation failed", "error", err)
		return nil, nil
	}

	user, err := r.loadOrCreateProfile(rctx, accessToken, *authUser)
	if err != nil {
		slog.Warn("loading remote profile failed, synthesizing local profile",
			"email", authUser.Email, "error", err)
		user = synthesizeUser(authUser.ID, authUser.Email)
	}

	return &Identity{
		User:        user,
		Provenance:  ProvenanceRemote,
		AccessToken: accessToken,
	}, nil
}

// SignOut ends the session. Remote sign-out is best-effort; the caller always
// ends up signed out locally.
func (r *Resolver) SignOut(ctx context.Context, ident *Identity) {
	if ident != nil && ident.Provenance == ProvenanceRemote && ident.AccessToken != "" {
		rctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		if err := r.remote.SignOut(rctx, ident.AccessToken); err != nil {
			slog.Warn("remote sign-out failed", "error", err)
		}
	}

	if err := r.queries.ClearDemoSession(ctx); err != nil {
		slog.Warn("clearing demo session failed", "error", err)
	}
}

// persistDemoSession serializes the identity into the single demo session row.
func (r *Resolver) persistDemoSession(ctx context.Context, ident *Identity) error {
	payload, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("encoding demo session: %w", err)
	}
	return r.queries.SetDemoSession(ctx, string(payload))
}

// loadDemoSession returns the persisted demo identity, or nil when none is
// stored. A corrupt row is cleared and treated as absent.
func (r *Resolver) loadDemoSession(ctx context.Context) *Identity {
	payload, err := r.queries.GetDemoSession(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("reading demo session failed", "error", err)
		}
		return nil
	}

	var ident Identity
	if err := json.Unmarshal([]byte(payload), &ident); err != nil || ident.User.ID == "" {
		slog.Warn("clearing corrupt demo session")
		_ = r.queries.ClearDemoSession(ctx)
		return nil
	}
	ident.Provenance = ProvenanceDemo
	return &ident
}

// remoteProfile mirrors the remote admin_users table row.
type remoteProfile struct {
	ID         string    `json:"id"`
	AuthUserID string    `json:"auth_user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p remoteProfile) toModel() model.AdminUser {
	role := p.Role
	if !model.ValidRole(role) {
		role = model.RoleModerator
	}
	return model.AdminUser{
		ID:         p.ID,
		AuthUserID: p.AuthUserID,
		Email:      p.Email,
		Name:       p.Name,
		Role:       role,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// loadOrCreateProfile fetches the admin_users row for an authenticated
// account, creating it on first sign-in.
func (r *Resolver) loadOrCreateProfile(ctx context.Context, token string, authUser remote.AuthUser) (model.AdminUser, error) {
	client := r.remote.WithToken(token)

	var rows []remoteProfile
	err := client.Select(ctx, "admin_users", "*",
		[]remote.Filter{{Column: "auth_user_id", Op: "eq", Value: authUser.ID}}, nil, &rows)
	if err != nil {
		return model.AdminUser{}, err
	}
	if len(rows) > 0 {
		return rows[0].toModel(), nil
	}

	fresh := synthesizeUser(authUser.ID, authUser.Email)
	var created []remoteProfile
	err = client.Insert(ctx, "admin_users", map[string]any{
		"auth_user_id": fresh.AuthUserID,
		"email":        fresh.Email,
		"name":         fresh.Name,
		"role":         fresh.Role,
	}, &created)
	if err != nil {
		return model.AdminUser{}, err
	}
	if len(created) == 0 {
		return model.AdminUser{}, errors.New("identity: empty insert representation")
	}
	return created[0].toModel(), nil
}

// synthesizeUser builds a profile from nothing but the auth account. Used
// when the profile table is unreachable or the row does not exist yet.
func synthesizeUser(authUserID, email string) model.AdminUser {
	now := time.Now().UTC()
	return model.AdminUser{
		ID:         authUserID,
		AuthUserID: authUserID,
		Email:      email,
		Name:       displayName(email),
		Role:       roleForEmail(email),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// roleForEmail infers the role from the address: any email containing
// "admin" gets the admin role. Crude, but it matches how the hosted demo
// assigns roles to ad-hoc visitors.
func roleForEmail(email string) string {
	if strings.Contains(strings.ToLower(email), "admin") {
		return model.RoleAdmin
	}
	return model.RoleModerator
}

func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}
