// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package remote

import (
	"context"
	"fmt"
	"net/http"
)

// AuthUser is the backend's view of an authenticated account.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session holds the tokens and account returned by a successful sign-in.
type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	User         AuthUser `json:"user"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithPassword authenticates email/password credentials against the
// remote backend and returns the established session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/auth/v1/token?grant_type=password", c.baseURL)
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, endpoint, credentials{Email: email, Password: password}, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignUp registers a new account with the remote backend.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/auth/v1/signup", c.baseURL)
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, endpoint, credentials{Email: email, Password: password}, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignOut revokes the session behind the given access token. Failures are
// reported but callers treat sign-out as best-effort.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/auth/v1/logout", c.baseURL)
	return c.WithToken(accessToken).doJSON(ctx, http.MethodPost, endpoint, nil, nil, nil)
}

// GetUser returns the account behind an access token, or an APIError when
// the token is expired or revoked.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/auth/v1/user", c.baseURL)
	var user AuthUser
	if err := c.WithToken(accessToken).doJSON(ctx, http.MethodGet, endpoint, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
