// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package remote implements the client for the hosted backend-as-a-service:
// PostgREST-style table CRUD, password authentication and blob storage.
// The façade depends only on these primitives, not on any schema dialect.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// httpTimeout is the hard ceiling on any single remote request. The façade
// enforces its own, shorter per-operation budget; this only prevents an
// abandoned loser of the timeout race from holding a connection forever.
const httpTimeout = 30 * time.Second

// Client talks to the remote backend. The zero value is not usable; use New.
type Client struct {
	baseURL   string
	apiKey    string
	authToken string
	http      *http.Client
}

// New creates a remote backend client. baseURL and apiKey may be empty, in
// which case every call returns ErrNotConfigured.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: httpTimeout},
	}
}

// Enabled reports whether the client has both a URL and an API key.
func (c *Client) Enabled() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// WithToken returns a copy of the client that sends the given access token
// as the bearer credential instead of the anonymous key.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.authToken = token
	return &clone
}

// Filter restricts a Select to rows where Column satisfies Op against Value,
// e.g. {Column: "category", Op: "eq", Value: "estatuto"}.
type Filter struct {
	Column string
	Op     string
	Value  string
}

// Order describes the ordering of a Select.
type Order struct {
	Column string
	Desc   bool
}

// Select queries table rows into dest (a pointer to a slice). selectExpr is
// the projection, including embedded joins, e.g. "*, admin_users(*)".
func (c *Client) Select(ctx context.Context, table, selectExpr string, filters []Filter, order *Order, dest any) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	params := url.Values{}
	params.Set("select", selectExpr)
	for _, f := range filters {
		params.Set(f.Column, f.Op+"."+f.Value)
	}
	if order != nil {
		dir := "asc"
		if order.Desc {
			dir = "desc"
		}
		params.Set("order", order.Column+"."+dir)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, params.Encode())
	return c.doJSON(ctx, http.MethodGet, endpoint, nil, nil, dest)
}

// Insert inserts a row and decodes the returned representation into dest
// (a pointer to a slice) when dest is non-nil.
func (c *Client) Insert(ctx context.Context, table string, row any, dest any) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	headers := map[string]string{"Prefer": "return=representation"}
	return c.doJSON(ctx, http.MethodPost, endpoint, row, headers, dest)
}

// Update patches the row with the given id and decodes the returned
// representation into dest (a pointer to a slice) when dest is non-nil.
func (c *Client) Update(ctx context.Context, table, id string, patch any, dest any) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.baseURL, table, url.QueryEscape(id))
	headers := map[string]string{"Prefer": "return=representation"}
	return c.doJSON(ctx, http.MethodPatch, endpoint, patch, headers, dest)
}

// Delete removes the row with the given id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.baseURL, table, url.QueryEscape(id))
	return c.doJSON(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

// Probe checks whether the remote backend is reachable. It hits the auth
// service's health endpoint, which answers without credentials.
func (c *Client) Probe(ctx context.Context) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	return c.doJSON(ctx, http.MethodGet, c.baseURL+"/auth/v1/health", nil, nil, nil)
}

// doJSON performs a request with JSON encoding on both sides and maps
// non-2xx responses to *APIError.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body any, headers map[string]string, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setAuthHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// setAuthHeaders attaches the API key and bearer credential. The anonymous
// key doubles as the bearer token when no user token is present.
func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	token := c.authToken
	if token == "" {
		token = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// decodeAPIError reads a structured error from a failed response. Bodies
// that fail to parse still produce an APIError with the HTTP status.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, apiErr)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
