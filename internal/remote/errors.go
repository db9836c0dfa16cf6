// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package remote

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the remote backend URL or API key is
// missing. Callers treat it like any other remote failure and fall back.
var ErrNotConfigured = errors.New("remote backend not configured")

// APIError is a structured error returned by the remote backend. Permission
// failures and missing tables surface here; the façade treats them the same
// as network failures.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote backend error (%d/%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote backend error (%d): %s", e.Status, e.Message)
}

// IsNotFound reports whether the error indicates a missing row.
func (e *APIError) IsNotFound() bool {
	return e.Status == 404 || e.Code == "PGRST116"
}
