// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rmcosta/fedsite-go/internal/facade"
	"github.com/rmcosta/fedsite-go/internal/identity"
)

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}

// writeJSONSuccess writes a JSON success response.
func writeJSONSuccess(w http.ResponseWriter, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if data == nil {
		data = make(map[string]any)
	}
	data["success"] = true
	_ = json.NewEncoder(w).Encode(data)
}

// writeFacadeError maps data-layer errors onto HTTP status codes.
func writeFacadeError(w http.ResponseWriter, err error) {
	var ve *facade.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSONError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, facade.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, facade.ErrDemoModeUnsupported):
		writeJSONError(w, http.StatusConflict, "file storage is not available in demo mode")
	case errors.Is(err, facade.ErrRemoteTimeout):
		writeJSONError(w, http.StatusGatewayTimeout, "remote backend timed out")
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
	default:
		slog.Error("request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSONBody decodes a request body into dst, rejecting unknown fields
// and oversized payloads.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
