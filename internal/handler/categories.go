// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rmcosta/fedsite-go/internal/facade"
	"github.com/rmcosta/fedsite-go/internal/identity"
	"github.com/rmcosta/fedsite-go/internal/middleware"
)

// CategoryHandler handles document category administration.
type CategoryHandler struct {
	facade *facade.Facade
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(f *facade.Facade) *CategoryHandler {
	return &CategoryHandler{facade: f}
}

// List handles GET /api/v1/categories requests. Anonymous callers see only
// visible categories; admins may request hidden ones too.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	includeHidden := false
	if r.URL.Query().Get("include_hidden") == "true" {
		if !identity.CanModerate(middleware.GetIdentity(r)) {
			writeJSONError(w, http.StatusForbidden, "admin access required for hidden categories")
			return
		}
		includeHidden = true
	}

	categories, err := h.facade.ListCategories(r.Context(), includeHidden)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{
		"categories": categories,
		"demo_mode":  h.facade.IsDemoMode(),
	})
}

// Get handles GET /api/v1/categories/{id} requests.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.facade.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"category": category})
}

// categoryRequest is the body of POST /api/v1/categories.
type categoryRequest struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Visible   bool   `json:"visible"`
	SortOrder int64  `json:"sort_order"`
}

// Create handles POST /api/v1/categories requests. Admin only.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	category, err := h.facade.CreateCategory(r.Context(), facade.CategoryInput{
		Name:      req.Name,
		Slug:      req.Slug,
		Visible:   req.Visible,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		writeFacadeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSONSuccess(w, map[string]any{"category": category})
}

// categoryPatchRequest is the body of PATCH /api/v1/categories/{id}.
type categoryPatchRequest struct {
	Name      *string `json:"name"`
	Slug      *string `json:"slug"`
	Visible   *bool   `json:"visible"`
	SortOrder *int64  `json:"sort_order"`
}

// Update handles PATCH /api/v1/categories/{id} requests. Admin only.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req categoryPatchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	category, err := h.facade.UpdateCategory(r.Context(), chi.URLParam(r, "id"), facade.CategoryPatch{
		Name:      req.Name,
		Slug:      req.Slug,
		Visible:   req.Visible,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"category": category})
}

// visibilityRequest is the body of PUT /api/v1/categories/{id}/visibility.
type visibilityRequest struct {
	Visible bool `json:"visible"`
}

// SetVisibility handles PUT /api/v1/categories/{id}/visibility requests.
// Admin only.
func (h *CategoryHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	category, err := h.facade.SetCategoryVisibility(r.Context(), chi.URLParam(r, "id"), req.Visible)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"category": category})
}

// Delete handles DELETE /api/v1/categories/{id} requests. Admin only.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.facade.DeleteCategory(r.Context(), id); err != nil {
		writeFacadeError(w, err)
		return
	}
	slog.Info("category deleted", "id", id)
	writeJSONSuccess(w, nil)
}
