// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rmcosta/fedsite-go/internal/facade"
	"github.com/rmcosta/fedsite-go/internal/identity"
	"github.com/rmcosta/fedsite-go/internal/middleware"
	"github.com/rmcosta/fedsite-go/internal/render"
)

// DocumentHandler handles document CRUD and file download.
type DocumentHandler struct {
	facade *facade.Facade
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(f *facade.Facade) *DocumentHandler {
	return &DocumentHandler{facade: f}
}

// List handles GET /api/v1/documents requests. An optional category query
// parameter filters by category slug.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.facade.ListDocuments(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{
		"documents": docs,
		"demo_mode": h.facade.IsDemoMode(),
	})
}

// Get handles GET /api/v1/documents/{id} requests.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.facade.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{
		"document":         doc,
		"description_html": render.MarkdownOrEmpty(doc.Description),
	})
}

// Create handles POST /api/v1/documents requests. The body is multipart form
// data with the metadata fields plus an optional file part.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r)

	r.Body = http.MaxBytesReader(w, r.Body, facade.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(facade.MaxUploadSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	in := facade.DocumentInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Tags:        splitTags(r.FormValue("tags")),
	}

	file, header, err := r.FormFile("file")
	switch err {
	case nil:
		defer func() { _ = file.Close() }()
		// Validate size and type before buffering the payload
		mimeType := header.Header.Get("Content-Type")
		if verr := facade.ValidateUpload(header.Filename, mimeType, header.Size); verr != nil {
			writeFacadeError(w, verr)
			return
		}
		data, rerr := io.ReadAll(file)
		if rerr != nil {
			writeJSONError(w, http.StatusBadRequest, "reading upload: "+rerr.Error())
			return
		}
		in.FileName = header.Filename
		in.FileType = mimeType
		in.FileSize = header.Size
		in.FileData = data
	case http.ErrMissingFile:
		// Metadata-only record
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid file part: "+err.Error())
		return
	}

	doc, err := h.facade.CreateDocument(r.Context(), ident.User, in)
	if err != nil {
		writeFacadeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSONSuccess(w, map[string]any{"document": doc})
}

// documentPatchRequest is the body of PATCH /api/v1/documents/{id}.
type documentPatchRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Tags        *[]string `json:"tags"`
}

// Update handles PATCH /api/v1/documents/{id} requests. Only the uploader or
// an admin may edit a document.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ident := middleware.GetIdentity(r)

	doc, err := h.facade.GetDocument(r.Context(), id)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	if !identity.CanMutate(ident, doc.UploadedBy) {
		writeJSONError(w, http.StatusForbidden, "you may only edit your own documents")
		return
	}

	var req documentPatchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	updated, err := h.facade.UpdateDocument(r.Context(), id, facade.DocumentPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
	})
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"document": updated})
}

// Delete handles DELETE /api/v1/documents/{id} requests.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ident := middleware.GetIdentity(r)

	doc, err := h.facade.GetDocument(r.Context(), id)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	if !identity.CanMutate(ident, doc.UploadedBy) {
		writeJSONError(w, http.StatusForbidden, "you may only delete your own documents")
		return
	}

	if err := h.facade.DeleteDocument(r.Context(), id); err != nil {
		writeFacadeError(w, err)
		return
	}
	slog.Info("document deleted", "id", id, "by", ident.User.ID)
	writeJSONSuccess(w, nil)
}

// Download handles GET /api/v1/documents/{id}/download requests. Files live
// only on the remote backend, so demo mode answers 409.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, doc, err := h.facade.DownloadDocument(r.Context(), id)
	if err != nil {
		writeFacadeError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.FileType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	_, _ = w.Write(data)
}

// splitTags parses a comma-separated tag list from a form value.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
