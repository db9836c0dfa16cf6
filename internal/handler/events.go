// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rmcosta/fedsite-go/internal/facade"
	"github.com/rmcosta/fedsite-go/internal/identity"
	"github.com/rmcosta/fedsite-go/internal/imaging"
	"github.com/rmcosta/fedsite-go/internal/middleware"
	"github.com/rmcosta/fedsite-go/internal/model"
	"github.com/rmcosta/fedsite-go/internal/render"
)

// EventHandler handles event proposal CRUD and moderation.
type EventHandler struct {
	facade *facade.Facade
}

// NewEventHandler creates a new event handler.
func NewEventHandler(f *facade.Facade) *EventHandler {
	return &EventHandler{facade: f}
}

// List handles GET /api/v1/events requests. An optional status query
// parameter filters by moderation status.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidEventStatus(status) {
		writeJSONError(w, http.StatusBadRequest, "unknown status "+status)
		return
	}

	events, err := h.facade.ListEvents(r.Context(), status)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{
		"events":    events,
		"demo_mode": h.facade.IsDemoMode(),
	})
}

// Get handles GET /api/v1/events/{id} requests.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.facade.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{
		"event":            event,
		"description_html": render.MarkdownOrEmpty(event.Description),
	})
}

// Create handles POST /api/v1/events requests. The body is multipart form
// data with the proposal fields plus an optional image part. Images are
// re-encoded and stripped of metadata before storage.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r)

	r.Body = http.MaxBytesReader(w, r.Body, facade.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(facade.MaxUploadSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	in := facade.EventInput{
		Title:            r.FormValue("title"),
		Description:      r.FormValue("description"),
		Location:         r.FormValue("location"),
		Category:         r.FormValue("category"),
		ImpactAssessment: r.FormValue("impact_assessment"),
	}

	if raw := r.FormValue("event_date"); raw != "" {
		date, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "event_date must be RFC 3339")
			return
		}
		in.EventDate = &date
	}
	if raw := r.FormValue("budget"); raw != "" {
		budget, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "budget must be a number")
			return
		}
		in.Budget = &budget
	}
	if raw := r.FormValue("participants_expected"); raw != "" {
		participants, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "participants_expected must be an integer")
			return
		}
		in.ParticipantsExpected = &participants
	}

	file, header, err := r.FormFile("image")
	switch err {
	case nil:
		defer func() { _ = file.Close() }()
		mimeType := header.Header.Get("Content-Type")
		if verr := facade.ValidateImageUpload(header.Filename, mimeType, header.Size); verr != nil {
			writeFacadeError(w, verr)
			return
		}
		data, rerr := io.ReadAll(file)
		if rerr != nil {
			writeJSONError(w, http.StatusBadRequest, "reading image: "+rerr.Error())
			return
		}
		processed, perr := imaging.Process(data)
		if perr != nil {
			writeJSONError(w, http.StatusBadRequest, "processing image: "+perr.Error())
			return
		}
		in.ImageName = header.Filename
		in.ImageType = processed.MimeType
		in.ImageData = processed.Data
	case http.ErrMissingFile:
		// Image is optional
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid image part: "+err.Error())
		return
	}

	event, err := h.facade.CreateEvent(r.Context(), ident.User, in)
	if err != nil {
		writeFacadeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSONSuccess(w, map[string]any{"event": event})
}

// eventPatchRequest is the body of PATCH /api/v1/events/{id}.
type eventPatchRequest struct {
	Title                *string         `json:"title"`
	Description          *string         `json:"description"`
	EventDate            *time.Time      `json:"event_date"`
	Location             *string         `json:"location"`
	Category             *string         `json:"category"`
	Status               *string         `json:"status"`
	Budget               *float64        `json:"budget"`
	ParticipantsExpected *int64          `json:"participants_expected"`
	TechnicalDetails     *map[string]any `json:"technical_details"`
	ImpactAssessment     *string         `json:"impact_assessment"`
}

// Update handles PATCH /api/v1/events/{id} requests. The proposer may edit
// while the event is still pending, an admin may edit at any stage. Approval
// decisions never go through this endpoint.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ident := middleware.GetIdentity(r)

	event, err := h.facade.GetEvent(r.Context(), id)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	if !identity.CanMutate(ident, event.CreatedBy) {
		writeJSONError(w, http.StatusForbidden, "you may only edit your own events")
		return
	}
	if !identity.CanModerate(ident) && event.Status != model.EventStatusPending {
		writeJSONError(w, http.StatusForbidden, "only pending events can be edited")
		return
	}

	var req eventPatchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Status != nil && *req.Status != event.Status &&
		(*req.Status == model.EventStatusApproved || *req.Status == model.EventStatusRejected) {
		writeJSONError(w, http.StatusForbidden, "approval decisions use the moderation endpoints")
		return
	}

	updated, err := h.facade.UpdateEvent(r.Context(), id, facade.EventPatch{
		Title:                req.Title,
		Description:          req.Description,
		EventDate:            req.EventDate,
		Location:             req.Location,
		Category:             req.Category,
		Status:               req.Status,
		Budget:               req.Budget,
		ParticipantsExpected: req.ParticipantsExpected,
		TechnicalDetails:     req.TechnicalDetails,
		ImpactAssessment:     req.ImpactAssessment,
	})
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"event": updated})
}

// Approve handles POST /api/v1/events/{id}/approve requests. Moderator only.
func (h *EventHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.facade.ApproveEvent)
}

// Reject handles POST /api/v1/events/{id}/reject requests. Moderator only.
func (h *EventHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.facade.RejectEvent)
}

func (h *EventHandler) decide(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id string, moderator model.AdminUser) (*model.Event, error)) {
	id := chi.URLParam(r, "id")
	ident := middleware.GetIdentity(r)

	event, err := fn(r.Context(), id, ident.User)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	slog.Info("event moderated", "id", id, "status", event.Status, "by", ident.User.ID)
	writeJSONSuccess(w, map[string]any{"event": event})
}

// Delete handles DELETE /api/v1/events/{id} requests.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ident := middleware.GetIdentity(r)

	event, err := h.facade.GetEvent(r.Context(), id)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	if !identity.CanMutate(ident, event.CreatedBy) {
		writeJSONError(w, http.StatusForbidden, "you may only delete your own events")
		return
	}

	if err := h.facade.DeleteEvent(r.Context(), id); err != nil {
		writeFacadeError(w, err)
		return
	}
	slog.Info("event deleted", "id", id, "by", ident.User.ID)
	writeJSONSuccess(w, nil)
}
