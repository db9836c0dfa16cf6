// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package facade

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rmcosta/fedsite-go/internal/model"
	"github.com/rmcosta/fedsite-go/internal/remote"
	"github.com/rmcosta/fedsite-go/internal/store"
)

// EventInput holds the fields of a new event proposal. ImageData, when
// present, has already been re-encoded by the image processor.
type EventInput struct {
	Title                string
	Description          string
	EventDate            *time.Time
	Location             string
	Category             string
	Budget               *float64
	ParticipantsExpected *int64
	TechnicalDetails     map[string]any
	ImpactAssessment     string
	ImageName            string
	ImageType            string
	ImageData            []byte
}

// EventPatch holds a partial event update. Nil fields are left untouched; an
// all-nil patch is a no-op that returns the current record. Status changes
// are validated against the event's transition rules.
type EventPatch struct {
	Title                *string
	Description          *string
	EventDate            *time.Time
	Location             *string
	Category             *string
	Status               *string
	Budget               *float64
	ParticipantsExpected *int64
	TechnicalDetails     *map[string]any
	ImpactAssessment     *string
}

func (p EventPatch) apply(e *model.Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.EventDate != nil {
		e.EventDate = p.EventDate
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Budget != nil {
		e.Budget = p.Budget
	}
	if p.ParticipantsExpected != nil {
		e.ParticipantsExpected = p.ParticipantsExpected
	}
	if p.TechnicalDetails != nil {
		e.TechnicalDetails = *p.TechnicalDetails
	}
	if p.ImpactAssessment != nil {
		e.ImpactAssessment = *p.ImpactAssessment
	}
}

func (p EventPatch) remotePatch() map[string]any {
	patch := map[string]any{"updated_at": time.Now().UTC()}
	if p.Title != nil {
		patch["title"] = *p.Title
	}
	if p.Description != nil {
		patch["description"] = *p.Description
	}
	if p.EventDate != nil {
		patch["event_date"] = *p.EventDate
	}
	if p.Location != nil {
		patch["location"] = *p.Location
	}
	if p.Category != nil {
		patch["category"] = *p.Category
	}
	if p.Status != nil {
		patch["status"] = *p.Status
	}
	if p.Budget != nil {
		patch["budget"] = *p.Budget
	}
	if p.ParticipantsExpected != nil {
		patch["participants_expected"] = *p.ParticipantsExpected
	}
	if p.TechnicalDetails != nil {
		patch["technical_details"] = *p.TechnicalDetails
	}
	if p.ImpactAssessment != nil {
		patch["impact_assessment"] = *p.ImpactAssessment
	}
	return patch
}

// ListEvents returns events most recent first, optionally filtered by status.
func (f *Facade) ListEvents(ctx context.Context, status string) ([]model.Event, error) {
	events, err := remoteFirst(ctx, f, "events.list",
		func(ctx context.Context) ([]model.Event, error) {
			var filters []remote.Filter
			if status != "" {
				filters = append(filters, remote.Filter{Column: "status", Op: "eq", Value: status})
			}
			var events []model.Event
			err := f.remote.Select(ctx, tableEvents, "*, admin_users(*)",
				filters, &remote.Order{Column: "created_at", Desc: true}, &events)
			return events, err
		},
		func(ctx context.Context) ([]model.Event, error) {
			if err := f.ensureSeeded(ctx); err != nil {
				return nil, err
			}
			return f.queries.ListEvents(ctx, status)
		})

	if events == nil {
		events = []model.Event{}
	}
	return events, err
}

// GetEvent returns a single event with its creator.
func (f *Facade) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return remoteFirst(ctx, f, "events.get",
		func(ctx context.Context) (*model.Event, error) {
			return f.getEventRemote(ctx, id)
		},
		func(ctx context.Context) (*model.Event, error) {
			return f.getEventDemo(ctx, id)
		})
}

func (f *Facade) getEventRemote(ctx context.Context, id string) (*model.Event, error) {
	var events []model.Event
	err := f.remote.Select(ctx, tableEvents, "*, admin_users(*)",
		[]remote.Filter{{Column: "id", Op: "eq", Value: id}}, nil, &events)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return &events[0], nil
}

func (f *Facade) getEventDemo(ctx context.Context, id string) (*model.Event, error) {
	if err := f.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	event, err := f.queries.GetEventByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateEvent validates the input and inserts a pending event proposal. The
// optional image goes to blob storage on the remote path; demo mode keeps the
// event and drops the image, since blobs never persist locally.
func (f *Facade) CreateEvent(ctx context.Context, actor model.AdminUser, in EventInput) (*model.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	return remoteFirst(ctx, f, "events.create",
		func(ctx context.Context) (*model.Event, error) {
			return f.createEventRemote(ctx, actor, in)
		},
		func(ctx context.Context) (*model.Event, error) {
			return f.createEventDemo(ctx, actor, in)
		})
}

func (f *Facade) createEventRemote(ctx context.Context, actor model.AdminUser, in EventInput) (*model.Event, error) {
	imagePath := ""
	if len(in.ImageData) > 0 {
		imagePath = uuid.NewString() + "-" + in.ImageName
		if err := f.remote.UploadBlob(ctx, f.eventsBucket, imagePath, in.ImageData, in.ImageType); err != nil {
			return nil, err
		}
	}

	details := in.TechnicalDetails
	if details == nil {
		details = map[string]any{}
	}
	row := map[string]any{
		"title":             in.Title,
		"description":       in.Description,
		"location":          in.Location,
		"category":          in.Category,
		"status":            model.EventStatusPending,
		"technical_details": details,
		"impact_assessment": in.ImpactAssessment,
		"image_path":        imagePath,
		"created_by":        actor.ID,
	}
	if in.EventDate != nil {
		row["event_date"] = *in.EventDate
	}
	if in.Budget != nil {
		row["budget"] = *in.Budget
	}
	if in.ParticipantsExpected != nil {
		row["participants_expected"] = *in.ParticipantsExpected
	}

	var created []model.Event
	if err := f.remote.Insert(ctx, tableEvents, row, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, errors.New("facade: empty insert representation")
	}
	event := created[0]
	event.Creator = &actor
	return &event, nil
}

func (f *Facade) createEventDemo(ctx context.Context, actor model.AdminUser, in EventInput) (*model.Event, error) {
	if err := f.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	creatorID, err := f.actorID(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(in.ImageData) > 0 {
		slog.Warn("dropping event image, blobs are not stored in demo mode", "image", in.ImageName)
	}

	now := time.Now().UTC()
	event := model.Event{
		ID:                   newDemoID("event"),
		Title:                in.Title,
		Description:          in.Description,
		EventDate:            in.EventDate,
		Location:             in.Location,
		Category:             in.Category,
		Status:               model.EventStatusPending,
		Budget:               in.Budget,
		ParticipantsExpected: in.ParticipantsExpected,
		TechnicalDetails:     in.TechnicalDetails,
		ImpactAssessment:     in.ImpactAssessment,
		CreatedBy:            creatorID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := f.queries.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	return f.getEventDemo(ctx, event.ID)
}

// UpdateEvent applies a partial update. An empty patch still writes, so
// updatedAt moves while every other field keeps its value. Status changes
// must follow the transition rules.
func (f *Facade) UpdateEvent(ctx context.Context, id string, patch EventPatch) (*model.Event, error) {
	current, err := f.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil {
		if !model.ValidEventStatus(*patch.Status) {
			return nil, &ValidationError{Field: "status", Message: "unknown status " + *patch.Status}
		}
		if !model.CanTransition(current.Status, *patch.Status) {
			return nil, &ValidationError{Field: "status",
				Message: "cannot move from " + current.Status + " to " + *patch.Status}
		}
	}

	return remoteFirst(ctx, f, "events.update",
		func(ctx context.Context) (*model.Event, error) {
			if err := f.remote.Update(ctx, tableEvents, id, patch.remotePatch(), nil); err != nil {
				return nil, err
			}
			return f.getEventRemote(ctx, id)
		},
		func(ctx context.Context) (*model.Event, error) {
			event, err := f.getEventDemo(ctx, id)
			if err != nil {
				return nil, err
			}
			patch.apply(event)
			event.UpdatedAt = time.Now().UTC()
			if err := f.queries.UpdateEvent(ctx, *event); err != nil {
				return nil, err
			}
			return f.getEventDemo(ctx, id)
		})
}

// ApproveEvent moves a pending event to approved and records the moderator.
func (f *Facade) ApproveEvent(ctx context.Context, id string, moderator model.AdminUser) (*model.Event, error) {
	return f.decideEvent(ctx, id, moderator, model.EventStatusApproved)
}

// RejectEvent moves a pending event to rejected. ApprovedBy stays empty on
// rejected events.
func (f *Facade) RejectEvent(ctx context.Context, id string, moderator model.AdminUser) (*model.Event, error) {
	return f.decideEvent(ctx, id, moderator, model.EventStatusRejected)
}

func (f *Facade) decideEvent(ctx context.Context, id string, moderator model.AdminUser, status string) (*model.Event, error) {
	current, err := f.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(current.Status, status) {
		return nil, &ValidationError{Field: "status",
			Message: "cannot move from " + current.Status + " to " + status}
	}

	approvedBy := ""
	if status == model.EventStatusApproved {
		approvedBy = moderator.ID
	}

	return remoteFirst(ctx, f, "events.decide",
		func(ctx context.Context) (*model.Event, error) {
			patch := map[string]any{
				"status":      status,
				"approved_by": approvedBy,
				"updated_at":  time.Now().UTC(),
			}
			if err := f.remote.Update(ctx, tableEvents, id, patch, nil); err != nil {
				return nil, err
			}
			return f.getEventRemote(ctx, id)
		},
		func(ctx context.Context) (*model.Event, error) {
			event, err := f.getEventDemo(ctx, id)
			if err != nil {
				return nil, err
			}
			event.Status = status
			event.ApprovedBy = approvedBy
			event.UpdatedAt = time.Now().UTC()
			if err := f.queries.UpdateEvent(ctx, *event); err != nil {
				return nil, err
			}
			return f.getEventDemo(ctx, id)
		})
}

// DeleteEvent removes the record. A stored image is removed first,
// best-effort: an image failure is logged and the record delete proceeds.
func (f *Facade) DeleteEvent(ctx context.Context, id string) error {
	event, err := f.GetEvent(ctx, id)
	if err != nil {
		return err
	}

	_, err = remoteFirst(ctx, f, "events.delete",
		func(ctx context.Context) (struct{}, error) {
			if event.ImagePath != "" {
				if err := f.remote.RemoveBlob(ctx, f.eventsBucket, event.ImagePath); err != nil {
					slog.Warn("event image removal failed, deleting record anyway",
						"id", id, "error", err)
				}
			}
			return struct{}{}, f.remote.Delete(ctx, tableEvents, id)
		},
		func(ctx context.Context) (struct{}, error) {
			err := f.queries.DeleteEvent(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return struct{}{}, ErrNotFound
			}
			return struct{}{}, err
		})
	return err
}

// EventImageURL returns the public URL of the event image, or an empty
// string when the event has none. ErrDemoModeUnsupported in demo mode.
func (f *Facade) EventImageURL(event *model.Event) (string, error) {
	if event.ImagePath == "" {
		return "", nil
	}
	if f.useDemo() {
		return "", ErrDemoModeUnsupported
	}
	return f.remote.PublicURL(f.eventsBucket, event.ImagePath), nil
}
