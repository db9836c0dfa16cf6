// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Event statuses. Transitions are one-directional except for owner edits
// while the event is still pending.
const (
	EventStatusDraft     = "draft"
	EventStatusPending   = "pending"
	EventStatusApproved  = "approved"
	EventStatusRejected  = "rejected"
	EventStatusPublished = "published"
)

// Event represents a federation event proposal.
// TechnicalDetails is an opaque caller-defined payload; the core never
// validates or interprets its shape.
type Event struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	EventDate            *time.Time     `json:"event_date,omitempty"`
	Location             string         `json:"location,omitempty"`
	Category             string         `json:"category,omitempty"`
	Status               string         `json:"status"`
	Budget               *float64       `json:"budget,omitempty"`
	ParticipantsExpected *int64         `json:"participants_expected,omitempty"`
	TechnicalDetails     map[string]any `json:"technical_details,omitempty"`
	ImpactAssessment     string         `json:"impact_assessment,omitempty"`
	ImagePath            string         `json:"image_path,omitempty"`
	CreatedBy            string         `json:"created_by"`
	ApprovedBy           string         `json:"approved_by,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	Creator              *AdminUser     `json:"admin_users,omitempty"`
}

// ValidEventStatus reports whether status is one of the known statuses.
func ValidEventStatus(status string) bool {
	switch status {
	case EventStatusDraft, EventStatusPending, EventStatusApproved,
		EventStatusRejected, EventStatusPublished:
		return true
	}
	return false
}

// CanTransition reports whether an event may move from one status to
// another. Owner edits while pending keep the event pending, so same-status
// writes are always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case EventStatusDraft:
		return to == EventStatusPending
	case EventStatusPending:
		return to == EventStatusApproved || to == EventStatusRejected
	case EventStatusApproved:
		return to == EventStatusPublished
	default:
		return false
	}
}
