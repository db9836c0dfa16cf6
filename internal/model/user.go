// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including AdminUser, Document, Event and DocCategory structures.
package model

import "time"

// User roles.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// AdminUser represents a back-office identity. Demo users are synthesized
// locally and never pushed to the remote backend.
type AdminUser struct {
	ID         string    `json:"id"`
	AuthUserID string    `json:"auth_user_id,omitempty"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user has admin role.
func (u *AdminUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleModerator
}
