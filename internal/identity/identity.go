// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package identity resolves who is signed in and against which backend.
// An identity is either remote (established against the hosted auth service)
// or demo (a local account, built-in or synthesized after a remote failure).
package identity

import "github.com/rmcosta/fedsite-go/internal/model"

// Provenance records which backend established an identity.
type Provenance string

const (
	ProvenanceDemo   Provenance = "demo"
	ProvenanceRemote Provenance = "remote"
)

// State is the sign-in state of the current browser session.
type State int

const (
	StateSignedOut State = iota
	StateSignedInDemo
	StateSignedInRemote
)

// String returns a human-readable state name for logs and JSON responses.
func (s State) String() string {
	switch s {
	case StateSignedInDemo:
		return "signed_in_demo"
	case StateSignedInRemote:
		return "signed_in_remote"
	default:
		return "signed_out"
	}
}

// Identity is a resolved sign-in: the profile plus its provenance. The
// access token is only set for remote identities and never serialized.
type Identity struct {
	User        model.AdminUser `json:"user"`
	Provenance  Provenance      `json:"provenance"`
	AccessToken string          `json:"-"`
}

// State returns the session state this identity represents.
func (i *Identity) State() State {
	if i == nil {
		return StateSignedOut
	}
	if i.Provenance == ProvenanceRemote {
		return StateSignedInRemote
	}
	return StateSignedInDemo
}

// CanMutate reports whether the identity may modify a record owned by
// ownerID. Admins may modify anything; everyone else only their own records.
// This is advisory: the remote backend's row-level security is the real
// enforcement boundary.
func CanMutate(ident *Identity, ownerID string) bool {
	if ident == nil {
		return false
	}
	return ident.User.IsAdmin() || ident.User.ID == ownerID
}

// CanModerate reports whether the identity may approve or reject events.
func CanModerate(ident *Identity) bool {
	return ident != nil && ident.User.IsAdmin()
}
