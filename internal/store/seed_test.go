// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcosta/fedsite-go/internal/model"
	"github.com/rmcosta/fedsite-go/internal/store"
	"github.com/rmcosta/fedsite-go/internal/testutil"
)

func TestSeedIfEmpty(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SeedIfEmpty(ctx, db))

	queries := store.New(db)
	admin, err := queries.GetUserByID(ctx, store.DemoAdminID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	moderator, err := queries.GetUserByID(ctx, store.DemoModeratorID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleModerator, moderator.Role)

	docs, err := queries.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, docs)

	// Seeding again is a no-op
	require.NoError(t, store.SeedIfEmpty(ctx, db))
	n, err := queries.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestResetRestoresSeedState(t *testing.T) {
	db := testutil.SeededDB(t)
	queries := store.New(db)
	ctx := context.Background()

	// Drift: delete a seeded document and add a stray one
	require.NoError(t, queries.DeleteDocument(ctx, "demo-doc-1"))
	require.NoError(t, queries.CreateDocument(ctx, model.Document{
		ID: "stray", Title: "Stray", Category: "atas",
		FileName: "stray.pdf", FileType: model.MimeTypePDF,
		UploadedBy: store.DemoAdminID,
	}))

	require.NoError(t, store.Reset(ctx, db))

	_, err := queries.GetDocumentByID(ctx, "demo-doc-1")
	assert.NoError(t, err, "seeded document should be back")
	_, err = queries.GetDocumentByID(ctx, "stray")
	assert.ErrorIs(t, err, store.ErrNotFound, "stray document should be gone")
}
