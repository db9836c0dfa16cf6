// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rmcosta/fedsite-go/internal/model"
)

// Built-in demo user ids. These identities own the seeded demo content and
// back the built-in demo sign-in accounts.
const (
	DemoAdminID     = "demo-admin"
	DemoModeratorID = "demo-moderator"
)

// SeedIfEmpty lazily creates the default demo content. It is called before
// the first demo-store read, mirroring the original behavior where the first
// read of an absent localStorage list seeds the defaults.
func SeedIfEmpty(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	n, err := queries.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting demo users: %w", err)
	}
	if n > 0 {
		return nil
	}

	slog.Info("seeding demo content")
	return seedAll(ctx, queries)
}

// Reset wipes all demo entities and restores the seed content. Used by the
// scheduled daily reset of the hosted demo.
func Reset(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"demo_documents", "demo_events", "demo_categories", "demo_users", "demo_session"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	slog.Info("demo content cleared, reseeding")
	return seedAll(ctx, New(db))
}

func seedAll(ctx context.Context, queries *Queries) error {
	now := time.Now().UTC()

	if err := seedUsers(ctx, queries, now); err != nil {
		return fmt.Errorf("seeding demo users: %w", err)
	}
	if err := seedCategories(ctx, queries, now); err != nil {
		return fmt.Errorf("seeding demo categories: %w", err)
	}
	if err := seedDocuments(ctx, queries, now); err != nil {
		return fmt.Errorf("seeding demo documents: %w", err)
	}
	if err := seedEvents(ctx, queries, now); err != nil {
		return fmt.Errorf("seeding demo events: %w", err)
	}
	return nil
}

func seedUsers(ctx context.Context, queries *Queries, now time.Time) error {
	users := []model.AdminUser{
		{
			ID:        DemoAdminID,
			Email:     "admin@demo.fedsite.org",
			Name:      "Administrador Demo",
			Role:      model.RoleAdmin,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        DemoModeratorID,
			Email:     "moderador@demo.fedsite.org",
			Name:      "Moderador Demo",
			Role:      model.RoleModerator,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	for _, u := range users {
		if _, err := queries.UpsertUser(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func seedCategories(ctx context.Context, queries *Queries, now time.Time) error {
	categories := []model.DocCategory{
		{ID: "demo-cat-estatuto", Name: "Estatuto", Slug: "estatuto", Visible: true, SortOrder: 1},
		{ID: "demo-cat-atas", Name: "Atas", Slug: "atas", Visible: true, SortOrder: 2},
		{ID: "demo-cat-editais", Name: "Editais", Slug: "editais", Visible: true, SortOrder: 3},
		{ID: "demo-cat-financeiro", Name: "Financeiro", Slug: "financeiro", Visible: true, SortOrder: 4},
		{ID: "demo-cat-arquivado", Name: "Arquivado", Slug: "arquivado", Visible: false, SortOrder: 99},
	}
	for _, c := range categories {
		c.CreatedAt = now
		c.UpdatedAt = now
		if err := queries.CreateCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func seedDocuments(ctx context.Context, queries *Queries, now time.Time) error {
	documents := []model.Document{
		{
			ID:          "demo-doc-1",
			Title:       "Estatuto da Federação",
			Description: "Versão consolidada do estatuto em vigor.",
			Category:    "estatuto",
			FileName:    "estatuto.pdf",
			FileType:    model.MimeTypePDF,
			FileSize:    482133,
			Tags:        []string{"estatuto", "oficial"},
			UploadedBy:  DemoAdminID,
		},
		{
			ID:          "demo-doc-2",
			Title:       "Ata da Assembleia Geral",
			Description: "Ata da última assembleia geral ordinária.",
			Category:    "atas",
			FileName:    "ata-assembleia.pdf",
			FileType:    model.MimeTypePDF,
			FileSize:    120544,
			Tags:        []string{"assembleia"},
			UploadedBy:  DemoModeratorID,
		},
	}
	// Stagger createdAt so the seeded list has a stable most-recent-first order
	for i, d := range documents {
		d.CreatedAt = now.Add(-time.Duration(i+1) * time.Hour)
		d.UpdatedAt = d.CreatedAt
		if err := queries.CreateDocument(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func seedEvents(ctx context.Context, queries *Queries, now time.Time) error {
	date := now.AddDate(0, 1, 0)
	budget := 15000.0
	participants := int64(200)
	events := []model.Event{
		{
			ID:                   "demo-event-1",
			Title:                "Campeonato Estadual",
			Description:          "Etapa classificatória do campeonato estadual.",
			EventDate:            &date,
			Location:             "Ginásio Municipal",
			Category:             "competicao",
			Status:               model.EventStatusApproved,
			Budget:               &budget,
			ParticipantsExpected: &participants,
			CreatedBy:            DemoModeratorID,
			ApprovedBy:           DemoAdminID,
		},
		{
			ID:          "demo-event-2",
			Title:       "Clínica de Arbitragem",
			Description: "Treinamento para novos árbitros da federação.",
			Status:      model.EventStatusPending,
			CreatedBy:   DemoModeratorID,
		},
	}
	for i, e := range events {
		e.CreatedAt = now.Add(-time.Duration(i+1) * time.Hour)
		e.UpdatedAt = e.CreatedAt
		if err := queries.CreateEvent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
