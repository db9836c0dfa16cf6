// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rmcosta/fedsite-go/internal/model"
	"github.com/rmcosta/fedsite-go/internal/util"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Queries provides typed access to the demo store tables.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance bound to the given database.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// ---------------------------------------------------------------------------
// Users

const userColumns = "id, auth_user_id, email, name, role, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.AdminUser, error) {
	var u model.AdminUser
	err := row.Scan(&u.ID, &u.AuthUserID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetUserByID returns the demo user with the given id.
func (q *Queries) GetUserByID(ctx context.Context, id string) (model.AdminUser, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM demo_users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByEmail returns the demo user with the given email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.AdminUser, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM demo_users WHERE email = ?", email)
	return scanUser(row)
}

// UpsertUser inserts a demo user, or refreshes name/role if the email is
// already present. Synthesized identities re-minted after repeated remote
// failures land here repeatedly, so the write must be idempotent.
func (q *Queries) UpsertUser(ctx context.Context, u model.AdminUser) (model.AdminUser, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO demo_users (id, auth_user_id, email, name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			auth_user_id = excluded.auth_user_id,
			name = excluded.name,
			role = excluded.role,
			updated_at = excluded.updated_at`,
		u.ID, u.AuthUserID, u.Email, u.Name, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return model.AdminUser{}, fmt.Errorf("upserting user: %w", err)
	}
	return q.GetUserByEmail(ctx, u.Email)
}

// CountUsers returns the number of demo users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM demo_users").Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Documents

const documentColumns = `d.id, d.title, d.description, d.category, d.file_name,
	d.file_path, d.file_size, d.file_type, d.tags, d.uploaded_by,
	d.created_at, d.updated_at,
	u.id, u.auth_user_id, u.email, u.name, u.role, u.created_at, u.updated_at`

func scanDocument(row interface{ Scan(...any) error }) (model.Document, error) {
	var d model.Document
	var tags string
	var u model.AdminUser
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.Category, &d.FileName,
		&d.FilePath, &d.FileSize, &d.FileType, &tags, &d.UploadedBy,
		&d.CreatedAt, &d.UpdatedAt,
		&u.ID, &u.AuthUserID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		// Malformed local state is treated as absent, not fatal
		d.Tags = nil
	}
	d.Uploader = &u
	return d, nil
}

// ListDocuments returns demo documents most recent first, optionally
// filtered by category, with the uploader join populated.
func (q *Queries) ListDocuments(ctx context.Context, category string) ([]model.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM demo_documents d
		JOIN demo_users u ON u.id = d.uploaded_by`
	args := []any{}
	if category != "" {
		query += " WHERE d.category = ?"
		args = append(args, category)
	}
	query += " ORDER BY d.created_at DESC, d.id DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetDocumentByID returns a single demo document with its uploader.
func (q *Queries) GetDocumentByID(ctx context.Context, id string) (model.Document, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+documentColumns+`
		FROM demo_documents d
		JOIN demo_users u ON u.id = d.uploaded_by
		WHERE d.id = ?`, id)
	return scanDocument(row)
}

// CreateDocument inserts a demo document. The caller supplies id and timestamps.
func (q *Queries) CreateDocument(ctx context.Context, d model.Document) error {
	tags, err := json.Marshal(model.NormalizeTags(d.Tags))
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO demo_documents
			(id, title, description, category, file_name, file_path,
			 file_size, file_type, tags, uploaded_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Description, d.Category, d.FileName, d.FilePath,
		d.FileSize, d.FileType, string(tags), d.UploadedBy, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// UpdateDocument rewrites a demo document row.
func (q *Queries) UpdateDocument(ctx context.Context, d model.Document) error {
	tags, err := json.Marshal(model.NormalizeTags(d.Tags))
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE demo_documents SET
			title = ?, description = ?, category = ?, file_name = ?,
			file_path = ?, file_size = ?, file_type = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		d.Title, d.Description, d.Category, d.FileName,
		d.FilePath, d.FileSize, d.FileType, string(tags), d.UpdatedAt, d.ID)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument removes a demo document by id.
func (q *Queries) DeleteDocument(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM demo_documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountDocuments returns the number of demo documents.
func (q *Queries) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM demo_documents").Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Events

const eventColumns = `e.id, e.title, e.description, e.event_date, e.location,
	e.category, e.status, e.budget, e.participants_expected,
	e.technical_details, e.impact_assessment, e.image_path,
	e.created_by, e.approved_by, e.created_at, e.updated_at,
	u.id, u.auth_user_id, u.email, u.name, u.role, u.created_at, u.updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	var eventDate sql.NullTime
	var budget sql.NullFloat64
	var participants sql.NullInt64
	var details string
	var u model.AdminUser
	err := row.Scan(&e.ID, &e.Title, &e.Description, &eventDate, &e.Location,
		&e.Category, &e.Status, &budget, &participants,
		&details, &e.ImpactAssessment, &e.ImagePath,
		&e.CreatedBy, &e.ApprovedBy, &e.CreatedAt, &e.UpdatedAt,
		&u.ID, &u.AuthUserID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	e.EventDate = util.TimePtrFromNull(eventDate)
	e.Budget = util.FloatPtrFromNull(budget)
	e.ParticipantsExpected = util.Int64PtrFromNull(participants)
	if err := json.Unmarshal([]byte(details), &e.TechnicalDetails); err != nil {
		e.TechnicalDetails = nil
	}
	e.Creator = &u
	return e, nil
}

// ListEvents returns demo events most recent first, optionally filtered by
// status, with the creator join populated.
func (q *Queries) ListEvents(ctx context.Context, status string) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM demo_events e
		JOIN demo_users u ON u.id = e.created_by`
	args := []any{}
	if status != "" {
		query += " WHERE e.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY e.created_at DESC, e.id DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEventByID returns a single demo event with its creator.
func (q *Queries) GetEventByID(ctx context.Context, id string) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+eventColumns+`
		FROM demo_events e
		JOIN demo_users u ON u.id = e.created_by
		WHERE e.id = ?`, id)
	return scanEvent(row)
}

// CreateEvent inserts a demo event. The caller supplies id and timestamps.
func (q *Queries) CreateEvent(ctx context.Context, e model.Event) error {
	details, err := json.Marshal(e.TechnicalDetails)
	if err != nil {
		return fmt.Errorf("encoding technical details: %w", err)
	}
	if e.TechnicalDetails == nil {
		details = []byte("{}")
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO demo_events
			(id, title, description, event_date, location, category, status,
			 budget, participants_expected, technical_details,
			 impact_assessment, image_path, created_by, approved_by,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, util.NullTimeFromPtr(e.EventDate),
		e.Location, e.Category, e.Status,
		util.NullFloatFromPtr(e.Budget), util.NullInt64FromPtr(e.ParticipantsExpected),
		string(details), e.ImpactAssessment, e.ImagePath,
		e.CreatedBy, e.ApprovedBy, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// UpdateEvent rewrites a demo event row.
func (q *Queries) UpdateEvent(ctx context.Context, e model.Event) error {
	details, err := json.Marshal(e.TechnicalDetails)
	if err != nil {
		return fmt.Errorf("encoding technical details: %w", err)
	}
	if e.TechnicalDetails == nil {
		details = []byte("{}")
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE demo_events SET
			title = ?, description = ?, event_date = ?, location = ?,
			category = ?, status = ?, budget = ?, participants_expected = ?,
			technical_details = ?, impact_assessment = ?, image_path = ?,
			approved_by = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, e.Description, util.NullTimeFromPtr(e.EventDate), e.Location,
		e.Category, e.Status, util.NullFloatFromPtr(e.Budget),
		util.NullInt64FromPtr(e.ParticipantsExpected),
		string(details), e.ImpactAssessment, e.ImagePath,
		e.ApprovedBy, e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEvent removes a demo event by id.
func (q *Queries) DeleteEvent(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM demo_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountEvents returns the number of demo events.
func (q *Queries) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM demo_events").Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Categories

const categoryColumns = "id, name, slug, visible, sort_order, created_at, updated_at"

func scanCategory(row interface{ Scan(...any) error }) (model.DocCategory, error) {
	var c model.DocCategory
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Visible, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// ListCategories returns demo categories ordered by sort order. When
// visibleOnly is set, hidden categories are excluded (public view).
func (q *Queries) ListCategories(ctx context.Context, visibleOnly bool) ([]model.DocCategory, error) {
	query := "SELECT " + categoryColumns + " FROM demo_categories"
	if visibleOnly {
		query += " WHERE visible = 1"
	}
	query += " ORDER BY sort_order ASC, name ASC"

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cats []model.DocCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// GetCategoryByID returns a single demo category.
func (q *Queries) GetCategoryByID(ctx context.Context, id string) (model.DocCategory, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM demo_categories WHERE id = ?", id)
	return scanCategory(row)
}

// GetCategoryBySlug returns the demo category with the given slug.
func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (model.DocCategory, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM demo_categories WHERE slug = ?", slug)
	return scanCategory(row)
}

// CreateCategory inserts a demo category.
func (q *Queries) CreateCategory(ctx context.Context, c model.DocCategory) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO demo_categories (id, name, slug, visible, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Slug, c.Visible, c.SortOrder, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

// UpdateCategory rewrites a demo category row.
func (q *Queries) UpdateCategory(ctx context.Context, c model.DocCategory) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE demo_categories SET name = ?, slug = ?, visible = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Slug, c.Visible, c.SortOrder, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes a demo category by id.
func (q *Queries) DeleteCategory(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM demo_categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountCategories returns the number of demo categories.
func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM demo_categories").Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Demo session

// GetDemoSession returns the persisted demo session payload, or ErrNotFound
// if no session is stored.
func (q *Queries) GetDemoSession(ctx context.Context) (string, error) {
	var payload string
	err := q.db.QueryRowContext(ctx,
		"SELECT payload FROM demo_session WHERE key = 'current'").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return payload, err
}

// SetDemoSession stores the serialized demo identity, replacing any
// previous session.
func (q *Queries) SetDemoSession(ctx context.Context, payload string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO demo_session (key, payload, updated_at)
		VALUES ('current', ?, ?)
		ON CONFLICT (key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storing demo session: %w", err)
	}
	return nil
}

// ClearDemoSession removes the persisted demo session.
func (q *Queries) ClearDemoSession(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM demo_session WHERE key = 'current'")
	return err
}

// ---------------------------------------------------------------------------
// Audit log

// CreateAuditEntryParams holds the fields of an audit log entry.
type CreateAuditEntryParams struct {
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// CreateAuditEntry appends an entry to the audit log.
func (q *Queries) CreateAuditEntry(ctx context.Context, p CreateAuditEntryParams) error {
	if p.Metadata == "" {
		p.Metadata = "{}"
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO audit_log (level, category, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.Level, p.Category, p.Message, p.Metadata, p.CreatedAt)
	return err
}

// AuditEntry is a stored audit log record.
type AuditEntry struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// ListAuditEntries returns the most recent audit entries, newest first.
func (q *Queries) ListAuditEntries(ctx context.Context, limit int64) ([]AuditEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, level, category, message, metadata, created_at
		FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
