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

// DocumentInput holds the fields of a new document. FileData may be empty
// for metadata-only records.
type DocumentInput struct {
	Title       string
	Description string
	Category    string
	FileName    string
	FileType    string
	FileSize    int64
	Tags        []string
	FileData    []byte
}

// DocumentPatch holds a partial document update. Nil fields are left
// untouched; an all-nil patch is a no-op that returns the current record.
type DocumentPatch struct {
	Title       *string
	Description *string
	Category    *string
	Tags        *[]string
}

func (p DocumentPatch) apply(d *model.Document) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Tags != nil {
		d.Tags = model.NormalizeTags(*p.Tags)
	}
}

func (p DocumentPatch) remotePatch() map[string]any {
	patch := map[string]any{"updated_at": time.Now().UTC()}
	if p.Title != nil {
		patch["title"] = *p.Title
	}
	if p.Description != nil {
		patch["description"] = *p.Description
	}
	if p.Category != nil {
		patch["category"] = *p.Category
	}
	if p.Tags != nil {
		patch["tags"] = model.NormalizeTags(*p.Tags)
	}
	return patch
}

// ListDocuments returns documents most recent first, optionally filtered by
// category. The unfiltered listing is served read-through from the cache.
func (f *Facade) ListDocuments(ctx context.Context, category string) ([]model.Document, error) {
	load := func() ([]model.Document, error) {
		return remoteFirst(ctx, f, "documents.list",
			func(ctx context.Context) ([]model.Document, error) {
				var filters []remote.Filter
				if category != "" {
					filters = append(filters, remote.Filter{Column: "category", Op: "eq", Value: category})
				}
				var docs []model.Document
				err := f.remote.Select(ctx, tableDocuments, "*, admin_users(*)",
					filters, &remote.Order{Column: "created_at", Desc: true}, &docs)
				return docs, err
			},
			func(ctx context.Context) ([]model.Document, error) {
				if err := f.ensureSeeded(ctx); err != nil {
					return nil, err
				}
				return f.queries.ListDocuments(ctx, category)
			})
	}

	var docs []model.Document
	var err error
	if category == "" && f.docCache != nil {
		var cached *[]model.Document
		cached, err = f.docCache.GetOrSet(ctx, cacheKeyAllDocuments, func() (*[]model.Document, error) {
			loaded, loadErr := load()
			if loadErr != nil {
				return nil, loadErr
			}
			return &loaded, nil
		})
		if cached != nil {
			docs = *cached
		}
	} else {
		docs, err = load()
	}

	if docs == nil {
		docs = []model.Document{}
	}
	return docs, err
}

// GetDocument returns a single document with its uploader.
func (f *Facade) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	return remoteFirst(ctx, f, "documents.get",
		func(ctx context.Context) (*model.Document, error) {
			return f.getDocumentRemote(ctx, id)
		},
		func(ctx context.Context) (*model.Document, error) {
			return f.getDocumentDemo(ctx, id)
		})
}

func (f *Facade) getDocumentRemote(ctx context.Context, id string) (*model.Document, error) {
	var docs []model.Document
	err := f.remote.Select(ctx, tableDocuments, "*, admin_users(*)",
		[]remote.Filter{{Column: "id", Op: "eq", Value: id}}, nil, &docs)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return &docs[0], nil
}

func (f *Facade) getDocumentDemo(ctx context.Context, id string) (*model.Document, error) {
	if err := f.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	doc, err := f.queries.GetDocumentByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateDocument validates the input, uploads the file when present and
// inserts the record. Validation failures never reach either backend.
func (f *Facade) CreateDocument(ctx context.Context, actor model.AdminUser, in DocumentInput) (*model.Document, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	defer f.invalidateDocuments(ctx)

	return remoteFirst(ctx, f, "documents.create",
		func(ctx context.Context) (*model.Document, error) {
			return f.createDocumentRemote(ctx, actor, in)
		},
		func(ctx context.Context) (*model.Document, error) {
			return f.createDocumentDemo(ctx, actor, in)
		})
}

func (f *Facade) createDocumentRemote(ctx context.Context, actor model.AdminUser, in DocumentInput) (*model.Document, error) {
	filePath := ""
	if len(in.FileData) > 0 {
		filePath = uuid.NewString() + "-" + in.FileName
		if err := f.remote.UploadBlob(ctx, f.documentsBucket, filePath, in.FileData, in.FileType); err != nil {
			return nil, err
		}
	}

	row := map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"category":    in.Category,
		"file_name":   in.FileName,
		"file_path":   filePath,
		"file_size":   in.FileSize,
		"file_type":   in.FileType,
		"tags":        model.NormalizeTags(in.Tags),
		"uploaded_by": actor.ID,
	}
	var created []model.Document
	if err := f.remote.Insert(ctx, tableDocuments, row, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, errors.New("facade: empty insert representation")
	}
	doc := created[0]
	doc.Uploader = &actor
	return &doc, nil
}

func (f *Facade) createDocumentDemo(ctx context.Context, actor model.AdminUser, in DocumentInput) (*model.Document, error) {
	if err := f.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	uploaderID, err := f.actorID(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := model.Document{
		ID:          newDemoID("doc"),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		FileName:    in.FileName,
		// Blobs are never stored locally; the path marks the record as demo-only
		FilePath:   "demo/" + in.FileName,
		FileSize:   in.FileSize,
		FileType:   in.FileType,
		Tags:       in.Tags,
		UploadedBy: uploaderID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.queries.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return f.getDocumentDemo(ctx, doc.ID)
}

// UpdateDocument applies a partial update. An empty patch still writes, so
// updatedAt moves while every other field keeps its value.
func (f *Facade) UpdateDocument(ctx context.Context, id string, patch DocumentPatch) (*model.Document, error) {
	defer f.invalidateDocuments(ctx)

	return remoteFirst(ctx, f, "documents.update",
		func(ctx context.Context) (*model.Document, error) {
			if err := f.remote.Update(ctx, tableDocuments, id, patch.remotePatch(), nil); err != nil {
				return nil, err
			}
			return f.getDocumentRemote(ctx, id)
		},
		func(ctx context.Context) (*model.Document, error) {
			doc, err := f.getDocumentDemo(ctx, id)
			if err != nil {
				return nil, err
			}
			patch.apply(doc)
			doc.UpdatedAt = time.Now().UTC()
			if err := f.queries.UpdateDocument(ctx, *doc); err != nil {
				return nil, err
			}
			return f.getDocumentDemo(ctx, id)
		})
}

// DeleteDocument removes the record. The stored blob is removed first,
// best-effort: a blob failure is logged and the record delete proceeds.
func (f *Facade) DeleteDocument(ctx context.Context, id string) error {
	doc, err := f.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	defer f.invalidateDocuments(ctx)

	_, err = remoteFirst(ctx, f, "documents.delete",
		func(ctx context.Context) (struct{}, error) {
			if doc.FilePath != "" {
				if err := f.remote.RemoveBlob(ctx, f.documentsBucket, doc.FilePath); err != nil {
					slog.Warn("document blob removal failed, deleting record anyway",
						"id", id, "error", err)
				}
			}
			return struct{}{}, f.remote.Delete(ctx, tableDocuments, id)
		},
		func(ctx context.Context) (struct{}, error) {
			err := f.queries.DeleteDocument(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return struct{}{}, ErrNotFound
			}
			return struct{}{}, err
		})
	return err
}

// DownloadDocument fetches the stored file bytes along with the record the
// response headers need. Demo mode has no blobs to serve, so it fails fast
// without touching either backend.
func (f *Facade) DownloadDocument(ctx context.Context, id string) ([]byte, *model.Document, error) {
	if f.useDemo() {
		return nil, nil, ErrDemoModeUnsupported
	}

	doc, err := f.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if doc.FilePath == "" {
		return nil, nil, ErrNotFound
	}

	data, err := race(ctx, f.timeout, func(ctx context.Context) ([]byte, error) {
		return f.remote.DownloadBlob(ctx, f.documentsBucket, doc.FilePath)
	})
	if err != nil {
		return nil, nil, err
	}
	return data, doc, nil
}

// DocumentURL returns the public URL of the stored file, or
// ErrDemoModeUnsupported in demo mode. No I/O is performed.
func (f *Facade) DocumentURL(doc *model.Document) (string, error) {
	if f.useDemo() {
		return "", ErrDemoModeUnsupported
	}
	return f.remote.PublicURL(f.documentsBucket, doc.FilePath), nil
}
