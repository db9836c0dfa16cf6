// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package facade

import (
	"context"
	"errors"
	"time"

	"github.com/rmcosta/fedsite-go/internal/model"
	"github.com/rmcosta/fedsite-go/internal/remote"
	"github.com/rmcosta/fedsite-go/internal/store"
	"github.com/rmcosta/fedsite-go/internal/util"
)

// CategoryInput holds the fields of a new document category. An empty Slug
// is generated from the name.
type CategoryInput struct {
	Name      string
	Slug      string
	Visible   bool
	SortOrder int64
}

// CategoryPatch holds a partial category update. Nil fields are left
// untouched; an all-nil patch is a no-op that returns the current record.
type CategoryPatch struct {
	Name      *string
	Slug      *string
	Visible   *bool
	SortOrder *int64
}

func (p CategoryPatch) apply(c *model.DocCategory) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	if p.Visible != nil {
		c.Visible = *p.Visible
	}
	if p.SortOrder != nil {
		c.SortOrder = *p.SortOrder
	}
}

func (p CategoryPatch) remotePatch() map[string]any {
	patch := map[string]any{"updated_at": time.Now().UTC()}
	if p.Name != nil {
		patch["name"] = *p.Name
	}
	if p.Slug != nil {
		patch["slug"] = *p.Slug
	}
	if p.Visible != nil {
		patch["visible"] = *p.Visible
	}
	if p.SortOrder != nil {
		patch["sort_order"] = *p.SortOrder
	}
	return patch
}

// ListCategories returns categories ordered by sort order. The public
// listing excludes hidden categories and is served read-through from the
// cache.
func (f *Facade) ListCategories(ctx context.Context, includeHidden bool) ([]model.DocCategory, error) {
	load := func() ([]model.DocCategory, error) {
		return remoteFirst(ctx, f, "categories.list",
			func(ctx context.Context) ([]model.DocCategory, error) {
				var filters []remote.Filter
				if !includeHidden {
					filters = append(filters, remote.Filter{Column: "visible", Op: "eq", Value: "true"})
				}
				var cats []model.DocCategory
				err := f.remote.Select(ctx, tableCategories, "*",
					filters, &remote.Order{Column: "sort_order"}, &cats)
				return cats, err
			},
			func(ctx context.Context) ([]model.DocCategory, error) {
				if err := f.ensureSeeded(ctx); err != nil {
					return nil, err
				}
				return f.queries.ListCategories(ctx, !includeHidden)
			})
	}

	var cats []model.DocCategory
	var err error
	if !includeHidden && f.catCache != nil {
		var cached *[]model.DocCategory
		cached, err = f.catCache.GetOrSet(ctx, cacheKeyCategories, func() (*[]model.DocCategory, error) {
			loaded, loadErr := load()
			if loadErr != nil {
				return nil, loadErr
			}
			return &loaded, nil
		})
		if cached != nil {
			cats = *cached
		}
	} else {
		cats, err = load()
	}

	if cats == nil {
		cats = []model.DocCategory{}
	}
	return cats, err
}

// GetCategory returns a single category.
func (f *Facade) GetCategory(ctx context.Context, id string) (*model.DocCategory, error) {
	return remoteFirst(ctx, f, "categories.get",
		func(ctx context.Context) (*model.DocCategory, error) {
			return f.getCategoryRemote(ctx, id)
		},
		func(ctx context.Context) (*model.DocCategory, error) {
			return f.getCategoryDemo(ctx, id)
		})
}

func (f *Facade) getCategoryRemote(ctx context.Context, id string) (*model.DocCategory, error) {
	var cats []model.DocCategory
	err := f.remote.Select(ctx, tableCategories, "*",
		[]remote.Filter{{Column: "id", Op: "eq", Value: id}}, nil, &cats)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return nil, ErrNotFound
	}
	return &cats[0], nil
}

func (f *Facade) getCategoryDemo(ctx context.Context, id string) (*model.DocCategory, error) {
	if err := f.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	cat, err := f.queries.GetCategoryByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// CreateCategory validates the input and inserts a category, generating the
// slug from the name when none is given.
func (f *Facade) CreateCategory(ctx context.Context, in CategoryInput) (*model.DocCategory, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	slug := in.Slug
	if slug == "" {
		slug = util.Slugify(in.Name)
	}
	if !util.IsValidSlug(slug) {
		return nil, &ValidationError{Field: "slug", Message: "invalid slug " + slug}
	}
	defer f.invalidateCategories(ctx)

	return remoteFirst(ctx, f, "categories.create",
		func(ctx context.Context) (*model.DocCategory, error) {
			row := map[string]any{
				"name":       in.Name,
				"slug":       slug,
				"visible":    in.Visible,
				"sort_order": in.SortOrder,
			}
			var created []model.DocCategory
			if err := f.remote.Insert(ctx, tableCategories, row, &created); err != nil {
				return nil, err
			}
			if len(created) == 0 {
				return nil, errors.New("facade: empty insert representation")
			}
			return &created[0], nil
		},
		func(ctx context.Context) (*model.DocCategory, error) {
			if err := f.ensureSeeded(ctx); err != nil {
				return nil, err
			}
			now := time.Now().UTC()
			cat := model.DocCategory{
				ID:        newDemoID("cat"),
				Name:      in.Name,
				Slug:      slug,
				Visible:   in.Visible,
				SortOrder: in.SortOrder,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := f.queries.CreateCategory(ctx, cat); err != nil {
				return nil, err
			}
			return f.getCategoryDemo(ctx, cat.ID)
		})
}

// UpdateCategory applies a partial update. An empty patch still writes, so
// updatedAt moves while every other field keeps its value.
func (f *Facade) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (*model.DocCategory, error) {
	if patch.Slug != nil && !util.IsValidSlug(*patch.Slug) {
		return nil, &ValidationError{Field: "slug", Message: "invalid slug " + *patch.Slug}
	}
	defer f.invalidateCategories(ctx)

	return remoteFirst(ctx, f, "categories.update",
		func(ctx context.Context) (*model.DocCategory, error) {
			if err := f.remote.Update(ctx, tableCategories, id, patch.remotePatch(), nil); err != nil {
				return nil, err
			}
			return f.getCategoryRemote(ctx, id)
		},
		func(ctx context.Context) (*model.DocCategory, error) {
			cat, err := f.getCategoryDemo(ctx, id)
			if err != nil {
				return nil, err
			}
			patch.apply(cat)
			cat.UpdatedAt = time.Now().UTC()
			if err := f.queries.UpdateCategory(ctx, *cat); err != nil {
				return nil, err
			}
			return f.getCategoryDemo(ctx, id)
		})
}

// SetCategoryVisibility toggles whether the category appears in the public
// listing.
func (f *Facade) SetCategoryVisibility(ctx context.Context, id string, visible bool) (*model.DocCategory, error) {
	return f.UpdateCategory(ctx, id, CategoryPatch{Visible: &visible})
}

// DeleteCategory removes a category. Existing documents keep their category
// value; it simply stops being offered.
func (f *Facade) DeleteCategory(ctx context.Context, id string) error {
	defer f.invalidateCategories(ctx)

	_, err := remoteFirst(ctx, f, "categories.delete",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, f.remote.Delete(ctx, tableCategories, id)
		},
		func(ctx context.Context) (struct{}, error) {
			if err := f.ensureSeeded(ctx); err != nil {
				return struct{}{}, err
			}
			err := f.queries.DeleteCategory(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return struct{}{}, ErrNotFound
			}
			return struct{}{}, err
		})
	return err
}
