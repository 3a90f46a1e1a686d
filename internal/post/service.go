// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package post implements the post lifecycle: creation and update with
// collision-free slug assignment, soft delete, restore and purge, plus the
// published and admin listings.
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"simpleblog/internal/markdown"
	"simpleblog/internal/metrics"
	"simpleblog/internal/models"
	"simpleblog/internal/slug"
	"simpleblog/internal/store"
)

var (
	// ErrNotFound is returned when no post matches in the requested state
	// (live for get/update/trash, trashed for restore/purge, published for
	// the public lookups).
	ErrNotFound = errors.New("post not found")

	// ErrSlugConflict is returned when every slug attempt lost a race to a
	// concurrent writer.
	ErrSlugConflict = errors.New("could not assign a unique slug")
)

// maxSlugAttempts bounds the regenerate-and-retry loop on write conflicts.
const maxSlugAttempts = 5

// Repository is the persistence the service needs. Create and Update return
// store.ErrSlugTaken when the slug constraint rejects the write.
type Repository interface {
	slug.Checker
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Trash(ctx context.Context, id uuid.UUID) (bool, error)
	Restore(ctx context.Context, id uuid.UUID) (bool, error)
	Purge(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, status models.PostStatus, limit, offset int) ([]models.Post, int, error)
	ListTrashed(ctx context.Context) ([]models.Post, error)
	ListPublished(ctx context.Context, search string, limit, offset int) ([]models.Post, int, error)
	FindPublishedBySlug(ctx context.Context, slug string) (*models.Post, error)
}

// Invalidator drops cached public responses after a write.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// Sanitizer cleans post HTML before it is stored.
type Sanitizer interface {
	Sanitize(s string) string
}

// Input carries the editable fields of a post.
type Input struct {
	Title     string
	Content   string
	Status    models.PostStatus
	Thumbnail *string

	// ThumbnailSet reports whether the caller sent a thumbnail at all. When
	// false the stored thumbnail is left untouched; when true a nil
	// Thumbnail clears it.
	ThumbnailSet bool

	// Markdown marks Content as Markdown source to be rendered to HTML
	// before sanitizing.
	Markdown bool
}

// Page is one page of a listing.
type Page struct {
	Items   []models.Post
	Total   int
	Page    int
	PerPage int
}

// Service coordinates post writes and reads.
type Service struct {
	repo      Repository
	cache     Invalidator
	sanitizer Sanitizer
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for published_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. cache and sanitizer may be nil.
func NewService(repo Repository, cache Invalidator, sanitizer Sanitizer, opts ...Option) *Service {
	s := &Service{repo: repo, cache: cache, sanitizer: sanitizer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new post by authorID. The slug is derived from the title
// and made unique against every non-purged post.
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, in Input) (*models.Post, error) {
	p := &models.Post{UserID: authorID}
	if err := s.apply(p, in); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		sl, err := s.assignSlug(ctx, p.Title, uuid.Nil)
		if err != nil {
			return nil, err
		}
		p.Slug = sl

		created, err := s.repo.Create(ctx, p)
		if errors.Is(err, store.ErrSlugTaken) {
			s.conflict(sl, attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.invalidate(ctx)
		slog.Info("post created", "id", created.ID, "slug", created.Slug, "status", created.Status)
		return created, nil
	}
	return nil, ErrSlugConflict
}

// Update replaces the editable fields of a live post. The slug is recomputed
// from the new title; the post's own current slug never counts as a
// collision.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*models.Post, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if err := s.apply(p, in); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		sl, err := s.assignSlug(ctx, p.Title, p.ID)
		if err != nil {
			return nil, err
		}
		p.Slug = sl

		ok, err := s.repo.Update(ctx, p)
		if errors.Is(err, store.ErrSlugTaken) {
			s.conflict(sl, attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotFound
		}

		s.invalidate(ctx)
		slog.Info("post updated", "id", p.ID, "slug", p.Slug, "status", p.Status)
		return s.Get(ctx, p.ID)
	}
	return nil, ErrSlugConflict
}

// Trash soft-deletes a live post. Its slug stays reserved.
func (s *Service) Trash(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, "trashed", id, s.repo.Trash)
}

// Restore returns a trashed post to the live set.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, "restored", id, s.repo.Restore)
}

// ForceDelete permanently removes a trashed post and frees its slug.
func (s *Service) ForceDelete(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, "purged", id, s.repo.Purge)
}

// Get returns a live post of any status.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns live posts, optionally filtered by status, newest first.
func (s *Service) List(ctx context.Context, status models.PostStatus, page, perPage int) (*Page, error) {
	items, total, err := s.repo.List(ctx, status, perPage, offset(page, perPage))
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// ListTrashed returns every trashed post.
func (s *Service) ListTrashed(ctx context.Context) ([]models.Post, error) {
	return s.repo.ListTrashed(ctx)
}

// ListPublished returns live published posts, newest publication first,
// filtered by a title substring when search is non-empty.
func (s *Service) ListPublished(ctx context.Context, search string, page, perPage int) (*Page, error) {
	items, total, err := s.repo.ListPublished(ctx, strings.TrimSpace(search), perPage, offset(page, perPage))
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// GetPublished returns the live published post holding slug.
func (s *Service) GetPublished(ctx context.Context, slug string) (*models.Post, error) {
	p, err := s.repo.FindPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// apply copies in onto p. published_at follows the status on every save.
func (s *Service) apply(p *models.Post, in Input) error {
	content := in.Content
	if in.Markdown {
		rendered, err := markdown.ToHTML(content)
		if err != nil {
			return fmt.Errorf("render content: %w", err)
		}
		content = rendered
	}
	if s.sanitizer != nil {
		content = s.sanitizer.Sanitize(content)
	}

	p.Title = strings.TrimSpace(in.Title)
	p.Content = content
	if in.ThumbnailSet {
		p.Thumbnail = in.Thumbnail
	}
	p.Status = in.Status

	p.PublishedAt = nil
	if in.Status == models.PostStatusPublished {
		now := s.now().UTC()
		p.PublishedAt = &now
	}
	return nil
}

func (s *Service) assignSlug(ctx context.Context, title string, excludeID uuid.UUID) (string, error) {
	probes := 0
	counted := slug.CheckerFunc(func(ctx context.Context, candidate string, excludeID uuid.UUID) (bool, error) {
		probes++
		return s.repo.SlugExists(ctx, candidate, excludeID)
	})

	sl, err := slug.Unique(ctx, title, excludeID, counted)
	metrics.SlugProbes.Observe(float64(probes))
	if err != nil {
		return "", fmt.Errorf("assign slug: %w", err)
	}
	return sl, nil
}

func (s *Service) conflict(sl string, attempt int) {
	metrics.SlugConflicts.Inc()
	slog.Warn("slug claimed concurrently, retrying", "slug", sl, "attempt", attempt)
}

func (s *Service) transition(ctx context.Context, verb string, id uuid.UUID, op func(context.Context, uuid.UUID) (bool, error)) error {
	ok, err := op(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.invalidate(ctx)
	slog.Info("post "+verb, "id", id)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
}

func offset(page, perPage int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * perPage
}
