// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"simpleblog/internal/models"
)

// postColumns is the projection shared by every post query; scanPost reads
// it back in the same order.
const postColumns = `
	p.id, p.user_id, p.title, p.slug, p.content, p.thumbnail, p.status,
	p.published_at, p.deleted_at, p.created_at, p.updated_at,
	u.id, u.name`

const postFrom = `FROM posts p JOIN users u ON u.id = p.user_id`

// PostStore handles all post-related database operations.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	p := &models.Post{User: &models.Author{}}
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Slug, &p.Content, &p.Thumbnail, &p.Status,
		&p.PublishedAt, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
		&p.User.ID, &p.User.Name,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostStore) queryPosts(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// SlugExists reports whether any non-purged post other than excludeID holds
// slug. Trashed posts count: their slug is reserved until force-deleted.
func (s *PostStore) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	var err error
	if excludeID == uuid.Nil {
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`, slug,
		).Scan(&exists)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1 AND id <> $2)`, slug, excludeID,
		).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("check slug exists: %w", err)
	}
	return exists, nil
}

// ListPublished returns one page of live, published posts ordered by
// published date descending, plus the total number of matches. A non-empty
// search filters on a case-insensitive title substring.
func (s *PostStore) ListPublished(ctx context.Context, search string, limit, offset int) ([]models.Post, int, error) {
	where := `WHERE p.deleted_at IS NULL AND p.status = 'published' AND p.published_at IS NOT NULL`
	args := []any{}
	if search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		where += ` AND p.title ILIKE $1`
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) `+postFrom+` `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count published posts: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY p.published_at DESC, p.id LIMIT $%d OFFSET $%d`,
		postColumns, postFrom, where, n+1, n+2)
	items, err := s.queryPosts(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list published posts: %w", err)
	}
	return items, total, nil
}

// FindPublishedBySlug retrieves a live, published post by its slug. Returns
// nil if not found.
func (s *PostStore) FindPublishedBySlug(ctx context.Context, slug string) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` `+postFrom+`
		WHERE p.slug = $1 AND p.status = 'published'
		  AND p.published_at IS NOT NULL AND p.deleted_at IS NULL`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by slug: %w", err)
	}
	return p, nil
}

// List returns one page of live posts of any status (or only status when it
// is non-empty), newest first, plus the total number of matches.
func (s *PostStore) List(ctx context.Context, status models.PostStatus, limit, offset int) ([]models.Post, int, error) {
	where := `WHERE p.deleted_at IS NULL`
	args := []any{}
	if status != "" {
		args = append(args, status)
		where += ` AND p.status = $1`
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) `+postFrom+` `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY p.created_at DESC, p.id LIMIT $%d OFFSET $%d`,
		postColumns, postFrom, where, n+1, n+2)
	items, err := s.queryPosts(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return items, total, nil
}

// ListTrashed returns every soft-deleted post, most recently trashed first.
func (s *PostStore) ListTrashed(ctx context.Context) ([]models.Post, error) {
	items, err := s.queryPosts(ctx, `SELECT `+postColumns+` `+postFrom+`
		WHERE p.deleted_at IS NOT NULL
		ORDER BY p.deleted_at DESC, p.id`)
	if err != nil {
		return nil, fmt.Errorf("list trashed posts: %w", err)
	}
	return items, nil
}

// FindByID retrieves a live post by its UUID. Returns nil if not found or
// trashed.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` `+postFrom+`
		WHERE p.id = $1 AND p.deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// Create inserts a new post and returns it with the generated ID and its
// author. Returns ErrSlugTaken when the slug was claimed concurrently.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (user_id, title, slug, content, thumbnail, status, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, p.UserID, p.Title, p.Slug, p.Content, p.Thumbnail, p.Status, p.PublishedAt,
	).Scan(&id)
	if isSlugViolation(err) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	created, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("create post: row %s vanished after insert", id)
	}
	return created, nil
}

// Update modifies a live post. Returns false if no live post has p.ID and
// ErrSlugTaken when the new slug was claimed concurrently.
func (s *PostStore) Update(ctx context.Context, p *models.Post) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			title = $1, slug = $2, content = $3, thumbnail = $4, status = $5,
			published_at = $6, updated_at = NOW()
		WHERE id = $7 AND deleted_at IS NULL
	`, p.Title, p.Slug, p.Content, p.Thumbnail, p.Status, p.PublishedAt, p.ID)
	if isSlugViolation(err) {
		return false, ErrSlugTaken
	}
	if err != nil {
		return false, fmt.Errorf("update post: %w", err)
	}
	return affected(res, "update post")
}

// Trash soft-deletes a live post. Returns false if no live post has id.
func (s *PostStore) Trash(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("trash post: %w", err)
	}
	return affected(res, "trash post")
}

// Restore clears deleted_at on a trashed post. Returns false if no trashed
// post has id.
func (s *PostStore) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return false, fmt.Errorf("restore post: %w", err)
	}
	return affected(res, "restore post")
}

// Purge permanently removes a trashed post, freeing its slug. Returns false
// if no trashed post has id.
func (s *PostStore) Purge(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return false, fmt.Errorf("purge post: %w", err)
	}
	return affected(res, "purge post")
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n > 0, nil
}

// escapeLike escapes LIKE wildcards so user search input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
