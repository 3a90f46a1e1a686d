// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"simpleblog/internal/cache"
	"simpleblog/internal/models"
	"simpleblog/internal/post"
)

// PostReader serves the public, published-only view of posts.
type PostReader interface {
	ListPublished(ctx context.Context, search string, page, perPage int) (*post.Page, error)
	GetPublished(ctx context.Context, slug string) (*models.Post, error)
}

// ResponseCache stores encoded public responses.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
}

// Public groups the unauthenticated read handlers. Successful responses are
// cached in Valkey and served from there until an admin write clears them.
type Public struct {
	posts PostReader
	cache ResponseCache
}

// NewPublic creates a Public handler group. cache may be nil.
func NewPublic(posts PostReader, cache ResponseCache) *Public {
	return &Public{posts: posts, cache: cache}
}

// Ping is a liveness probe for API clients.
func (p *Public) Ping(w http.ResponseWriter, r *http.Request) {
	writeBody(w, http.StatusOK, []byte(`{"ok":true}`))
}

// ListPosts returns published posts, newest first, optionally filtered by a
// title search.
func (p *Public) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, perPage, errs := pageParams(r)
	if !errs.empty() {
		respondError(w, http.StatusUnprocessableEntity, "Validation Error", errs)
		return
	}
	search := r.URL.Query().Get("search")

	p.cached(w, r, cache.PostListKey(search, page, perPage), func(ctx context.Context) (string, any, error) {
		res, err := p.posts.ListPublished(ctx, search, page, perPage)
		if err != nil {
			return "", nil, err
		}
		return "Posts retrieved successfully.", newPaginated(res), nil
	})
}

// ShowPost returns one published post by slug, with its author.
func (p *Public) ShowPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	p.cached(w, r, cache.PostKey(slug), func(ctx context.Context) (string, any, error) {
		found, err := p.posts.GetPublished(ctx, slug)
		if err != nil {
			return "", nil, err
		}
		return "Post retrieved successfully.", found, nil
	})
}

// cached serves key from the cache or runs load, caching the encoded
// success envelope. post.ErrNotFound becomes a 404 and is not cached.
func (p *Public) cached(w http.ResponseWriter, r *http.Request, key string, load func(context.Context) (string, any, error)) {
	ctx := r.Context()

	if p.cache != nil {
		if body, ok := p.cache.Get(ctx, key); ok {
			w.Header().Set("X-Cache", "HIT")
			writeBody(w, http.StatusOK, body)
			return
		}
	}

	message, data, err := load(ctx)
	if errors.Is(err, post.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Post not found.", nil)
		return
	}
	if err != nil {
		serverError(w, r, "load public posts failed", err)
		return
	}

	body, err := encodeSuccess(message, data)
	if err != nil {
		serverError(w, r, "encode response failed", err)
		return
	}
	if p.cache != nil {
		p.cache.Set(ctx, key, body)
	}
	w.Header().Set("X-Cache", "MISS")
	writeBody(w, http.StatusOK, body)
}
