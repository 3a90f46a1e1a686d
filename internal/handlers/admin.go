// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"simpleblog/internal/models"
	"simpleblog/internal/post"
)

// PostManager is the admin view of posts: all statuses plus the trash.
type PostManager interface {
	List(ctx context.Context, status models.PostStatus, page, perPage int) (*post.Page, error)
	ListTrashed(ctx context.Context) ([]models.Post, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Create(ctx context.Context, authorID uuid.UUID, in post.Input) (*models.Post, error)
	Update(ctx context.Context, id uuid.UUID, in post.Input) (*models.Post, error)
	Trash(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	ForceDelete(ctx context.Context, id uuid.UUID) error
}

// Admin groups the post management handlers. All routes require a bearer
// token.
type Admin struct {
	posts PostManager
}

// NewAdmin creates an Admin handler group.
func NewAdmin(posts PostManager) *Admin {
	return &Admin{posts: posts}
}

// PostsList returns live posts of any status, newest first. An unknown
// ?status= value is ignored.
func (a *Admin) PostsList(w http.ResponseWriter, r *http.Request) {
	page, perPage, errs := pageParams(r)
	if !errs.empty() {
		respondError(w, http.StatusUnprocessableEntity, "Validation Error", errs)
		return
	}

	status := models.PostStatus(r.URL.Query().Get("status"))
	if !status.Valid() {
		status = ""
	}

	res, err := a.posts.List(r.Context(), status, page, perPage)
	if err != nil {
		serverError(w, r, "list posts failed", err)
		return
	}
	respond(w, r, http.StatusOK, "Posts retrieved successfully.", newPaginated(res))
}

// PostsTrashed returns every soft-deleted post.
func (a *Admin) PostsTrashed(w http.ResponseWriter, r *http.Request) {
	items, err := a.posts.ListTrashed(r.Context())
	if err != nil {
		serverError(w, r, "list trashed posts failed", err)
		return
	}
	respond(w, r, http.StatusOK, "Trashed posts retrieved successfully.", items)
}

// PostCreate validates the body and creates a post owned by the caller.
func (a *Admin) PostCreate(w http.ResponseWriter, r *http.Request) {
	authorID, ok := callerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}

	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, errs := validatePost(req)
	if !errs.empty() {
		respondError(w, http.StatusUnprocessableEntity, "Validation Error", errs)
		return
	}

	created, err := a.posts.Create(r.Context(), authorID, in)
	if err != nil {
		a.writeFailed(w, r, "create post failed", err)
		return
	}
	respond(w, r, http.StatusCreated, "Post created successfully.", created)
}

// PostShow returns one live post by ID.
func (a *Admin) PostShow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Post not found.", nil)
		return
	}

	found, err := a.posts.Get(r.Context(), id)
	if errors.Is(err, post.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Post not found.", nil)
		return
	}
	if err != nil {
		serverError(w, r, "get post failed", err)
		return
	}
	respond(w, r, http.StatusOK, "Post retrieved successfully.", found)
}

// PostUpdate validates the body and replaces a live post's fields. The slug
// follows the new title.
func (a *Admin) PostUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Post not found.", nil)
		return
	}

	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, errs := validatePost(req)
	if !errs.empty() {
		respondError(w, http.StatusUnprocessableEntity, "Validation Error", errs)
		return
	}

	updated, err := a.posts.Update(r.Context(), id, in)
	if errors.Is(err, post.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Post not found.", nil)
		return
	}
	if err != nil {
		a.writeFailed(w, r, "update post failed", err)
		return
	}
	respond(w, r, http.StatusOK, "Post updated successfully.", updated)
}

// PostDelete moves a live post to the trash.
func (a *Admin) PostDelete(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.posts.Trash, "Post not found.", "Post moved to trash successfully.")
}

// PostRestore brings a trashed post back.
func (a *Admin) PostRestore(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.posts.Restore, "Post not found in trash.", "Post restored successfully.")
}

// PostForceDelete permanently removes a trashed post.
func (a *Admin) PostForceDelete(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.posts.ForceDelete, "Post not found in trash.", "Post permanently deleted.")
}

func (a *Admin) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) error, notFound, done string) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusNotFound, notFound, nil)
		return
	}

	err := op(r.Context(), id)
	if errors.Is(err, post.ErrNotFound) {
		respondError(w, http.StatusNotFound, notFound, nil)
		return
	}
	if err != nil {
		serverError(w, r, "post state change failed", err)
		return
	}
	respond(w, r, http.StatusOK, done, []any{})
}

// writeFailed maps write errors that are not a missing post.
func (a *Admin) writeFailed(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, post.ErrSlugConflict) {
		respondError(w, http.StatusConflict, "Could not assign a unique slug, please retry.", nil)
		return
	}
	serverError(w, r, msg, err)
}
