// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared fakes and helpers for handler tests.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"simpleblog/internal/middleware"
	"simpleblog/internal/models"
	"simpleblog/internal/post"
	"simpleblog/internal/token"
)

// envelope mirrors both response shapes for decoding in tests.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type: got %q, want application/json", ct)
	}
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return env
}

// captureLogs redirects the default slog logger for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withClaims attaches verified token claims for userID, as RequireToken does.
func withClaims(r *http.Request, userID uuid.UUID) *http.Request {
	claims := &token.Claims{
		Email: "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:      "test-jti",
			Subject: userID.String(),
		},
	}
	return r.WithContext(context.WithValue(r.Context(), middleware.ClaimsKey, claims))
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// fakePosts implements PostReader and PostManager, recording its inputs.
type fakePosts struct {
	page  *post.Page
	items []models.Post
	post  *models.Post
	err   error

	calls      int
	gotSearch  string
	gotStatus  models.PostStatus
	gotPage    int
	gotPerPage int
	gotSlug    string
	gotID      uuid.UUID
	gotAuthor  uuid.UUID
	gotInput   post.Input
}

func (f *fakePosts) ListPublished(_ context.Context, search string, page, perPage int) (*post.Page, error) {
	f.calls++
	f.gotSearch, f.gotPage, f.gotPerPage = search, page, perPage
	return f.page, f.err
}

func (f *fakePosts) GetPublished(_ context.Context, slug string) (*models.Post, error) {
	f.calls++
	f.gotSlug = slug
	return f.post, f.err
}

func (f *fakePosts) List(_ context.Context, status models.PostStatus, page, perPage int) (*post.Page, error) {
	f.calls++
	f.gotStatus, f.gotPage, f.gotPerPage = status, page, perPage
	return f.page, f.err
}

func (f *fakePosts) ListTrashed(context.Context) ([]models.Post, error) {
	f.calls++
	return f.items, f.err
}

func (f *fakePosts) Get(_ context.Context, id uuid.UUID) (*models.Post, error) {
	f.calls++
	f.gotID = id
	return f.post, f.err
}

func (f *fakePosts) Create(_ context.Context, authorID uuid.UUID, in post.Input) (*models.Post, error) {
	f.calls++
	f.gotAuthor, f.gotInput = authorID, in
	return f.post, f.err
}

func (f *fakePosts) Update(_ context.Context, id uuid.UUID, in post.Input) (*models.Post, error) {
	f.calls++
	f.gotID, f.gotInput = id, in
	return f.post, f.err
}

func (f *fakePosts) Trash(_ context.Context, id uuid.UUID) error {
	f.calls++
	f.gotID = id
	return f.err
}

func (f *fakePosts) Restore(_ context.Context, id uuid.UUID) error {
	f.calls++
	f.gotID = id
	return f.err
}

func (f *fakePosts) ForceDelete(_ context.Context, id uuid.UUID) error {
	f.calls++
	f.gotID = id
	return f.err
}

// mapCache is an in-memory ResponseCache.
type mapCache map[string][]byte

func (m mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	b, ok := m[key]
	return b, ok
}

func (m mapCache) Set(_ context.Context, key string, body []byte) {
	m[key] = body
}

func samplePost(title, slug string) models.Post {
	return models.Post{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Title:   title,
		Slug:    slug,
		Content: "<p>body</p>",
		Status:  models.PostStatusPublished,
		User:    &models.Author{ID: uuid.New(), Name: "Admin"},
	}
}
