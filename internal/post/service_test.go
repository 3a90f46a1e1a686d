// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package post

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simpleblog/internal/models"
	"simpleblog/internal/store"
)

// memRepo is an in-memory Repository. Writes enforce slug uniqueness
// atomically, like the posts_slug_key constraint.
type memRepo struct {
	mu    sync.Mutex
	posts map[uuid.UUID]*models.Post

	// stolen slugs are reported free by SlugExists but rejected on write,
	// simulating a concurrent writer that wins the race.
	stolen    map[string]bool
	existsErr error
}

func newMemRepo() *memRepo {
	return &memRepo{posts: map[uuid.UUID]*models.Post{}, stolen: map[string]bool{}}
}

func (r *memRepo) SlugExists(_ context.Context, s string, excludeID uuid.UUID) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.takenLocked(s, excludeID), nil
}

func (r *memRepo) takenLocked(s string, excludeID uuid.UUID) bool {
	for id, p := range r.posts {
		if p.Slug == s && id != excludeID {
			return true
		}
	}
	return false
}

func (r *memRepo) claimLocked(s string, self uuid.UUID) bool {
	if r.stolen[s] {
		delete(r.stolen, s)
		return false
	}
	return !r.takenLocked(s, self)
}

func (r *memRepo) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.claimLocked(p.Slug, uuid.Nil) {
		return nil, store.ErrSlugTaken
	}
	cp := *p
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.posts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) Update(_ context.Context, p *models.Post) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.posts[p.ID]
	if !ok || cur.DeletedAt != nil {
		return false, nil
	}
	if !r.claimLocked(p.Slug, p.ID) {
		return false, store.ErrSlugTaken
	}
	cp := *p
	r.posts[p.ID] = &cp
	return true, nil
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) Trash(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.DeletedAt != nil {
		return false, nil
	}
	now := time.Now()
	p.DeletedAt = &now
	return true, nil
}

func (r *memRepo) Restore(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.DeletedAt == nil {
		return false, nil
	}
	p.DeletedAt = nil
	return true, nil
}

func (r *memRepo) Purge(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.DeletedAt == nil {
		return false, nil
	}
	delete(r.posts, id)
	return true, nil
}

func (r *memRepo) List(_ context.Context, status models.PostStatus, limit, offset int) ([]models.Post, int, error) {
	return r.filter(func(p *models.Post) bool {
		return p.DeletedAt == nil && (status == "" || p.Status == status)
	}, limit, offset)
}

func (r *memRepo) ListTrashed(_ context.Context) ([]models.Post, error) {
	items, _, err := r.filter(func(p *models.Post) bool { return p.DeletedAt != nil }, 1000, 0)
	return items, err
}

func (r *memRepo) ListPublished(_ context.Context, search string, limit, offset int) ([]models.Post, int, error) {
	return r.filter(func(p *models.Post) bool {
		return p.DeletedAt == nil && p.IsPublished() && p.PublishedAt != nil &&
			strings.Contains(strings.ToLower(p.Title), strings.ToLower(search))
	}, limit, offset)
}

func (r *memRepo) FindPublishedBySlug(_ context.Context, s string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.Slug == s && p.DeletedAt == nil && p.IsPublished() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) filter(keep func(*models.Post) bool, limit, offset int) ([]models.Post, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []models.Post{}
	for _, p := range r.posts {
		if keep(p) {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

type countingCache struct{ calls int }

func (c *countingCache) InvalidateAll(context.Context) { c.calls++ }

type scriptStripper struct{}

func (scriptStripper) Sanitize(s string) string { return strings.ReplaceAll(s, "<script>", "") }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memRepo, *countingCache) {
	repo := newMemRepo()
	cache := &countingCache{}
	svc := NewService(repo, cache, scriptStripper{}, WithClock(func() time.Time { return fixedNow }))
	return svc, repo, cache
}

func draft(title string) Input {
	return Input{Title: title, Content: "<p>body</p>", Status: models.PostStatusDraft}
}

func published(title string) Input {
	return Input{Title: title, Content: "<p>body</p>", Status: models.PostStatusPublished}
}

func TestCreate_AssignsUniqueSlugs(t *testing.T) {
	svc, _, cache := newTestService()
	ctx := context.Background()
	author := uuid.New()

	want := []string{"hello-world", "hello-world-1", "hello-world-2"}
	for i, title := range []string{"Hello World!", "hello   world", "HELLO, WORLD"} {
		p, err := svc.Create(ctx, author, draft(title))
		require.NoError(t, err)
		assert.Equal(t, want[i], p.Slug)
		assert.Equal(t, author, p.UserID)
	}
	assert.Equal(t, 3, cache.calls)
}

func TestCreate_FallbackSlug(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p1, err := svc.Create(ctx, uuid.New(), draft("!!!"))
	require.NoError(t, err)
	p2, err := svc.Create(ctx, uuid.New(), draft("???"))
	require.NoError(t, err)

	assert.Equal(t, "post", p1.Slug)
	assert.Equal(t, "post-1", p2.Slug)
}

func TestCreate_PublishedAtFollowsStatus(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	d, err := svc.Create(ctx, uuid.New(), draft("Draft"))
	require.NoError(t, err)
	assert.Nil(t, d.PublishedAt)

	p, err := svc.Create(ctx, uuid.New(), published("Live"))
	require.NoError(t, err)
	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, fixedNow, *p.PublishedAt)
}

func TestCreate_SanitizesAndTrims(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.Create(context.Background(), uuid.New(), Input{
		Title: "  Spaced  ", Content: "<script>x", Status: models.PostStatusDraft,
	})
	require.NoError(t, err)
	assert.Equal(t, "Spaced", p.Title)
	assert.Equal(t, "x", p.Content)
	assert.Equal(t, "spaced", p.Slug)
}

func TestCreate_RendersMarkdownBeforeSanitizing(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.Create(context.Background(), uuid.New(), Input{
		Title:    "Notes",
		Content:  "**bold**\n\n<script>alert(1)",
		Status:   models.PostStatusDraft,
		Markdown: true,
	})
	require.NoError(t, err)
	assert.Contains(t, p.Content, "<strong>bold</strong>")
	assert.NotContains(t, p.Content, "<script>")
}

func TestCreate_RetriesOnConflict(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.stolen["race"] = true

	p, err := svc.Create(context.Background(), uuid.New(), draft("Race"))
	require.NoError(t, err)
	assert.Equal(t, "race", p.Slug, "the stolen slug was released, so the retry claims it")
}

func TestCreate_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := &alwaysTaken{memRepo: newMemRepo()}
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), draft("Doomed"))
	assert.ErrorIs(t, err, ErrSlugConflict)
	assert.Equal(t, maxSlugAttempts, repo.writes)
}

type alwaysTaken struct {
	*memRepo
	writes int
}

func (r *alwaysTaken) Create(context.Context, *models.Post) (*models.Post, error) {
	r.writes++
	return nil, store.ErrSlugTaken
}

func TestCreate_CheckerErrorPropagates(t *testing.T) {
	svc, repo, cache := newTestService()
	boom := errors.New("db down")
	repo.existsErr = boom

	_, err := svc.Create(context.Background(), uuid.New(), draft("Anything"))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, cache.calls)
}

func TestCreate_ConcurrentSameTitle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	// Each lost race means another writer committed, so with four writers
	// nobody can lose more than three times.
	const writers = 4
	slugs := make([]string, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.Create(ctx, uuid.New(), draft("Same Title"))
			if assert.NoError(t, err) {
				slugs[i] = p.Slug
			}
		}(i)
	}
	wg.Wait()

	sort.Strings(slugs)
	assert.Equal(t, []string{"same-title", "same-title-1", "same-title-2", "same-title-3"}, slugs)
}

func TestUpdate_SameTitleKeepsSlug(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, uuid.New(), draft("Stable"))
	require.NoError(t, err)

	up, err := svc.Update(ctx, p.ID, published("Stable"))
	require.NoError(t, err)
	assert.Equal(t, "stable", up.Slug)
	assert.Equal(t, models.PostStatusPublished, up.Status)
	require.NotNil(t, up.PublishedAt)
}

func TestUpdate_NewTitleAvoidsOthers(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), draft("Taken"))
	require.NoError(t, err)
	p, err := svc.Create(ctx, uuid.New(), draft("Other"))
	require.NoError(t, err)

	up, err := svc.Update(ctx, p.ID, draft("Taken"))
	require.NoError(t, err)
	assert.Equal(t, "taken-1", up.Slug)
}

func TestUpdate_UnpublishClearsPublishedAt(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, uuid.New(), published("Was Live"))
	require.NoError(t, err)
	require.NotNil(t, p.PublishedAt)

	up, err := svc.Update(ctx, p.ID, draft("Was Live"))
	require.NoError(t, err)
	assert.Nil(t, up.PublishedAt)
}

func TestUpdate_OmittedThumbnailIsKept(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := draft("Pictured")
	thumb := "https://placehold.co/150"
	in.Thumbnail, in.ThumbnailSet = &thumb, true
	p, err := svc.Create(ctx, uuid.New(), in)
	require.NoError(t, err)
	require.NotNil(t, p.Thumbnail)

	up, err := svc.Update(ctx, p.ID, published("Pictured"))
	require.NoError(t, err)
	require.NotNil(t, up.Thumbnail)
	assert.Equal(t, thumb, *up.Thumbnail)

	cleared := draft("Pictured")
	cleared.ThumbnailSet = true
	up, err = svc.Update(ctx, p.ID, cleared)
	require.NoError(t, err)
	assert.Nil(t, up.Thumbnail)
}

func TestUpdate_MissingOrTrashed(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Update(ctx, uuid.New(), draft("Ghost"))
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := svc.Create(ctx, uuid.New(), draft("Binned"))
	require.NoError(t, err)
	require.NoError(t, svc.Trash(ctx, p.ID))

	_, err = svc.Update(ctx, p.ID, draft("Binned"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLifecycle_TrashReservesPurgeFrees(t *testing.T) {
	svc, _, cache := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, uuid.New(), draft("Cycle"))
	require.NoError(t, err)

	// Purge and restore only act on trashed posts.
	assert.ErrorIs(t, svc.ForceDelete(ctx, p.ID), ErrNotFound)
	assert.ErrorIs(t, svc.Restore(ctx, p.ID), ErrNotFound)

	require.NoError(t, svc.Trash(ctx, p.ID))
	assert.ErrorIs(t, svc.Trash(ctx, p.ID), ErrNotFound)

	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	trashed, err := svc.ListTrashed(ctx)
	require.NoError(t, err)
	require.Len(t, trashed, 1)

	again, err := svc.Create(ctx, uuid.New(), draft("Cycle"))
	require.NoError(t, err)
	assert.Equal(t, "cycle-1", again.Slug, "trashed posts keep their slug reserved")

	require.NoError(t, svc.Restore(ctx, p.ID))
	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "cycle", got.Slug)

	require.NoError(t, svc.Trash(ctx, p.ID))
	require.NoError(t, svc.ForceDelete(ctx, p.ID))

	third, err := svc.Create(ctx, uuid.New(), draft("Cycle"))
	require.NoError(t, err)
	assert.Equal(t, "cycle", third.Slug, "purge frees the slug")

	assert.Equal(t, 7, cache.calls)
}

func TestListings(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	author := uuid.New()

	for _, title := range []string{"Alpha Go", "Beta Go", "Gamma Rust"} {
		_, err := svc.Create(ctx, author, published(title))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, author, draft("Delta Go"))
	require.NoError(t, err)

	page, err := svc.ListPublished(ctx, " go ", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 2)

	page, err = svc.List(ctx, "", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.PerPage)

	page, err = svc.List(ctx, models.PostStatusDraft, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	got, err := svc.GetPublished(ctx, "beta-go")
	require.NoError(t, err)
	assert.Equal(t, "Beta Go", got.Title)

	_, err = svc.GetPublished(ctx, "delta-go")
	assert.ErrorIs(t, err, ErrNotFound, "drafts are not public")
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, offset(0, 10))
	assert.Equal(t, 0, offset(1, 10))
	assert.Equal(t, 20, offset(3, 10))
}
