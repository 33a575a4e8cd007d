package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/cadence/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

// tickingClock returns a clock that advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func ptr[T any](v T) *T { return &v }

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- Content CRUD ---

func TestContentCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deadline := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	item := &models.ContentItem{
		Title:        "Launch post",
		Description:  "Announce the release",
		Body:         "# Hello",
		Status:       models.ContentStatusDraft,
		Platform:     models.PlatformBlog,
		Priority:     models.PriorityHigh,
		Tags:         []string{"launch", "Go"},
		DeadlineDate: &deadline,
	}
	require.NoError(t, s.CreateContent(ctx, "u1", item))
	assert.NotEmpty(t, item.ID)
	assert.False(t, item.CreatedAt.IsZero())
	assert.Equal(t, item.CreatedAt, item.UpdatedAt)

	got, err := s.GetContent(ctx, "u1", item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch post", got.Title)
	assert.Equal(t, "# Hello", got.Body)
	assert.Equal(t, models.ContentStatusDraft, got.Status)
	assert.Equal(t, []string{"launch", "Go"}, got.Tags)
	require.NotNil(t, got.DeadlineDate)
	assert.True(t, deadline.Equal(*got.DeadlineDate))
	assert.Nil(t, got.PublishedDate)

	// Partial update leaves other fields alone
	updated, err := s.UpdateContent(ctx, "u1", item.ID, models.ContentPatch{
		Title:        ptr("Launch post v2"),
		DeadlineDate: &time.Time{},
	})
	require.NoError(t, err)
	assert.Equal(t, "Launch post v2", updated.Title)
	assert.Equal(t, "Announce the release", updated.Description)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Nil(t, updated.DeadlineDate, "zero time clears the date")

	require.NoError(t, s.DeleteContent(ctx, "u1", item.ID))
	_, err = s.GetContent(ctx, "u1", item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContent_ScopedByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &models.ContentItem{Title: "mine", Status: models.ContentStatusIdea, Platform: models.PlatformBlog, Priority: models.PriorityLow}
	require.NoError(t, s.CreateContent(ctx, "owner", item))

	_, err := s.GetContent(ctx, "intruder", item.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpdateContent(ctx, "intruder", item.ID, models.ContentPatch{Title: ptr("stolen")})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteContent(ctx, "intruder", item.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	items, err := s.ListContent(ctx, "intruder", ContentFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListContent_NewestFirstAndFilters(t *testing.T) {
	s := newTestStore(t)
	s.now = tickingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	mk := func(title string, status models.ContentStatus, platform models.Platform, tags ...string) {
		require.NoError(t, s.CreateContent(ctx, "u1", &models.ContentItem{
			Title: title, Status: status, Platform: platform, Priority: models.PriorityMedium, Tags: tags,
		}))
	}
	mk("first", models.ContentStatusIdea, models.PlatformBlog, "alpha")
	mk("second", models.ContentStatusDraft, models.PlatformTwitter, "beta", "alpha")
	mk("third", models.ContentStatusDraft, models.PlatformBlog)

	all, err := s.ListContent(ctx, "u1", ContentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Title)
	assert.Equal(t, "first", all[2].Title)
	assert.Equal(t, []string{}, all[0].Tags)

	drafts, err := s.ListContent(ctx, "u1", ContentFilter{Status: models.ContentStatusDraft})
	require.NoError(t, err)
	assert.Len(t, drafts, 2)

	blog, err := s.ListContent(ctx, "u1", ContentFilter{Platform: models.PlatformBlog})
	require.NoError(t, err)
	assert.Len(t, blog, 2)

	tagged, err := s.ListContent(ctx, "u1", ContentFilter{Tag: "alpha"})
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	none, err := s.ListContent(ctx, "u1", ContentFilter{Tag: "Alpha"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateContent_EmptyPatchReturnsCurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &models.ContentItem{Title: "x", Status: models.ContentStatusIdea, Platform: models.PlatformBlog, Priority: models.PriorityLow}
	require.NoError(t, s.CreateContent(ctx, "u1", item))

	got, err := s.UpdateContent(ctx, "u1", item.ID, models.ContentPatch{})
	require.NoError(t, err)
	assert.Equal(t, "x", got.Title)

	_, err = s.UpdateContent(ctx, "u1", "missing", models.ContentPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateContent_RejectsEmptyTitle(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateContent(context.Background(), "u1", &models.ContentItem{Status: models.ContentStatusIdea})
	assert.Error(t, err)
}

// --- Stages ---

func TestStages_SaveAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stages, err := s.ListStages(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, stages)

	want := models.DefaultStages()
	want[1].WIPLimit = 3
	require.NoError(t, s.SaveStages(ctx, "u1", want))

	got, err := s.ListStages(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Saving again replaces, does not append
	require.NoError(t, s.SaveStages(ctx, "u1", want[:2]))
	got, err = s.ListStages(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	other, err := s.ListStages(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, other)
}
