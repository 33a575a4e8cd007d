package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/cadence/internal/models"
)

var now = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC) // a Wednesday

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func item(id string, status models.ContentStatus) *models.ContentItem {
	return &models.ContentItem{ID: id, Title: id, Status: status}
}

const day = 24 * time.Hour

func TestDeadlineScenarios(t *testing.T) {
	tests := []struct {
		name     string
		status   models.ContentStatus
		deadline *time.Time
		overdue  bool
		atRisk   bool
	}{
		{"tomorrow draft", models.ContentStatusDraft, at(day), false, true},
		{"yesterday draft", models.ContentStatusDraft, at(-day), true, false},
		{"yesterday published", models.ContentStatusPublished, at(-day), false, false},
		{"tomorrow published", models.ContentStatusPublished, at(day), false, false},
		{"exactly three days", models.ContentStatusIdea, at(3 * day), false, true},
		{"just past window", models.ContentStatusIdea, at(3*day + time.Second), false, false},
		{"deadline is now", models.ContentStatusScheduled, at(0), false, true},
		{"no deadline", models.ContentStatusDraft, nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := item("a", tt.status)
			it.DeadlineDate = tt.deadline
			assert.Equal(t, tt.overdue, IsOverdue(it, now))
			assert.Equal(t, tt.atRisk, IsAtRisk(it, now))
		})
	}
}

func TestOverdueAndAtRiskAreExclusive(t *testing.T) {
	statuses := models.ContentStatuses
	for h := -100; h <= 100; h += 7 {
		for _, s := range statuses {
			it := item("x", s)
			it.DeadlineDate = at(time.Duration(h) * time.Hour)
			overdue := IsOverdue(it, now)
			atRisk := IsAtRisk(it, now)
			assert.False(t, overdue && atRisk, "hour offset %d status %s", h, s)
			if overdue {
				assert.NotEqual(t, models.ContentStatusPublished, it.Status)
				assert.True(t, it.DeadlineDate.Before(now))
			}
		}
	}
}

func TestCanMoveToStatus(t *testing.T) {
	items := []*models.ContentItem{
		item("a", models.ContentStatusDraft),
		item("b", models.ContentStatusDraft),
		item("c", models.ContentStatusIdea),
	}

	t.Run("zero limit is unlimited", func(t *testing.T) {
		assert.True(t, CanMoveToStatus("c", models.ContentStatusDraft, items, 0))
	})

	t.Run("exactly N occupants blocks", func(t *testing.T) {
		assert.False(t, CanMoveToStatus("c", models.ContentStatusDraft, items, 2))
	})

	t.Run("N-1 occupants allows", func(t *testing.T) {
		assert.True(t, CanMoveToStatus("c", models.ContentStatusDraft, items, 3))
	})

	t.Run("item already in column is excluded", func(t *testing.T) {
		assert.True(t, CanMoveToStatus("a", models.ContentStatusDraft, items, 2))
	})
}

func TestCompletionTimeStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, models.CompletionStats{}, CompletionTimeStats(nil))
	})

	t.Run("single item five days", func(t *testing.T) {
		it := item("a", models.ContentStatusPublished)
		it.CreatedAt = now
		it.CompletedAt = at(5 * day)
		got := CompletionTimeStats([]*models.ContentItem{it})
		assert.Equal(t, models.CompletionStats{Avg: 5, Min: 5, Max: 5}, got)
	})

	t.Run("ignores unpublished and incomplete", func(t *testing.T) {
		pub := item("a", models.ContentStatusPublished)
		pub.CreatedAt = now
		pub.CompletedAt = at(2 * day)

		moved := item("b", models.ContentStatusDraft)
		moved.CreatedAt = now
		moved.CompletedAt = at(10 * day)

		noCompletion := item("c", models.ContentStatusPublished)
		noCompletion.CreatedAt = now

		got := CompletionTimeStats([]*models.ContentItem{pub, moved, noCompletion})
		assert.Equal(t, models.CompletionStats{Avg: 2, Min: 2, Max: 2}, got)
	})

	t.Run("rounds each value independently", func(t *testing.T) {
		a := item("a", models.ContentStatusPublished)
		a.CreatedAt = now
		a.CompletedAt = at(25 * time.Hour) // 1.0417 days

		b := item("b", models.ContentStatusPublished)
		b.CreatedAt = now
		b.CompletedAt = at(80 * time.Hour) // 3.333 days

		got := CompletionTimeStats([]*models.ContentItem{a, b})
		assert.Equal(t, 2.2, got.Avg)
		assert.Equal(t, 1.0, got.Min)
		assert.Equal(t, 3.3, got.Max)
	})
}

func TestAllTags(t *testing.T) {
	a := item("a", models.ContentStatusIdea)
	a.Tags = []string{"Beta", "alpha"}
	b := item("b", models.ContentStatusIdea)
	b.Tags = []string{"alpha"}

	assert.Equal(t, []string{"Beta", "alpha"}, AllTags([]*models.ContentItem{a, b}))
	assert.Equal(t, []string{}, AllTags(nil))
}

func TestStats(t *testing.T) {
	overdue := item("a", models.ContentStatusDraft)
	overdue.DeadlineDate = at(-day)
	risky := item("b", models.ContentStatusScheduled)
	risky.DeadlineDate = at(day)
	pub := item("c", models.ContentStatusPublished)
	pub.DeadlineDate = at(-day)
	idea := item("d", models.ContentStatusIdea)

	got := Stats([]*models.ContentItem{overdue, risky, pub, idea}, now)
	assert.Equal(t, models.ContentStats{
		Idea: 1, Draft: 1, Scheduled: 1, Published: 1,
		Total: 4, Overdue: 1, AtRisk: 1,
	}, got)
}

func TestFilterByTag(t *testing.T) {
	a := item("a", models.ContentStatusIdea)
	a.Tags = []string{"go"}
	b := item("b", models.ContentStatusIdea)
	items := []*models.ContentItem{a, b}

	assert.Len(t, FilterByTag(items, ""), 2)
	got := FilterByTag(items, "go")
	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.Empty(t, FilterByTag(items, "Go"))
}

func TestCountByPlatform(t *testing.T) {
	a := item("a", models.ContentStatusIdea)
	a.Platform = models.PlatformBlog
	b := item("b", models.ContentStatusIdea)
	b.Platform = models.PlatformBlog
	c := item("c", models.ContentStatusIdea)
	c.Platform = models.PlatformYouTube

	got := CountByPlatform([]*models.ContentItem{a, b, c})
	assert.Equal(t, 2, got[models.PlatformBlog])
	assert.Equal(t, 1, got[models.PlatformYouTube])
}

func TestWeeklyThroughput(t *testing.T) {
	thisWeek := item("a", models.ContentStatusPublished)
	thisWeek.CompletedAt = at(-day) // Tuesday of the current week
	lastWeek := item("b", models.ContentStatusPublished)
	lastWeek.CompletedAt = at(-7 * day)
	tooOld := item("c", models.ContentStatusPublished)
	tooOld.CompletedAt = at(-60 * day)
	never := item("d", models.ContentStatusDraft)

	points := WeeklyThroughput([]*models.ContentItem{thisWeek, lastWeek, tooOld, never}, 4, now)
	assert.Len(t, points, 4)
	assert.Equal(t, time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), points[0].WeekStart)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), points[3].WeekStart)
	assert.Equal(t, 1, points[3].Published)
	assert.Equal(t, 1, points[2].Published)
	assert.Equal(t, 0, points[0].Published)

	assert.Empty(t, WeeklyThroughput(nil, 0, now))
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Go ", "go", "", "Launch", "  "})
	assert.Equal(t, []string{"go", "launch"}, got)
	assert.Equal(t, "beta", NormalizeTag("  Beta "))
}
