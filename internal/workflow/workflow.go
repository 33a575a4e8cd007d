// Package workflow holds the content lifecycle rules: deadline risk,
// WIP limits, and statistics derived from a content collection. Every
// function is pure; callers pass the evaluation time explicitly.
package workflow

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/joescharf/cadence/internal/models"
)

// AtRiskWindow is how far ahead of a deadline an item becomes at risk.
const AtRiskWindow = 3 * 24 * time.Hour

// IsOverdue reports whether an unpublished item is past its deadline.
func IsOverdue(item *models.ContentItem, now time.Time) bool {
	if item.DeadlineDate == nil || item.IsPublished() {
		return false
	}
	return item.DeadlineDate.Before(now)
}

// IsAtRisk reports whether an unpublished item's deadline falls within the
// next AtRiskWindow, inclusive. Overdue items are never at risk.
func IsAtRisk(item *models.ContentItem, now time.Time) bool {
	if item.DeadlineDate == nil || item.IsPublished() || IsOverdue(item, now) {
		return false
	}
	return !item.DeadlineDate.After(now.Add(AtRiskWindow))
}

// CanMoveToStatus checks the WIP limit of the target column. The moving item
// is excluded from the count so re-saving within a column is always allowed.
// A wipLimit of 0 means unlimited.
func CanMoveToStatus(itemID string, status models.ContentStatus, items []*models.ContentItem, wipLimit int) bool {
	if wipLimit == 0 {
		return true
	}
	occupants := 0
	for _, it := range items {
		if it.Status == status && it.ID != itemID {
			occupants++
		}
	}
	return occupants < wipLimit
}

// CompletionTimeStats returns avg/min/max days from creation to completion
// over published items. Each value is rounded to one decimal independently.
func CompletionTimeStats(items []*models.ContentItem) models.CompletionStats {
	var samples []float64
	for _, it := range items {
		if !it.IsPublished() || it.CompletedAt == nil || it.CreatedAt.IsZero() {
			continue
		}
		samples = append(samples, it.CompletedAt.Sub(it.CreatedAt).Hours()/24)
	}
	if len(samples) == 0 {
		return models.CompletionStats{}
	}

	sum, lo, hi := 0.0, samples[0], samples[0]
	for _, s := range samples {
		sum += s
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	return models.CompletionStats{
		Avg: round1(sum / float64(len(samples))),
		Min: round1(lo),
		Max: round1(hi),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// AllTags returns the sorted union of every item's tags. Sorting is byte-wise,
// so upper-case tags sort before lower-case ones.
func AllTags(items []*models.ContentItem) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, it := range items {
		for _, t := range it.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// Stats counts items per status plus overdue and at-risk totals.
func Stats(items []*models.ContentItem, now time.Time) models.ContentStats {
	var st models.ContentStats
	for _, it := range items {
		switch it.Status {
		case models.ContentStatusIdea:
			st.Idea++
		case models.ContentStatusDraft:
			st.Draft++
		case models.ContentStatusScheduled:
			st.Scheduled++
		case models.ContentStatusPublished:
			st.Published++
		}
		if IsOverdue(it, now) {
			st.Overdue++
		}
		if IsAtRisk(it, now) {
			st.AtRisk++
		}
	}
	st.Total = len(items)
	return st
}

// FilterByTag returns the items carrying tag. An empty tag matches everything.
func FilterByTag(items []*models.ContentItem, tag string) []*models.ContentItem {
	if tag == "" {
		return items
	}
	out := []*models.ContentItem{}
	for _, it := range items {
		if it.HasTag(tag) {
			out = append(out, it)
		}
	}
	return out
}

// CountByPlatform returns the number of items per platform.
func CountByPlatform(items []*models.ContentItem) map[models.Platform]int {
	counts := make(map[models.Platform]int)
	for _, it := range items {
		counts[it.Platform]++
	}
	return counts
}

// WeeklyThroughput counts completed items per week for the last `weeks`
// weeks including the current one, oldest first. Weeks start Monday 00:00 UTC.
func WeeklyThroughput(items []*models.ContentItem, weeks int, now time.Time) []models.ThroughputPoint {
	if weeks <= 0 {
		return []models.ThroughputPoint{}
	}
	current := weekStart(now)
	first := current.AddDate(0, 0, -7*(weeks-1))

	points := make([]models.ThroughputPoint, weeks)
	for i := range points {
		points[i].WeekStart = first.AddDate(0, 0, 7*i)
	}
	for _, it := range items {
		if it.CompletedAt == nil {
			continue
		}
		ws := weekStart(*it.CompletedAt)
		if ws.Before(first) || ws.After(current) {
			continue
		}
		idx := int(ws.Sub(first).Hours() / (24 * 7))
		points[idx].Published++
	}
	return points
}

func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// NormalizeTag is the canonical form of a tag or tag filter.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeTags lowercases and trims tags at entry time, dropping blanks and
// duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, t := range tags {
		t = NormalizeTag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
