package models

import "time"

// ContentStatus is the lifecycle column a content item sits in.
type ContentStatus string

const (
	ContentStatusIdea      ContentStatus = "idea"
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusScheduled ContentStatus = "scheduled"
	ContentStatusPublished ContentStatus = "published"
)

// ContentStatuses lists every status in board column order.
var ContentStatuses = []ContentStatus{
	ContentStatusIdea,
	ContentStatusDraft,
	ContentStatusScheduled,
	ContentStatusPublished,
}

// Valid reports whether s is one of the known statuses.
func (s ContentStatus) Valid() bool {
	for _, known := range ContentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Platform is the channel a content item is published to.
type Platform string

const (
	PlatformBlog       Platform = "blog"
	PlatformTwitter    Platform = "twitter"
	PlatformLinkedIn   Platform = "linkedin"
	PlatformYouTube    Platform = "youtube"
	PlatformInstagram  Platform = "instagram"
	PlatformNewsletter Platform = "newsletter"
)

// Platforms lists every supported platform.
var Platforms = []Platform{
	PlatformBlog,
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformYouTube,
	PlatformInstagram,
	PlatformNewsletter,
}

// Priority represents the urgency of a content item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ContentItem is a unit of plannable content tracked through the lifecycle.
type ContentItem struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Body          string        `json:"content,omitempty"`
	Status        ContentStatus `json:"status"`
	Platform      Platform      `json:"platform"`
	Priority      Priority      `json:"priority"`
	Tags          []string      `json:"tags"`
	ScheduledDate *time.Time    `json:"scheduledDate,omitempty"`
	DeadlineDate  *time.Time    `json:"deadlineDate,omitempty"`
	PublishedDate *time.Time    `json:"publishedDate,omitempty"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// HasTag reports whether the item carries tag exactly as stored.
func (c *ContentItem) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsPublished returns true if the item is in the published column.
func (c *ContentItem) IsPublished() bool {
	return c.Status == ContentStatusPublished
}

// ContentPatch is a partial update. Nil fields are left unchanged; a non-nil
// date holding the zero time clears that date, except that CompletedAt is
// never cleared and a published item keeps its PublishedDate.
type ContentPatch struct {
	Title         *string        `json:"title,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Body          *string        `json:"content,omitempty"`
	Status        *ContentStatus `json:"status,omitempty"`
	Platform      *Platform      `json:"platform,omitempty"`
	Priority      *Priority      `json:"priority,omitempty"`
	Tags          *[]string      `json:"tags,omitempty"`
	ScheduledDate *time.Time     `json:"scheduledDate,omitempty"`
	DeadlineDate  *time.Time     `json:"deadlineDate,omitempty"`
	PublishedDate *time.Time     `json:"publishedDate,omitempty"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
}

// Empty reports whether the patch specifies no fields.
func (p ContentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Body == nil &&
		p.Status == nil && p.Platform == nil && p.Priority == nil &&
		p.Tags == nil && p.ScheduledDate == nil && p.DeadlineDate == nil &&
		p.PublishedDate == nil && p.CompletedAt == nil
}

// ContentStats holds counts derived from a content collection.
type ContentStats struct {
	Idea      int `json:"idea"`
	Draft     int `json:"draft"`
	Scheduled int `json:"scheduled"`
	Published int `json:"published"`
	Total     int `json:"total"`
	Overdue   int `json:"overdue"`
	AtRisk    int `json:"atRisk"`
}

// CompletionStats summarizes idea-to-published time in days.
type CompletionStats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ThroughputPoint is the number of items completed in one week.
type ThroughputPoint struct {
	WeekStart time.Time `json:"weekStart"`
	Published int       `json:"published"`
}
