// Package content is the authoritative read/write path for a user's content
// items. Every mutation invalidates the user's cached list and notifies
// subscribers; reads are served from the cache when possible.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/cadence/internal/auth"
	"github.com/joescharf/cadence/internal/cache"
	"github.com/joescharf/cadence/internal/logging"
	"github.com/joescharf/cadence/internal/metrics"
	"github.com/joescharf/cadence/internal/models"
	"github.com/joescharf/cadence/internal/store"
	"github.com/joescharf/cadence/internal/workflow"
)

// EventKind names the mutation that produced a ChangeEvent.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventMoved   EventKind = "moved"
	EventDeleted EventKind = "deleted"
)

// ChangeEvent is delivered to subscribers after a successful mutation.
type ChangeEvent struct {
	Kind   EventKind
	UserID string
	ItemID string
	Status models.ContentStatus // empty for deletes
	At     time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for publish stamps and
// deadline classification.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service owns the current user's content collection.
type Service struct {
	store store.Store
	cache cache.Cache
	log   *slog.Logger
	now   func() time.Time

	mu      sync.Mutex
	subs    map[int]func(ChangeEvent)
	nextSub int
}

// NewService creates a content service. A nil cache falls back to an
// in-memory cache; a nil logger discards output.
func NewService(s store.Store, c cache.Cache, log *slog.Logger, opts ...Option) *Service {
	if c == nil {
		c = cache.NewMemoryCache(0)
	}
	if log == nil {
		log = logging.Discard()
	}
	svc := &Service{
		store: s,
		cache: c,
		log:   log,
		now:   time.Now,
		subs:  make(map[int]func(ChangeEvent)),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Subscribe registers fn for change events and returns a function that
// removes it. Callbacks run synchronously on the mutating goroutine.
func (s *Service) Subscribe(fn func(ChangeEvent)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify(ev ChangeEvent) {
	s.mu.Lock()
	fns := make([]func(ChangeEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// afterMutation invalidates the cached list and fans out the event.
func (s *Service) afterMutation(ctx context.Context, ev ChangeEvent) {
	if err := s.cache.Invalidate(ctx, ev.UserID); err != nil {
		s.log.Warn("cache invalidation failed", "user", ev.UserID, "error", err)
	}
	metrics.ObserveMutation(string(ev.Kind))
	s.log.Debug("content changed", "kind", ev.Kind, "id", ev.ItemID, "status", ev.Status)
	s.notify(ev)
}

// List returns the user's items newest first. Without a user it returns an
// empty list rather than an error.
func (s *Service) List(ctx context.Context) ([]*models.ContentItem, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return []*models.ContentItem{}, nil
	}

	items, hit, err := s.cache.Get(ctx, userID)
	switch {
	case err != nil:
		metrics.ObserveCacheLookup("error")
		s.log.Warn("cache read failed", "user", userID, "error", err)
	case hit:
		metrics.ObserveCacheLookup("hit")
		return items, nil
	default:
		metrics.ObserveCacheLookup("miss")
	}

	items, err = s.store.ListContent(ctx, userID, store.ContentFilter{})
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, userID, items); err != nil {
		s.log.Warn("cache write failed", "user", userID, "error", err)
	}
	return items, nil
}

// Get returns a single item.
func (s *Service) Get(ctx context.Context, id string) (*models.ContentItem, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.store.GetContent(ctx, userID, id)
}

// Add persists a new item and returns it with its server-assigned id and
// timestamps. Status defaults to idea, priority to medium, platform to blog.
func (s *Service) Add(ctx context.Context, draft models.ContentItem) (*models.ContentItem, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	item := draft
	item.ID = ""
	item.CreatedAt = time.Time{}
	item.UpdatedAt = time.Time{}
	item.Tags = append([]string{}, draft.Tags...)
	if item.Status == "" {
		item.Status = models.ContentStatusIdea
	}
	if item.Priority == "" {
		item.Priority = models.PriorityMedium
	}
	if item.Platform == "" {
		item.Platform = models.PlatformBlog
	}
	if err := validateItem(&item); err != nil {
		return nil, err
	}
	item.PublishedDate = nonZero(item.PublishedDate)
	item.CompletedAt = nonZero(item.CompletedAt)
	if item.IsPublished() {
		stamp := s.now().UTC()
		if item.PublishedDate == nil {
			item.PublishedDate = &stamp
		}
		if item.CompletedAt == nil {
			item.CompletedAt = item.PublishedDate
		}
	} else {
		item.CompletedAt = nil
	}

	if err := s.store.CreateContent(ctx, userID, &item); err != nil {
		return nil, err
	}

	s.afterMutation(ctx, ChangeEvent{Kind: EventCreated, UserID: userID, ItemID: item.ID, Status: item.Status, At: s.now()})
	return &item, nil
}

// Update applies the fields present in patch. Ownership is enforced by the
// store, which reports foreign ids as not found.
func (s *Service) Update(ctx context.Context, id string, patch models.ContentPatch) (*models.ContentItem, error) {
	return s.update(ctx, id, patch, EventUpdated)
}

// Move changes an item's status. Entering published for the first time
// stamps PublishedDate (and CompletedAt) with the current time. WIP limits
// are not checked here; callers consult workflow.CanMoveToStatus first.
func (s *Service) Move(ctx context.Context, id string, status models.ContentStatus) error {
	_, err := s.update(ctx, id, models.ContentPatch{Status: &status}, EventMoved)
	return err
}

func (s *Service) update(ctx context.Context, id string, patch models.ContentPatch, kind EventKind) (*models.ContentItem, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	current, err := s.store.GetContent(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.guardPublishFields(current, &patch); err != nil {
		return nil, err
	}

	item, err := s.store.UpdateContent(ctx, userID, id, patch)
	if err != nil {
		return nil, err
	}

	if kind == EventMoved {
		metrics.ObserveMove(string(item.Status))
	}
	s.afterMutation(ctx, ChangeEvent{Kind: kind, UserID: userID, ItemID: item.ID, Status: item.Status, At: s.now()})
	return item, nil
}

// guardPublishFields drops patch fields that would leave the publish history
// inconsistent. CompletedAt is never cleared and is only accepted for items
// that are or have been published. A published item keeps its publish date.
func (s *Service) guardPublishFields(current *models.ContentItem, patch *models.ContentPatch) error {
	if current == nil {
		return fmt.Errorf("publish fields: %w", ErrNotFound)
	}
	patch.CompletedAt = nonZero(patch.CompletedAt)

	status := current.Status
	if patch.Status != nil {
		status = *patch.Status
	}
	if status != models.ContentStatusPublished {
		if current.CompletedAt == nil {
			patch.CompletedAt = nil
		}
		return nil
	}

	patch.PublishedDate = nonZero(patch.PublishedDate)
	s.stampPublished(current, patch)
	return nil
}

// stampPublished fills the one-time publish fields on patch. A date that was
// already set is never overwritten.
func (s *Service) stampPublished(current *models.ContentItem, patch *models.ContentPatch) {
	published := current.PublishedDate
	if patch.PublishedDate != nil {
		published = patch.PublishedDate
	}
	if published == nil {
		stamp := s.now().UTC()
		published = &stamp
		patch.PublishedDate = published
	}
	if current.CompletedAt == nil && patch.CompletedAt == nil {
		patch.CompletedAt = published
	}
}

func nonZero(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

// Delete removes an item immediately. Deleting a missing id returns
// ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if err := s.store.DeleteContent(ctx, userID, id); err != nil {
		return err
	}
	s.afterMutation(ctx, ChangeEvent{Kind: EventDeleted, UserID: userID, ItemID: id, At: s.now()})
	return nil
}

// Stats derives per-status, overdue and at-risk counts from the current list.
func (s *Service) Stats(ctx context.Context) (models.ContentStats, error) {
	items, err := s.List(ctx)
	if err != nil {
		return models.ContentStats{}, err
	}
	return workflow.Stats(items, s.now()), nil
}

// Tags returns every tag in use, sorted.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return workflow.AllTags(items), nil
}

// CompletionStats returns creation-to-completion statistics in days.
func (s *Service) CompletionStats(ctx context.Context) (models.CompletionStats, error) {
	items, err := s.List(ctx)
	if err != nil {
		return models.CompletionStats{}, err
	}
	return workflow.CompletionTimeStats(items), nil
}

// Throughput returns completed items per week for the last `weeks` weeks.
func (s *Service) Throughput(ctx context.Context, weeks int) ([]models.ThroughputPoint, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return workflow.WeeklyThroughput(items, weeks, s.now()), nil
}

// PlatformCounts returns the number of items per platform.
func (s *Service) PlatformCounts(ctx context.Context) (map[models.Platform]int, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return workflow.CountByPlatform(items), nil
}

// Stages returns the user's board columns in status order. Statuses the user
// never configured fall back to the defaults, so all four columns are present.
func (s *Service) Stages(ctx context.Context) ([]models.WorkflowStage, error) {
	defaults := models.DefaultStages()
	userID, ok := auth.UserID(ctx)
	if !ok {
		return defaults, nil
	}

	saved, err := s.store.ListStages(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[models.ContentStatus]models.WorkflowStage, len(saved))
	for _, st := range saved {
		byID[st.ID] = st
	}
	stages := make([]models.WorkflowStage, 0, len(defaults))
	for _, st := range defaults {
		if custom, ok := byID[st.ID]; ok {
			st = custom
		}
		stages = append(stages, st)
	}
	return stages, nil
}

// SaveStages validates and persists the user's stage configuration.
func (s *Service) SaveStages(ctx context.Context, stages []models.WorkflowStage) error {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if err := validateStages(stages); err != nil {
		return err
	}
	return s.store.SaveStages(ctx, userID, stages)
}
