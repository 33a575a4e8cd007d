package store

import (
	"context"
	"errors"

	"github.com/joescharf/cadence/internal/models"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// ContentFilter narrows a content listing. Zero values match everything.
type ContentFilter struct {
	Status   models.ContentStatus
	Platform models.Platform
	Tag      string
}

// Store is the row-store backend. Every call is scoped to one user.
type Store interface {
	// Content
	ListContent(ctx context.Context, userID string, filter ContentFilter) ([]*models.ContentItem, error)
	GetContent(ctx context.Context, userID, id string) (*models.ContentItem, error)
	CreateContent(ctx context.Context, userID string, item *models.ContentItem) error
	UpdateContent(ctx context.Context, userID, id string, patch models.ContentPatch) (*models.ContentItem, error)
	DeleteContent(ctx context.Context, userID, id string) error

	// Workflow stages (user settings)
	ListStages(ctx context.Context, userID string) ([]models.WorkflowStage, error)
	SaveStages(ctx context.Context, userID string, stages []models.WorkflowStage) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
