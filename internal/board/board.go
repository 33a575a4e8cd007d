// Package board drives the kanban view: column layout, tag filtering and the
// drag/drop gesture that moves an item between statuses.
package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/joescharf/cadence/internal/models"
	"github.com/joescharf/cadence/internal/workflow"
)

var (
	// ErrWIPLimit is returned when the target column is full.
	ErrWIPLimit = errors.New("wip limit reached")
	// ErrNoDrag is returned by Drop when no gesture is in progress.
	ErrNoDrag = errors.New("no item is being dragged")
)

// Mover persists a status change. content.Service satisfies it.
type Mover interface {
	Move(ctx context.Context, id string, status models.ContentStatus) error
}

// Source is a Mover that can also snapshot the board. content.Service
// satisfies it.
type Source interface {
	Mover
	List(ctx context.Context) ([]*models.ContentItem, error)
	Stages(ctx context.Context) ([]models.WorkflowStage, error)
}

// Column is one rendered board column.
type Column struct {
	Stage   models.WorkflowStage  `json:"stage"`
	Items   []*models.ContentItem `json:"items"`
	Count   int                   `json:"count"`
	AtLimit bool                  `json:"atLimit"`
}

// Controller holds a snapshot of the board and the state of one drag
// gesture. It is not safe for concurrent use; build one per request or per
// interactive session.
type Controller struct {
	mover Mover

	items    []*models.ContentItem
	stages   []models.WorkflowStage
	tag      string
	dragging string
	over     models.ContentStatus
}

// NewController creates a controller that commits drops through m.
func NewController(m Mover) *Controller {
	return &Controller{mover: m, stages: models.DefaultStages()}
}

// Open builds a controller over src's current items and stages.
func Open(ctx context.Context, src Source) (*Controller, error) {
	items, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	stages, err := src.Stages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stages: %w", err)
	}
	c := NewController(src)
	c.Load(items, stages)
	return c, nil
}

// Load replaces the snapshot. An empty stage list keeps the defaults.
func (c *Controller) Load(items []*models.ContentItem, stages []models.WorkflowStage) {
	c.items = items
	if len(stages) > 0 {
		c.stages = stages
	}
}

// Columns lays out the items carrying tag (all items when tag is empty) in
// stage order, and makes tag the active filter for subsequent drags. Counts
// and AtLimit are computed over every item, not just the visible ones.
func (c *Controller) Columns(tag string) []Column {
	c.tag = tag
	visible := workflow.FilterByTag(c.items, tag)

	total := make(map[models.ContentStatus]int)
	for _, it := range c.items {
		total[it.Status]++
	}

	cols := make([]Column, 0, len(c.stages))
	for _, st := range c.stages {
		col := Column{Stage: st, Items: []*models.ContentItem{}, Count: total[st.ID]}
		for _, it := range visible {
			if it.Status == st.ID {
				col.Items = append(col.Items, it)
			}
		}
		col.AtLimit = st.WIPLimit > 0 && col.Count >= st.WIPLimit
		cols = append(cols, col)
	}
	return cols
}

// DragStart begins a gesture for id, replacing any prior one. Ids not
// visible under the active filter are ignored and false is returned.
func (c *Controller) DragStart(id string) bool {
	if !c.visible(id) {
		return false
	}
	c.dragging = id
	c.over = ""
	return true
}

// DragOver records the column under the pointer.
func (c *Controller) DragOver(status models.ContentStatus) {
	if c.dragging == "" {
		return
	}
	c.over = status
}

// Dragging returns the id being dragged and the column it hovers over.
func (c *Controller) Dragging() (string, models.ContentStatus) {
	return c.dragging, c.over
}

// Cancel abandons the current gesture without moving anything.
func (c *Controller) Cancel() {
	c.dragging = ""
	c.over = ""
}

// Drop commits the gesture with exactly one Move. An empty status drops
// into the hovered column; with no hovered column either, the gesture is
// cancelled and nothing moves. The gesture state is cleared whatever the
// outcome.
func (c *Controller) Drop(ctx context.Context, status models.ContentStatus) error {
	id, over := c.dragging, c.over
	c.Cancel()
	if id == "" {
		return ErrNoDrag
	}
	if status == "" {
		status = over
	}
	if status == "" {
		return nil
	}
	return c.Move(ctx, id, status, false)
}

// Move commits a status change without a gesture. WIP limits are checked
// against the snapshot unless force is set.
func (c *Controller) Move(ctx context.Context, id string, status models.ContentStatus, force bool) error {
	if !force {
		limit := c.stage(status).WIPLimit
		if !workflow.CanMoveToStatus(id, status, c.items, limit) {
			return fmt.Errorf("%s holds %d: %w", status, limit, ErrWIPLimit)
		}
	}
	return c.mover.Move(ctx, id, status)
}

func (c *Controller) visible(id string) bool {
	for _, it := range c.items {
		if it.ID == id {
			return c.tag == "" || it.HasTag(c.tag)
		}
	}
	return false
}

func (c *Controller) stage(status models.ContentStatus) models.WorkflowStage {
	for _, st := range c.stages {
		if st.ID == status {
			return st
		}
	}
	return models.WorkflowStage{ID: status}
}
