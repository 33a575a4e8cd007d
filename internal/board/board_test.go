package board

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/cadence/internal/models"
)

type move struct {
	id     string
	status models.ContentStatus
}

type fakeMover struct {
	moves []move
	err   error
}

func (f *fakeMover) Move(_ context.Context, id string, status models.ContentStatus) error {
	f.moves = append(f.moves, move{id, status})
	return f.err
}

func item(id string, status models.ContentStatus, tags ...string) *models.ContentItem {
	return &models.ContentItem{ID: id, Title: id, Status: status, Tags: tags}
}

func newBoard(m Mover) *Controller {
	c := NewController(m)
	c.Load([]*models.ContentItem{
		item("a", models.ContentStatusIdea, "go"),
		item("b", models.ContentStatusIdea),
		item("c", models.ContentStatusDraft, "go"),
		item("d", models.ContentStatusDraft),
	}, nil)
	return c
}

func TestDrop_MovesExactlyOnce(t *testing.T) {
	m := &fakeMover{}
	c := newBoard(m)

	require.True(t, c.DragStart("a"))
	c.DragOver(models.ContentStatusDraft)
	id, over := c.Dragging()
	assert.Equal(t, "a", id)
	assert.Equal(t, models.ContentStatusDraft, over)

	require.NoError(t, c.Drop(context.Background(), models.ContentStatusScheduled))
	assert.Equal(t, []move{{"a", models.ContentStatusScheduled}}, m.moves)

	id, over = c.Dragging()
	assert.Empty(t, id)
	assert.Empty(t, over)
}

func TestDrop_IntoHoveredColumn(t *testing.T) {
	m := &fakeMover{}
	c := newBoard(m)

	c.DragStart("b")
	c.DragOver(models.ContentStatusScheduled)
	require.NoError(t, c.Drop(context.Background(), ""))
	assert.Equal(t, []move{{"b", models.ContentStatusScheduled}}, m.moves)
}

func TestDrop_OutsideAnyColumn(t *testing.T) {
	m := &fakeMover{}
	c := newBoard(m)

	c.DragStart("b")
	require.NoError(t, c.Drop(context.Background(), ""))
	assert.Empty(t, m.moves)

	id, _ := c.Dragging()
	assert.Empty(t, id)
}

func TestDrop_WithoutDrag(t *testing.T) {
	m := &fakeMover{}
	c := newBoard(m)

	assert.ErrorIs(t, c.Drop(context.Background(), models.ContentStatusDraft), ErrNoDrag)
	assert.Empty(t, m.moves)
}

func TestCancel_DoesNotMove(t *testing.T) {
	m := &fakeMover{}
	c := newBoard(m)

	c.DragStart("a")
	c.DragOver(models.ContentStatusPublished)
	c.Cancel()

	assert.ErrorIs(t, c.Drop(context.Background(), models.ContentStatusPublished), ErrNoDrag)
	assert.Empty(t, m.moves)
}

func TestDragStart_ReplacesPriorDrag(t *testing.T) {
	m := &fakeMover{}
	c := newBoard(m)

	c.DragStart("a")
	c.DragOver(models.ContentStatusDraft)
	c.DragStart("b")

	id, over := c.Dragging()
	assert.Equal(t, "b", id)
	assert.Empty(t, over)

	require.NoError(t, c.Drop(context.Background(), models.ContentStatusScheduled))
	assert.Equal(t, []move{{"b", models.ContentStatusScheduled}}, m.moves)
}

func TestDragOver_IgnoredWithoutDrag(t *testing.T) {
	c := newBoard(&fakeMover{})
	c.DragOver(models.ContentStatusDraft)
	_, over := c.Dragging()
	assert.Empty(t, over)
}

func TestDrop_ClearsStateOnFailure(t *testing.T) {
	m := &fakeMover{err: errors.New("network down")}
	c := newBoard(m)

	c.DragStart("a")
	err := c.Drop(context.Background(), models.ContentStatusScheduled)
	assert.EqualError(t, err, "network down")

	id, _ := c.Dragging()
	assert.Empty(t, id)
}

func TestDrop_WIPLimit(t *testing.T) {
	m := &fakeMover{}
	c := newBoard(m)
	stages := models.DefaultStages()
	stages[1].WIPLimit = 2
	c.Load(c.items, stages)

	c.DragStart("a")
	err := c.Drop(context.Background(), models.ContentStatusDraft)
	assert.ErrorIs(t, err, ErrWIPLimit)
	assert.Empty(t, m.moves)
	id, _ := c.Dragging()
	assert.Empty(t, id)

	// An item already in the column does not count against itself.
	c.DragStart("c")
	require.NoError(t, c.Drop(context.Background(), models.ContentStatusDraft))
	assert.Equal(t, []move{{"c", models.ContentStatusDraft}}, m.moves)
}

func TestMove_Force(t *testing.T) {
	m := &fakeMover{}
	c := newBoard(m)
	stages := models.DefaultStages()
	stages[1].WIPLimit = 1
	c.Load(c.items, stages)

	assert.ErrorIs(t, c.Move(context.Background(), "a", models.ContentStatusDraft, false), ErrWIPLimit)
	require.NoError(t, c.Move(context.Background(), "a", models.ContentStatusDraft, true))
	assert.Equal(t, []move{{"a", models.ContentStatusDraft}}, m.moves)
}

func TestColumns(t *testing.T) {
	c := newBoard(&fakeMover{})
	stages := models.DefaultStages()
	stages[1].WIPLimit = 2
	c.Load(c.items, stages)

	cols := c.Columns("")
	require.Len(t, cols, 4)
	assert.Equal(t, models.ContentStatusIdea, cols[0].Stage.ID)
	assert.Len(t, cols[0].Items, 2)
	assert.Equal(t, 2, cols[1].Count)
	assert.True(t, cols[1].AtLimit)
	assert.False(t, cols[0].AtLimit)
	assert.NotNil(t, cols[3].Items)
	assert.Empty(t, cols[3].Items)
}

func TestColumns_TagFilter(t *testing.T) {
	m := &fakeMover{}
	c := newBoard(m)

	cols := c.Columns("go")
	require.Len(t, cols[0].Items, 1)
	assert.Equal(t, "a", cols[0].Items[0].ID)
	assert.Equal(t, 2, cols[0].Count, "counts ignore the filter")

	assert.False(t, c.DragStart("b"), "filtered-out item cannot be dragged")
	assert.ErrorIs(t, c.Drop(context.Background(), models.ContentStatusPublished), ErrNoDrag)
	assert.True(t, c.DragStart("c"))

	c.Columns("")
	assert.True(t, c.DragStart("b"))
}

func TestDragStart_UnknownID(t *testing.T) {
	c := newBoard(&fakeMover{})
	assert.False(t, c.DragStart("zzz"))
}

type fakeSource struct {
	fakeMover
	items  []*models.ContentItem
	stages []models.WorkflowStage
	err    error
}

func (f *fakeSource) List(context.Context) ([]*models.ContentItem, error) {
	return f.items, f.err
}

func (f *fakeSource) Stages(context.Context) ([]models.WorkflowStage, error) {
	return f.stages, nil
}

func TestOpen(t *testing.T) {
	stages := models.DefaultStages()
	stages[1].WIPLimit = 1
	src := &fakeSource{
		items:  []*models.ContentItem{item("a", models.ContentStatusIdea), item("b", models.ContentStatusDraft)},
		stages: stages,
	}

	c, err := Open(context.Background(), src)
	require.NoError(t, err)

	cols := c.Columns("")
	require.Len(t, cols, 4)
	assert.True(t, cols[1].AtLimit)

	err = c.Move(context.Background(), "a", models.ContentStatusDraft, false)
	assert.ErrorIs(t, err, ErrWIPLimit)
	require.NoError(t, c.Move(context.Background(), "a", models.ContentStatusDraft, true))
	assert.Equal(t, []move{{"a", models.ContentStatusDraft}}, src.moves)
}

func TestOpen_ListError(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	_, err := Open(context.Background(), src)
	assert.ErrorContains(t, err, "db down")
}
