package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/cadence/internal/llm"
	"github.com/joescharf/cadence/internal/models"
)

// setFlag sets a command flag as if passed on the command line and restores
// it afterwards.
func setFlag(t *testing.T, cmd *cobra.Command, name, value string) {
	t.Helper()
	f := cmd.Flags().Lookup(name)
	require.NotNil(t, f, "unknown flag %s", name)
	def := f.DefValue
	require.NoError(t, cmd.Flags().Set(name, value))
	t.Cleanup(func() {
		if sv, ok := f.Value.(interface{ Replace([]string) error }); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(def)
		}
		f.Changed = false
	})
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func stdout() string {
	return ui.Out.(*bytes.Buffer).String()
}

func seedContent(t *testing.T, item models.ContentItem) *models.ContentItem {
	t.Helper()
	svc, err := getService()
	require.NoError(t, err)
	created, err := svc.Add(userContext(), item)
	require.NoError(t, err)
	return created
}

func TestContentAddAndList(t *testing.T) {
	testEnv(t)
	setFlag(t, contentAddCmd, "title", "Why SQLite")
	setFlag(t, contentAddCmd, "platform", "blog")
	setFlag(t, contentAddCmd, "tag", "Go, Databases")
	setFlag(t, contentAddCmd, "deadline", "2026-12-01")

	require.NoError(t, contentAddRun())
	assert.Contains(t, stdout(), "Created")

	svc, err := getService()
	require.NoError(t, err)
	items, err := svc.List(userContext())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"go", "databases"}, items[0].Tags)
	assert.Equal(t, models.ContentStatusIdea, items[0].Status)
	require.NotNil(t, items[0].DeadlineDate)
	assert.Equal(t, "2026-12-01", items[0].DeadlineDate.Format(time.DateOnly))

	require.NoError(t, contentListRun())
	assert.Contains(t, stdout(), "Why SQLite")
}

func TestContentAdd_InvalidDate(t *testing.T) {
	testEnv(t)
	setFlag(t, contentAddCmd, "title", "x")
	setFlag(t, contentAddCmd, "deadline", "soon")

	err := contentAddRun()
	assert.ErrorContains(t, err, "invalid --deadline")
}

func TestContentAdd_DryRun(t *testing.T) {
	testEnv(t)
	dryRun = true
	ui.DryRun = true
	setFlag(t, contentAddCmd, "title", "Draft only")

	require.NoError(t, contentAddRun())

	svc, err := getService()
	require.NoError(t, err)
	items, err := svc.List(userContext())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestContentList_Filters(t *testing.T) {
	testEnv(t)
	seedContent(t, models.ContentItem{Title: "Tagged thread", Platform: models.PlatformTwitter, Tags: []string{"go"}})
	seedContent(t, models.ContentItem{Title: "Plain post"})
	t.Cleanup(func() { contentTag, contentPlatform, contentStatus = "", "", "" })

	contentTag = "go"
	require.NoError(t, contentListRun())
	assert.Contains(t, stdout(), "Tagged thread")
	assert.NotContains(t, stdout(), "Plain post")

	ui.Out.(*bytes.Buffer).Reset()
	contentTag, contentPlatform = "", "youtube"
	require.NoError(t, contentListRun())
	assert.Contains(t, stdout(), "No content found.")
}

func TestFindContent(t *testing.T) {
	testEnv(t)
	a := seedContent(t, models.ContentItem{Title: "A"})
	svc, err := getService()
	require.NoError(t, err)
	ctx := userContext()

	got, err := findContent(ctx, svc, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	got, err = findContent(ctx, svc, a.ID[:12])
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = findContent(ctx, svc, "ZZZZZZZZ")
	assert.ErrorContains(t, err, "content not found")
}

func TestContentUpdate(t *testing.T) {
	testEnv(t)
	d := seedContent(t, models.ContentItem{Title: "Old"})

	setFlag(t, contentUpdateCmd, "title", "New")
	setFlag(t, contentUpdateCmd, "priority", "high")
	require.NoError(t, contentUpdateRun(contentUpdateCmd, d.ID))

	svc, _ := getService()
	got, err := svc.Get(userContext(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, models.PriorityHigh, got.Priority)
}

func TestContentUpdate_ClearsDeadline(t *testing.T) {
	testEnv(t)
	deadline := mustDate(t, "2026-04-01")
	d := seedContent(t, models.ContentItem{Title: "Dated", DeadlineDate: &deadline})

	setFlag(t, contentUpdateCmd, "deadline", "")
	require.NoError(t, contentUpdateRun(contentUpdateCmd, d.ID))

	svc, _ := getService()
	got, err := svc.Get(userContext(), d.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeadlineDate)
}

func TestContentUpdate_NoChanges(t *testing.T) {
	testEnv(t)
	d := seedContent(t, models.ContentItem{Title: "Same"})

	err := contentUpdateRun(contentUpdateCmd, d.ID)
	assert.ErrorContains(t, err, "no updates specified")
}

func TestContentDelete(t *testing.T) {
	testEnv(t)
	d := seedContent(t, models.ContentItem{Title: "Gone"})

	require.NoError(t, contentDeleteRun(d.ID[:10]))

	svc, _ := getService()
	items, err := svc.List(userContext())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestContentEnrich_NoKey(t *testing.T) {
	testEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "")

	err := contentEnrichRun("anything")
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY not set")
}

func TestMoveRun_WIPLimit(t *testing.T) {
	testEnv(t)
	svc, err := getService()
	require.NoError(t, err)
	stages := models.DefaultStages()
	stages[1].WIPLimit = 1
	require.NoError(t, svc.SaveStages(userContext(), stages))

	seedContent(t, models.ContentItem{Title: "Occupant", Status: models.ContentStatusDraft})
	waiting := seedContent(t, models.ContentItem{Title: "Waiting"})

	err = moveRun(waiting.ID, models.ContentStatusDraft)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	moveForce = true
	t.Cleanup(func() { moveForce = false })
	require.NoError(t, moveRun(waiting.ID, models.ContentStatusDraft))

	got, err := svc.Get(userContext(), waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusDraft, got.Status)
}

func TestMoveRun_UnknownStatus(t *testing.T) {
	testEnv(t)
	err := moveRun("x", "archived")
	assert.ErrorContains(t, err, "unknown status")
}

func TestBoardRun(t *testing.T) {
	testEnv(t)
	seedContent(t, models.ContentItem{Title: "Go post", Tags: []string{"go"}})
	seedContent(t, models.ContentItem{Title: "Rust post", Tags: []string{"rust"}})

	require.NoError(t, boardRun(" GO "))
	out := stdout()
	assert.Contains(t, out, "Ideas (2)")
	assert.Contains(t, out, "Drafts (0/5)")
	assert.Contains(t, out, "Go post")
	assert.NotContains(t, out, "Rust post")
}

func TestStatsAndTags(t *testing.T) {
	testEnv(t)
	seedContent(t, models.ContentItem{Title: "A", Tags: []string{"zeta", "alpha"}})
	seedContent(t, models.ContentItem{Title: "B", Status: models.ContentStatusPublished, Platform: models.PlatformYouTube})

	statsWeeks = 4
	t.Cleanup(func() { statsWeeks = 8 })
	require.NoError(t, statsRun())
	out := stdout()
	assert.Contains(t, out, "Content: 2 total")
	assert.Contains(t, out, "youtube 1")
	assert.Contains(t, out, "Throughput (last 4 weeks)")

	ui.Out.(*bytes.Buffer).Reset()
	require.NoError(t, tagsRun())
	assert.Equal(t, "alpha\nzeta\n", stdout())
}

func TestStatsRun_WeeksRange(t *testing.T) {
	testEnv(t)
	statsWeeks = 0
	t.Cleanup(func() { statsWeeks = 8 })
	assert.Error(t, statsRun())
}

func TestStagesSetAndReset(t *testing.T) {
	testEnv(t)
	setFlag(t, stagesSetCmd, "wip", "2")
	setFlag(t, stagesSetCmd, "label", "Writing")

	require.NoError(t, stagesSetRun(stagesSetCmd, models.ContentStatusDraft))

	svc, _ := getService()
	stages, err := svc.Stages(userContext())
	require.NoError(t, err)
	require.Len(t, stages, 4)
	assert.Equal(t, "Writing", stages[1].Label)
	assert.Equal(t, 2, stages[1].WIPLimit)

	require.NoError(t, stagesResetRun())
	stages, err = svc.Stages(userContext())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultStages(), stages)
}

func TestStagesSet_NoFlags(t *testing.T) {
	testEnv(t)
	err := stagesSetRun(stagesSetCmd, models.ContentStatusDraft)
	assert.ErrorContains(t, err, "no updates specified")
}

func TestParseIdeaNotes(t *testing.T) {
	t.Run("bullets, numbers and headings", func(t *testing.T) {
		md := `# Brainstorm

## Databases

- Why we moved to SQLite
  - benchmarks from prod
  - migration story
1. Video walkthrough of the query planner

## Launch

* [ ] Launch thread for v2
2) Someday: history of the project

Plain paragraph is ignored.
`
		ideas := parseIdeaNotes(md)
		require.Len(t, ideas, 4)

		assert.Equal(t, "Why we moved to SQLite", ideas[0].Title)
		assert.Equal(t, "benchmarks from prod; migration story", ideas[0].Description)
		assert.Equal(t, []string{"databases"}, ideas[0].Tags)
		assert.Equal(t, "blog", ideas[0].Platform)

		assert.Equal(t, "youtube", ideas[1].Platform)
		assert.Equal(t, []string{"databases"}, ideas[1].Tags)

		assert.Equal(t, "Launch thread for v2", ideas[2].Title)
		assert.Equal(t, "twitter", ideas[2].Platform)
		assert.Equal(t, "high", ideas[2].Priority)
		assert.Equal(t, []string{"launch"}, ideas[2].Tags)

		assert.Equal(t, "low", ideas[3].Priority)
	})

	t.Run("no heading means no tags", func(t *testing.T) {
		ideas := parseIdeaNotes("- Standalone idea\n")
		require.Len(t, ideas, 1)
		assert.Nil(t, ideas[0].Tags)
	})

	t.Run("leading indented item starts an idea", func(t *testing.T) {
		ideas := parseIdeaNotes("  - Indented first\n")
		require.Len(t, ideas, 1)
		assert.Equal(t, "Indented first", ideas[0].Title)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, parseIdeaNotes(""))
		assert.Empty(t, parseIdeaNotes("just prose\n\nmore prose"))
	})
}

func TestListItemText(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"- idea", "idea", true},
		{"* idea", "idea", true},
		{"- [ ] todo idea", "todo idea", true},
		{"- [x] done idea", "done idea", true},
		{"1. first", "first", true},
		{"12) twelfth", "twelfth", true},
		{"2026. not a list", "", false},
		{"-", "", false},
		{"- ", "", false},
		{"1.", "", false},
		{"prose", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := listItemText(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateIdeas_Idempotent(t *testing.T) {
	testEnv(t)
	svc, err := getService()
	require.NoError(t, err)
	ctx := userContext()

	ideas := []llm.ExtractedIdea{
		{Title: "First idea", Platform: "blog", Priority: "medium"},
		{Title: "Second idea", Platform: "twitter", Priority: "high", Tags: []string{"go"}},
		{Title: "first IDEA", Platform: "blog", Priority: "medium"},
	}
	require.NoError(t, createIdeas(ctx, svc, ideas))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, createIdeas(ctx, svc, ideas))
	items, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2, "re-import creates no duplicates")
}

func TestCreateIdeas_SkipsInvalid(t *testing.T) {
	testEnv(t)
	svc, err := getService()
	require.NoError(t, err)
	ctx := userContext()

	require.NoError(t, createIdeas(ctx, svc, []llm.ExtractedIdea{
		{Title: "Good", Platform: "blog"},
		{Title: "Bad", Platform: "myspace"},
	}))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Good", items[0].Title)
	assert.Contains(t, ui.ErrOut.(*bytes.Buffer).String(), "Skipped 1 ideas")
}

func TestContentImportRun_NoLLM(t *testing.T) {
	dir := testEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "")

	notes := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notes, []byte("## Go\n- Generics in practice\n- Error wrapping tour\n"), 0o644))

	require.NoError(t, contentImportRun(notes))

	svc, _ := getService()
	items, err := svc.List(userContext())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, []string{"go"}, it.Tags)
		assert.Equal(t, models.ContentStatusIdea, it.Status)
	}
}

func TestContentImportRun_EmptyFile(t *testing.T) {
	dir := testEnv(t)
	notes := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(notes, []byte("  \n"), 0o644))

	assert.ErrorContains(t, contentImportRun(notes), "file is empty")
}

func TestServeHandler(t *testing.T) {
	testEnv(t)
	viper.Set("user.id", "dash")
	t.Setenv("ANTHROPIC_API_KEY", "")
	svc, err := getService()
	require.NoError(t, err)

	h, err := serveHandler(svc)
	require.NoError(t, err)

	// Dashboard
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `content="dash"`)

	// API
	req := httptest.NewRequest(http.MethodGet, "/api/v1/board", nil)
	req.Header.Set("X-User-ID", "dash")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var cols []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cols))
	assert.Len(t, cols, 4)

	// Health
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServeRun_StopsOnCancel(t *testing.T) {
	testEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, serveRun(ctx, "127.0.0.1:0"))
}

func TestExportRun(t *testing.T) {
	testEnv(t)
	deadline := mustDate(t, "2026-05-01")
	seedContent(t, models.ContentItem{Title: "Exported", Tags: []string{"a", "b"}, DeadlineDate: &deadline})
	t.Cleanup(func() { reportFormat = "json" })

	reportFormat = "json"
	require.NoError(t, exportRun())
	var items []models.ContentItem
	require.NoError(t, json.Unmarshal([]byte(stdout()), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Exported", items[0].Title)

	ui.Out.(*bytes.Buffer).Reset()
	reportFormat = "csv"
	require.NoError(t, exportRun())
	assert.Contains(t, stdout(), "Exported,idea,blog,medium,a;b,2026-05-01")

	ui.Out.(*bytes.Buffer).Reset()
	reportFormat = "markdown"
	require.NoError(t, exportRun())
	assert.Contains(t, stdout(), "| Exported | idea | blog | medium | 2026-05-01 |")

	reportFormat = "xml"
	assert.ErrorContains(t, exportRun(), "unknown format")
}

func TestReportWeeklyRun(t *testing.T) {
	testEnv(t)
	seedContent(t, models.ContentItem{Title: "Shipped today", Status: models.ContentStatusPublished})
	seedContent(t, models.ContentItem{Title: "Queued", Status: models.ContentStatusScheduled})

	require.NoError(t, reportWeeklyRun())
	out := stdout()
	assert.Contains(t, out, "# Weekly Report")
	assert.Contains(t, out, "- Published: 1")
	assert.Contains(t, out, "## Shipped\n- Shipped today (blog)")
	assert.Contains(t, out, "## Scheduled\n- Queued (blog)")
}
