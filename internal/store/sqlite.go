package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/cadence/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single connection
	// serializes all DB access through Go's connection pool, preventing
	// "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// newULID generates a new ULID string.
func newULID(t time.Time) string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(t), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Content ---

const contentColumns = `id, title, description, body, status, platform, priority, tags,
	scheduled_date, deadline_date, published_date, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*models.ContentItem, error) {
	item := &models.ContentItem{}
	var status, platform, priority, tags string
	var scheduled, deadline, published, completed sql.NullTime

	if err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Body,
		&status, &platform, &priority, &tags,
		&scheduled, &deadline, &published, &completed,
		&item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}

	item.Status = models.ContentStatus(status)
	item.Platform = models.Platform(platform)
	item.Priority = models.Priority(priority)
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for %s: %w", item.ID, err)
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	item.ScheduledDate = nullTime(scheduled)
	item.DeadlineDate = nullTime(deadline)
	item.PublishedDate = nullTime(published)
	item.CompletedAt = nullTime(completed)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, nil
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// dateArg maps an optional date to a column value; nil and zero become NULL.
func dateArg(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func (s *SQLiteStore) ListContent(ctx context.Context, userID string, filter ContentFilter) ([]*models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items`
	conditions := []string{"user_id = ?"}
	args := []any{userID}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Platform != "" {
		conditions = append(conditions, "platform = ?")
		args = append(args, string(filter.Platform))
	}
	if filter.Tag != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(content_items.tags) WHERE json_each.value = ?)")
		args = append(args, filter.Tag)
	}

	query += " WHERE " + strings.Join(conditions, " AND ")
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []*models.ContentItem{}
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) GetContent(ctx context.Context, userID, id string) (*models.ContentItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM content_items WHERE id = ? AND user_id = ?`, id, userID)
	item, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return item, nil
}

func (s *SQLiteStore) CreateContent(ctx context.Context, userID string, item *models.ContentItem) error {
	now := s.now().UTC()
	if item.ID == "" {
		item.ID = newULID(now)
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Tags == nil {
		item.Tags = []string{}
	}

	tags, err := encodeTags(item.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO content_items (id, user_id, title, description, body, status, platform, priority, tags,
			scheduled_date, deadline_date, published_date, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, userID, item.Title, item.Description, item.Body,
		string(item.Status), string(item.Platform), string(item.Priority), tags,
		dateArg(item.ScheduledDate), dateArg(item.DeadlineDate),
		dateArg(item.PublishedDate), dateArg(item.CompletedAt),
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

// UpdateContent writes only the columns present in patch and returns the row.
func (s *SQLiteStore) UpdateContent(ctx context.Context, userID, id string, patch models.ContentPatch) (*models.ContentItem, error) {
	if patch.Empty() {
		return s.GetContent(ctx, userID, id)
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Body != nil {
		set("body", *patch.Body)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.Platform != nil {
		set("platform", string(*patch.Platform))
	}
	if patch.Priority != nil {
		set("priority", string(*patch.Priority))
	}
	if patch.Tags != nil {
		tags, err := encodeTags(*patch.Tags)
		if err != nil {
			return nil, err
		}
		set("tags", tags)
	}
	if patch.ScheduledDate != nil {
		set("scheduled_date", dateArg(patch.ScheduledDate))
	}
	if patch.DeadlineDate != nil {
		set("deadline_date", dateArg(patch.DeadlineDate))
	}
	if patch.PublishedDate != nil {
		set("published_date", dateArg(patch.PublishedDate))
	}
	if patch.CompletedAt != nil {
		set("completed_at", dateArg(patch.CompletedAt))
	}
	set("updated_at", s.now().UTC())

	args = append(args, id, userID)
	query := fmt.Sprintf("UPDATE content_items SET %s WHERE id = ? AND user_id = ?", strings.Join(sets, ", "))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update content: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	return s.GetContent(ctx, userID, id)
}

func (s *SQLiteStore) DeleteContent(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM content_items WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Workflow stages ---

// ListStages returns the user's saved stages in board order, or nil if the
// user never saved any.
func (s *SQLiteStore) ListStages(ctx context.Context, userID string) ([]models.WorkflowStage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, label, wip_limit, color FROM workflow_stages WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stages []models.WorkflowStage
	for rows.Next() {
		var st models.WorkflowStage
		var status string
		if err := rows.Scan(&status, &st.Label, &st.WIPLimit, &st.Color); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		st.ID = models.ContentStatus(status)
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

// SaveStages replaces the user's stage configuration.
func (s *SQLiteStore) SaveStages(ctx context.Context, userID string, stages []models.WorkflowStage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM workflow_stages WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear stages: %w", err)
	}
	for i, st := range stages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workflow_stages (user_id, status, label, wip_limit, color, position) VALUES (?, ?, ?, ?, ?, ?)`,
			userID, string(st.ID), st.Label, st.WIPLimit, st.Color, i,
		); err != nil {
			return fmt.Errorf("save stage %s: %w", st.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
