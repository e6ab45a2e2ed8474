package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/rushteam/contentrec/core"
)

// SQLiteStore 是单文件部署用的目录 + 事件存储（纯 Go 驱动，无 CGO）。
// 同时实现 core.CatalogReader、core.BatchReader 与 core.EventReader。
type SQLiteStore struct {
	db *sql.DB
}

// selectContentFields 是 content 表的标准查询字段。
const selectContentFields = `id, title, slug, type, categories_json, tags_json,
	difficulty, length_metric, description, published, created_at, updated_at`

// selectEventFields 是 events 表的标准查询字段。
const selectEventFields = `event_type, action, content_id, user_id, metadata_json, ts`

// OpenSQLite 打开或创建 path 处的 SQLite 数据库，path 可为 ":memory:"。
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite 不支持并发写；":memory:" 也要求单连接共享同一个库
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close 关闭数据库连接。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		-- 归一化后的内容目录
		CREATE TABLE IF NOT EXISTS content (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			categories_json TEXT NOT NULL DEFAULT '[]',
			tags_json TEXT NOT NULL DEFAULT '[]',
			difficulty TEXT NOT NULL DEFAULT '',
			length_metric TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			published INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_content_type ON content(type) WHERE published = 1;

		-- 交互事件，ts 为 Unix 毫秒
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			content_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			metadata_json TEXT,
			ts INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_user_ts ON events(user_id, ts);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) ListPublished(ctx context.Context, types ...core.ContentType) ([]*core.ContentItem, error) {
	query := `SELECT ` + selectContentFields + ` FROM content WHERE published = 1`
	args := make([]any, 0, len(types))
	if len(types) > 0 {
		query += ` AND type IN (` + placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.CatalogUnavailable(err)
	}
	defer rows.Close()

	items, err := scanContentRows(rows)
	if err != nil {
		return nil, core.CatalogUnavailable(err)
	}
	return items, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*core.ContentItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectContentFields+` FROM content WHERE id = ? AND published = 1`, id)
	item, err := scanContent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrContentNotFound
		}
		return nil, core.CatalogUnavailable(err)
	}
	return item, nil
}

func (s *SQLiteStore) GetMany(ctx context.Context, ids []string) (map[string]*core.ContentItem, error) {
	out := make(map[string]*core.ContentItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectContentFields+` FROM content WHERE published = 1 AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return nil, core.CatalogUnavailable(err)
	}
	defer rows.Close()

	items, err := scanContentRows(rows)
	if err != nil {
		return nil, core.CatalogUnavailable(err)
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

// PutContent 插入或覆盖一条内容。
func (s *SQLiteStore) PutContent(ctx context.Context, item *core.ContentItem) error {
	categories, err := json.Marshal(nonNil(item.Categories))
	if err != nil {
		return err
	}
	tags, err := json.Marshal(nonNil(item.Tags))
	if err != nil {
		return err
	}
	published := 0
	if item.Published {
		published = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content (
			id, title, slug, type, categories_json, tags_json,
			difficulty, length_metric, description, published, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			slug = excluded.slug,
			type = excluded.type,
			categories_json = excluded.categories_json,
			tags_json = excluded.tags_json,
			difficulty = excluded.difficulty,
			length_metric = excluded.length_metric,
			description = excluded.description,
			published = excluded.published,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		item.ID, item.Title, item.Slug, string(item.Type), string(categories), string(tags),
		string(item.Difficulty), item.LengthMetric, item.Description, published,
		item.CreatedAt.UnixMilli(), item.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return core.CatalogUnavailable(err)
	}
	return nil
}

func (s *SQLiteStore) EventsForUser(ctx context.Context, userID string, since time.Time) ([]*core.InteractionEvent, error) {
	if userID == "" {
		return []*core.InteractionEvent{}, nil
	}
	return s.queryEvents(ctx,
		`SELECT `+selectEventFields+` FROM events WHERE user_id = ? AND ts >= ? ORDER BY ts, id`,
		userID, since.UnixMilli())
}

func (s *SQLiteStore) EventsInWindow(ctx context.Context, since time.Time) ([]*core.InteractionEvent, error) {
	return s.queryEvents(ctx,
		`SELECT `+selectEventFields+` FROM events WHERE ts >= ? ORDER BY ts, id`,
		since.UnixMilli())
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]*core.InteractionEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.EventsUnavailable(err)
	}
	defer rows.Close()

	out := make([]*core.InteractionEvent, 0)
	for rows.Next() {
		var (
			ev       core.InteractionEvent
			action   string
			metadata sql.NullString
			ts       int64
		)
		if err := rows.Scan(&ev.EventType, &action, &ev.ContentID, &ev.UserID, &metadata, &ts); err != nil {
			return nil, core.EventsUnavailable(err)
		}
		ev.Action = core.Action(action)
		ev.Timestamp = time.UnixMilli(ts).UTC()
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &ev.Metadata); err != nil {
				return nil, core.EventsUnavailable(fmt.Errorf("decoding metadata: %w", err))
			}
		}
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, core.EventsUnavailable(err)
	}
	return out, nil
}

// AppendEvent 追加一条事件。
func (s *SQLiteStore) AppendEvent(ctx context.Context, ev *core.InteractionEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	var metadata sql.NullString
	if len(ev.Metadata) > 0 {
		data, err := json.Marshal(ev.Metadata)
		if err != nil {
			return err
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_type, action, content_id, user_id, metadata_json, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.EventType, string(ev.Action), ev.ContentID, ev.UserID, metadata, ev.Timestamp.UnixMilli())
	if err != nil {
		return core.EventsUnavailable(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*core.ContentItem, error) {
	var (
		item                 core.ContentItem
		typ, difficulty      string
		categories, tags     string
		published            int
		createdAt, updatedAt int64
	)
	err := row.Scan(&item.ID, &item.Title, &item.Slug, &typ, &categories, &tags,
		&difficulty, &item.LengthMetric, &item.Description, &published, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	item.Type = core.ContentType(typ)
	item.Difficulty = core.Difficulty(difficulty)
	item.Published = published == 1
	item.CreatedAt = time.UnixMilli(createdAt).UTC()
	item.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if err := json.Unmarshal([]byte(categories), &item.Categories); err != nil {
		return nil, fmt.Errorf("decoding categories of %s: %w", item.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of %s: %w", item.ID, err)
	}
	return &item, nil
}

func scanContentRows(rows *sql.Rows) ([]*core.ContentItem, error) {
	out := make([]*core.ContentItem, 0)
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var (
	_ core.CatalogReader = (*SQLiteStore)(nil)
	_ core.BatchReader   = (*SQLiteStore)(nil)
	_ core.EventReader   = (*SQLiteStore)(nil)
)
