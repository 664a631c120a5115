package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wavetermdev/tabhost/internal/shared/id"
	"github.com/wavetermdev/tabhost/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS window_state (
	window_id TEXT PRIMARY KEY,
	active_tab TEXT,
	x INTEGER NOT NULL DEFAULT 0,
	y INTEGER NOT NULL DEFAULT 0,
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL
);
`

const configKey = "app_config"

// SQLite is the DataService implementation backed by an embedded sqlite
// database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) FullConfig(ctx context.Context) (AppConfig, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, configKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultAppConfig(), nil
	}
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}
	var cfg AppConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// SaveConfig persists the full application configuration.
func (s *SQLite) SaveConfig(ctx context.Context, cfg AppConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO settings(key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, configKey, string(raw), now())
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (s *SQLite) SetActiveTab(ctx context.Context, windowID id.WindowID, tabID id.TabID) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO window_state(window_id, active_tab, updated_at) VALUES (?, ?, ?)
ON CONFLICT(window_id) DO UPDATE SET active_tab=excluded.active_tab, updated_at=excluded.updated_at
`, windowID.String(), tabID.String(), now())
	if err != nil {
		return fmt.Errorf("set active tab: %w", err)
	}
	return nil
}

func (s *SQLite) ActiveTab(ctx context.Context, windowID id.WindowID) (id.TabID, error) {
	var tab sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT active_tab FROM window_state WHERE window_id = ?`, windowID.String()).Scan(&tab)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !tab.Valid) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read active tab: %w", err)
	}
	return id.TabID(tab.String), nil
}

func (s *SQLite) SaveWindowGeometry(ctx context.Context, windowID id.WindowID, b types.Bounds) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO window_state(window_id, x, y, width, height, updated_at) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(window_id) DO UPDATE SET
	x=excluded.x, y=excluded.y, width=excluded.width, height=excluded.height,
	updated_at=excluded.updated_at
`, windowID.String(), b.X, b.Y, b.Width, b.Height, now())
	if err != nil {
		return fmt.Errorf("save window geometry: %w", err)
	}
	return nil
}

func (s *SQLite) WindowGeometry(ctx context.Context, windowID id.WindowID) (types.Bounds, error) {
	var b types.Bounds
	err := s.db.QueryRowContext(ctx,
		`SELECT x, y, width, height FROM window_state WHERE window_id = ?`, windowID.String()).
		Scan(&b.X, &b.Y, &b.Width, &b.Height)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Bounds{}, ErrNotFound
	}
	if err != nil {
		return types.Bounds{}, fmt.Errorf("read window geometry: %w", err)
	}
	if b.IsZero() {
		return types.Bounds{}, ErrNotFound
	}
	return b, nil
}

func (s *SQLite) DeleteWindow(ctx context.Context, windowID id.WindowID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM window_state WHERE window_id = ?`, windowID.String())
	if err != nil {
		return fmt.Errorf("delete window state: %w", err)
	}
	return nil
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
