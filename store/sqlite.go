package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/scrollkeep/idgen"
	"github.com/hazyhaar/scrollkeep/position"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scroll_records (
	store_key TEXT PRIMARY KEY,
	view_key  TEXT NOT NULL,
	offset_x  INTEGER NOT NULL,
	offset_y  INTEGER NOT NULL,
	saved_at  INTEGER NOT NULL
);`

// SQLite persists records through modernc.org/sqlite. With an empty path it
// opens a process-private in-memory database, so records stay
// session-ephemeral; give it a path only when the session should be
// inspectable or survive a tab handoff.
type SQLite struct {
	cfg config
	db  *sql.DB
}

// OpenSQLite opens (and migrates) the backing database.
func OpenSQLite(path string, opts ...Option) (*SQLite, error) {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}

	dsn := path
	if dsn == "" {
		// Unique name per open so parallel sessions never share state.
		dsn = "file:" + idgen.NanoID(10)() + "?mode=memory&cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// Shared-cache in-memory databases vanish when the last connection
	// closes; one idle connection keeps the session alive.
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &SQLite{cfg: cfg, db: db}, nil
}

// OpenMemory opens an in-memory store for tests and fails the test on error.
func OpenMemory(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite("")
	if err != nil {
		t.Fatalf("store: open in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Session returns the browsing-session identifier records are scoped to.
func (s *SQLite) Session() string { return s.cfg.session }

// Read returns the record for a view key. Any row or scan problem is
// reported as absent, never as an error.
func (s *SQLite) Read(ctx context.Context, viewKey string) (position.Record, bool) {
	var rec position.Record
	var savedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT view_key, offset_x, offset_y, saved_at
		FROM scroll_records WHERE store_key = ?`,
		storageKey(s.cfg.session, viewKey),
	).Scan(&rec.ViewKey, &rec.OffsetX, &rec.OffsetY, &savedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			s.cfg.logger.Debug("store: unreadable record treated as absent",
				"view", viewKey, "error", err)
		}
		return position.Record{}, false
	}
	rec.SavedAt = time.UnixMilli(savedAt)
	return rec, true
}

// Write upserts the record for a view key. Last-write-wins; failures are
// logged and dropped.
func (s *SQLite) Write(ctx context.Context, viewKey string, off position.Offset) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scroll_records (store_key, view_key, offset_x, offset_y, saved_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(store_key) DO UPDATE SET
			offset_x = excluded.offset_x,
			offset_y = excluded.offset_y,
			saved_at = excluded.saved_at`,
		storageKey(s.cfg.session, viewKey), viewKey, off.X, off.Y, time.Now().UnixMilli())
	if err != nil {
		s.cfg.logger.Warn("store: write failed, dropped", "view", viewKey, "error", err)
	}
}

// Clear removes the record for a view key.
func (s *SQLite) Clear(ctx context.Context, viewKey string) {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM scroll_records WHERE store_key = ?`,
		storageKey(s.cfg.session, viewKey))
	if err != nil {
		s.cfg.logger.Warn("store: clear failed", "view", viewKey, "error", err)
	}
}

// ClearSession removes every record of this browsing session.
func (s *SQLite) ClearSession(ctx context.Context) {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM scroll_records WHERE store_key LIKE ?`,
		storageKey(s.cfg.session, "")+"%")
	if err != nil {
		s.cfg.logger.Warn("store: clear session failed", "error", err)
	}
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
