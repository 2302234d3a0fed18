// Package store persists scroll records, one per view key, inside an
// ephemeral browsing session.
//
// Persistence here is a convenience, not a correctness requirement: reads
// never fail (a malformed or unreadable entry is simply absent) and writes
// are best-effort (failures are logged and dropped, never propagated).
//
// Two backends: Memory (the default, a mutex-guarded map) and SQLite
// (modernc.org/sqlite, in-memory unless a path is given, useful when the
// session outlives one process or records should be inspectable).
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hazyhaar/scrollkeep/idgen"
	"github.com/hazyhaar/scrollkeep/position"
)

// Prefix versions the storage namespace. Entries under any other prefix are
// invisible, so incompatible historical formats are ignored, not misread.
const Prefix = "scrollkeep:v1"

// Store is the persistence contract of the engine.
type Store interface {
	// Read returns the record for a view key, or absent. It never fails:
	// malformed and unreadable entries report absent.
	Read(ctx context.Context, viewKey string) (position.Record, bool)

	// Write replaces the record for a view key (last-write-wins).
	// Best-effort: a failed write is logged and dropped.
	Write(ctx context.Context, viewKey string, off position.Offset)

	// Clear removes the record for a view key. Only explicit application
	// actions call this; the engine's own control flow never does.
	Clear(ctx context.Context, viewKey string)
}

type config struct {
	session string
	logger  *slog.Logger
}

func defaults() config {
	return config{
		session: idgen.Session(),
		logger:  slog.Default(),
	}
}

// Option customises a backend.
type Option func(*config)

// WithSession pins the browsing-session identifier instead of generating one.
func WithSession(id string) Option {
	return func(c *config) { c.session = id }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// storageKey namespaces a view key under the versioned prefix and session.
func storageKey(session, viewKey string) string {
	return Prefix + ":" + session + ":" + viewKey
}

func encode(viewKey string, off position.Offset) ([]byte, error) {
	return json.Marshal(position.Record{
		ViewKey: viewKey,
		OffsetX: off.X,
		OffsetY: off.Y,
		SavedAt: time.Now(),
	})
}

func decode(b []byte) (position.Record, error) {
	var rec position.Record
	err := json.Unmarshal(b, &rec)
	return rec, err
}
