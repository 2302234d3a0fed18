package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/scrollkeep/position"
)

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := OpenMemory(t)

	_, ok := s.Read(ctx, "/catalog?category=shoes")
	require.False(t, ok)

	s.Write(ctx, "/catalog?category=shoes", position.Offset{X: 0, Y: 2400})

	rec, ok := s.Read(ctx, "/catalog?category=shoes")
	require.True(t, ok)
	assert.Equal(t, "/catalog?category=shoes", rec.ViewKey)
	assert.Equal(t, 2400, rec.OffsetY)
	assert.False(t, rec.SavedAt.IsZero())
}

func TestSQLiteUpsertLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := OpenMemory(t)

	s.Write(ctx, "/v", position.Offset{Y: 100})
	s.Write(ctx, "/v", position.Offset{Y: 250})

	rec, ok := s.Read(ctx, "/v")
	require.True(t, ok)
	assert.Equal(t, 250, rec.OffsetY)

	var n int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM scroll_records`).Scan(&n))
	assert.Equal(t, 1, n, "replace, not accumulate")
}

func TestSQLiteClear(t *testing.T) {
	ctx := context.Background()
	s := OpenMemory(t)

	s.Write(ctx, "/v", position.Offset{Y: 100})
	s.Clear(ctx, "/v")

	_, ok := s.Read(ctx, "/v")
	assert.False(t, ok)
}

func TestSQLiteClearSession(t *testing.T) {
	ctx := context.Background()
	s := OpenMemory(t)

	s.Write(ctx, "/a", position.Offset{Y: 1})
	s.Write(ctx, "/b", position.Offset{Y: 2})
	s.ClearSession(ctx)

	_, ok := s.Read(ctx, "/a")
	assert.False(t, ok)
	_, ok = s.Read(ctx, "/b")
	assert.False(t, ok)
}

func TestSQLiteInMemoryOpensAreIndependent(t *testing.T) {
	ctx := context.Background()
	a, err := OpenSQLite("", WithSession("sess_shared"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	b, err := OpenSQLite("", WithSession("sess_shared"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	a.Write(ctx, "/v", position.Offset{Y: 777})

	_, ok := b.Read(ctx, "/v")
	assert.False(t, ok, "each open gets its own in-memory database")
}

func TestSQLiteSessionsIsolated(t *testing.T) {
	ctx := context.Background()
	s := OpenMemory(t)

	other := &SQLite{cfg: config{session: "sess_other", logger: s.cfg.logger}, db: s.db}
	other.Write(ctx, "/v", position.Offset{Y: 999})

	_, ok := s.Read(ctx, "/v")
	assert.False(t, ok, "records are partitioned by session")

	rec, ok := other.Read(ctx, "/v")
	require.True(t, ok)
	assert.Equal(t, 999, rec.OffsetY)
}
