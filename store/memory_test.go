package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/scrollkeep/position"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(WithSession("sess_test"))

	_, ok := s.Read(ctx, "/catalog?category=shoes")
	require.False(t, ok, "fresh store must report absent")

	s.Write(ctx, "/catalog?category=shoes", position.Offset{X: 3, Y: 2400})

	rec, ok := s.Read(ctx, "/catalog?category=shoes")
	require.True(t, ok)
	assert.Equal(t, "/catalog?category=shoes", rec.ViewKey)
	assert.Equal(t, 3, rec.OffsetX)
	assert.Equal(t, 2400, rec.OffsetY)
	assert.False(t, rec.SavedAt.IsZero())
}

func TestMemoryLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(WithSession("sess_test"))

	s.Write(ctx, "/v", position.Offset{Y: 100})
	s.Write(ctx, "/v", position.Offset{Y: 200})
	s.Write(ctx, "/v", position.Offset{Y: 300})

	rec, ok := s.Read(ctx, "/v")
	require.True(t, ok)
	assert.Equal(t, 300, rec.OffsetY)
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(WithSession("sess_test"))

	s.Write(ctx, "/v", position.Offset{Y: 100})
	s.Clear(ctx, "/v")

	_, ok := s.Read(ctx, "/v")
	assert.False(t, ok)
}

func TestMemoryMalformedEntryIsAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(WithSession("sess_test"))

	s.mu.Lock()
	s.entries[storageKey("sess_test", "/v")] = []byte("{not json")
	s.mu.Unlock()

	_, ok := s.Read(ctx, "/v")
	assert.False(t, ok, "malformed entry must read as absent, not error")
}

func TestMemoryVersionedPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(WithSession("sess_test"))

	// A well-formed record under an older namespace version is invisible.
	b, err := encode("/v", position.Offset{Y: 900})
	require.NoError(t, err)
	s.mu.Lock()
	s.entries["scrollkeep:v0:sess_test:/v"] = b
	s.mu.Unlock()

	_, ok := s.Read(ctx, "/v")
	assert.False(t, ok)
}

func TestMemoryClearSession(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(WithSession("sess_test"))

	s.Write(ctx, "/a", position.Offset{Y: 1})
	s.Write(ctx, "/b", position.Offset{Y: 2})

	// An entry from another session in the same map survives the reset.
	b, err := encode("/a", position.Offset{Y: 3})
	require.NoError(t, err)
	s.mu.Lock()
	s.entries[storageKey("sess_other", "/a")] = b
	s.mu.Unlock()

	s.ClearSession(ctx)

	_, ok := s.Read(ctx, "/a")
	assert.False(t, ok)
	_, ok = s.Read(ctx, "/b")
	assert.False(t, ok)

	s.mu.RLock()
	_, survived := s.entries[storageKey("sess_other", "/a")]
	s.mu.RUnlock()
	assert.True(t, survived)
}
