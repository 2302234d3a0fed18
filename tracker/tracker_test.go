package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/scrollkeep/position"
	"github.com/hazyhaar/scrollkeep/surface"
)

type recorder struct {
	mu   sync.Mutex
	got  []position.Offset
}

func (r *recorder) record(o position.Offset) {
	r.mu.Lock()
	r.got = append(r.got, o)
	r.mu.Unlock()
}

func (r *recorder) offsets() []position.Offset {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]position.Offset(nil), r.got...)
}

func TestDebounceCoalescing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := surface.NewSimulated(800, 600, 5000)
	rec := &recorder{}
	tr := New(sim, rec.record, Options{Window: 40 * time.Millisecond})
	tr.Start(ctx)

	// A burst of 20 scroll events inside one debounce window.
	for i := 1; i <= 20; i++ {
		sim.UserScroll(0, i*10)
	}

	require.Eventually(t, func() bool {
		return len(rec.offsets()) == 1
	}, time.Second, 5*time.Millisecond, "burst must coalesce into one callback")

	// No trailing extra callback after the window.
	time.Sleep(100 * time.Millisecond)
	got := rec.offsets()
	require.Len(t, got, 1)
	assert.Equal(t, position.Offset{X: 0, Y: 200}, got[0], "callback carries the last event's offset")
}

func TestFlushNowSupersedesPendingDebounce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := surface.NewSimulated(800, 600, 5000)
	rec := &recorder{}
	tr := New(sim, rec.record, Options{Window: 500 * time.Millisecond})
	tr.Start(ctx)

	sim.UserScroll(0, 700)
	// Let the loop consume the event and arm its debounce timer.
	time.Sleep(30 * time.Millisecond)
	tr.FlushNow(ctx)

	got := rec.offsets()
	require.Len(t, got, 1, "flush reports immediately, before the window elapses")
	assert.Equal(t, position.Offset{X: 0, Y: 700}, got[0])

	// The superseded debounce timer must not fire a second report.
	time.Sleep(600 * time.Millisecond)
	assert.Len(t, rec.offsets(), 1)
}

func TestSuspendDropsMotion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := surface.NewSimulated(800, 600, 5000)
	rec := &recorder{}
	tr := New(sim, rec.record, Options{Window: 20 * time.Millisecond})
	tr.Start(ctx)

	tr.Suspend()
	assert.True(t, tr.Suspended())

	sim.UserScroll(0, 300)
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, rec.offsets(), "suspended motion must not be reported")

	tr.Resume()
	assert.False(t, tr.Suspended())

	sim.UserScroll(0, 450)
	require.Eventually(t, func() bool {
		got := rec.offsets()
		return len(got) == 1 && got[0].Y == 450
	}, time.Second, 5*time.Millisecond)
}

func TestSuspendCountsNest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := surface.NewSimulated(800, 600, 5000)
	tr := New(sim, func(position.Offset) {}, Options{})
	tr.Start(ctx)

	tr.Suspend()
	tr.Suspend()
	tr.Resume()
	assert.True(t, tr.Suspended(), "outer suspension still holds")
	tr.Resume()
	assert.False(t, tr.Suspended())
}

func TestCurrentOffsetReadsLive(t *testing.T) {
	ctx := context.Background()
	sim := surface.NewSimulated(800, 600, 5000)
	tr := New(sim, func(position.Offset) {}, Options{})

	sim.UserScroll(10, 20)
	off, err := tr.CurrentOffset(ctx)
	require.NoError(t, err)
	assert.Equal(t, position.Offset{X: 10, Y: 20}, off)
}
