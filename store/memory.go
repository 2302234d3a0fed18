package store

import (
	"context"
	"strings"
	"sync"

	"github.com/hazyhaar/scrollkeep/position"
)

// Memory is the default backend: a mutex-guarded map of encoded records.
// Session-ephemeral by construction — everything dies with the process.
type Memory struct {
	cfg config

	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory creates an in-memory store for a fresh browsing session.
func NewMemory(opts ...Option) *Memory {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}
	return &Memory{
		cfg:     cfg,
		entries: make(map[string][]byte),
	}
}

// Session returns the browsing-session identifier records are scoped to.
func (m *Memory) Session() string { return m.cfg.session }

// Read returns the record for a view key. Malformed entries are absent.
func (m *Memory) Read(ctx context.Context, viewKey string) (position.Record, bool) {
	m.mu.RLock()
	b, ok := m.entries[storageKey(m.cfg.session, viewKey)]
	m.mu.RUnlock()
	if !ok {
		return position.Record{}, false
	}

	rec, err := decode(b)
	if err != nil {
		m.cfg.logger.Debug("store: malformed record treated as absent",
			"view", viewKey, "error", err)
		return position.Record{}, false
	}
	return rec, true
}

// Write replaces the record for a view key. Last-write-wins.
func (m *Memory) Write(ctx context.Context, viewKey string, off position.Offset) {
	b, err := encode(viewKey, off)
	if err != nil {
		m.cfg.logger.Warn("store: encode record failed, write dropped",
			"view", viewKey, "error", err)
		return
	}

	m.mu.Lock()
	m.entries[storageKey(m.cfg.session, viewKey)] = b
	m.mu.Unlock()
}

// Clear removes the record for a view key.
func (m *Memory) Clear(ctx context.Context, viewKey string) {
	m.mu.Lock()
	delete(m.entries, storageKey(m.cfg.session, viewKey))
	m.mu.Unlock()
}

// ClearSession removes every record of this browsing session ("reset
// browsing session").
func (m *Memory) ClearSession(ctx context.Context) {
	prefix := storageKey(m.cfg.session, "")
	m.mu.Lock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
}
