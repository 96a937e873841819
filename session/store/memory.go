package store

import (
	"context"
	"sync"
)

// MemStore is an in-memory implementation of Store[T].
//
// Designed for testing and for headless scoring runs where durability is
// not required. Thread-safe. Data is lost when the process exits; for
// real sessions use SQLiteStore or MySQLStore.
type MemStore[T any] struct {
	mu        sync.RWMutex
	trials    map[string]map[int]T // sessionID -> seq -> trial
	snapshots map[string]Snapshot[T]
}

// NewMemStore creates a new in-memory store.
func NewMemStore[T any]() *MemStore[T] {
	return &MemStore[T]{
		trials:    make(map[string]map[int]T),
		snapshots: make(map[string]Snapshot[T]),
	}
}

// SaveTrial stores one resolved trial, overwriting any earlier save of
// the same (sessionID, seq) pair.
func (m *MemStore[T]) SaveTrial(_ context.Context, sessionID string, seq int, trial T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.trials[sessionID] == nil {
		m.trials[sessionID] = make(map[int]T)
	}
	m.trials[sessionID][seq] = trial
	return nil
}

// SaveSession stores a full snapshot, overwriting any earlier one.
func (m *MemStore[T]) SaveSession(_ context.Context, snap Snapshot[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := snap
	copied.Trials = make([]T, len(snap.Trials))
	copy(copied.Trials, snap.Trials)
	m.snapshots[snap.SessionID] = copied
	return nil
}

// LoadSession retrieves the latest snapshot for a session.
func (m *MemStore[T]) LoadSession(_ context.Context, sessionID string) (Snapshot[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[sessionID]
	if !ok {
		return Snapshot[T]{}, ErrNotFound
	}
	out := snap
	out.Trials = make([]T, len(snap.Trials))
	copy(out.Trials, snap.Trials)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore[T]) Close() error { return nil }

// TrialCount returns the number of incrementally saved trials for a
// session. Test helper.
func (m *MemStore[T]) TrialCount(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trials[sessionID])
}
