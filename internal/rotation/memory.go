/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package rotation

import (
	"context"
	"sync"
)

// MemoryStore keeps rotation state in process memory. Dry runs use it on top
// of a snapshot so nothing leaks into the persistent store.
type MemoryStore struct {
	mu         sync.Mutex
	counters   map[string]Counter
	selections map[string]Selection
	base       Store
}

// NewMemoryStore returns an empty store. When base is non-nil, reads fall
// through to it and writes stay in memory.
func NewMemoryStore(base Store) *MemoryStore {
	return &MemoryStore{
		counters:   make(map[string]Counter),
		selections: make(map[string]Selection),
		base:       base,
	}
}

func (m *MemoryStore) LoadCounter(ctx context.Context, iteratorID string) (Counter, bool, error) {
	m.mu.Lock()
	c, ok := m.counters[iteratorID]
	m.mu.Unlock()
	if ok || m.base == nil {
		return c, ok, nil
	}
	return m.base.LoadCounter(ctx, iteratorID)
}

func (m *MemoryStore) Selection(ctx context.Context, iteratorID, date string) (Selection, bool, error) {
	m.mu.Lock()
	s, ok := m.selections[iteratorID+"@"+date]
	m.mu.Unlock()
	if ok || m.base == nil {
		return s, ok, nil
	}
	return m.base.Selection(ctx, iteratorID, date)
}

func (m *MemoryStore) Commit(_ context.Context, counter Counter, date string, sel Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[counter.IteratorID] = counter
	m.selections[counter.IteratorID+"@"+date] = sel
	return nil
}
