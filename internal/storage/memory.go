package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"budgetbook/internal/core"
)

// MemoryStore keeps the session in process memory. Used when
// SESSION_BACKEND=memory and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	auth    *core.AuthRecord
	prefs   map[string]string
	exports []core.ExportJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: map[string]string{}}
}

func (m *MemoryStore) LoadAuth(context.Context) (core.AuthRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.auth == nil {
		return core.AuthRecord{}, false, nil
	}
	return *m.auth, true, nil
}

func (m *MemoryStore) SaveAuth(_ context.Context, rec core.AuthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	m.auth = &rec
	return nil
}

func (m *MemoryStore) DeleteAuth(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = nil
	return nil
}

func (m *MemoryStore) Preference(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.prefs[key]
	return v, ok, nil
}

func (m *MemoryStore) SetPreference(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[key] = value
	return nil
}

func (m *MemoryStore) RecordExport(_ context.Context, job core.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	for i := range m.exports {
		if m.exports[i].ID == job.ID {
			m.exports[i].Status = job.Status
			m.exports[i].Ref = job.Ref
			return nil
		}
	}
	m.exports = append(m.exports, job)
	return nil
}

func (m *MemoryStore) RecentExports(_ context.Context, limit int) ([]core.ExportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	out := slices.Clone(m.exports)
	slices.SortStableFunc(out, func(a, b core.ExportJob) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
