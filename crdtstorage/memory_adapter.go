package crdtstorage

import (
	"context"
	"sync"
)

// MemoryAdapter is an in-process, non-persistent PersistenceAdapter,
// grounded on the teacher's luvjson/crdtstorage/memory_adapter.go
// (MemoryAdapter): same map-plus-mutex shape, storing this engine's
// Record instead of the teacher's opaque serialized bytes.
type MemoryAdapter struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryAdapter returns an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{records: make(map[string]*Record)}
}

func (a *MemoryAdapter) SaveRecord(ctx context.Context, rec *Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cp := *rec
	cp.Data = append([]byte(nil), rec.Data...)
	a.records[rec.ID] = &cp
	return nil
}

func (a *MemoryAdapter) LoadRecord(ctx context.Context, id string) (*Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rec, ok := a.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	cp.Data = append([]byte(nil), rec.Data...)
	return &cp, nil
}

func (a *MemoryAdapter) ListRecords(ctx context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.records))
	for id := range a.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (a *MemoryAdapter) DeleteRecord(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.records, id)
	return nil
}

func (a *MemoryAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = make(map[string]*Record)
	return nil
}
