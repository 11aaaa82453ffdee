package store

import (
	"context"
	"sync"
)

type memKey struct {
	resource string
	file     string
}

// Memory is an in-process Repository. Records are copied on the way in
// and out.
type Memory struct {
	mu      sync.Mutex
	records map[memKey]*Record
}

// NewMemory returns an empty repository.
func NewMemory() *Memory {
	return &Memory{records: make(map[memKey]*Record)}
}

func (m *Memory) FindOne(_ context.Context, resourceID, fileName string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[memKey{resourceID, fileName}]
	if !ok {
		return nil, nil
	}
	return rec.clone(), nil
}

func (m *Memory) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey{rec.ResourceID, rec.FileName}
	if _, ok := m.records[key]; ok {
		return ErrConflict
	}
	prepare(rec)
	m.records[key] = rec.clone()
	return nil
}

func (m *Memory) Save(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey{rec.ResourceID, rec.FileName}
	old, ok := m.records[key]
	if !ok || old.ID != rec.ID {
		return ErrNotFound
	}
	prepare(rec)
	m.records[key] = rec.clone()
	return nil
}

func (m *Memory) DeleteAllFor(_ context.Context, resourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.records {
		if key.resource == resourceID {
			delete(m.records, key)
		}
	}
	return nil
}

func (m *Memory) ListOrderedByCompleteness(_ context.Context, resourceID string) ([]*Record, error) {
	m.mu.Lock()
	var out []*Record
	for key, rec := range m.records {
		if key.resource == resourceID {
			out = append(out, rec.clone())
		}
	}
	m.mu.Unlock()
	SortByCompleteness(out)
	return out, nil
}
