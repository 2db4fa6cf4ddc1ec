package store

import (
	"context"
	"sync"

	"beebi/backend/internal/activity"
)

// MemorySource serves records from an in-process slice.
type MemorySource struct {
	mu      sync.RWMutex
	records []activity.Record
	err     error
}

func NewMemorySource(records ...activity.Record) *MemorySource {
	return &MemorySource{records: append([]activity.Record(nil), records...)}
}

func (m *MemorySource) Name() string { return "memory" }

// Add appends records.
func (m *MemorySource) Add(records ...activity.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
}

// FailWith makes every subsequent Fetch return err. Pass nil to recover.
func (m *MemorySource) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemorySource) Fetch(ctx context.Context, filter Filter) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return Batch{}, m.err
	}

	out := make([]activity.Record, 0, len(m.records))
	for _, r := range m.records {
		if matches(filter, r) {
			out = append(out, r)
		}
	}
	return Batch{Records: out}, nil
}
