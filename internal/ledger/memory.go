// SPDX-License-Identifier: MPL-2.0

package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is an in-process Store. Records do not survive the process.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[Key]Record
	now     func() time.Time
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[Key]Record),
		now:     time.Now,
	}
}

// Get returns the recorded outcome for key.
func (m *MemoryLedger) Get(_ context.Context, key Key) (bool, bool, error) {
	if err := key.Validate(); err != nil {
		return false, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec.Provisioned, ok, nil
}

// Set records the outcome for key.
func (m *MemoryLedger) Set(_ context.Context, key Key, provisioned bool) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = Record{Key: key, Provisioned: provisioned, UpdatedAt: m.now().UTC()}
	return nil
}

// List returns all records ordered by application and commodity.
func (m *MemoryLedger) List(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

// Delete removes the record for key. Deleting a missing record is not an error.
func (m *MemoryLedger) Delete(_ context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// Close is a no-op.
func (m *MemoryLedger) Close() error { return nil }
