package cache

import (
	"context"
	"sync"

	"github.com/kapu/herobuilds-api-go/internal/domain"
)

// MemoryStore keeps records in process memory. Records do not survive a restart.
type MemoryStore struct {
	records sync.Map // map[string]*domain.CacheRecord
}

var _ domain.RecordStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Read(_ context.Context, key domain.CacheKey) (*domain.CacheRecord, error) {
	val, ok := m.records.Load(key.String())
	if !ok {
		return nil, nil
	}
	record := val.(*domain.CacheRecord)
	if !record.HasPayload() {
		return nil, nil
	}
	return record, nil
}

func (m *MemoryStore) Write(_ context.Context, record *domain.CacheRecord) error {
	m.records.Store(record.Key.String(), record)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
