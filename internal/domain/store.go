package domain

import "context"

// RecordStore persists the last good record per cache key.
// Read returns (nil, nil) when the key has no entry.
type RecordStore interface {
	Read(ctx context.Context, key CacheKey) (*CacheRecord, error)
	Write(ctx context.Context, record *CacheRecord) error
	Ping(ctx context.Context) error
	Close() error
}
