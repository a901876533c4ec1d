package cache

import (
	"context"
	"errors"

	"github.com/kapu/herobuilds-api-go/internal/domain"
	"go.uber.org/zap"
)

// TieredStore reads through a fast front store (Redis) to a durable back store
// (PostgreSQL) and backfills the front on a back-store hit. Writes go to both; the
// durable write decides the result.
type TieredStore struct {
	front  domain.RecordStore
	back   domain.RecordStore
	logger *zap.Logger
}

var _ domain.RecordStore = (*TieredStore)(nil)

func NewTieredStore(front, back domain.RecordStore, logger *zap.Logger) *TieredStore {
	return &TieredStore{
		front:  front,
		back:   back,
		logger: logger,
	}
}

func (t *TieredStore) Read(ctx context.Context, key domain.CacheKey) (*domain.CacheRecord, error) {
	record, err := t.front.Read(ctx, key)
	if err != nil {
		t.logger.Warn("Front store read failed, falling back to durable store",
			zap.String("key", key.String()),
			zap.Error(err))
	}
	if record != nil {
		return record, nil
	}

	record, err = t.back.Read(ctx, key)
	if err != nil || record == nil {
		return nil, err
	}

	if err := t.front.Write(ctx, record); err != nil {
		t.logger.Warn("Failed to backfill front store",
			zap.String("key", key.String()),
			zap.Error(err))
	}
	return record, nil
}

func (t *TieredStore) Write(ctx context.Context, record *domain.CacheRecord) error {
	backErr := t.back.Write(ctx, record)
	if err := t.front.Write(ctx, record); err != nil {
		t.logger.Warn("Front store write failed",
			zap.String("key", record.Key.String()),
			zap.Error(err))
	}
	return backErr
}

func (t *TieredStore) Ping(ctx context.Context) error {
	return errors.Join(t.front.Ping(ctx), t.back.Ping(ctx))
}

func (t *TieredStore) Close() error {
	return errors.Join(t.front.Close(), t.back.Close())
}
