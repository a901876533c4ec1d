package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/kapu/herobuilds-api-go/internal/domain"
	apperrors "github.com/kapu/herobuilds-api-go/pkg/errors"
	"go.uber.org/zap"
)

const schemaCacheRecords = `
	CREATE TABLE IF NOT EXISTS cache_records (
		namespace   TEXT        NOT NULL,
		id          TEXT        NOT NULL,
		last_update TIMESTAMPTZ NOT NULL,
		payload     JSONB       NOT NULL,
		written_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (namespace, id)
	)
`

const selectRecord = `
	SELECT last_update, payload
	FROM cache_records
	WHERE namespace = $1 AND id = $2
`

const upsertRecord = `
	INSERT INTO cache_records (namespace, id, last_update, payload, written_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (namespace, id) DO UPDATE
	SET last_update = EXCLUDED.last_update,
	    payload     = EXCLUDED.payload,
	    written_at  = now()
`

// RecordRepository is the durable record store. Rows are keyed by (namespace, id).
type RecordRepository struct {
	postgres *PostgresService
	db       *sql.DB
	logger   *zap.Logger
}

var _ domain.RecordStore = (*RecordRepository)(nil)

func NewRecordRepository(postgres *PostgresService, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		postgres: postgres,
		db:       postgres.GetDB(),
		logger:   logger,
	}
}

// EnsureSchema creates the cache table when it does not exist yet.
func (r *RecordRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaCacheRecords); err != nil {
		return apperrors.NewCacheError("failed to create cache_records table", "migrate", "cache_records", err)
	}
	return nil
}

type recordPayload struct {
	Roster *domain.RosterSnapshot `json:"roster,omitempty"`
	Detail *domain.EntityDetail   `json:"detail,omitempty"`
}

func (r *RecordRepository) Read(ctx context.Context, key domain.CacheKey) (*domain.CacheRecord, error) {
	record := &domain.CacheRecord{Key: key}
	var payloadJSON []byte

	err := r.db.QueryRowContext(ctx, selectRecord, string(key.Namespace), key.ID).
		Scan(&record.LastUpdate, &payloadJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Record query failed", zap.String("key", key.String()), zap.Error(err))
		return nil, apperrors.NewCacheError("query failed", "read", key.String(), err)
	}

	var payload recordPayload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, apperrors.NewCacheError("payload unmarshal failed", "read", key.String(), err)
	}
	record.Roster = payload.Roster
	record.Detail = payload.Detail

	if !record.HasPayload() {
		return nil, nil
	}
	return record, nil
}

func (r *RecordRepository) Write(ctx context.Context, record *domain.CacheRecord) error {
	key := record.Key.String()
	payloadJSON, err := json.Marshal(recordPayload{Roster: record.Roster, Detail: record.Detail})
	if err != nil {
		return apperrors.NewCacheError("payload marshal failed", "write", key, err)
	}

	_, err = r.db.ExecContext(ctx, upsertRecord,
		string(record.Key.Namespace), record.Key.ID, record.LastUpdate, payloadJSON)
	if err != nil {
		r.logger.Error("Record upsert failed", zap.String("key", key), zap.Error(err))
		return apperrors.NewCacheError("upsert failed", "write", key, err)
	}
	return nil
}

func (r *RecordRepository) Ping(ctx context.Context) error {
	return r.postgres.Ping(ctx)
}

func (r *RecordRepository) Close() error {
	return r.postgres.Close()
}
