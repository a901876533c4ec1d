package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/kapu/herobuilds-api-go/internal/domain"
	"github.com/kapu/herobuilds-api-go/internal/metrics"
	apperrors "github.com/kapu/herobuilds-api-go/pkg/errors"
	"go.uber.org/zap"
)

const persistTimeout = 5 * time.Second

// Resolver returns a record for key that is at most staleAfter old, refreshing it
// through the page extractor when needed.
type Resolver interface {
	Resolve(ctx context.Context, key domain.CacheKey, target domain.FetchTarget, staleAfter time.Duration) (*domain.CacheRecord, error)
}

// RefreshNotifier is told about every record produced by a refresh.
type RefreshNotifier interface {
	RecordRefreshed(record *domain.CacheRecord)
}

type Options struct {
	// ServeStaleOnError returns the previous record when a refresh fails.
	ServeStaleOnError bool
	Notifier          RefreshNotifier
	Metrics           *metrics.Metrics
	Now               func() time.Time
}

// Orchestrator holds no per-key state. Concurrent calls for the same key each refresh on
// their own; wrap it with NewSingleFlight to share refreshes.
type Orchestrator struct {
	store      domain.RecordStore
	extractor  domain.PageExtractor
	notifier   RefreshNotifier
	metrics    *metrics.Metrics
	now        func() time.Time
	serveStale bool
	logger     *zap.Logger
}

var _ Resolver = (*Orchestrator)(nil)

func New(store domain.RecordStore, extractor domain.PageExtractor, logger *zap.Logger, opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store:      store,
		extractor:  extractor,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		now:        now,
		serveStale: opts.ServeStaleOnError,
		logger:     logger,
	}
}

func (o *Orchestrator) Resolve(ctx context.Context, key domain.CacheKey, target domain.FetchTarget, staleAfter time.Duration) (*domain.CacheRecord, error) {
	if err := checkTarget(key, target); err != nil {
		return nil, err
	}

	existing, err := o.store.Read(ctx, key)
	if err != nil {
		o.logger.Warn("Cache read failed, refreshing",
			zap.String("key", key.String()),
			zap.Error(err))
		existing = nil
	}

	if existing.IsFresh(o.now(), staleAfter) {
		o.logger.Debug("Cache hit",
			zap.String("key", key.String()),
			zap.Duration("age", existing.Age(o.now())))
		o.metrics.ObserveResolve(key.Namespace.String(), metrics.OutcomeHit)
		return existing, nil
	}

	return o.refresh(ctx, key, target, existing)
}

func (o *Orchestrator) refresh(ctx context.Context, key domain.CacheKey, target domain.FetchTarget, existing *domain.CacheRecord) (*domain.CacheRecord, error) {
	ns := key.Namespace.String()
	fetchedAt := o.now()

	o.logger.Info("Refreshing cache entry",
		zap.String("key", key.String()),
		zap.String("url", target.URL),
		zap.Bool("had_previous", existing != nil))

	extraction, err := o.extractor.Fetch(ctx, target)
	if err != nil {
		if o.serveStale && existing != nil {
			o.logger.Warn("Refresh failed, serving stale record",
				zap.String("key", key.String()),
				zap.Time("last_update", existing.LastUpdate),
				zap.Error(err))
			o.metrics.ObserveResolve(ns, metrics.OutcomeStaleServed)
			return existing, nil
		}
		o.metrics.ObserveResolve(ns, metrics.OutcomeError)
		return nil, fmt.Errorf("refresh %s: %w", key, err)
	}

	if extraction.IsEmpty() && key.Namespace != domain.NamespaceRoster {
		o.logger.Info("Refresh returned no data, cache left untouched", zap.String("key", key.String()))
		o.metrics.ObserveResolve(ns, metrics.OutcomeEmpty)
		return nil, emptyResult(key)
	}

	record := &domain.CacheRecord{
		Key:        key,
		LastUpdate: fetchedAt,
		Roster:     extraction.Roster,
		Detail:     extraction.Detail,
	}
	// An empty full roster is still an entry.
	if key.Namespace == domain.NamespaceRoster && record.Roster == nil {
		record.Roster = &domain.RosterSnapshot{Heroes: []domain.HeroSummary{}}
	}

	o.persist(ctx, record)
	o.metrics.ObserveResolve(ns, metrics.OutcomeRefreshed)
	if o.notifier != nil {
		o.notifier.RecordRefreshed(record)
	}
	return record, nil
}

// persist writes the record without failing the caller. The write outlives a cancelled
// request so an expensive render is not thrown away.
func (o *Orchestrator) persist(ctx context.Context, record *domain.CacheRecord) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := o.store.Write(writeCtx, record); err != nil {
		o.metrics.ObserveStoreWriteFailure()
		o.logger.Error("Failed to persist refreshed record, next caller will refresh again",
			zap.String("key", record.Key.String()),
			zap.Error(err))
	}
}

func checkTarget(key domain.CacheKey, target domain.FetchTarget) error {
	want := domain.FetchKindRoster
	if key.Namespace == domain.NamespaceHeroDetail {
		want = domain.FetchKindDetail
	}
	if !key.Namespace.IsValid() {
		return apperrors.NewValidationError("unknown cache namespace", "namespace", key.Namespace.String())
	}
	if target.Kind != want {
		return apperrors.NewValidationError(
			fmt.Sprintf("fetch kind %q does not match namespace %q", target.Kind, key.Namespace),
			"kind", target.Kind.String())
	}
	return nil
}

func emptyResult(key domain.CacheKey) error {
	switch key.Namespace {
	case domain.NamespaceRosterByRole:
		return apperrors.NewEmptyResultError(
			fmt.Sprintf("No heroes found for role '%s'", key.ID), key.Namespace.String(), key.ID)
	default:
		return apperrors.NewEmptyResultError(
			fmt.Sprintf("No talent data found for hero '%s'", key.ID), key.Namespace.String(), key.ID)
	}
}
