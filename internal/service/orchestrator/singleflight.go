package orchestrator

import (
	"context"
	"time"

	"github.com/kapu/herobuilds-api-go/internal/domain"
	"github.com/kapu/herobuilds-api-go/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SingleFlight lets concurrent Resolve calls for one key share a single in-flight
// resolution. The shared call runs detached from any one caller's context; each caller
// still stops waiting when its own context ends.
type SingleFlight struct {
	next    Resolver
	group   singleflight.Group
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *zap.Logger
}

var _ Resolver = (*SingleFlight)(nil)

func NewSingleFlight(next Resolver, m *metrics.Metrics, logger *zap.Logger) *SingleFlight {
	return &SingleFlight{
		next:    next,
		metrics: m,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *SingleFlight) Resolve(ctx context.Context, key domain.CacheKey, target domain.FetchTarget, staleAfter time.Duration) (*domain.CacheRecord, error) {
	record, shared, err := s.do(ctx, key, target, staleAfter)
	if err != nil || !shared {
		return record, err
	}

	// The joined call may have used a looser window than ours; resolve again if so.
	if !record.IsFresh(s.now(), staleAfter) {
		s.logger.Debug("Shared result too old for caller, resolving again",
			zap.String("key", key.String()),
			zap.Duration("stale_after", staleAfter))
		record, _, err = s.do(ctx, key, target, staleAfter)
	}
	return record, err
}

func (s *SingleFlight) do(ctx context.Context, key domain.CacheKey, target domain.FetchTarget, staleAfter time.Duration) (*domain.CacheRecord, bool, error) {
	ch := s.group.DoChan(key.String(), func() (interface{}, error) {
		return s.next.Resolve(context.WithoutCancel(ctx), key, target, staleAfter)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.metrics.ObserveShared(key.Namespace.String())
		}
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return res.Val.(*domain.CacheRecord), res.Shared, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
