package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kapu/herobuilds-api-go/internal/domain"
	"github.com/kapu/herobuilds-api-go/internal/metrics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ErrSweepInProgress is returned by RunOnce while another sweep is still running.
var ErrSweepInProgress = errors.New("prewarm sweep already in progress")

// Prewarmer refreshes one hero with the pre-warm freshness window.
type Prewarmer interface {
	PrewarmHero(ctx context.Context, name string) (*domain.CacheRecord, error)
}

type SweepResult struct {
	RunID    string
	Total    int
	Failed   int
	Duration time.Duration
}

// PrewarmScheduler walks the hero catalog at start and on every interval so interactive
// requests mostly hit fresh records.
type PrewarmScheduler struct {
	prewarmer   Prewarmer
	catalog     *domain.Catalog
	interval    time.Duration
	concurrency int
	metrics     *metrics.Metrics
	logger      *zap.Logger

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
	running  atomic.Bool
	wg       sync.WaitGroup
}

func NewPrewarmScheduler(prewarmer Prewarmer, catalog *domain.Catalog, interval time.Duration, concurrency int, m *metrics.Metrics, logger *zap.Logger) *PrewarmScheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PrewarmScheduler{
		prewarmer:   prewarmer,
		catalog:     catalog,
		interval:    interval,
		concurrency: concurrency,
		metrics:     m,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval until Stop is called or ctx ends.
func (s *PrewarmScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.ticker = time.NewTicker(s.interval)

	s.logger.Info("Prewarm scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("heroes", s.catalog.Len()),
		zap.Int("concurrency", s.concurrency))

	s.trigger(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ticker.C:
				s.trigger(ctx)
			case <-s.stopCh:
				s.logger.Info("Prewarm scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Prewarm scheduler context cancelled")
				return
			}
		}
	}()
}

// Stop cancels any running sweep and waits for it to return.
func (s *PrewarmScheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		if s.cancel != nil {
			s.cancel()
		}
		close(s.stopCh)
	})
	s.wg.Wait()
}

// RunOnce performs a single sweep in the calling goroutine.
func (s *PrewarmScheduler) RunOnce(ctx context.Context) (SweepResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return SweepResult{}, ErrSweepInProgress
	}
	defer s.running.Store(false)
	return s.sweep(ctx), nil
}

func (s *PrewarmScheduler) trigger(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous prewarm sweep still running, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.sweep(ctx)
	}()
}

func (s *PrewarmScheduler) sweep(ctx context.Context) SweepResult {
	runID := uuid.NewString()
	names := s.catalog.Names()
	start := time.Now()
	logger := s.logger.With(zap.String("run_id", runID))

	logger.Info("Prewarm sweep starting", zap.Int("heroes", len(names)))

	var failed atomic.Int32
	p := pool.New().WithMaxGoroutines(s.concurrency)
	for _, name := range names {
		name := name
		p.Go(func() {
			if ctx.Err() != nil {
				failed.Add(1)
				return
			}
			if _, err := s.prewarmer.PrewarmHero(ctx, name); err != nil {
				failed.Add(1)
				logger.Warn("Prewarm failed",
					zap.String("hero", name),
					zap.Error(err))
			}
		})
	}
	p.Wait()

	result := SweepResult{
		RunID:    runID,
		Total:    len(names),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}
	s.metrics.ObserveSweep(result.Duration, result.Failed)

	logger.Info("Prewarm sweep finished",
		zap.Int("heroes", result.Total),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))
	return result
}
