package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kapu/herobuilds-api-go/internal/api"
	"github.com/kapu/herobuilds-api-go/internal/config"
	"github.com/kapu/herobuilds-api-go/internal/domain"
	"github.com/kapu/herobuilds-api-go/internal/metrics"
	"github.com/kapu/herobuilds-api-go/internal/service/cache"
	"github.com/kapu/herobuilds-api-go/internal/service/database"
	"github.com/kapu/herobuilds-api-go/internal/service/orchestrator"
	"github.com/kapu/herobuilds-api-go/internal/service/scheduler"
	"github.com/kapu/herobuilds-api-go/internal/service/scraper"
	"github.com/kapu/herobuilds-api-go/internal/util"
	"go.uber.org/zap"
)

// Container bundles the assembled services. Every component receives its dependencies
// here; nothing below reaches for package-level state.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Catalog   *domain.Catalog
	Store     domain.RecordStore
	Heroes    *orchestrator.HeroService
	Scheduler *scheduler.PrewarmScheduler
	Events    *api.EventHub
	Metrics   *metrics.Metrics
	Router    http.Handler

	closers []func()
}

// Option adjusts how Build assembles the graph.
type Option func(*buildOptions)

type buildOptions struct {
	extractor domain.PageExtractor
	store     domain.RecordStore
}

// WithExtractor replaces the headless browser extractor.
func WithExtractor(extractor domain.PageExtractor) Option {
	return func(o *buildOptions) {
		o.extractor = extractor
	}
}

// WithStore replaces the configured cache backend.
func WithStore(store domain.RecordStore) Option {
	return func(o *buildOptions) {
		o.store = store
	}
}

// NewServer returns the HTTP server for the assembled router.
func (c *Container) NewServer() *api.Server {
	return api.NewServer(c.Config.Server.Addr(), c.Router, c.Logger)
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles all infrastructure services. Connection setup to Redis and PostgreSQL
// happens here, bounded by ctx.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	catalog, err := LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	store := o.store
	if store == nil {
		store, err = buildStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	closers = append(closers, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close cache store", zap.Error(err))
		}
	})

	extractor := o.extractor
	if extractor == nil {
		renderer := scraper.NewChromeRenderer(scraper.RenderOptions{
			Timeout:     cfg.Render.Timeout,
			Headless:    cfg.Render.Headless,
			ExecPath:    cfg.Render.ExecPath,
			UserAgent:   cfg.Render.UserAgent,
			WaitVisible: cfg.Render.WaitVisible,
		}, logger)
		closers = append(closers, renderer.Close)

		breaker := util.NewCircuitBreaker("page-extractor", cfg.Breaker.FailureThreshold, cfg.Breaker.ResetTimeout, logger)
		extractor = scraper.NewExtractor(renderer, breaker, m, logger)
	}

	events := api.NewEventHub(logger)
	closers = append(closers, events.Close)

	var resolver orchestrator.Resolver = orchestrator.New(store, extractor, logger, orchestrator.Options{
		ServeStaleOnError: cfg.Cache.ServeStaleOnError,
		Notifier:          events,
		Metrics:           m,
	})
	if cfg.Cache.RefreshPolicy == config.PolicySingleFlight {
		resolver = orchestrator.NewSingleFlight(resolver, m, logger)
	}

	heroes := orchestrator.NewHeroService(resolver, cfg.Source, cfg.Cache.InteractiveStale, cfg.Cache.PrewarmStale)
	prewarm := scheduler.NewPrewarmScheduler(heroes, catalog, cfg.Scheduler.Interval, cfg.Scheduler.Concurrency, m, logger)

	router := api.NewRouter(api.RouterDeps{
		Heroes:  heroes,
		Health:  store,
		Events:  events,
		Metrics: m,
		Logger:  logger,
	})

	logger.Info("Application services assembled",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("refresh_policy", cfg.Cache.RefreshPolicy),
		zap.Bool("serve_stale_on_error", cfg.Cache.ServeStaleOnError),
		zap.Int("catalog_size", catalog.Len()))

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Catalog:   catalog,
		Store:     store,
		Heroes:    heroes,
		Scheduler: prewarm,
		Events:    events,
		Metrics:   m,
		Router:    router,
		closers:   closers,
	}, nil
}

// LoadCatalog returns the configured hero list, or the embedded default list when none is set.
func LoadCatalog(cfg config.CatalogConfig) (*domain.Catalog, error) {
	if len(cfg.Heroes) > 0 {
		return domain.NewCatalog(cfg.Heroes), nil
	}
	catalog, err := domain.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load hero catalog: %w", err)
	}
	return catalog, nil
}

func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.RecordStore, error) {
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		logger.Warn("Using in-memory cache store, records are lost on restart")
		return cache.NewMemoryStore(), nil
	case config.BackendRedis:
		return newRedisStore(ctx, cfg, logger)
	case config.BackendPostgres:
		return newPostgresStore(ctx, cfg, logger)
	case config.BackendTiered:
		back, err := newPostgresStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		front, err := newRedisStore(ctx, cfg, logger)
		if err != nil {
			_ = back.Close()
			return nil, err
		}
		return cache.NewTieredStore(front, back, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func newRedisStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cache.CacheService, error) {
	svc, err := cache.NewCacheService(ctx, cache.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache service: %w", err)
	}
	return svc, nil
}

func newPostgresStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.RecordRepository, error) {
	postgresSvc, err := database.NewPostgresService(ctx, database.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}

	repo := database.NewRecordRepository(postgresSvc, logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}
