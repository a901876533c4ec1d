package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/kapu/herobuilds-api-go/internal/constants"
	"github.com/kapu/herobuilds-api-go/internal/domain"
	apperrors "github.com/kapu/herobuilds-api-go/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheService is the Redis-backed record store.
type CacheService struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

var _ domain.RecordStore = (*CacheService)(nil)

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func NewCacheService(ctx context.Context, cfg CacheConfig, logger *zap.Logger) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	svc := NewCacheServiceWithClient(client, logger)
	if err := svc.WaitUntilReady(ctx, constants.RedisConfig.ReadyTimeout); err != nil {
		_ = client.Close()
		return nil, apperrors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return svc, nil
}

// NewCacheServiceWithClient wraps an existing client without probing it.
func NewCacheServiceWithClient(client *redis.Client, logger *zap.Logger) *CacheService {
	return &CacheService{
		client: client,
		prefix: constants.RedisConfig.KeyPrefix,
		logger: logger,
	}
}

func (c *CacheService) redisKey(key domain.CacheKey) string {
	return c.prefix + key.String()
}

func (c *CacheService) Read(ctx context.Context, key domain.CacheKey) (*domain.CacheRecord, error) {
	var record domain.CacheRecord
	found, err := c.Get(ctx, c.redisKey(key), &record)
	if err != nil {
		return nil, err
	}
	if !found || !record.HasPayload() {
		return nil, nil
	}
	record.Key = key
	return &record, nil
}

func (c *CacheService) Write(ctx context.Context, record *domain.CacheRecord) error {
	if record == nil {
		return fmt.Errorf("record must not be nil")
	}
	return c.Set(ctx, c.redisKey(record.Key), record, 0)
}

// Get decodes the JSON value at key into dest. found is false when the key does not exist.
func (c *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		c.logger.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		return false, apperrors.NewCacheError("get failed", "get", key, err)
	}

	if err := json.Unmarshal(value, dest); err != nil {
		c.logger.Error("Cache unmarshal failed", zap.String("key", key), zap.Error(err))
		return false, apperrors.NewCacheError("unmarshal failed", "get", key, err)
	}

	return true, nil
}

func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewCacheError("marshal failed", "set", key, err)
	}

	if err := c.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		c.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return apperrors.NewCacheError("set failed", "set", key, err)
	}

	return nil
}

func (c *CacheService) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return apperrors.NewCacheError("ping failed", "ping", "", err)
	}
	return nil
}

func (c *CacheService) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}

// WaitUntilReady pings Redis with exponential backoff until it answers or timeout elapses.
func (c *CacheService) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := c.client.Ping(ctx).Err(); err != nil {
			c.logger.Debug("Redis not ready yet", zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
	)
	if err != nil {
		return fmt.Errorf("timeout waiting for Redis to be ready: %w", err)
	}
	return nil
}
