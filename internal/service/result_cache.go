package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/smregler-server/internal/domain"
	"github.com/smregler-server/internal/metrics"
)

// ResultCache memoizes verdicts by request digest. A verdict only depends on the
// request, so a cached result is always valid until it expires.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.ValidationResult, bool, error)
	Set(ctx context.Context, key string, result *domain.ValidationResult) error
	Name() string
}

// CacheKey returns the digest under which the verdict for req is stored.
func CacheKey(req *domain.ValidationRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request for cache key: %w", err)
	}
	hash := sha256.Sum256(payload)
	return req.Envelope.MsgID + ":" + hex.EncodeToString(hash[:]), nil
}

// MemoryResultCache is an in-process LRU with per-entry expiry (hot data).
type MemoryResultCache struct {
	lru *expirable.LRU[string, domain.ValidationResult]
}

// NewMemoryResultCache creates an LRU holding at most maxItems results for ttl each.
func NewMemoryResultCache(maxItems int, ttl time.Duration) *MemoryResultCache {
	if maxItems <= 0 {
		maxItems = 10000
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MemoryResultCache{lru: expirable.NewLRU[string, domain.ValidationResult](maxItems, nil, ttl)}
}

func (c *MemoryResultCache) Name() string { return "memory" }

func (c *MemoryResultCache) Get(_ context.Context, key string) (*domain.ValidationResult, bool, error) {
	result, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return copyResult(&result), true, nil
}

func (c *MemoryResultCache) Set(_ context.Context, key string, result *domain.ValidationResult) error {
	c.lru.Add(key, *copyResult(result))
	return nil
}

// Len returns the number of unexpired entries.
func (c *MemoryResultCache) Len() int {
	return c.lru.Len()
}

// RedisResultCache shares verdicts between replicas (warm data).
type RedisResultCache struct {
	redis      *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

// CachedResult is the stored form of a verdict.
type CachedResult struct {
	Result    *domain.ValidationResult `json:"result"`
	CachedAt  time.Time                `json:"cached_at"`
	ExpiresAt time.Time                `json:"expires_at"`
}

// NewRedisResultCache connects to the Redis server named by config.RedisURL.
func NewRedisResultCache(ctx context.Context, config domain.CacheConfig) (*RedisResultCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisResultCacheFromClient(client, config.KeyPrefix, config.DefaultTTL), nil
}

// NewRedisResultCacheFromClient wraps an existing client.
func NewRedisResultCacheFromClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisResultCache {
	if keyPrefix == "" {
		keyPrefix = "smregler:result:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisResultCache{redis: client, keyPrefix: keyPrefix, defaultTTL: ttl}
}

func (c *RedisResultCache) Name() string { return "redis" }

func (c *RedisResultCache) Get(ctx context.Context, key string) (*domain.ValidationResult, bool, error) {
	val, err := c.redis.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached result: %w", err)
	}

	var cached CachedResult
	if err := json.Unmarshal(val, &cached); err != nil || cached.Result == nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, c.keyPrefix+key)
		return nil, false, nil
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, c.keyPrefix+key)
		return nil, false, nil
	}

	return cached.Result, true, nil
}

func (c *RedisResultCache) Set(ctx context.Context, key string, result *domain.ValidationResult) error {
	now := time.Now()
	cached := CachedResult{
		Result:    result,
		CachedAt:  now,
		ExpiresAt: now.Add(c.defaultTTL),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal cached result: %w", err)
	}

	return c.redis.Set(ctx, c.keyPrefix+key, jsonData, c.defaultTTL).Err()
}

// Close releases the connection pool.
func (c *RedisResultCache) Close() error {
	return c.redis.Close()
}

// TieredResultCache consults its tiers in order and back-fills faster tiers on a hit
// in a slower one. A failing tier counts as a miss.
type TieredResultCache struct {
	tiers   []ResultCache
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewTieredResultCache orders tiers fastest first.
func NewTieredResultCache(logger *logrus.Logger, m *metrics.Metrics, tiers ...ResultCache) *TieredResultCache {
	return &TieredResultCache{tiers: tiers, metrics: m, logger: logger}
}

func (c *TieredResultCache) Name() string { return "tiered" }

func (c *TieredResultCache) Get(ctx context.Context, key string) (*domain.ValidationResult, bool, error) {
	for i, tier := range c.tiers {
		result, ok, err := tier.Get(ctx, key)
		if err != nil {
			c.metrics.RecordCacheLookup(tier.Name(), "error")
			c.logger.WithError(err).WithField("cache_tier", tier.Name()).Warn("Result cache lookup failed")
			continue
		}
		if !ok {
			c.metrics.RecordCacheLookup(tier.Name(), "miss")
			continue
		}

		c.metrics.RecordCacheLookup(tier.Name(), "hit")
		for _, faster := range c.tiers[:i] {
			if err := faster.Set(ctx, key, result); err != nil {
				c.logger.WithError(err).WithField("cache_tier", faster.Name()).Warn("Failed to back-fill result cache")
			}
		}
		return result, true, nil
	}
	return nil, false, nil
}

func (c *TieredResultCache) Set(ctx context.Context, key string, result *domain.ValidationResult) error {
	var errs []error
	for _, tier := range c.tiers {
		if err := tier.Set(ctx, key, result); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func copyResult(result *domain.ValidationResult) *domain.ValidationResult {
	out := &domain.ValidationResult{Status: result.Status, RuleHits: make([]domain.RuleInfo, len(result.RuleHits))}
	for i, hit := range result.RuleHits {
		if hit.RuleID != nil {
			ruleID := *hit.RuleID
			hit.RuleID = &ruleID
		}
		out.RuleHits[i] = hit
	}
	return out
}
