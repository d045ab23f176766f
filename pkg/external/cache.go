package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pgx-risk-server/internal/domain"
)

// CacheConfig represents Redis cache configuration for explanation responses.
type CacheConfig struct {
	RedisURL    string        `json:"redis_url"`
	DefaultTTL  time.Duration `json:"default_ttl"`
	MaxRetries  int           `json:"max_retries"`
	PoolSize    int           `json:"pool_size"`
	PoolTimeout time.Duration `json:"pool_timeout"`
}

// ExplanationCache caches generated explanations in Redis. The same
// (drug, gene, diplotype, phenotype, risk label) context always yields the
// same cache key, so concurrent requests share generated text.
type ExplanationCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// cachedExplanation wraps a cached explanation with expiry metadata.
type cachedExplanation struct {
	Data      *domain.Explanation `json:"data"`
	CachedAt  time.Time           `json:"cached_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// NewExplanationCache creates a Redis-backed explanation cache.
func NewExplanationCache(config CacheConfig) (*ExplanationCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &ExplanationCache{
		redis:      client,
		defaultTTL: ttl,
	}, nil
}

// Get retrieves a cached explanation. The second return value is false on a
// cache miss; corrupted or expired entries are evicted and treated as misses.
func (c *ExplanationCache) Get(ctx context.Context, req domain.ExplanationRequest) (*domain.Explanation, bool, error) {
	key := cacheKey(req)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get explanation cache: %w", err)
	}

	var cached cachedExplanation
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set caches an explanation under the request's canonical key.
func (c *ExplanationCache) Set(ctx context.Context, req domain.ExplanationRequest, explanation *domain.Explanation, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cached := cachedExplanation{
		Data:      explanation,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal explanation cache data: %w", err)
	}

	return c.redis.Set(ctx, cacheKey(req), jsonData, ttl).Err()
}

// Invalidate removes the cached explanation for one request context.
func (c *ExplanationCache) Invalidate(ctx context.Context, req domain.ExplanationRequest) error {
	return c.redis.Del(ctx, cacheKey(req)).Err()
}

// Ping checks if the Redis connection is alive.
func (c *ExplanationCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *ExplanationCache) Close() error {
	return c.redis.Close()
}

// cacheKey derives the canonical cache key for an explanation context.
// Variants are excluded: the decided genotype context alone determines the text.
func cacheKey(req domain.ExplanationRequest) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s",
		req.Drug, req.Gene, req.Diplotype, req.Phenotype, req.RiskLabel)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("explanation:%x", hash[:8])
}
