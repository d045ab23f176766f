package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
)

// ExplanationCacheStats reports memory-tier cache performance.
type ExplanationCacheStats struct {
	Hits          int64     `json:"hits"`
	Misses        int64     `json:"misses"`
	ProviderCalls int64     `json:"provider_calls"`
	Errors        int64     `json:"errors"`
	LastReset     time.Time `json:"last_reset"`
}

// CachedExplanationResolver fronts any explanation provider with an
// in-memory LRU tier. The underlying provider typically carries its own
// Redis tier and static fallback; this tier keeps repeat genotype contexts
// within one process from re-entering that stack at all.
type CachedExplanationResolver struct {
	provider domain.ExplanationProvider

	memoryCache *lru.Cache
	memoryTTL   time.Duration

	logger  *logrus.Logger
	stats   ExplanationCacheStats
	statsMu sync.Mutex
}

// memoryCacheEntry pairs a cached explanation with its expiry.
type memoryCacheEntry struct {
	explanation *domain.Explanation
	expiresAt   time.Time
}

// NewCachedExplanationResolver creates the memory-tier resolver.
// size <= 0 defaults to 256 entries; ttl <= 0 defaults to 30 minutes.
func NewCachedExplanationResolver(provider domain.ExplanationProvider, size int, ttl time.Duration, logger *logrus.Logger) (*CachedExplanationResolver, error) {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating explanation memory cache: %w", err)
	}

	return &CachedExplanationResolver{
		provider:    provider,
		memoryCache: cache,
		memoryTTL:   ttl,
		logger:      logger,
		stats:       ExplanationCacheStats{LastReset: time.Now()},
	}, nil
}

// Explain returns the cached explanation for a genotype context when fresh,
// otherwise delegates to the wrapped provider and caches its answer.
func (r *CachedExplanationResolver) Explain(ctx context.Context, req domain.ExplanationRequest) (*domain.Explanation, error) {
	key := memoryKey(req)

	if value, ok := r.memoryCache.Get(key); ok {
		entry := value.(memoryCacheEntry)
		if time.Now().Before(entry.expiresAt) {
			r.recordHit()
			return entry.explanation, nil
		}
		r.memoryCache.Remove(key)
	}
	r.recordMiss()

	explanation, err := r.provider.Explain(ctx, req)
	if err != nil {
		r.recordError()
		return nil, err
	}

	r.memoryCache.Add(key, memoryCacheEntry{
		explanation: explanation,
		expiresAt:   time.Now().Add(r.memoryTTL),
	})

	return explanation, nil
}

// Invalidate drops the memory-tier entry for one genotype context.
func (r *CachedExplanationResolver) Invalidate(req domain.ExplanationRequest) {
	r.memoryCache.Remove(memoryKey(req))
}

// Stats returns a snapshot of cache performance counters.
func (r *CachedExplanationResolver) Stats() ExplanationCacheStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

func memoryKey(req domain.ExplanationRequest) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", req.Drug, req.Gene, req.Diplotype, req.Phenotype, req.RiskLabel)
}

func (r *CachedExplanationResolver) recordHit() {
	r.statsMu.Lock()
	r.stats.Hits++
	r.statsMu.Unlock()
}

func (r *CachedExplanationResolver) recordMiss() {
	r.statsMu.Lock()
	r.stats.Misses++
	r.stats.ProviderCalls++
	r.statsMu.Unlock()
}

func (r *CachedExplanationResolver) recordError() {
	r.statsMu.Lock()
	r.stats.Errors++
	r.statsMu.Unlock()
}
