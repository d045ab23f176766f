package external

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pgx-risk-server/internal/domain"
)

// ResilientExplainer wraps the live explanation client with a circuit
// breaker, an optional Redis cache and an unconditional static fallback.
// It never returns an error: whatever goes wrong upstream, the caller gets
// templated explanation text and the pipeline's verdict stays untouched.
type ResilientExplainer struct {
	client   *ExplainerClient
	cache    *ExplanationCache // nil when caching is disabled
	fallback *StaticExplainer
	breaker  *gobreaker.CircuitBreaker
	logger   *logrus.Logger
}

// NewResilientExplainer creates the resilient explanation provider.
// cache may be nil.
func NewResilientExplainer(client *ExplainerClient, cache *ExplanationCache, logger *logrus.Logger) *ResilientExplainer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Explainer",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientExplainer{
		client:   client,
		cache:    cache,
		fallback: NewStaticExplainer(),
		breaker:  breaker,
		logger:   logger,
	}
}

// Explain resolves an explanation: cache, then the live service behind the
// circuit breaker, then the static fallback. Cancellation of ctx aborts a
// pending live call; the static substitute is still returned so the report
// assembly never blocks on this collaborator.
func (r *ResilientExplainer) Explain(ctx context.Context, req domain.ExplanationRequest) (*domain.Explanation, error) {
	if r.cache != nil {
		if cached, hit, err := r.cache.Get(ctx, req); err == nil && hit {
			return cached, nil
		} else if err != nil {
			r.logger.WithError(err).Debug("Explanation cache lookup failed")
		}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.Explain(ctx, req)
	})
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"drug": req.Drug,
			"gene": req.Gene,
		}).Warn("Explanation service unavailable; using static fallback")
		return r.fallback.Explain(context.WithoutCancel(ctx), req)
	}

	explanation := result.(*domain.Explanation)

	if r.cache != nil {
		if err := r.cache.Set(ctx, req, explanation, 0); err != nil {
			r.logger.WithError(err).Debug("Failed to cache explanation")
		}
	}

	return explanation, nil
}

// BreakerState exposes the circuit breaker state for health reporting.
func (r *ResilientExplainer) BreakerState() gobreaker.State {
	return r.breaker.State()
}

// Close releases the cache connection if one is held.
func (r *ResilientExplainer) Close() error {
	if r.cache != nil {
		return r.cache.Close()
	}
	return nil
}
