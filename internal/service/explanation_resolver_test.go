package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgx-risk-server/internal/domain"
)

func testExplanationRequest(drug string) domain.ExplanationRequest {
	return domain.ExplanationRequest{
		Drug:      drug,
		Gene:      "CYP2C19",
		Diplotype: "*2/*17",
		Phenotype: domain.PhenotypeIntermediate,
		RiskLabel: domain.RiskAdjustDosage,
	}
}

func TestCachedExplanationResolver_CacheHit(t *testing.T) {
	provider := &stubExplainer{explanation: &domain.Explanation{Summary: "cached once"}}
	resolver, err := NewCachedExplanationResolver(provider, 8, time.Minute, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	req := testExplanationRequest("CLOPIDOGREL")

	first, err := resolver.Explain(ctx, req)
	require.NoError(t, err)
	second, err := resolver.Explain(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls, "second call must be served from memory")

	stats := resolver.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.ProviderCalls)
}

func TestCachedExplanationResolver_DistinctContextsNotShared(t *testing.T) {
	provider := &stubExplainer{explanation: &domain.Explanation{Summary: "x"}}
	resolver, err := NewCachedExplanationResolver(provider, 8, time.Minute, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = resolver.Explain(ctx, testExplanationRequest("CLOPIDOGREL"))
	require.NoError(t, err)
	_, err = resolver.Explain(ctx, testExplanationRequest("OMEPRAZOLE"))
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
}

func TestCachedExplanationResolver_TTLExpiry(t *testing.T) {
	provider := &stubExplainer{explanation: &domain.Explanation{Summary: "short lived"}}
	resolver, err := NewCachedExplanationResolver(provider, 8, time.Millisecond, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	req := testExplanationRequest("CLOPIDOGREL")

	_, err = resolver.Explain(ctx, req)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = resolver.Explain(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls, "expired entry must re-enter the provider")
}

func TestCachedExplanationResolver_ErrorsNotCached(t *testing.T) {
	provider := &stubExplainer{err: errors.New("provider down")}
	resolver, err := NewCachedExplanationResolver(provider, 8, time.Minute, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	req := testExplanationRequest("CLOPIDOGREL")

	_, err = resolver.Explain(ctx, req)
	require.Error(t, err)
	_, err = resolver.Explain(ctx, req)
	require.Error(t, err)

	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, int64(2), resolver.Stats().Errors)
}

func TestCachedExplanationResolver_Invalidate(t *testing.T) {
	provider := &stubExplainer{explanation: &domain.Explanation{Summary: "v1"}}
	resolver, err := NewCachedExplanationResolver(provider, 8, time.Minute, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	req := testExplanationRequest("CLOPIDOGREL")

	_, err = resolver.Explain(ctx, req)
	require.NoError(t, err)

	resolver.Invalidate(req)

	_, err = resolver.Explain(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestCachedExplanationResolver_DefaultSizing(t *testing.T) {
	provider := &stubExplainer{explanation: &domain.Explanation{Summary: "defaults"}}

	resolver, err := NewCachedExplanationResolver(provider, 0, 0, newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, resolver)

	_, err = resolver.Explain(context.Background(), testExplanationRequest("CLOPIDOGREL"))
	assert.NoError(t, err)
}
