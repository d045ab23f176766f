package external

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgx-risk-server/internal/domain"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testRequest() domain.ExplanationRequest {
	return domain.ExplanationRequest{
		Drug:      "CLOPIDOGREL",
		Gene:      "CYP2C19",
		Diplotype: "*2/*17",
		Phenotype: domain.PhenotypeIntermediate,
		RiskLabel: domain.RiskAdjustDosage,
		Severity:  domain.SeverityModerate,
	}
}

func TestExplainerClient_Explain(t *testing.T) {
	var captured explainRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/explanations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(explainResponse{
			Summary:        "Altered clopidogrel response expected.",
			Mechanism:      "Reduced CYP2C19 activity limits bioactivation.",
			ClinicalImpact: "Dose adjustment or alternative agent indicated.",
		})
	}))
	defer server.Close()

	client := NewExplainerClient(ExplainerConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "pgx-explain-1",
	})

	explanation, err := client.Explain(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "Altered clopidogrel response expected.", explanation.Summary)
	assert.Equal(t, "service", explanation.Source)

	assert.Equal(t, "pgx-explain-1", captured.Model)
	assert.Equal(t, "CLOPIDOGREL", captured.Drug)
	assert.Equal(t, "*2/*17", captured.Diplotype)
	assert.Equal(t, "Adjust Dosage", captured.RiskLabel)
	assert.Equal(t, "moderate", captured.Severity)
}

func TestExplainerClient_Explain_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewExplainerClient(ExplainerConfig{BaseURL: server.URL})

	_, err := client.Explain(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestExplainerClient_Explain_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(explainResponse{})
	}))
	defer server.Close()

	client := NewExplainerClient(ExplainerConfig{BaseURL: server.URL})

	_, err := client.Explain(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty explanation")
}

func TestExplainerClient_Explain_NoBaseURL(t *testing.T) {
	client := NewExplainerClient(ExplainerConfig{})

	_, err := client.Explain(context.Background(), testRequest())
	assert.Error(t, err)
}

func TestExplainerClient_Explain_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewExplainerClient(ExplainerConfig{BaseURL: server.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Explain(ctx, testRequest())
	assert.Error(t, err)
}

func TestStaticExplainer_Explain(t *testing.T) {
	explainer := NewStaticExplainer()

	explanation, err := explainer.Explain(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "fallback", explanation.Source)
	assert.Contains(t, explanation.Summary, "CLOPIDOGREL")
	assert.Contains(t, explanation.Mechanism, "CYP2C19")
	assert.Contains(t, explanation.Mechanism, "*2/*17")
	assert.Contains(t, explanation.Mechanism, "Intermediate Metabolizer")
	assert.NotEmpty(t, explanation.ClinicalImpact)
}

func TestStaticExplainer_UnknownGeneAndLabel(t *testing.T) {
	explainer := NewStaticExplainer()

	req := testRequest()
	req.Gene = "UGT1A1"
	req.RiskLabel = domain.RiskLabel("bogus")

	explanation, err := explainer.Explain(context.Background(), req)

	require.NoError(t, err)
	// Unrecognized labels render the Unknown templates.
	assert.Contains(t, explanation.Summary, "not enough pharmacogenomic evidence")
	assert.Contains(t, explanation.Mechanism, "UGT1A1")
}

func TestStaticExplainer_Cancelled(t *testing.T) {
	explainer := NewStaticExplainer()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := explainer.Explain(ctx, testRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResilientExplainer_LiveService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(explainResponse{Summary: "live text"})
	}))
	defer server.Close()

	client := NewExplainerClient(ExplainerConfig{BaseURL: server.URL})
	resilient := NewResilientExplainer(client, nil, newTestLogger())

	explanation, err := resilient.Explain(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "live text", explanation.Summary)
	assert.Equal(t, "service", explanation.Source)
}

func TestResilientExplainer_FallsBackOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewExplainerClient(ExplainerConfig{BaseURL: server.URL})
	resilient := NewResilientExplainer(client, nil, newTestLogger())

	explanation, err := resilient.Explain(context.Background(), testRequest())

	require.NoError(t, err, "resilient provider substitutes the fallback instead of erring")
	assert.Equal(t, "fallback", explanation.Source)
	assert.NotEmpty(t, explanation.Summary)
}

func TestResilientExplainer_FallbackSurvivesCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewExplainerClient(ExplainerConfig{BaseURL: server.URL})
	resilient := NewResilientExplainer(client, nil, newTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	explanation, err := resilient.Explain(ctx, testRequest())

	require.NoError(t, err)
	assert.Equal(t, "fallback", explanation.Source)
}

func TestResilientExplainer_BreakerOpensAfterFailures(t *testing.T) {
	var liveCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		liveCalls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewExplainerClient(ExplainerConfig{BaseURL: server.URL, RateLimit: 100})
	resilient := NewResilientExplainer(client, nil, newTestLogger())

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		explanation, err := resilient.Explain(ctx, testRequest())
		require.NoError(t, err)
		assert.Equal(t, "fallback", explanation.Source)
	}

	assert.Equal(t, gobreaker.StateOpen, resilient.BreakerState())
	// Once open, requests stop reaching the live service.
	assert.Less(t, liveCalls, 6)
}
