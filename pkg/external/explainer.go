// Package external provides the client for the explanation-generation
// service, with the resilience patterns (rate limiting, circuit breaking,
// caching, static fallback) that keep its failures out of the core pipeline.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pgx-risk-server/internal/domain"
)

// ExplainerConfig represents configuration for the explanation service client.
type ExplainerConfig struct {
	BaseURL   string        `json:"base_url"`
	APIKey    string        `json:"api_key"`
	Model     string        `json:"model"`
	Timeout   time.Duration `json:"timeout"`
	RateLimit int           `json:"rate_limit"` // requests per second
}

// ExplainerClient handles interactions with the external text-generation
// service that renders natural-language explanations. The service consumes
// already-decided pipeline outputs as read-only context.
type ExplainerClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// explainRequest is the wire format sent to the explanation service.
type explainRequest struct {
	Model     string           `json:"model,omitempty"`
	Drug      string           `json:"drug"`
	Gene      string           `json:"gene"`
	Diplotype string           `json:"diplotype"`
	Phenotype string           `json:"phenotype"`
	RiskLabel string           `json:"risk_label"`
	Severity  string           `json:"severity"`
	Variants  []domain.Variant `json:"variants,omitempty"`
}

// explainResponse is the wire format returned by the explanation service.
type explainResponse struct {
	Summary        string `json:"summary"`
	Mechanism      string `json:"mechanism"`
	ClinicalImpact string `json:"clinical_impact"`
}

// NewExplainerClient creates a new explanation service client.
func NewExplainerClient(config ExplainerConfig) *ExplainerClient {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}

	return &ExplainerClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Explain requests a three-field explanation for an already-decided
// assessment. The call is cancellable via ctx and bounded by the client
// timeout; the returned explanation never carries a risk label or severity,
// so it cannot contradict the pipeline's verdict.
func (e *ExplainerClient) Explain(ctx context.Context, req domain.ExplanationRequest) (*domain.Explanation, error) {
	if e.baseURL == "" {
		return nil, fmt.Errorf("explanation service base URL is not configured")
	}

	if err := e.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	body, err := json.Marshal(explainRequest{
		Model:     e.model,
		Drug:      req.Drug,
		Gene:      req.Gene,
		Diplotype: req.Diplotype.String(),
		Phenotype: req.Phenotype.String(),
		RiskLabel: req.RiskLabel.String(),
		Severity:  req.Severity.String(),
		Variants:  req.Variants,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling explanation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/explanations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating explanation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling explanation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("explanation service returned status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed explainResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding explanation response: %w", err)
	}

	if parsed.Summary == "" && parsed.Mechanism == "" && parsed.ClinicalImpact == "" {
		return nil, fmt.Errorf("explanation service returned an empty explanation")
	}

	return &domain.Explanation{
		Summary:        parsed.Summary,
		Mechanism:      parsed.Mechanism,
		ClinicalImpact: parsed.ClinicalImpact,
		Source:         "service",
	}, nil
}
