package domain

import "context"

// VariantExtractor parses raw variant-call text into gene-grouped variants.
// Extract never returns an error: a file with no header yields Success=false
// and an empty result. ValidateContent is the advisory structural pre-check.
type VariantExtractor interface {
	Extract(content string) *ExtractionResult
	ValidateContent(content string) error
}

// DiplotypeResolver reduces one gene's ordered variant set into a canonical
// diplotype string. It has no failure mode; absence of information degrades
// to the wild-type assumption.
type DiplotypeResolver interface {
	Resolve(variants []Variant) Diplotype
}

// PhenotypeClassifier maps (gene, diplotype) to a metabolizer phenotype.
// Unmapped combinations yield PhenotypeUnknown, never an estimate.
type PhenotypeClassifier interface {
	Classify(gene string, diplotype Diplotype) Phenotype
}

// RiskAssessor maps (drug, phenotype) to a risk assessment and produces the
// deterministic clinical recommendation for it.
type RiskAssessor interface {
	Assess(drug string, phenotype Phenotype, variantDetected bool) RiskAssessment
	Recommend(drug, gene string, phenotype Phenotype, label RiskLabel) ClinicalRecommendation
	IsSupported(drug string) bool
	PrimaryGene(drug string) (string, bool)
	SupportedDrugs() []string
}

// ExplanationProvider generates the natural-language explanation for an
// already-decided assessment. Implementations must be cancellable and must
// never mutate the request's risk label or severity; failures substitute a
// static fallback rather than propagating.
type ExplanationProvider interface {
	Explain(ctx context.Context, req ExplanationRequest) (*Explanation, error)
}

// ReportStore persists completed drug reports.
type ReportStore interface {
	Create(ctx context.Context, report *DrugReport) error
	GetByID(ctx context.Context, reportID string) (*DrugReport, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*DrugReport, error)
	Close()
}

// ConfigManager provides access to application configuration
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	Validate() error
}
