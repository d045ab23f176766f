package domain

import "time"

// RiskAssessment is the risk engine's verdict for one (drug, phenotype) pair.
// Severity is always recomputed from the canonical label->severity map as a
// final alignment step; a table entry can never override it.
type RiskAssessment struct {
	RiskLabel       RiskLabel `json:"risk_label"`
	ConfidenceScore float64   `json:"confidence_score"` // in [0,1]
	Severity        Severity  `json:"severity"`
}

// ClinicalRecommendation pairs the deterministic action string with its
// rationale. The action is keyed by risk label; the rationale prefers a
// drug-specific template and falls back to a generic one.
type ClinicalRecommendation struct {
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// Explanation is the three-field natural-language explanation produced by the
// downstream generator (or its static fallback). It is advisory text only and
// must never alter the already-computed risk label or severity.
type Explanation struct {
	Summary        string `json:"summary"`
	Mechanism      string `json:"mechanism"`
	ClinicalImpact string `json:"clinical_impact"`
	Source         string `json:"source,omitempty"` // "service" or "fallback"
}

// GeneticProfile summarizes the genotype evidence behind one drug report.
type GeneticProfile struct {
	Gene             string    `json:"gene"`
	Diplotype        Diplotype `json:"diplotype"`
	Phenotype        Phenotype `json:"phenotype"`
	DetectedVariants []string  `json:"detected_variants"` // rsIDs, file order
}

// DrugReport is the assembled per-drug result object returned to the caller
// and optionally persisted. One pipeline run produces one report per
// requested, supported drug.
type DrugReport struct {
	ReportID       string                 `json:"report_id"`
	PatientID      string                 `json:"patient_id"`
	Drug           string                 `json:"drug"`
	Timestamp      time.Time              `json:"timestamp"`
	Assessment     RiskAssessment         `json:"risk_assessment"`
	Profile        GeneticProfile         `json:"genetic_profile"`
	Recommendation ClinicalRecommendation `json:"clinical_recommendation"`
	Explanation    Explanation            `json:"explanation"`
	ParseSuccess   bool                   `json:"parse_success"`
}

// ExplanationRequest is the read-only context handed to the explanation
// generator. The generator consumes already-decided pipeline outputs.
type ExplanationRequest struct {
	Drug      string    `json:"drug"`
	Gene      string    `json:"gene"`
	Diplotype Diplotype `json:"diplotype"`
	Phenotype Phenotype `json:"phenotype"`
	RiskLabel RiskLabel `json:"risk_label"`
	Severity  Severity  `json:"severity"`
	Variants  []Variant `json:"variants,omitempty"`
}
