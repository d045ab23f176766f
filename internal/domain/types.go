// Package domain contains core business entities and types for pharmacogenomic
// drug-risk classification following CPIC (Clinical Pharmacogenetics Implementation
// Consortium) guideline conventions.
//
// Reference: Relling & Klein (2011) CPIC: Clinical Pharmacogenetics Implementation
// Consortium of the Pharmacogenomics Research Network. Clin Pharmacol Ther. 89(3):464-7.
package domain

import "strings"

// Phenotype represents a metabolizer status derived from a diplotype.
// Not every phenotype is clinically meaningful for every gene (CYP2C9,
// for example, has no rapid or ultrarapid category).
type Phenotype string

const (
	PhenotypePoor         Phenotype = "PM"
	PhenotypeIntermediate Phenotype = "IM"
	PhenotypeNormal       Phenotype = "NM"
	PhenotypeRapid        Phenotype = "RM"
	PhenotypeUltrarapid   Phenotype = "UM"
	PhenotypeUnknown      Phenotype = "Unknown"
)

// IsValid validates that the phenotype is one of the closed enumeration.
func (p Phenotype) IsValid() bool {
	switch p {
	case PhenotypePoor, PhenotypeIntermediate, PhenotypeNormal,
		PhenotypeRapid, PhenotypeUltrarapid, PhenotypeUnknown:
		return true
	default:
		return false
	}
}

// IsKnown reports whether the phenotype carries usable information.
func (p Phenotype) IsKnown() bool {
	return p.IsValid() && p != PhenotypeUnknown
}

// String returns the string representation of the phenotype.
func (p Phenotype) String() string {
	return string(p)
}

// Description returns a human-readable description for clinical reporting.
func (p Phenotype) Description() string {
	switch p {
	case PhenotypePoor:
		return "Poor Metabolizer"
	case PhenotypeIntermediate:
		return "Intermediate Metabolizer"
	case PhenotypeNormal:
		return "Normal Metabolizer"
	case PhenotypeRapid:
		return "Rapid Metabolizer"
	case PhenotypeUltrarapid:
		return "Ultrarapid Metabolizer"
	default:
		return "Unknown Metabolizer Status"
	}
}

// RiskLabel represents the categorical drug-response risk classification
// driving the clinical recommendation.
type RiskLabel string

const (
	RiskSafe         RiskLabel = "Safe"
	RiskAdjustDosage RiskLabel = "Adjust Dosage"
	RiskToxic        RiskLabel = "Toxic"
	RiskIneffective  RiskLabel = "Ineffective"
	RiskUnknown      RiskLabel = "Unknown"
)

// IsValid validates that the risk label is one of the closed enumeration.
func (r RiskLabel) IsValid() bool {
	switch r {
	case RiskSafe, RiskAdjustDosage, RiskToxic, RiskIneffective, RiskUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk label.
func (r RiskLabel) String() string {
	return string(r)
}

// RequiresClinicalAction determines if the risk label requires clinical follow-up.
func (r RiskLabel) RequiresClinicalAction() bool {
	switch r {
	case RiskSafe:
		return false
	default:
		// Conservative default: anything that is not affirmatively safe
		// warrants clinician attention.
		return true
	}
}

// LogFields returns structured logging fields for audit trails.
func (r RiskLabel) LogFields() map[string]any {
	return map[string]any{
		"risk_label":       string(r),
		"severity":         string(CanonicalSeverity(r)),
		"is_valid":         r.IsValid(),
		"requires_action":  r.RequiresClinicalAction(),
	}
}

// Severity represents the clinical severity of a risk classification.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid validates the severity value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityNone, SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// canonicalSeverity is the single source of truth for label/severity pairing.
// Severity is always a function of the risk label; per-drug tables never set it.
var canonicalSeverity = map[RiskLabel]Severity{
	RiskSafe:         SeverityNone,
	RiskAdjustDosage: SeverityModerate,
	RiskToxic:        SeverityCritical,
	RiskIneffective:  SeverityHigh,
	RiskUnknown:      SeverityLow,
}

// CanonicalSeverity returns the severity mandated for a risk label.
// Unrecognized labels map to low severity, matching the Unknown branch.
func CanonicalSeverity(r RiskLabel) Severity {
	if s, ok := canonicalSeverity[r]; ok {
		return s
	}
	return SeverityLow
}

// Diplotype is the normalized two-allele genotype string for one gene,
// e.g. "*2/*17". It is derived by the resolver, never directly observed.
type Diplotype string

const (
	// DiplotypeWildType denotes "no functionally relevant variant observed".
	DiplotypeWildType Diplotype = "*1/*1"
	// DiplotypeUnknown denotes a genotype that cannot be determined.
	DiplotypeUnknown Diplotype = "Unknown"
)

// String returns the string representation of the diplotype.
func (d Diplotype) String() string {
	return string(d)
}

// IsUnknown reports whether the diplotype carries no genotype information.
func (d Diplotype) IsUnknown() bool {
	return d == "" || d == DiplotypeUnknown
}

// Alleles splits the diplotype into its two star-allele labels.
// ok is false for the Unknown sentinel or any string that is not
// exactly two '/'-separated components.
func (d Diplotype) Alleles() (first, second string, ok bool) {
	if d.IsUnknown() {
		return "", "", false
	}
	parts := strings.Split(string(d), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
