package service

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
)

// RiskEngineService maps (drug, phenotype) to a risk assessment via per-drug
// static tables. It has no failure mode: every unmapped case degrades to the
// Unknown branch rather than raising.
type RiskEngineService struct {
	logger *logrus.Logger
}

// NewRiskEngineService creates a new risk engine.
func NewRiskEngineService(logger *logrus.Logger) *RiskEngineService {
	return &RiskEngineService{logger: logger}
}

// Assess returns the risk for one (drug, phenotype) pair.
//
// Drug names are case-insensitive. An unsupported drug yields
// {Unknown, 0.0, low}; a missing or Unknown phenotype, or a phenotype with
// no entry in the drug's table, yields {Unknown, 0.50, low} - the engine
// never extrapolates. Severity is always recomputed from the canonical
// label->severity map as the final alignment step, so label/severity
// consistency holds structurally regardless of table contents.
//
// variantDetected is reserved for future heuristics and does not branch.
func (s *RiskEngineService) Assess(drug string, phenotype domain.Phenotype, variantDetected bool) domain.RiskAssessment {
	_ = variantDetected

	table, ok := drugRiskTables[normalizeDrug(drug)]
	if !ok {
		return domain.RiskAssessment{
			RiskLabel:       domain.RiskUnknown,
			ConfidenceScore: 0.0,
			Severity:        domain.CanonicalSeverity(domain.RiskUnknown),
		}
	}

	if !phenotype.IsKnown() {
		return unknownAssessment()
	}

	entry, ok := table[phenotype]
	if !ok {
		// Phenotype not clinically meaningful for this drug's gene.
		return unknownAssessment()
	}

	return domain.RiskAssessment{
		RiskLabel:       entry.Label,
		ConfidenceScore: entry.Confidence,
		Severity:        domain.CanonicalSeverity(entry.Label),
	}
}

// unknownAssessment is the degraded verdict for a supported drug whose
// phenotype cannot be mapped.
func unknownAssessment() domain.RiskAssessment {
	return domain.RiskAssessment{
		RiskLabel:       domain.RiskUnknown,
		ConfidenceScore: 0.50,
		Severity:        domain.CanonicalSeverity(domain.RiskUnknown),
	}
}

// IsSupported reports whether the drug has a risk table.
func (s *RiskEngineService) IsSupported(drug string) bool {
	_, ok := drugRiskTables[normalizeDrug(drug)]
	return ok
}

// PrimaryGene returns the gene whose genotype drives the drug's risk.
func (s *RiskEngineService) PrimaryGene(drug string) (string, bool) {
	gene, ok := drugPrimaryGene[normalizeDrug(drug)]
	return gene, ok
}

// SupportedDrugs returns the supported drug names, sorted.
func (s *RiskEngineService) SupportedDrugs() []string {
	drugs := make([]string, 0, len(drugRiskTables))
	for drug := range drugRiskTables {
		drugs = append(drugs, drug)
	}
	sort.Strings(drugs)
	return drugs
}

func normalizeDrug(drug string) string {
	return strings.ToUpper(strings.TrimSpace(drug))
}
