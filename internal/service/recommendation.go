package service

import (
	"fmt"
	"strings"

	"github.com/pgx-risk-server/internal/domain"
)

// Recommend builds the deterministic clinical recommendation for an
// already-computed risk label. The action string is keyed by risk label; the
// rationale prefers a drug-specific template and otherwise falls back to the
// generic sentence pattern for the label.
func (s *RiskEngineService) Recommend(drug, gene string, phenotype domain.Phenotype, label domain.RiskLabel) domain.ClinicalRecommendation {
	displayDrug := strings.ToLower(strings.TrimSpace(drug))

	action, ok := actionTemplates[label]
	if !ok {
		action = actionTemplates[domain.RiskUnknown]
	}

	return domain.ClinicalRecommendation{
		Action:    fmt.Sprintf(action, displayDrug),
		Rationale: s.rationaleFor(displayDrug, gene, phenotype, label),
	}
}

// rationaleFor selects the drug-specific rationale when one exists and
// otherwise renders the generic pattern parameterized by gene, phenotype,
// drug and risk label.
func (s *RiskEngineService) rationaleFor(drug, gene string, phenotype domain.Phenotype, label domain.RiskLabel) string {
	if templates, ok := drugRationales[normalizeDrug(drug)]; ok {
		if rationale, ok := templates[label]; ok {
			return rationale
		}
	}

	switch label {
	case domain.RiskSafe:
		return fmt.Sprintf("The patient's %s genotype predicts a %s phenotype, which is associated with normal response to %s.",
			gene, phenotype.Description(), drug)
	case domain.RiskAdjustDosage:
		return fmt.Sprintf("The patient's %s genotype predicts a %s phenotype; altered metabolism of %s warrants dose adjustment or closer monitoring.",
			gene, phenotype.Description(), drug)
	case domain.RiskToxic:
		return fmt.Sprintf("The patient's %s genotype predicts a %s phenotype, placing them at elevated risk of %s toxicity at standard doses.",
			gene, phenotype.Description(), drug)
	case domain.RiskIneffective:
		return fmt.Sprintf("The patient's %s genotype predicts a %s phenotype; %s is unlikely to achieve therapeutic effect.",
			gene, phenotype.Description(), drug)
	default:
		return fmt.Sprintf("The pharmacogenomic effect of the patient's %s genotype on %s could not be determined from available evidence.",
			gene, drug)
	}
}
