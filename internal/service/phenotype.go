package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
)

// PhenotypeClassifierService maps (gene, diplotype) to a metabolizer
// phenotype. Lookups are strictly gene-scoped: the same diplotype string is
// ambiguous across genes, so there is no cross-gene fallback of any kind.
type PhenotypeClassifierService struct {
	logger *logrus.Logger
}

// NewPhenotypeClassifierService creates a new phenotype classifier.
func NewPhenotypeClassifierService(logger *logrus.Logger) *PhenotypeClassifierService {
	return &PhenotypeClassifierService{logger: logger}
}

// Classify resolves the phenotype for a gene's diplotype.
//
// Resolution order: exact table lookup on the rank-normalized string, then
// the reversed allele order (defends against upstream ordering drift), then
// the activity-score model for SLCO1B1 and DPYD only. Anything still
// unresolved is Unknown; the classifier never guesses.
func (s *PhenotypeClassifierService) Classify(gene string, diplotype domain.Diplotype) domain.Phenotype {
	if gene == "" || diplotype.IsUnknown() {
		return domain.PhenotypeUnknown
	}
	gene = strings.ToUpper(strings.TrimSpace(gene))

	normalized := NormalizeDiplotype(diplotype)

	if table, ok := diplotypePhenotypes[gene]; ok {
		if phenotype, ok := table[normalized]; ok {
			return phenotype
		}
		if first, second, ok := normalized.Alleles(); ok {
			reversed := domain.Diplotype(second + "/" + first)
			if phenotype, ok := table[reversed]; ok {
				return phenotype
			}
		}
	}

	if activityScoreGenes[gene] {
		if phenotype, ok := s.classifyByActivityScore(gene, normalized); ok {
			return phenotype
		}
	}

	s.logger.WithFields(logrus.Fields{
		"gene":      gene,
		"diplotype": normalized.String(),
	}).Debug("No phenotype mapping for diplotype")

	return domain.PhenotypeUnknown
}

// classifyByActivityScore applies the additive activity-score model for the
// genes whose allele combinatorics are not exhaustively tabulated. Both
// alleles must have a known function score; otherwise ok is false and the
// caller falls through to Unknown rather than assuming a default score.
func (s *PhenotypeClassifierService) classifyByActivityScore(gene string, diplotype domain.Diplotype) (domain.Phenotype, bool) {
	first, second, ok := diplotype.Alleles()
	if !ok {
		return domain.PhenotypeUnknown, false
	}

	scores := alleleFunctionScores[gene]
	firstScore, ok := scores[first]
	if !ok {
		return domain.PhenotypeUnknown, false
	}
	secondScore, ok := scores[second]
	if !ok {
		return domain.PhenotypeUnknown, false
	}

	sum := firstScore + secondScore

	s.logger.WithFields(logrus.Fields{
		"gene":           gene,
		"diplotype":      diplotype.String(),
		"activity_score": sum,
	}).Debug("Classified phenotype by activity score")

	switch {
	case sum >= activityScoreNormal:
		return domain.PhenotypeNormal, true
	case sum >= activityScoreIntermediate:
		return domain.PhenotypeIntermediate, true
	default:
		return domain.PhenotypePoor, true
	}
}
