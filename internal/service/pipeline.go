package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
)

// PipelineService runs the complete variant-to-risk workflow: one extraction
// per request, then resolve -> classify -> assess -> recommend per requested
// drug. All stages are pure functions over immutable input; the only
// fallible collaborator is the explanation provider, whose failure never
// alters an already-computed assessment.
type PipelineService struct {
	logger     *logrus.Logger
	extractor  domain.VariantExtractor
	resolver   domain.DiplotypeResolver
	classifier domain.PhenotypeClassifier
	riskEngine domain.RiskAssessor
	explainer  domain.ExplanationProvider
}

// NewPipelineService creates a new pipeline service. explainer may be nil,
// in which case reports carry an empty explanation.
func NewPipelineService(
	logger *logrus.Logger,
	extractor domain.VariantExtractor,
	resolver domain.DiplotypeResolver,
	classifier domain.PhenotypeClassifier,
	riskEngine domain.RiskAssessor,
	explainer domain.ExplanationProvider,
) *PipelineService {
	return &PipelineService{
		logger:     logger,
		extractor:  extractor,
		resolver:   resolver,
		classifier: classifier,
		riskEngine: riskEngine,
		explainer:  explainer,
	}
}

// ValidateDrugs normalizes a requested drug list against the supported set.
// It returns the supported subset (uppercased, deduplicated, request order)
// and errors only when no requested drug is supported - that is a client
// error to be returned before the pipeline runs.
func (p *PipelineService) ValidateDrugs(drugs []string) ([]string, error) {
	seen := make(map[string]bool)
	supported := make([]string, 0, len(drugs))
	for _, drug := range drugs {
		name := normalizeDrug(drug)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if p.riskEngine.IsSupported(name) {
			supported = append(supported, name)
		}
	}
	if len(supported) == 0 {
		return nil, domain.NewValidationError("drugs",
			fmt.Sprintf("no supported drug in request; supported drugs: %s",
				strings.Join(p.riskEngine.SupportedDrugs(), ", ")),
			drugs)
	}
	return supported, nil
}

// AnalyzeContent runs the pipeline for one uploaded file and a set of
// requested drugs, producing one report per supported drug. A file without
// a header line still produces reports (wild-type assumption per gene) with
// ParseSuccess=false.
func (p *PipelineService) AnalyzeContent(ctx context.Context, content, patientID string, drugs []string) ([]*domain.DrugReport, error) {
	validDrugs, err := p.ValidateDrugs(drugs)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	extraction := p.extractor.Extract(content)

	p.logger.WithFields(logrus.Fields{
		"patient_id":     patientID,
		"drugs":          validDrugs,
		"parse_success":  extraction.Success,
		"total_variants": extraction.TotalVariants,
	}).Info("Starting drug risk analysis")

	reports := make([]*domain.DrugReport, 0, len(validDrugs))
	for _, drug := range validDrugs {
		reports = append(reports, p.analyzeDrug(ctx, extraction, drug, patientID))
	}

	p.logger.WithFields(logrus.Fields{
		"patient_id":      patientID,
		"reports":         len(reports),
		"processing_time": time.Since(start),
	}).Info("Drug risk analysis completed")

	return reports, nil
}

// analyzeDrug runs the per-drug stages over an already-extracted variant set.
func (p *PipelineService) analyzeDrug(ctx context.Context, extraction *domain.ExtractionResult, drug, patientID string) *domain.DrugReport {
	gene, _ := p.riskEngine.PrimaryGene(drug)
	variants := extraction.VariantsFor(gene)

	diplotype := p.resolver.Resolve(variants)
	phenotype := p.classifier.Classify(gene, diplotype)
	assessment := p.riskEngine.Assess(drug, phenotype, extraction.TotalVariants > 0)
	recommendation := p.riskEngine.Recommend(drug, gene, phenotype, assessment.RiskLabel)

	p.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"drug":       drug,
		"gene":       gene,
		"diplotype":  diplotype.String(),
		"phenotype":  phenotype.String(),
		"risk_label": assessment.RiskLabel.String(),
		"severity":   assessment.Severity.String(),
	}).Info("Drug risk classified")

	report := &domain.DrugReport{
		ReportID:  uuid.New().String(),
		PatientID: patientID,
		Drug:      drug,
		Timestamp: time.Now().UTC(),
		Assessment: assessment,
		Profile: domain.GeneticProfile{
			Gene:             gene,
			Diplotype:        diplotype,
			Phenotype:        phenotype,
			DetectedVariants: extraction.RSIDsFor(gene),
		},
		Recommendation: recommendation,
		ParseSuccess:   extraction.Success,
	}

	report.Explanation = p.explain(ctx, report, variants)

	return report
}

// explain asks the explanation provider for narrative text. The provider is
// read-only over the decided outputs; its failure, timeout or cancellation
// leaves the report's assessment untouched and falls back to whatever the
// provider substitutes (the resilient provider already degrades to static
// templates, so an error here means even the fallback path was unavailable).
func (p *PipelineService) explain(ctx context.Context, report *domain.DrugReport, variants []domain.Variant) domain.Explanation {
	if p.explainer == nil {
		return domain.Explanation{}
	}

	explanation, err := p.explainer.Explain(ctx, domain.ExplanationRequest{
		Drug:      report.Drug,
		Gene:      report.Profile.Gene,
		Diplotype: report.Profile.Diplotype,
		Phenotype: report.Profile.Phenotype,
		RiskLabel: report.Assessment.RiskLabel,
		Severity:  report.Assessment.Severity,
		Variants:  variants,
	})
	if err != nil || explanation == nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"drug": report.Drug,
			"gene": report.Profile.Gene,
		}).Warn("Explanation generation failed; report carries no narrative")
		return domain.Explanation{}
	}
	return *explanation
}
