package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgx-risk-server/internal/domain"
)

// stubExplainer records calls and returns a canned explanation or error.
type stubExplainer struct {
	explanation *domain.Explanation
	err         error
	calls       int
}

func (s *stubExplainer) Explain(ctx context.Context, req domain.ExplanationRequest) (*domain.Explanation, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.explanation, s.err
}

func newTestPipeline(explainer domain.ExplanationProvider) *PipelineService {
	logger := newTestLogger()
	return NewPipelineService(
		logger,
		NewExtractorService(logger),
		NewDiplotypeResolverService(logger),
		NewPhenotypeClassifierService(logger),
		NewRiskEngineService(logger),
		explainer,
	)
}

const pipelineTestFile = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tINFO\n" +
	"10\t94781859\trs4244285\tG\tA\tGENE=CYP2C19;STAR=*2\n" +
	"10\t94852738\trs12248560\tC\tT\tGENE=CYP2C19;STAR=*17\n" +
	"12\t21331549\trs4149056\tT\tC\tGENE=SLCO1B1;STAR=*5\n" +
	"12\t21331500\trs2306283\tA\tG\tGENE=SLCO1B1;STAR=*1B\n" +
	"1\t97915614\trs3918290\tC\tT\tGENE=DPYD;STAR=*2A\n" +
	"1\t97981343\trs1801159\tT\tC\tGENE=DPYD;STAR=*5\n"

func TestPipelineService_ValidateDrugs(t *testing.T) {
	pipeline := newTestPipeline(nil)

	t.Run("normalizes and deduplicates", func(t *testing.T) {
		drugs, err := pipeline.ValidateDrugs([]string{" clopidogrel ", "CODEINE", "clopidogrel", ""})
		require.NoError(t, err)
		assert.Equal(t, []string{"CLOPIDOGREL", "CODEINE"}, drugs)
	})

	t.Run("drops unsupported but keeps the rest", func(t *testing.T) {
		drugs, err := pipeline.ValidateDrugs([]string{"ASPIRIN", "WARFARIN"})
		require.NoError(t, err)
		assert.Equal(t, []string{"WARFARIN"}, drugs)
	})

	t.Run("errors when nothing is supported", func(t *testing.T) {
		_, err := pipeline.ValidateDrugs([]string{"ASPIRIN", "IBUPROFEN"})
		require.Error(t, err)

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "drugs", validationErr.Field)
	})
}

func TestPipelineService_AnalyzeContent(t *testing.T) {
	pipeline := newTestPipeline(nil)

	reports, err := pipeline.AnalyzeContent(context.Background(), pipelineTestFile, "PT-100",
		[]string{"CLOPIDOGREL", "SIMVASTATIN", "FLUOROURACIL", "CODEINE"})
	require.NoError(t, err)
	require.Len(t, reports, 4)

	byDrug := make(map[string]*domain.DrugReport, len(reports))
	for _, report := range reports {
		byDrug[report.Drug] = report
		assert.NotEmpty(t, report.ReportID)
		assert.Equal(t, "PT-100", report.PatientID)
		assert.True(t, report.ParseSuccess)
		assert.False(t, report.Timestamp.IsZero())
	}

	// CYP2C19 *2 + *17 -> IM -> clopidogrel Adjust Dosage 0.90/moderate.
	clopidogrel := byDrug["CLOPIDOGREL"]
	require.NotNil(t, clopidogrel)
	assert.Equal(t, domain.Diplotype("*2/*17"), clopidogrel.Profile.Diplotype)
	assert.Equal(t, domain.PhenotypeIntermediate, clopidogrel.Profile.Phenotype)
	assert.Equal(t, domain.RiskAdjustDosage, clopidogrel.Assessment.RiskLabel)
	assert.InDelta(t, 0.90, clopidogrel.Assessment.ConfidenceScore, 1e-9)
	assert.Equal(t, domain.SeverityModerate, clopidogrel.Assessment.Severity)
	assert.ElementsMatch(t, []string{"rs4244285", "rs12248560"}, clopidogrel.Profile.DetectedVariants)

	// SLCO1B1 *1B/*5 has no static table entry and scores 1.0 -> IM.
	simvastatin := byDrug["SIMVASTATIN"]
	require.NotNil(t, simvastatin)
	assert.Equal(t, domain.Diplotype("*1B/*5"), simvastatin.Profile.Diplotype)
	assert.Equal(t, domain.PhenotypeIntermediate, simvastatin.Profile.Phenotype)
	assert.Equal(t, domain.RiskAdjustDosage, simvastatin.Assessment.RiskLabel)

	// DPYD *2A (0) + *5 (0.5) scores 0.5 -> PM -> fluorouracil Toxic/critical.
	fluorouracil := byDrug["FLUOROURACIL"]
	require.NotNil(t, fluorouracil)
	assert.Equal(t, domain.Diplotype("*2A/*5"), fluorouracil.Profile.Diplotype)
	assert.Equal(t, domain.PhenotypePoor, fluorouracil.Profile.Phenotype)
	assert.Equal(t, domain.RiskToxic, fluorouracil.Assessment.RiskLabel)
	assert.Equal(t, domain.SeverityCritical, fluorouracil.Assessment.Severity)

	// No CYP2D6 variants in the file: codeine defaults to wild type, Safe.
	codeine := byDrug["CODEINE"]
	require.NotNil(t, codeine)
	assert.Equal(t, domain.DiplotypeWildType, codeine.Profile.Diplotype)
	assert.Equal(t, domain.PhenotypeNormal, codeine.Profile.Phenotype)
	assert.Equal(t, domain.RiskSafe, codeine.Assessment.RiskLabel)
	assert.Equal(t, domain.SeverityNone, codeine.Assessment.Severity)
	assert.Empty(t, codeine.Profile.DetectedVariants)
}

func TestPipelineService_AnalyzeContent_HeaderlessFile(t *testing.T) {
	pipeline := newTestPipeline(nil)

	reports, err := pipeline.AnalyzeContent(context.Background(),
		"10\t94781859\trs4244285\tG\tA\tGENE=CYP2C19;STAR=*2\n",
		"PT-101", []string{"CLOPIDOGREL"})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	// Without a header nothing parses: wild-type assumption, flagged.
	report := reports[0]
	assert.False(t, report.ParseSuccess)
	assert.Equal(t, domain.DiplotypeWildType, report.Profile.Diplotype)
	assert.Equal(t, domain.RiskSafe, report.Assessment.RiskLabel)
}

func TestPipelineService_AnalyzeContent_NoSupportedDrug(t *testing.T) {
	pipeline := newTestPipeline(nil)

	_, err := pipeline.AnalyzeContent(context.Background(), pipelineTestFile, "PT-102", []string{"ASPIRIN"})
	require.Error(t, err)

	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestPipelineService_ExplanationAttached(t *testing.T) {
	explainer := &stubExplainer{explanation: &domain.Explanation{
		Summary:   "summary text",
		Mechanism: "mechanism text",
		Source:    "service",
	}}
	pipeline := newTestPipeline(explainer)

	reports, err := pipeline.AnalyzeContent(context.Background(), pipelineTestFile, "PT-103", []string{"CLOPIDOGREL"})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.Equal(t, 1, explainer.calls)
	assert.Equal(t, "summary text", reports[0].Explanation.Summary)
	assert.Equal(t, "service", reports[0].Explanation.Source)
}

func TestPipelineService_ExplanationFailureDoesNotAlterAssessment(t *testing.T) {
	explainer := &stubExplainer{err: errors.New("upstream unavailable")}
	pipeline := newTestPipeline(explainer)

	reports, err := pipeline.AnalyzeContent(context.Background(), pipelineTestFile, "PT-104", []string{"FLUOROURACIL"})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, domain.RiskToxic, report.Assessment.RiskLabel)
	assert.Equal(t, domain.SeverityCritical, report.Assessment.Severity)
	assert.Empty(t, report.Explanation.Summary)
}

func TestPipelineService_ExplanationCancellation(t *testing.T) {
	explainer := &stubExplainer{explanation: &domain.Explanation{Summary: "never used"}}
	pipeline := newTestPipeline(explainer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := pipeline.AnalyzeContent(ctx, pipelineTestFile, "PT-105", []string{"CODEINE"})
	require.NoError(t, err, "cancellation affects only the explanation stage")
	require.Len(t, reports, 1)

	assert.Equal(t, domain.RiskSafe, reports[0].Assessment.RiskLabel)
	assert.Empty(t, reports[0].Explanation.Summary)
}

func TestPipelineService_NilExplainer(t *testing.T) {
	pipeline := newTestPipeline(nil)

	reports, err := pipeline.AnalyzeContent(context.Background(), pipelineTestFile, "PT-106", []string{"CODEINE"})
	require.NoError(t, err)
	assert.Empty(t, reports[0].Explanation.Summary)
}

func TestPipelineService_Deterministic(t *testing.T) {
	pipeline := newTestPipeline(nil)

	first, err := pipeline.AnalyzeContent(context.Background(), pipelineTestFile, "PT-107", []string{"CLOPIDOGREL"})
	require.NoError(t, err)
	second, err := pipeline.AnalyzeContent(context.Background(), pipelineTestFile, "PT-107", []string{"CLOPIDOGREL"})
	require.NoError(t, err)

	// Identical input yields identical clinical content; only report
	// identity and timestamps differ.
	assert.Equal(t, first[0].Assessment, second[0].Assessment)
	assert.Equal(t, first[0].Profile, second[0].Profile)
	assert.Equal(t, first[0].Recommendation, second[0].Recommendation)
	assert.NotEqual(t, first[0].ReportID, second[0].ReportID)
}
