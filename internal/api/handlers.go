package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/feedback"
)

const version = "1.0.0"

// analyzeResponse is the envelope returned by POST /api/v1/analyze.
type analyzeResponse struct {
	PatientID    string               `json:"patient_id"`
	ParseSuccess bool                 `json:"parse_success"`
	Reports      []*domain.DrugReport `json:"reports"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version,
	})
}

// handleAnalyze accepts a multipart variant file upload plus a comma-separated
// "drugs" form value and returns one risk report per supported drug.
func (s *Server) handleAnalyze(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"missing multipart 'file' field", err.Error())
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		// MaxBytesReader surfaces here when the upload exceeds the cap.
		s.respondError(c, http.StatusRequestEntityTooLarge, domain.ErrCodeInvalidFile,
			"uploaded file could not be read", err.Error())
		return
	}

	if err := s.extractor.ValidateContent(string(content)); err != nil {
		// Empty, binary and header-less files are all structural rejects at
		// the boundary; the pipeline itself would degrade a header-less file
		// to wild-type reports, but callers should notice bad files.
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidFile,
			"variant file failed validation", err.Error())
		return
	}

	drugs := splitDrugs(c.PostForm("drugs"))
	if len(drugs) == 0 {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"missing 'drugs' form value", "expected a comma-separated drug list")
		return
	}

	patientID := strings.TrimSpace(c.PostForm("patient_id"))
	if patientID == "" {
		patientID = "anonymous"
	}

	reports, err := s.pipeline.AnalyzeContent(c.Request.Context(), string(content), patientID, drugs)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeUnsupportedDrug,
				validationErr.Message, "")
			return
		}
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer,
			"analysis failed", err.Error())
		return
	}

	if s.reports != nil {
		for _, report := range reports {
			if err := s.reports.Create(c.Request.Context(), report); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"report_id": report.ReportID,
					"drug":      report.Drug,
				}).Error("Failed to persist drug report")
			}
		}
	}

	parseSuccess := len(reports) > 0 && reports[0].ParseSuccess
	c.JSON(http.StatusOK, analyzeResponse{
		PatientID:    patientID,
		ParseSuccess: parseSuccess,
		Reports:      reports,
	})
}

// handleGenes returns the pharmacogene allow-list.
func (s *Server) handleGenes(c *gin.Context) {
	genes := make([]string, 0)
	seen := make(map[string]bool)
	for _, drug := range s.riskEngine.SupportedDrugs() {
		if gene, ok := s.riskEngine.PrimaryGene(drug); ok && !seen[gene] {
			seen[gene] = true
			genes = append(genes, gene)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"genes": genes,
		"count": len(genes),
	})
}

// handleDrugs returns the supported drug list with primary genes.
func (s *Server) handleDrugs(c *gin.Context) {
	type drugInfo struct {
		Drug string `json:"drug"`
		Gene string `json:"gene"`
	}
	drugs := make([]drugInfo, 0)
	for _, drug := range s.riskEngine.SupportedDrugs() {
		gene, _ := s.riskEngine.PrimaryGene(drug)
		drugs = append(drugs, drugInfo{Drug: drug, Gene: gene})
	}
	c.JSON(http.StatusOK, gin.H{
		"drugs": drugs,
		"count": len(drugs),
	})
}

// handleGetReport retrieves a persisted drug report by ID.
func (s *Server) handleGetReport(c *gin.Context) {
	if s.reports == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabase,
			"report persistence is not enabled", "")
		return
	}

	reportID := c.Param("id")
	report, err := s.reports.GetByID(c.Request.Context(), reportID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabase,
			"failed to load report", err.Error())
		return
	}
	if report == nil {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeInvalidInput,
			"report not found", reportID)
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleListPatientReports lists persisted reports for a patient.
func (s *Server) handleListPatientReports(c *gin.Context) {
	if s.reports == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabase,
			"report persistence is not enabled", "")
		return
	}

	limit, offset := paginationParams(c)
	reports, err := s.reports.ListByPatient(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabase,
			"failed to list reports", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": c.Param("id"),
		"reports":    reports,
		"count":      len(reports),
	})
}

// handleCreateFeedback records a clinician's agreement or correction.
func (s *Server) handleCreateFeedback(c *gin.Context) {
	if s.feedbackStore == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabase,
			"feedback storage is not enabled", "")
		return
	}

	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"invalid feedback payload", err.Error())
		return
	}

	if fb.Drug == "" || fb.Gene == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"feedback requires drug and gene", "")
		return
	}
	fb.Drug = strings.ToUpper(strings.TrimSpace(fb.Drug))

	if err := s.feedbackStore.Save(c.Request.Context(), &fb); err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabase,
			"failed to save feedback", err.Error())
		return
	}

	c.JSON(http.StatusCreated, fb)
}

// handleListFeedback lists recorded feedback with pagination.
func (s *Server) handleListFeedback(c *gin.Context) {
	if s.feedbackStore == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeDatabase,
			"feedback storage is not enabled", "")
		return
	}

	limit, offset := paginationParams(c)
	entries, err := s.feedbackStore.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabase,
			"failed to list feedback", err.Error())
		return
	}

	total, err := s.feedbackStore.Count(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabase,
			"failed to count feedback", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"count":    len(entries),
		"total":    total,
	})
}

// respondError writes the standard error envelope with the request's
// correlation ID attached.
func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	requestID := c.GetString("correlation_id")
	apiErr := domain.NewAPIError(code, message, details, requestID)

	s.logger.WithFields(logrus.Fields{
		"status":         status,
		"code":           code,
		"correlation_id": requestID,
		"path":           c.Request.URL.Path,
	}).Warn(message)

	c.AbortWithStatusJSON(status, gin.H{"error": apiErr})
}

// splitDrugs parses the comma-separated drugs form value.
func splitDrugs(raw string) []string {
	parts := strings.Split(raw, ",")
	drugs := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			drugs = append(drugs, name)
		}
	}
	return drugs
}

// paginationParams reads limit/offset query values with sane bounds.
func paginationParams(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
