// Package repository handles drug report persistence.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
)

// ReportRepository stores completed drug reports in PostgreSQL. The pipeline
// outputs (assessment, profile, recommendation, explanation) are stored as
// JSONB documents; the columns used for lookup are scalar.
type ReportRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *pgxpool.Pool, logger *logrus.Logger) *ReportRepository {
	return &ReportRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a completed drug report into the database
func (r *ReportRepository) Create(ctx context.Context, report *domain.DrugReport) error {
	assessment, err := json.Marshal(report.Assessment)
	if err != nil {
		return fmt.Errorf("marshaling assessment: %w", err)
	}
	profile, err := json.Marshal(report.Profile)
	if err != nil {
		return fmt.Errorf("marshaling genetic profile: %w", err)
	}
	recommendation, err := json.Marshal(report.Recommendation)
	if err != nil {
		return fmt.Errorf("marshaling recommendation: %w", err)
	}
	explanation, err := json.Marshal(report.Explanation)
	if err != nil {
		return fmt.Errorf("marshaling explanation: %w", err)
	}

	query := `
		INSERT INTO drug_reports (
			report_id, patient_id, drug, created_at, parse_success,
			assessment, genetic_profile, recommendation, explanation
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err = r.db.Exec(ctx, query,
		report.ReportID,
		report.PatientID,
		report.Drug,
		report.Timestamp,
		report.ParseSuccess,
		assessment,
		profile,
		recommendation,
		explanation,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"report_id": report.ReportID,
			"drug":      report.Drug,
			"error":     err,
		}).Error("Failed to create drug report")
		return fmt.Errorf("creating drug report: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"report_id":  report.ReportID,
		"patient_id": report.PatientID,
		"drug":       report.Drug,
	}).Info("Drug report created successfully")

	return nil
}

// GetByID retrieves a drug report by its report ID. Returns (nil, nil) when
// no report exists for the ID.
func (r *ReportRepository) GetByID(ctx context.Context, reportID string) (*domain.DrugReport, error) {
	query := `
		SELECT report_id, patient_id, drug, created_at, parse_success,
			   assessment, genetic_profile, recommendation, explanation
		FROM drug_reports
		WHERE report_id = $1`

	report, err := r.scanReport(r.db.QueryRow(ctx, query, reportID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.log.WithFields(logrus.Fields{
			"report_id": reportID,
			"error":     err,
		}).Error("Failed to get drug report by ID")
		return nil, fmt.Errorf("getting drug report by ID: %w", err)
	}

	return report, nil
}

// ListByPatient retrieves a patient's drug reports with pagination, newest
// first.
func (r *ReportRepository) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.DrugReport, error) {
	query := `
		SELECT report_id, patient_id, drug, created_at, parse_success,
			   assessment, genetic_profile, recommendation, explanation
		FROM drug_reports
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, patientID, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to list drug reports")
		return nil, fmt.Errorf("listing drug reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.DrugReport
	for rows.Next() {
		report, err := r.scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning drug report row: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating drug report rows: %w", err)
	}

	return reports, nil
}

// Close releases the underlying connection pool.
func (r *ReportRepository) Close() {
	r.db.Close()
}

// scanReport reads one row into a DrugReport, decoding the JSONB columns.
func (r *ReportRepository) scanReport(row pgx.Row) (*domain.DrugReport, error) {
	var report domain.DrugReport
	var assessment, profile, recommendation, explanation []byte

	err := row.Scan(
		&report.ReportID,
		&report.PatientID,
		&report.Drug,
		&report.Timestamp,
		&report.ParseSuccess,
		&assessment,
		&profile,
		&recommendation,
		&explanation,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(assessment, &report.Assessment); err != nil {
		return nil, fmt.Errorf("unmarshaling assessment: %w", err)
	}
	if err := json.Unmarshal(profile, &report.Profile); err != nil {
		return nil, fmt.Errorf("unmarshaling genetic profile: %w", err)
	}
	if err := json.Unmarshal(recommendation, &report.Recommendation); err != nil {
		return nil, fmt.Errorf("unmarshaling recommendation: %w", err)
	}
	if err := json.Unmarshal(explanation, &report.Explanation); err != nil {
		return nil, fmt.Errorf("unmarshaling explanation: %w", err)
	}

	return &report, nil
}
