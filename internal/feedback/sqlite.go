package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite feedback store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFeedback scans a row into a Feedback struct.
func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}

	err := s.Scan(
		&fb.ID, &fb.ReportID, &fb.PatientID, &fb.Drug, &fb.Gene,
		&fb.Diplotype, &fb.Phenotype, &fb.SuggestedRisk, &fb.ClinicianRisk,
		&fb.ClinicianAgreed, &fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return fb, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT DEFAULT '',
		patient_id TEXT DEFAULT '',
		drug TEXT NOT NULL,
		gene TEXT NOT NULL,
		diplotype TEXT DEFAULT '',
		phenotype TEXT DEFAULT '',
		suggested_risk TEXT NOT NULL,
		clinician_risk TEXT NOT NULL,
		clinician_agreed INTEGER NOT NULL DEFAULT 0,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(drug, gene, diplotype)
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_drug ON feedback(drug);
	CREATE INDEX IF NOT EXISTS idx_feedback_gene ON feedback(gene);
	CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates clinician feedback for a recommendation.
func (s *SQLiteStore) Save(ctx context.Context, feedback *Feedback) error {
	now := time.Now()

	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM feedback WHERE drug = ? AND gene = ? AND diplotype = ?",
		feedback.Drug, feedback.Gene, feedback.Diplotype,
	).Scan(&existingID)

	if err == nil {
		feedback.ID = existingID
		feedback.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE feedback SET
				report_id = ?,
				patient_id = ?,
				phenotype = ?,
				suggested_risk = ?,
				clinician_risk = ?,
				clinician_agreed = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			feedback.ReportID,
			feedback.PatientID,
			feedback.Phenotype,
			feedback.SuggestedRisk,
			feedback.ClinicianRisk,
			feedback.ClinicianAgreed,
			feedback.Notes,
			now,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	feedback.CreatedAt = now
	feedback.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (
			report_id, patient_id, drug, gene, diplotype, phenotype,
			suggested_risk, clinician_risk, clinician_agreed,
			notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		feedback.ReportID,
		feedback.PatientID,
		feedback.Drug,
		feedback.Gene,
		feedback.Diplotype,
		feedback.Phenotype,
		feedback.SuggestedRisk,
		feedback.ClinicianRisk,
		feedback.ClinicianAgreed,
		feedback.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	feedback.ID = id

	return nil
}

// Get retrieves the most recent feedback for a drug/gene/diplotype.
func (s *SQLiteStore) Get(ctx context.Context, drug, gene, diplotype string) (*Feedback, error) {
	query := `
		SELECT id, report_id, patient_id, drug, gene, diplotype, phenotype,
			suggested_risk, clinician_risk, clinician_agreed,
			notes, created_at, updated_at
		FROM feedback
		WHERE drug = ? AND gene = ?`
	args := []interface{}{drug, gene}
	if diplotype != "" {
		query += " AND diplotype = ?"
		args = append(args, diplotype)
	}
	query += " ORDER BY updated_at DESC LIMIT 1"

	row := s.db.QueryRowContext(ctx, query, args...)

	fb, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return fb, nil
}

// List returns all feedback entries with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, patient_id, drug, gene, diplotype, phenotype,
			suggested_risk, clinician_risk, clinician_agreed,
			notes, created_at, updated_at
		FROM feedback
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

// Count returns the total number of feedback entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&count)
	return count, err
}

// Delete removes a feedback entry by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM feedback WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all feedback to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	export := &FeedbackExport{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports feedback from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		existing, err := s.Get(ctx, fb.Drug, fb.Gene, fb.Diplotype)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
