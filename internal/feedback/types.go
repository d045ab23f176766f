// Package feedback provides clinician feedback storage for drug risk
// recommendations. It stores agreements and corrections so recommendation
// tables can be audited against real clinical decisions.
package feedback

import (
	"context"
	"io"
	"time"
)

// Feedback represents a clinician's feedback on a drug risk recommendation.
type Feedback struct {
	ID              int64     `json:"id,omitempty"`
	ReportID        string    `json:"report_id,omitempty"` // Report the feedback refers to
	PatientID       string    `json:"patient_id"`
	Drug            string    `json:"drug"`
	Gene            string    `json:"gene"`
	Diplotype       string    `json:"diplotype"`
	Phenotype       string    `json:"phenotype"`
	SuggestedRisk   string    `json:"suggested_risk"`  // System's risk label
	ClinicianRisk   string    `json:"clinician_risk"`  // Clinician's decision
	ClinicianAgreed bool      `json:"clinician_agreed"` // Did the clinician agree?
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates clinician feedback for a recommendation.
	// If feedback for the same drug+gene+diplotype exists, it is updated.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves the most recent feedback for a drug/gene/diplotype
	// combination. If diplotype is empty, returns the first match on
	// drug and gene.
	Get(ctx context.Context, drug, gene, diplotype string) (*Feedback, error)

	// List returns all feedback entries with pagination.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}
