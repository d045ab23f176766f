package domain

import (
	"errors"
	"fmt"
	"time"
)

// Structural input errors. These are the only conditions the pipeline reports
// as errors; every other ambiguity degrades to an Unknown sentinel value.
var (
	ErrEmptyContent  = errors.New("variant file content is empty")
	ErrBinaryContent = errors.New("variant file content is not text")
	ErrMissingHeader = errors.New("no #CHROM header line found")
)

// Error codes for API failure responses
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidFile     = "INVALID_FILE"
	ErrCodeUnsupportedDrug = "UNSUPPORTED_DRUG"
	ErrCodeDatabase        = "DATABASE_ERROR"
	ErrCodeExternalAPI     = "EXTERNAL_API_ERROR"
	ErrCodeInternalServer  = "INTERNAL_SERVER_ERROR"
)

// APIError represents a standardized error response at the HTTP boundary.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
