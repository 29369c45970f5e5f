package models

import (
	"time"

	"github.com/google/uuid"
)

// Export status values.
const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// Export is a CSV export of a survey's answers.
type Export struct {
	ID           uuid.UUID `json:"id"`
	SurveyID     uuid.UUID `json:"survey_id"`
	RequestedBy  uuid.UUID `json:"requested_by"`
	Status       string    `json:"status"`
	S3Key        string    `json:"s3_key,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
