package entity

import (
	"time"

	"github.com/google/uuid"
)

// PipelineRun is the audit record for one processing attempt of one upload.
// Terminal processing/error states live here; verdict versions are only
// written by successful runs.
type PipelineRun struct {
	ID           uuid.UUID
	TenantID     string
	CompanyID    string
	ObjectName   string
	Generation   string
	ContentHash  string
	State        string
	ErrorMessage string
	DocumentID   *uuid.UUID
	Version      int
	OCRMode      string
	StartedAt    time.Time
	FinishedAt   *time.Time
}
