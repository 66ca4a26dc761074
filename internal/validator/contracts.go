package validator

import (
	"github.com/edilcheck/compliance-pipeline/internal/entity"
	"github.com/edilcheck/compliance-pipeline/internal/rulebook"
)

// Metadata carries non-extracted facts about the upload that help the
// model disambiguate (filename, declared company).
type Metadata struct {
	Filename    string
	CompanyName string
	UploadedBy  string
}

// Input is everything the validator combines into one verdict.
type Input struct {
	FullText string
	DocType  string // classifier/declared type; "" lets the model classify
	Chunks   []entity.RetrievedChunk
	Rules    *rulebook.RuleSet // nil for unknown types (degraded, non-fatal)
	// RequiredPII lists fields whose checks need PII; redaction is skipped
	// only when this is non-empty.
	RequiredPII []string
	Metadata    Metadata
}
