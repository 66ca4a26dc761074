package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Extracted holds the structured fields pulled out of a document.
// Dates are ISO (YYYY-MM-DD) or empty when absent.
type Extracted struct {
	IssuedAt   string `json:"issuedAt,omitempty"`
	ExpiresAt  string `json:"expiresAt,omitempty"`
	HolderName string `json:"holderName,omitempty"`
	TaxCode    string `json:"taxCode,omitempty"`
	VATNumber  string `json:"vatNumber,omitempty"`
}

// Check is one rulebook check evaluated against the document.
type Check struct {
	ID            string   `json:"id"`
	Description   string   `json:"description,omitempty"`
	Passed        bool     `json:"passed"`
	Value         string   `json:"value,omitempty"`
	Confidence    float64  `json:"confidence,omitempty"`
	CitationIDs   []string `json:"citationIds,omitempty"`
	NormativeRefs []string `json:"normativeRefs,omitempty"`
}

// Overall is the aggregate verdict. nonPertinente == true implies
// isValid == true (compliant by exemption).
type Overall struct {
	Status        string   `json:"status"` // green | yellow | red | na
	IsValid       bool     `json:"isValid"`
	NonPertinente bool     `json:"nonPertinente"`
	Confidence    float64  `json:"confidence"`
	Reasons       []string `json:"reasons"`
}

// Citation references a retrieved regulatory passage that substantiated a
// check. Only passages actually supplied to the validator may appear here.
type Citation struct {
	ID       string `json:"id"`
	SourceID string `json:"sourceId"`
	Title    string `json:"title,omitempty"`
	Page     int    `json:"page,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

// RAGAudit records retrieval stats for the run.
type RAGAudit struct {
	TopK int `json:"topK"`
	Hits int `json:"hits"`
}

// Audit records how the verdict was produced.
type Audit struct {
	Model        string   `json:"model"`
	LatencyMs    int64    `json:"latencyMs"`
	FallbackUsed bool     `json:"fallbackUsed"`
	RAG          RAGAudit `json:"rag"`
}

// Doc carries the classified/declared document type.
type Doc struct {
	DocType string `json:"docType"`
}

// Verdict is the full validation result persisted on a document version.
type Verdict struct {
	Doc       Doc        `json:"doc"`
	Extracted Extracted  `json:"extracted"`
	Checks    []Check    `json:"checks"`
	Overall   Overall    `json:"overall"`
	Citations []Citation `json:"citations"`
	Audit     Audit      `json:"audit"`
}

// DocumentRecord is one immutable version of a logical compliance document.
// Exactly one record per logical key is current at any time.
type DocumentRecord struct {
	ID              uuid.UUID
	TenantID        string
	CompanyID       string
	DocType         string
	LogicalKey      string
	Version         int
	IsCurrent       bool
	ContentHash     string // hex sha256 of the source bytes
	Verdict         Verdict
	Supersedes      *uuid.UUID
	SupersededBy    *uuid.UUID
	LastProcessedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LogicalKey builds the stable identity grouping all versions of the same
// document: tenant:company:docType.
func LogicalKey(tenantID, companyID, docType string) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, companyID, docType)
}
