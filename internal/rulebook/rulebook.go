// Package rulebook loads and caches the versioned catalog mapping document
// types to required checks, normative references and exemption windows.
package rulebook

// Deroga is a time-boxed or conditional waiver of a normal rule.
type Deroga struct {
	Condition  string `json:"condition"`
	ValidUntil string `json:"validUntil,omitempty"` // ISO date, empty = open-ended
	Notes      string `json:"notes,omitempty"`
}

// Check is one required verification for a document type.
type Check struct {
	ID                  string   `json:"id"`
	Description         string   `json:"description"`
	Evaluation          string   `json:"evaluation"` // deterministic | llm
	Field               string   `json:"field,omitempty"`
	NormativeReferences []string `json:"normativeReferences,omitempty"`
	RequiresPII         []string `json:"requiresPII,omitempty"`
	Deroghe             []Deroga `json:"deroghe,omitempty"`
	Notes               string   `json:"notes,omitempty"`
}

// RuleSet is the catalog entry for one document type.
type RuleSet struct {
	DocType        string   `json:"docType"`
	DisplayName    string   `json:"displayName"`
	RequiredForAll bool     `json:"requiredForAll"`
	RiskClass      []string `json:"riskClass,omitempty"`
	Checks         []Check  `json:"checks"`
	Notes          string   `json:"notes,omitempty"`
}

// Rulebook is the whole versioned catalog document.
type Rulebook struct {
	SchemaVersion string         `json:"schemaVersion"`
	LastUpdated   string         `json:"lastUpdated"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Documents     []RuleSet      `json:"documents"`
}
