package entity

// RetrievedChunk is a regulatory passage returned by the knowledge
// retriever. Ephemeral: it lives for one pipeline run and is only ever
// persisted indirectly through Verdict.Citations.
type RetrievedChunk struct {
	ID      string  `json:"id"` // e.g. kb:DM_16_01_97:p12
	Source  string  `json:"source"`
	Page    int     `json:"page,omitempty"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}
