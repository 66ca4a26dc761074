package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edilcheck/compliance-pipeline/internal/entity"
	"github.com/edilcheck/compliance-pipeline/internal/rulebook"
)

type fakeLLM struct {
	responses []string
	calls     int
	lastUser  string
}

func (f *fakeLLM) CompleteJSON(_ context.Context, _, _, user string) (string, error) {
	f.lastUser = user
	resp := f.responses[len(f.responses)-1]
	if f.calls < len(f.responses) {
		resp = f.responses[f.calls]
	}
	f.calls++
	return resp, nil
}

func durcRules() *rulebook.RuleSet {
	return &rulebook.RuleSet{
		DocType: "DURC",
		Checks: []rulebook.Check{
			{ID: "durc_esito_regolare", Description: "esito regolare", Evaluation: "llm"},
		},
	}
}

func sampleChunks() []entity.RetrievedChunk {
	return []entity.RetrievedChunk{
		{ID: "kb:dm2015:p3", Source: "dm2015", Page: 3, Snippet: "validità 120 giorni", Score: 0.8},
		{ID: "kb:dlgs81:p12", Source: "dlgs81", Page: 12, Snippet: "obblighi del committente", Score: 0.5},
	}
}

const goodVerdict = `{
	"doc": {"docType": "DURC"},
	"extracted": {"issuedAt": "2026-07-01", "holderName": "Rossi Costruzioni"},
	"checks": [
		{"id": "durc_esito_regolare", "passed": true, "confidence": 0.9,
		 "citationIds": ["kb:dm2015:p3", "kb:inventato:p9"]}
	],
	"overall": {"status": "green", "isValid": true, "nonPertinente": false,
	            "confidence": 0.9, "reasons": ["Esito regolare"]}
}`

func newTestValidator(llm *fakeLLM, structured, fallback bool) *Validator {
	return New(llm, Config{
		Model:         "test-model",
		UseStructured: structured,
		AllowFallback: fallback,
		TopK:          6,
	}, nil)
}

func TestValidateStructuredHappyPath(t *testing.T) {
	llm := &fakeLLM{responses: []string{goodVerdict}}
	v := newTestValidator(llm, true, true)

	verdict, err := v.Validate(context.Background(), Input{
		FullText: "DURC REGOLARE",
		DocType:  "DURC",
		Chunks:   sampleChunks(),
		Rules:    durcRules(),
	})

	require.NoError(t, err)
	assert.Equal(t, "green", verdict.Overall.Status)
	assert.True(t, verdict.Overall.IsValid)
	assert.False(t, verdict.Audit.FallbackUsed)
	assert.Equal(t, "test-model", verdict.Audit.Model)
	assert.Equal(t, 2, verdict.Audit.RAG.Hits)
	assert.Equal(t, 6, verdict.Audit.RAG.TopK)
	assert.Equal(t, 1, llm.calls)
}

func TestValidateDropsInventedCitations(t *testing.T) {
	llm := &fakeLLM{responses: []string{goodVerdict}}
	v := newTestValidator(llm, true, true)

	verdict, err := v.Validate(context.Background(), Input{
		FullText: "DURC", DocType: "DURC",
		Chunks: sampleChunks(), Rules: durcRules(),
	})

	require.NoError(t, err)
	require.Len(t, verdict.Checks, 1)
	assert.Equal(t, []string{"kb:dm2015:p3"}, verdict.Checks[0].CitationIDs)
	// only chunks actually cited surface as citations
	require.Len(t, verdict.Citations, 1)
	assert.Equal(t, "kb:dm2015:p3", verdict.Citations[0].ID)
	assert.Equal(t, "dm2015", verdict.Citations[0].SourceID)
}

func TestValidatePromptCarriesContextMarkers(t *testing.T) {
	llm := &fakeLLM{responses: []string{goodVerdict}}
	v := newTestValidator(llm, true, true)

	_, err := v.Validate(context.Background(), Input{
		FullText: "DURC", DocType: "DURC",
		Chunks: sampleChunks(), Rules: durcRules(),
	})

	require.NoError(t, err)
	assert.Contains(t, llm.lastUser, "[[CIT:kb:dm2015:p3]]")
	assert.Contains(t, llm.lastUser, "[durc_esito_regolare]")
}

func TestValidateZeroRetrievalCapsConfidence(t *testing.T) {
	llm := &fakeLLM{responses: []string{goodVerdict}}
	v := newTestValidator(llm, true, true)

	verdict, err := v.Validate(context.Background(), Input{
		FullText: "DURC", DocType: "DURC", Rules: durcRules(),
	})

	require.NoError(t, err)
	assert.InDelta(t, 0.60, verdict.Overall.Confidence, 1e-9)
	assert.Greater(t, len(verdict.Overall.Reasons), 1)
	assert.Equal(t, 0, verdict.Audit.RAG.Hits)
}

func TestValidateNonPertinenteImpliesValid(t *testing.T) {
	resp := `{
		"doc": {"docType": "POS"},
		"extracted": {},
		"checks": [],
		"overall": {"status": "na", "isValid": false, "nonPertinente": true,
		            "confidence": 0.8, "reasons": ["Lavorazioni non soggette a POS"]}
	}`
	llm := &fakeLLM{responses: []string{resp}}
	v := newTestValidator(llm, true, true)

	verdict, err := v.Validate(context.Background(), Input{FullText: "x", DocType: "POS"})

	require.NoError(t, err)
	assert.True(t, verdict.Overall.NonPertinente)
	assert.True(t, verdict.Overall.IsValid)
}

const legacyResponse = `{
	"docType": "DURC", "issuedAt": "2026-06-01", "expiresAt": "",
	"companyName": "Rossi Costruzioni", "vatNumber": "01234567890",
	"fiscalCode": "", "reason": "documento leggibile solo in parte", "confidence": 0.5
}`

func TestValidateFallsBackAfterRepeatedSchemaViolations(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"sorpresa": true}`,
		`{"ancora": "sbagliato"}`,
		legacyResponse,
	}}
	v := newTestValidator(llm, true, true)

	verdict, err := v.Validate(context.Background(), Input{
		FullText: "scansione illeggibile", DocType: "DURC", Rules: durcRules(),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, llm.calls)
	assert.True(t, verdict.Audit.FallbackUsed)
	assert.Equal(t, "yellow", verdict.Overall.Status)
	assert.False(t, verdict.Overall.IsValid)
	assert.Contains(t, verdict.Overall.Reasons[0], "manualmente")
	assert.Equal(t, "Rossi Costruzioni", verdict.Extracted.HolderName)
}

func TestValidateSchemaViolationWithoutFallbackFails(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"junk": 1}`}}
	v := newTestValidator(llm, true, false)

	_, err := v.Validate(context.Background(), Input{FullText: "x", DocType: "DURC"})

	assert.Error(t, err)
}

func TestValidateLegacyOnlyMode(t *testing.T) {
	llm := &fakeLLM{responses: []string{legacyResponse}}
	v := newTestValidator(llm, false, false)

	verdict, err := v.Validate(context.Background(), Input{FullText: "testo", DocType: ""})

	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls)
	assert.True(t, verdict.Audit.FallbackUsed)
	assert.Equal(t, "DURC", verdict.Doc.DocType)
}
