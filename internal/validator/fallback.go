package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edilcheck/compliance-pipeline/constants"
	"github.com/edilcheck/compliance-pipeline/internal/common"
	"github.com/edilcheck/compliance-pipeline/internal/entity"
	"github.com/edilcheck/compliance-pipeline/internal/genai"
)

const legacySystemPrompt = `Estrai i campi principali da un documento di conformita per cantieri edili italiani.
Rispondi SOLO con un oggetto JSON con queste chiavi:
docType, issuedAt, expiresAt, companyName, vatNumber, fiscalCode, reason, confidence.
Le date sono in formato ISO YYYY-MM-DD, stringa vuota se assenti. confidence e' un numero 0..1.`

// legacyFields is the flat shape of the pre-structured extractor.
type legacyFields struct {
	DocType     string  `json:"docType"`
	IssuedAt    string  `json:"issuedAt"`
	ExpiresAt   string  `json:"expiresAt"`
	CompanyName string  `json:"companyName"`
	VATNumber   string  `json:"vatNumber"`
	FiscalCode  string  `json:"fiscalCode"`
	Reason      string  `json:"reason"`
	Confidence  float64 `json:"confidence"`
}

// legacy runs the flat field extractor and wraps the result in a degraded
// verdict: status yellow, not valid, flagged for manual review.
func (v *Validator) legacy(ctx context.Context, in Input, text string, start time.Time) (entity.Verdict, error) {
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}
	user := "Documento:\n" + text

	raw, err := v.llm.CompleteJSON(ctx, v.cfg.LegacyModel, legacySystemPrompt, user)
	if err != nil {
		return entity.Verdict{}, fmt.Errorf("legacy extraction: %w", err)
	}

	obj, err := genai.ExtractJSONObject(raw)
	if err != nil {
		return entity.Verdict{}, fmt.Errorf("%w: legacy extraction: %v", common.ErrSchemaViolation, err)
	}
	var f legacyFields
	if err := json.Unmarshal([]byte(obj), &f); err != nil {
		return entity.Verdict{}, fmt.Errorf("%w: legacy extraction decode: %v", common.ErrSchemaViolation, err)
	}

	docType := constants.NormalizeDocType(f.DocType)
	if docType == "" {
		docType = in.DocType
	}

	reasons := []string{"Documento da rivedere manualmente: estrazione semplificata."}
	if f.Reason != "" {
		reasons = append(reasons, f.Reason)
	}

	verdict := entity.Verdict{
		Doc: entity.Doc{DocType: docType},
		Extracted: entity.Extracted{
			IssuedAt:   f.IssuedAt,
			ExpiresAt:  f.ExpiresAt,
			HolderName: f.CompanyName,
			TaxCode:    f.FiscalCode,
			VATNumber:  f.VATNumber,
		},
		Overall: entity.Overall{
			Status:     string(constants.StatusYellow),
			IsValid:    false,
			Confidence: f.Confidence,
			Reasons:    reasons,
		},
	}
	v.finalize(&verdict, in, true, v.cfg.LegacyModel, start)
	return verdict, nil
}
