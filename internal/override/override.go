// Package override applies deterministic post-validation rules that must
// not depend on model judgment. Date-window evaluation for documents with a
// fixed validity period is computed here, after the model verdict, and wins
// over whatever the model decided for the same check.
package override

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/edilcheck/compliance-pipeline/constants"
	"github.com/edilcheck/compliance-pipeline/internal/entity"
)

// WindowRule is a fixed validity window from issue date.
type WindowRule struct {
	CheckID      string
	ValidityDays int
	WarnDays     int // remaining days below which status degrades to yellow
}

// windowRules maps document types to their deterministic validity windows.
// DURC validity is 120 days from issue (art. 3 c.2 DM 30/01/2015).
var windowRules = map[string]WindowRule{
	constants.DocTypeDURC: {CheckID: "durc_validity_120d", ValidityDays: 120, WarnDays: 10},
}

type Applier struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewApplier(logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{logger: logger, now: time.Now}
}

// Apply overwrites the date-window check (when one exists for the document
// type) with a deterministic evaluation and degrades the overall verdict
// accordingly. Checks without a window rule are left untouched, as is the
// verdict of a non-pertinent document.
func (a *Applier) Apply(verdict *entity.Verdict) {
	if verdict.Overall.NonPertinente {
		return
	}
	rule, ok := windowRules[verdict.Doc.DocType]
	if !ok {
		return
	}
	issued, err := time.Parse("2006-01-02", verdict.Extracted.IssuedAt)
	if err != nil {
		a.logger.Warn("override.no_issue_date",
			"doc_type", verdict.Doc.DocType,
			"issued_at", verdict.Extracted.IssuedAt,
		)
		return
	}

	expiresAt := issued.AddDate(0, 0, rule.ValidityDays)
	today := a.now().UTC().Truncate(24 * time.Hour)
	daysToExpiry := int(expiresAt.Sub(today).Hours() / 24)

	verdict.Extracted.ExpiresAt = expiresAt.Format("2006-01-02")

	check := a.findOrAddCheck(verdict, rule.CheckID)
	check.Value = fmt.Sprintf("scade il %s (%d giorni)", verdict.Extracted.ExpiresAt, daysToExpiry)
	check.Confidence = 1.0

	switch {
	case daysToExpiry < 0:
		check.Passed = false
		verdict.Overall.Status = string(constants.StatusRed)
		verdict.Overall.IsValid = false
		verdict.Overall.Confidence = 1.0
		verdict.Overall.Reasons = append(verdict.Overall.Reasons,
			fmt.Sprintf("Documento scaduto il %s: validita %d giorni dall'emissione superata.",
				verdict.Extracted.ExpiresAt, rule.ValidityDays))
	case daysToExpiry <= rule.WarnDays:
		check.Passed = true
		if verdict.Overall.Status == string(constants.StatusGreen) {
			verdict.Overall.Status = string(constants.StatusYellow)
		}
		verdict.Overall.Reasons = append(verdict.Overall.Reasons,
			fmt.Sprintf("Documento in scadenza: %d giorni residui.", daysToExpiry))
	default:
		check.Passed = true
	}

	a.logger.Info("override.window_applied",
		"doc_type", verdict.Doc.DocType,
		"check_id", rule.CheckID,
		"days_to_expiry", daysToExpiry,
		"status", verdict.Overall.Status,
	)
}

// findOrAddCheck locates the deterministic check on the verdict, appending
// it when the model omitted it.
func (a *Applier) findOrAddCheck(verdict *entity.Verdict, checkID string) *entity.Check {
	for i := range verdict.Checks {
		if verdict.Checks[i].ID == checkID {
			return &verdict.Checks[i]
		}
	}
	verdict.Checks = append(verdict.Checks, entity.Check{ID: checkID})
	return &verdict.Checks[len(verdict.Checks)-1]
}
