// Package classify guesses the document type from raw text before any paid
// external call. It must stay deterministic and side-effect free: its output
// gates PII redaction and rule selection.
package classify

import (
	"strings"

	"github.com/edilcheck/compliance-pipeline/constants"
)

// rule pairs a predicate with the docType it labels. Rules are evaluated in
// order; the first match wins.
type rule struct {
	label string
	match func(lower string) bool
}

func contains(subs ...string) func(string) bool {
	return func(lower string) bool {
		for _, s := range subs {
			if !strings.Contains(lower, s) {
				return false
			}
		}
		return true
	}
}

func anyOf(preds ...func(string) bool) func(string) bool {
	return func(lower string) bool {
		for _, p := range preds {
			if p(lower) {
				return true
			}
		}
		return false
	}
}

// Keyword set mirrors the production rulebook taxonomy. Order matters:
// the more specific attestato rules run before the generic ones.
var rules = []rule{
	{constants.DocTypeDURC, anyOf(contains("durc"), contains("regolarità contributiva"))},
	{constants.DocTypeVisura, contains("visura", "camera")},
	{constants.DocTypeAttestatoPreposto, contains("preposto", "attestato")},
	{constants.DocTypeAttestatoLavoratore, contains("lavorator", "attestato")},
	{constants.DocTypeDVR, contains("valutazione", "rischi")},
	{constants.DocTypePOS, contains("piano operativo", "sicurezza")},
	{constants.DocTypeRegistroAntincendio, contains("antincendio", "registro")},
}

// Classify returns the heuristic docType for fullText, or "" when nothing
// matches and the generative step must classify instead.
func Classify(fullText string) string {
	lower := strings.ToLower(fullText)
	for _, r := range rules {
		if r.match(lower) {
			return r.label
		}
	}
	return ""
}
