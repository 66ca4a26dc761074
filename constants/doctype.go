package constants

import "strings"

// Known document types from the rulebook. "ALTRO" is the catch-all for
// documents the classifier and the model could not place.
const (
	DocTypeDURC                = "DURC"
	DocTypeVisura              = "VISURA"
	DocTypeAttestatoPreposto   = "ATTESTATO_PREPOSTO"
	DocTypeAttestatoLavoratore = "ATTESTATO_LAVORATORE"
	DocTypeDVR                 = "DVR"
	DocTypePOS                 = "POS"
	DocTypeRegistroAntincendio = "REGISTRO_ANTINCENDIO"
	DocTypeAltro               = "ALTRO"
)

// NormalizeDocType uppercases and strips separators so that classifier
// output and rulebook keys tolerate naming drift ("attestato preposto",
// "ATTESTATO_PREPOSTO" and "AttestatoPreposto" all normalize equally).
func NormalizeDocType(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
