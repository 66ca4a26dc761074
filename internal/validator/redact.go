package validator

import "regexp"

// PII patterns redacted from document text before it leaves the process.
var (
	// Italian Codice Fiscale: RSSMRA85M01H501Z
	cfRe = regexp.MustCompile(`\b[A-Z]{6}\d{2}[A-Z]\d{2}[A-Z]\d{3}[A-Z]\b`)
	// Italian P.IVA: 11 digits
	pivaRe  = regexp.MustCompile(`\b\d{11}\b`)
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe = regexp.MustCompile(`(?:\+39[\s.-]?)?\b3\d{2}[\s.-]?\d{6,7}\b`)
)

// RedactPII replaces tax codes, VAT numbers, emails and phone numbers with
// redaction markers. When requiredPII is non-empty the active rule set
// needs those fields verified verbatim and the text passes through
// untouched.
func RedactPII(text string, requiredPII []string) string {
	if len(requiredPII) > 0 {
		return text
	}
	redacted := cfRe.ReplaceAllString(text, "[CF_REDACTED]")
	redacted = pivaRe.ReplaceAllString(redacted, "[PIVA_REDACTED]")
	redacted = emailRe.ReplaceAllString(redacted, "[EMAIL_REDACTED]")
	redacted = phoneRe.ReplaceAllString(redacted, "[PHONE_REDACTED]")
	return redacted
}
