package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactPII(t *testing.T) {
	text := "Intestatario RSSMRA85M01H501Z, P.IVA 01234567890, " +
		"contatti: mario.rossi@example.it, tel +39 333 1234567"

	got := RedactPII(text, nil)

	assert.NotContains(t, got, "RSSMRA85M01H501Z")
	assert.NotContains(t, got, "01234567890")
	assert.NotContains(t, got, "mario.rossi@example.it")
	assert.Contains(t, got, "[CF_REDACTED]")
	assert.Contains(t, got, "[PIVA_REDACTED]")
	assert.Contains(t, got, "[EMAIL_REDACTED]")
	assert.Contains(t, got, "[PHONE_REDACTED]")
}

func TestRedactPIISkippedWhenChecksNeedPII(t *testing.T) {
	text := "P.IVA 01234567890 intestata a RSSMRA85M01H501Z"

	got := RedactPII(text, []string{"vatNumber", "taxCode"})

	assert.Equal(t, text, got)
}

func TestRedactPIILeavesOrdinaryNumbersAlone(t *testing.T) {
	text := "protocollo n. 1234567 del 2026, importo 1.500,00 euro"

	got := RedactPII(text, nil)

	assert.Equal(t, text, got)
}
