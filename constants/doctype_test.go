package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDocType(t *testing.T) {
	assert.Equal(t, "ATTESTATOPREPOSTO", NormalizeDocType("attestato preposto"))
	assert.Equal(t, "ATTESTATOPREPOSTO", NormalizeDocType("ATTESTATO_PREPOSTO"))
	assert.Equal(t, "ATTESTATOPREPOSTO", NormalizeDocType("AttestatoPreposto"))
	assert.Equal(t, "DURC", NormalizeDocType("  durc  "))
	assert.Equal(t, "", NormalizeDocType(""))
}

func TestIsPDFContentType(t *testing.T) {
	assert.True(t, IsPDFContentType("application/pdf"))
	assert.True(t, IsPDFContentType("application/pdf; charset=binary"))
	assert.True(t, IsPDFContentType("Application/PDF"))
	assert.False(t, IsPDFContentType("image/png"))
	assert.False(t, IsPDFContentType(""))
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{"green", "yellow", "red", "na"} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("blu"))
	assert.False(t, ValidStatus(""))
}
