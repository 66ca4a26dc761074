package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectPath(t *testing.T) {
	p, err := ParseObjectPath("docs/tenant-a/company-7/2026/08/durc.pdf")

	require.NoError(t, err)
	assert.Equal(t, "tenant-a", p.TenantID)
	assert.Equal(t, "company-7", p.CompanyID)
	assert.Equal(t, "durc.pdf", p.Filename)
}

func TestParseObjectPathMinimalDepth(t *testing.T) {
	p, err := ParseObjectPath("docs/t1/c1/visura.pdf")

	require.NoError(t, err)
	assert.Equal(t, "visura.pdf", p.Filename)
}

func TestParseObjectPathRejectsForeignPrefixes(t *testing.T) {
	for _, name := range []string{
		"uploads/t1/c1/x.pdf",
		"docs/t1/x.pdf",
		"x.pdf",
		"docs///x.pdf",
		"",
	} {
		_, err := ParseObjectPath(name)
		assert.Error(t, err, "object name %q", name)
	}
}

func TestEventMetadataFlags(t *testing.T) {
	ev := UploadEvent{Metadata: map[string]string{
		"forceOcr":    "true",
		"skipOcr":     "0",
		"docType":     "DURC",
		"companyName": "Rossi Costruzioni",
	}}

	assert.True(t, ev.forceOCR())
	assert.False(t, ev.skipOCR())
	assert.Equal(t, "DURC", ev.declaredDocType())
	assert.Equal(t, "Rossi Costruzioni", ev.companyName())

	var empty UploadEvent
	assert.False(t, empty.forceOCR())
	assert.Empty(t, empty.declaredDocType())
}
