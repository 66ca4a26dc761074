package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/edilcheck/compliance-pipeline/internal/entity"
)

func TestComplianceReport(t *testing.T) {
	docs := []*entity.DocumentRecord{
		{
			DocType: "DURC", Version: 3,
			LastProcessedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
			Verdict: entity.Verdict{
				Extracted: entity.Extracted{
					IssuedAt: "2026-07-01", ExpiresAt: "2026-10-29",
					HolderName: "Rossi Costruzioni",
				},
				Overall: entity.Overall{
					Status: "green", IsValid: true,
					Reasons: []string{"Esito regolare"},
				},
			},
		},
		{
			DocType: "POS", Version: 1,
			LastProcessedAt: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC),
			Verdict: entity.Verdict{
				Overall: entity.Overall{
					Status: "red", IsValid: false,
					Reasons: []string{"Cantiere non coerente", "Firma mancante"},
				},
			},
		},
	}

	raw, err := ComplianceReport("c1", docs)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Tipo documento", rows[0][0])
	assert.Equal(t, "DURC", rows[1][0])
	assert.Equal(t, "green", rows[1][1])
	assert.Equal(t, "sì", rows[1][2])
	assert.Equal(t, "Rossi Costruzioni", rows[1][6])
	assert.Equal(t, "POS", rows[2][0])
	assert.Equal(t, "Cantiere non coerente; Firma mancante", rows[2][9])
}

func TestComplianceReportEmpty(t *testing.T) {
	raw, err := ComplianceReport("c1", nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
