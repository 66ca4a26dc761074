// Package export renders compliance status reports as XLSX workbooks.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/edilcheck/compliance-pipeline/internal/entity"
)

const sheetName = "Documenti"

var headers = []string{
	"Tipo documento", "Stato", "Valido", "Non pertinente",
	"Emesso il", "Scade il", "Intestatario", "Versione",
	"Ultimo controllo", "Motivi",
}

// statusFills colors the status column like the dashboard traffic light.
var statusFills = map[string]string{
	"green":  "C6EFCE",
	"yellow": "FFEB9C",
	"red":    "FFC7CE",
	"na":     "D9D9D9",
}

// ComplianceReport renders the current documents of one company into an
// XLSX workbook. Returns the serialized file.
func ComplianceReport(companyID string, docs []*entity.DocumentRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("write header %s: %w", h, err)
		}
		_ = f.SetCellStyle(sheetName, cell, cell, bold)
	}

	for i, d := range docs {
		rowNum := i + 2
		v := d.Verdict
		row := []any{
			d.DocType,
			v.Overall.Status,
			boolLabel(v.Overall.IsValid),
			boolLabel(v.Overall.NonPertinente),
			v.Extracted.IssuedAt,
			v.Extracted.ExpiresAt,
			v.Extracted.HolderName,
			d.Version,
			d.LastProcessedAt.Format("2006-01-02 15:04"),
			strings.Join(v.Overall.Reasons, "; "),
		}
		for col, val := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return nil, fmt.Errorf("write row %d: %w", rowNum, err)
			}
		}
		if fill, ok := statusFills[v.Overall.Status]; ok {
			style, serr := f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fill}},
			})
			if serr == nil {
				cell, _ := excelize.CoordinatesToCellName(2, rowNum)
				_ = f.SetCellStyle(sheetName, cell, cell, style)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 24)
	_ = f.SetColWidth(sheetName, "G", "G", 28)
	_ = f.SetColWidth(sheetName, "J", "J", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize report for %s: %w", companyID, err)
	}
	return buf.Bytes(), nil
}

func boolLabel(b bool) string {
	if b {
		return "sì"
	}
	return "no"
}
