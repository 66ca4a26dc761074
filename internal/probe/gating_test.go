package probe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edilcheck/compliance-pipeline/constants"
)

func TestDecideLongDocumentGoesBatch(t *testing.T) {
	res := Result{Pages: 40, TotalChars: 90000, MaxCharsPerPage: 2400}

	d := Decide(res, GatingConfig{}, GatingOverrides{})

	assert.True(t, d.NeedsOCR)
	assert.Equal(t, constants.OCRModeBatch, d.Mode)
	assert.Contains(t, d.Reason, "batch threshold")
}

func TestDecideScannedDocumentGoesSync(t *testing.T) {
	res := Result{Pages: 3, TotalChars: 20, MaxCharsPerPage: 10}

	d := Decide(res, GatingConfig{}, GatingOverrides{})

	assert.True(t, d.NeedsOCR)
	assert.Equal(t, constants.OCRModeSync, d.Mode)
}

func TestDecideNativeTextSkipsOCR(t *testing.T) {
	res := Result{Pages: 2, TotalChars: 500, MaxCharsPerPage: 300}

	d := Decide(res, GatingConfig{}, GatingOverrides{})

	assert.False(t, d.NeedsOCR)
	assert.Equal(t, constants.OCRModeNone, d.Mode)
}

func TestDecideOneDenseCoverPageSkipsOCR(t *testing.T) {
	// cover page has text, body is scanned: total below threshold but one
	// page above per-page minimum means the text layer is real
	res := Result{Pages: 4, TotalChars: 45, MaxCharsPerPage: 45}

	d := Decide(res, GatingConfig{}, GatingOverrides{})

	assert.False(t, d.NeedsOCR)
}

func TestDecideForceWinsOverSkip(t *testing.T) {
	res := Result{Pages: 2, TotalChars: 5000, MaxCharsPerPage: 2500}

	d := Decide(res, GatingConfig{}, GatingOverrides{ForceOCR: true, SkipOCR: true})

	assert.True(t, d.NeedsOCR)
	assert.Equal(t, constants.OCRModeSync, d.Mode)
}

func TestDecideForcedLongDocumentStillBatches(t *testing.T) {
	res := Result{Pages: 50, TotalChars: 100000, MaxCharsPerPage: 2000}

	d := Decide(res, GatingConfig{}, GatingOverrides{ForceOCR: true})

	assert.Equal(t, constants.OCRModeBatch, d.Mode)
}

func TestDecideSkipOverride(t *testing.T) {
	res := Result{Pages: 1, TotalChars: 0}

	d := Decide(res, GatingConfig{}, GatingOverrides{SkipOCR: true})

	assert.False(t, d.NeedsOCR)
}

func TestDecideCustomThresholds(t *testing.T) {
	res := Result{Pages: 10, TotalChars: 80, MaxCharsPerPage: 20}

	d := Decide(res, GatingConfig{MinTotalChars: 100, MinPageChars: 25, BatchPageThreshold: 11}, GatingOverrides{})

	assert.True(t, d.NeedsOCR)
	assert.Equal(t, constants.OCRModeSync, d.Mode)
}

func TestFromTextDensities(t *testing.T) {
	text := "prima pagina con testo\fseconda\f\f"

	res := FromText(text)

	assert.Equal(t, 3, res.Pages) // trailing empty page dropped, middle kept
	assert.Equal(t, len("prima pagina con testo"), res.MaxCharsPerPage)
	assert.Equal(t, 0, res.MinCharsPerPage)
	assert.Equal(t, len("prima pagina con testo")+len("seconda"), res.TotalChars)
}

func TestFromTextSampleBounded(t *testing.T) {
	res := FromText(strings.Repeat("abc ", 200))

	assert.LessOrEqual(t, len(res.Sample100), 100)
	assert.NotContains(t, res.Sample100, "\n")
}
