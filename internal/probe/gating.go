package probe

import (
	"fmt"

	"github.com/edilcheck/compliance-pipeline/constants"
)

// GatingConfig holds the density thresholds that decide whether a document
// needs OCR, and in which mode.
type GatingConfig struct {
	MinTotalChars      int // below this total (and below MinPageChars per page) -> OCR
	MinPageChars       int // best page below this -> counts as empty
	BatchPageThreshold int // at or above this page count -> always batch OCR
}

func (c GatingConfig) withDefaults() GatingConfig {
	if c.MinTotalChars <= 0 {
		c.MinTotalChars = 50
	}
	if c.MinPageChars <= 0 {
		c.MinPageChars = 30
	}
	if c.BatchPageThreshold <= 0 {
		c.BatchPageThreshold = 31
	}
	return c
}

// GatingOverrides are per-document operator/test controls. Force wins over
// Skip when both are set.
type GatingOverrides struct {
	ForceOCR bool
	SkipOCR  bool
}

// Decision is the gating outcome. Pure data; the orchestrator performs the
// actual OCR call.
type Decision struct {
	NeedsOCR bool
	Mode     constants.OCRMode
	Reason   string
}

// Decide applies the gating policy to a probe result. It never fails:
// missing density numbers read as zero, which triggers OCR.
//
// Long documents go to batch OCR regardless of text density; scanned
// documents need robust OCR and the sync path has tight size limits.
func Decide(res Result, cfg GatingConfig, ov GatingOverrides) Decision {
	cfg = cfg.withDefaults()

	if ov.ForceOCR {
		mode := constants.OCRModeSync
		if res.Pages >= cfg.BatchPageThreshold {
			mode = constants.OCRModeBatch
		}
		return Decision{NeedsOCR: true, Mode: mode, Reason: "ocr forced by override"}
	}
	if ov.SkipOCR {
		return Decision{NeedsOCR: false, Mode: constants.OCRModeNone, Reason: "ocr skipped by override"}
	}

	if res.Pages >= cfg.BatchPageThreshold {
		return Decision{
			NeedsOCR: true,
			Mode:     constants.OCRModeBatch,
			Reason:   fmt.Sprintf("pages=%d >= batch threshold %d", res.Pages, cfg.BatchPageThreshold),
		}
	}

	if res.TotalChars < cfg.MinTotalChars && res.MaxCharsPerPage < cfg.MinPageChars {
		return Decision{
			NeedsOCR: true,
			Mode:     constants.OCRModeSync,
			Reason: fmt.Sprintf("totalChars=%d < %d and maxPerPage=%d < %d",
				res.TotalChars, cfg.MinTotalChars, res.MaxCharsPerPage, cfg.MinPageChars),
		}
	}

	return Decision{
		NeedsOCR: false,
		Mode:     constants.OCRModeNone,
		Reason:   fmt.Sprintf("native text sufficient (totalChars=%d)", res.TotalChars),
	}
}
