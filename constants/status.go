package constants

// RunState is the canonical state for rows in pipeline_runs.
type RunState string

// Stable values (store these exact strings in DB).
const (
	RunStateReceived    RunState = "RECEIVED"
	RunStateProbing     RunState = "PROBING"
	RunStateOCR         RunState = "OCR"
	RunStateClassifying RunState = "CLASSIFYING"
	RunStateRetrieving  RunState = "RETRIEVING"
	RunStateValidating  RunState = "VALIDATING"
	RunStateOverriding  RunState = "OVERRIDING"
	RunStatePersisting  RunState = "PERSISTING"
	RunStateDone        RunState = "DONE"
	RunStateError       RunState = "ERROR" // terminal failure
)

// VerdictStatus is the traffic-light verdict stored on a document version.
type VerdictStatus string

const (
	StatusGreen  VerdictStatus = "green"
	StatusYellow VerdictStatus = "yellow"
	StatusRed    VerdictStatus = "red"
	StatusNA     VerdictStatus = "na"
)

// ValidStatus reports whether s is one of the four verdict statuses.
func ValidStatus(s string) bool {
	switch VerdictStatus(s) {
	case StatusGreen, StatusYellow, StatusRed, StatusNA:
		return true
	}
	return false
}

// OCRMode is the gating decision for how (and whether) to run OCR.
type OCRMode string

const (
	OCRModeNone  OCRMode = "none"
	OCRModeSync  OCRMode = "sync"
	OCRModeBatch OCRMode = "batch"
)
