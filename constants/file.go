package constants

import "strings"

// PDFContentType is the only content type the pipeline processes.
const PDFContentType = "application/pdf"

// IsPDFContentType accepts "application/pdf" with optional parameters
// ("application/pdf; charset=binary") the way storage triggers report it.
func IsPDFContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "pdf")
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
