package pipeline

import (
	"fmt"
	"strings"

	"github.com/edilcheck/compliance-pipeline/internal/common"
)

// UploadEvent is a storage-finalize notification for an uploaded object.
type UploadEvent struct {
	Bucket      string            `json:"bucket"`
	ObjectName  string            `json:"name"`
	ContentType string            `json:"contentType"`
	Generation  string            `json:"generation"`
	Metadata    map[string]string `json:"metadata"`
}

// ObjectPath is the tenant/company addressing decoded from an object name.
// Expected layout: docs/{tenantId}/{companyId}/.../{filename}.pdf
type ObjectPath struct {
	TenantID  string
	CompanyID string
	Filename  string
}

// ParseObjectPath decodes the addressing prefix of an object name. Objects
// outside the docs/ prefix are not pipeline input.
func ParseObjectPath(objectName string) (ObjectPath, error) {
	parts := strings.Split(objectName, "/")
	if len(parts) < 4 || parts[0] != "docs" {
		return ObjectPath{}, fmt.Errorf("%w: object name %q not under docs/{tenant}/{company}/", common.ErrInvalidInput, objectName)
	}
	p := ObjectPath{
		TenantID:  parts[1],
		CompanyID: parts[2],
		Filename:  parts[len(parts)-1],
	}
	if p.TenantID == "" || p.CompanyID == "" || p.Filename == "" {
		return ObjectPath{}, fmt.Errorf("%w: object name %q has empty path segments", common.ErrInvalidInput, objectName)
	}
	return p, nil
}

// forceOCR and skipOCR read the operator override flags from object
// metadata ("true"/"1").
func (e UploadEvent) forceOCR() bool { return metaBool(e.Metadata, "forceOcr") }
func (e UploadEvent) skipOCR() bool  { return metaBool(e.Metadata, "skipOcr") }

// declaredDocType lets the uploader pin the document type, bypassing the
// keyword classifier.
func (e UploadEvent) declaredDocType() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata["docType"]
}

func (e UploadEvent) companyName() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata["companyName"]
}

func (e UploadEvent) uploadedBy() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata["uploadedBy"]
}

func metaBool(m map[string]string, key string) bool {
	if m == nil {
		return false
	}
	v := strings.ToLower(m[key])
	return v == "true" || v == "1"
}
