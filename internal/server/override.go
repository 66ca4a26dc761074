package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edilcheck/compliance-pipeline/constants"
	"github.com/edilcheck/compliance-pipeline/internal/repository"
)

// overrideRequest marks a document as pertinent or not for its company.
type overrideRequest struct {
	NonPertinente bool   `json:"nonPertinente"`
	Reason        string `json:"reason"`
}

// handleOverride lets a verifier or manager override the automated
// pertinence verdict. The reason is mandatory and the change is merged into
// the current version and audited; no new version is appended.
func (s *Server) handleOverride(c *gin.Context) {
	id := identityFrom(c)
	if id.Role != RoleVerifier && id.Role != RoleManager {
		c.JSON(http.StatusForbidden, gin.H{"error": "verifier or manager role required"})
		return
	}

	docID, err := parseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	ctx := c.Request.Context()
	doc, err := s.docs.GetByID(ctx, id.TenantID, docID)
	if err != nil {
		s.fail(c, err)
		return
	}

	verdict := doc.Verdict
	verdict.Overall.NonPertinente = req.NonPertinente
	if req.NonPertinente {
		verdict.Overall.IsValid = true
		verdict.Overall.Status = string(constants.StatusNA)
		verdict.Overall.Reasons = append(verdict.Overall.Reasons,
			"Documento marcato non pertinente manualmente: "+req.Reason)
	} else {
		verdict.Overall.IsValid = false
		verdict.Overall.Status = string(constants.StatusYellow)
		verdict.Overall.Reasons = append(verdict.Overall.Reasons,
			"Pertinenza ripristinata manualmente, da rivalutare: "+req.Reason)
	}

	if err := s.docs.UpdateVerdict(ctx, id.TenantID, docID, verdict); err != nil {
		s.fail(c, err)
		return
	}

	auditErr := s.audits.Append(ctx, auditOverrideEvent(id, doc.ID, req))
	if auditErr != nil {
		// the verdict change landed; surface the audit gap loudly
		s.logger.Error("override.audit_append_failed", "document_id", doc.ID, "error", auditErr)
	}

	s.logger.Info("override.applied",
		"document_id", doc.ID,
		"tenant_id", id.TenantID,
		"actor", id.UserID,
		"non_pertinente", req.NonPertinente,
	)
	c.JSON(http.StatusOK, gin.H{
		"documentId":    doc.ID,
		"nonPertinente": req.NonPertinente,
		"status":        verdict.Overall.Status,
	})
}

func auditOverrideEvent(id Identity, docID uuid.UUID, req overrideRequest) repository.AuditEvent {
	return repository.AuditEvent{
		TenantID:   id.TenantID,
		DocumentID: docID,
		Action:     "override_non_pertinente",
		Actor:      id.UserID,
		Role:       id.Role,
		Reason:     req.Reason,
		Detail:     map[string]any{"nonPertinente": req.NonPertinente},
	}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}
