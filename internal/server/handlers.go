package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edilcheck/compliance-pipeline/internal/common"
	"github.com/edilcheck/compliance-pipeline/internal/export"
	"github.com/edilcheck/compliance-pipeline/internal/pipeline"
)

// handleUploadEvent accepts a storage-finalize notification and queues the
// pipeline run. 202 means accepted, not processed.
func (s *Server) handleUploadEvent(c *gin.Context) {
	var ev pipeline.UploadEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}
	if ev.ObjectName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing object name"})
		return
	}
	if !s.queue.Enqueue(ev) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "processing queue full, retry later"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "object": ev.ObjectName})
}

func (s *Server) handleListCurrent(c *gin.Context) {
	id := identityFrom(c)
	docs, err := s.docs.ListCurrent(c.Request.Context(), id.TenantID, c.Param("companyId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) handleCurrent(c *gin.Context) {
	id := identityFrom(c)
	doc, err := s.docs.Current(c.Request.Context(), id.TenantID, c.Param("companyId"), c.Param("docType"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleHistory(c *gin.Context) {
	id := identityFrom(c)
	docs, err := s.docs.History(c.Request.Context(), id.TenantID, c.Param("companyId"), c.Param("docType"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": docs})
}

func (s *Server) handleExport(c *gin.Context) {
	id := identityFrom(c)
	companyID := c.Param("companyId")
	docs, err := s.docs.ListCurrent(c.Request.Context(), id.TenantID, companyID)
	if err != nil {
		s.fail(c, err)
		return
	}
	report, err := export.ComplianceReport(companyID, docs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="conformita-%s.xlsx"`, companyID))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", report)
}

func (s *Server) handleDocTypes(c *gin.Context) {
	types := s.catalog.DocTypes(c.Request.Context())
	out := make([]gin.H, 0, len(types))
	for _, t := range types {
		out = append(out, gin.H{
			"docType":     t,
			"displayName": s.catalog.DisplayName(c.Request.Context(), t),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"schemaVersion": s.catalog.SchemaVersion(c.Request.Context()),
		"docTypes":      out,
	})
}

// handleInvalidateRulebook drops the catalog cache so the next lookup
// refetches. Manager only.
func (s *Server) handleInvalidateRulebook(c *gin.Context) {
	id := identityFrom(c)
	if id.Role != RoleManager {
		c.JSON(http.StatusForbidden, gin.H{"error": "manager role required"})
		return
	}
	s.catalog.Invalidate()
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}

func (s *Server) handleAuditTrail(c *gin.Context) {
	id := identityFrom(c)
	docID, err := parseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	events, err := s.audits.ForDocument(c.Request.Context(), id.TenantID, docID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// fail maps application errors to HTTP responses.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		s.logger.Error("http.internal_error", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
