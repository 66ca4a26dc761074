// Package server exposes the HTTP surface: upload event intake, document
// reads, the manual override endpoint, XLSX export and health.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edilcheck/compliance-pipeline/internal/async"
	"github.com/edilcheck/compliance-pipeline/internal/repository"
	"github.com/edilcheck/compliance-pipeline/internal/rulebook"
)

type Server struct {
	engine  *gin.Engine
	logger  *slog.Logger
	pool    *pgxpool.Pool
	queue   *async.Queue
	docs    *repository.Documents
	audits  *repository.Audits
	catalog *rulebook.Catalog
}

func New(
	pool *pgxpool.Pool,
	queue *async.Queue,
	docs *repository.Documents,
	audits *repository.Audits,
	catalog *rulebook.Catalog,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggingMiddleware(logger))
	engine.Use(RateLimitMiddleware(50, 100))

	s := &Server{
		engine: engine, logger: logger, pool: pool, queue: queue,
		docs: docs, audits: audits, catalog: catalog,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)

	api := s.engine.Group("/api", AuthMiddleware())
	{
		api.POST("/uploads/event", s.handleUploadEvent)

		api.GET("/companies/:companyId/documents", s.handleListCurrent)
		api.GET("/companies/:companyId/documents/:docType", s.handleCurrent)
		api.GET("/companies/:companyId/documents/:docType/history", s.handleHistory)
		api.GET("/companies/:companyId/export", s.handleExport)

		api.POST("/documents/:id/override", s.handleOverride)
		api.GET("/documents/:id/audit", s.handleAuditTrail)

		api.GET("/rulebook/doctypes", s.handleDocTypes)
		api.POST("/rulebook/invalidate", s.handleInvalidateRulebook)
	}
}

// Run serves until ctx is canceled, then drains with a grace period.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http.listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	if s.pool != nil {
		if err := repository.HealthCheck(c.Request.Context(), s.pool); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
