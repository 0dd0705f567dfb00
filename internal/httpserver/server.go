package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sivabalan-sv01/tds-project/internal/auth"
	"github.com/sivabalan-sv01/tds-project/internal/config"
	"github.com/sivabalan-sv01/tds-project/internal/handlers"
	"github.com/sivabalan-sv01/tds-project/internal/pipeline"
)

// NewRouter wires public endpoints and the authenticated trigger API.
// Public: /health, /ready
// Authenticated: /api/generate
//
// ready is optional; when non-nil it is probed by /ready (used for the
// Postgres-backed ledger). The file-backed ledger has nothing to probe.
func NewRouter(cfg config.Config, ctrl *pipeline.Controller, ready func(ctx context.Context) error) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the ledger dependency is reachable, when there is one.
	r.GET("/ready", func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()

			if err := ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Auth group enforces the shared admission secret.
	authGroup := r.Group("/")
	authGroup.Use(auth.SecretMiddleware(cfg.AdmissionSecret))

	handlers.RegisterGenerateRoutes(authGroup, ctrl)

	return r
}
