package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sivabalan-sv01/tds-project/internal/models"
	"github.com/sivabalan-sv01/tds-project/internal/pipeline"
)

// RequestKeyHeader lets callers pin the dedup key explicitly, the same way an
// Idempotency-Key header would.
const RequestKeyHeader = "X-Request-Key"

// RegisterGenerateRoutes registers the trigger endpoint.
//
// POST /api/generate
// - Requires X-Admission-Secret (enforced by the surrounding group)
// - Idempotent: repeated identical triggers return the same commit reference
func RegisterGenerateRoutes(r gin.IRoutes, ctrl *pipeline.Controller) {
	r.POST("/api/generate", func(c *gin.Context) {
		var req models.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		// Required fields per contract.
		if req.Task == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "task required"})
			return
		}
		if req.Brief == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "brief required"})
			return
		}
		if req.Round < 1 {
			req.Round = 1
		}

		// Key precedence:
		// 1) X-Request-Key header (recommended for retries)
		// 2) request_key in payload
		// 3) derived from the trigger's identifying fields
		key := c.GetHeader(RequestKeyHeader)
		if key == "" {
			key = req.RequestKey
		}
		if key == "" {
			key = pipeline.DeriveKey(req)
		}

		out := ctrl.Run(c.Request.Context(), key, req)
		switch out.Status {
		case pipeline.StatusRecorded:
			c.JSON(http.StatusOK, models.GenerateResponse{
				Status:   "recorded",
				Key:      key,
				Repo:     out.Record.Repo,
				Path:     out.Record.Path,
				Commit:   out.Record.Commit,
				PagesURL: out.Record.PagesURL,
			})
		case pipeline.StatusSkipped:
			c.JSON(http.StatusOK, models.GenerateResponse{
				Status:   "duplicate",
				Key:      key,
				Repo:     out.Record.Repo,
				Path:     out.Record.Path,
				Commit:   out.Record.Commit,
				PagesURL: out.Record.PagesURL,
			})
		case pipeline.StatusInProgress:
			c.JSON(http.StatusConflict, gin.H{"error": out.Err.Error(), "retryable": true})
		default:
			status := http.StatusInternalServerError
			if out.Retryable {
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"error": out.Err.Error(), "retryable": out.Retryable})
		}
	})
}
