// Package handler exposes the HTTP API: extraction runs, ontology
// management and system info.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semweave/semweave/internal/application/service"
	"github.com/semweave/semweave/internal/errors"
	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/types"
	"github.com/semweave/semweave/internal/types/interfaces"
	"github.com/semweave/semweave/internal/utils"
)

// ExtractionHandler handles extraction run requests.
type ExtractionHandler struct {
	service     *service.ExtractionService
	checkpoints interfaces.CheckpointPublisher
}

// NewExtractionHandler creates the handler.
func NewExtractionHandler(svc *service.ExtractionService, checkpoints interfaces.CheckpointPublisher) *ExtractionHandler {
	return &ExtractionHandler{service: svc, checkpoints: checkpoints}
}

// StartExtractionRequest is the POST /extractions body.
type StartExtractionRequest struct {
	// URI identifying the source document
	DocumentURI string `json:"document_uri" binding:"required"`
	// Raw document text to extract from
	Text string `json:"text" binding:"required"`
	// Optional per-run overrides; configured defaults apply when absent
	Config *types.RunConfig `json:"config"`
	// Process synchronously and return the finished run
	Wait bool `json:"wait"`
}

// StartExtraction starts an extraction run.
func (h *ExtractionHandler) StartExtraction(c *gin.Context) {
	ctx := c.Request.Context()

	var req StartExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err.Error()))
		return
	}
	if !utils.IsValidDocumentURI(req.DocumentURI) {
		c.Error(errors.NewValidationError("invalid document_uri"))
		return
	}
	text, ok := utils.SanitizeDocumentText(req.Text)
	if !ok {
		c.Error(errors.NewValidationError("document text is not valid UTF-8 or exceeds the size limit"))
		return
	}
	req.Text = text

	logger.Infof(ctx, "starting extraction for %s (%d chars, wait=%t)",
		req.DocumentURI, len(req.Text), req.Wait)

	if req.Wait {
		run, err := h.service.StartSynchronous(ctx, req.DocumentURI, req.Text, req.Config)
		if err != nil {
			c.Error(errors.NewExtractionFailedError(err.Error()))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": run})
		return
	}

	run, err := h.service.StartExtraction(ctx, req.DocumentURI, req.Text, req.Config)
	if err != nil {
		c.Error(errors.NewExtractionFailedError(err.Error()))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "data": run})
}

// GetExtraction returns the state of a run.
func (h *ExtractionHandler) GetExtraction(c *gin.Context) {
	runID := c.Param("id")
	run, err := h.service.GetRun(c.Request.Context(), runID)
	if err != nil {
		c.Error(errors.NewRunNotFoundError(runID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": run})
}

// GetExtractionCheckpoints returns the validation-loop checkpoints of a run.
func (h *ExtractionHandler) GetExtractionCheckpoints(c *gin.Context) {
	runID := c.Param("id")
	checkpoints, err := h.checkpoints.Checkpoints(c.Request.Context(), runID)
	if err != nil {
		c.Error(errors.NewInternalServerError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": checkpoints})
}
