// Package handler provides the HTTP endpoints for the export service.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ncobase/docport/export"
	"github.com/ncobase/docport/export/structs"
	"github.com/ncobase/docport/logging/logger"
	"github.com/ncobase/docport/resp"
)

// ExportHandler handles export HTTP requests.
type ExportHandler struct {
	service *export.Service
}

// NewExportHandler creates a new export handler.
func NewExportHandler(svc *export.Service) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Submit accepts an export request and returns a job receipt.
func (h *ExportHandler) Submit(c *gin.Context) {
	var req structs.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c.Writer, resp.BadRequest(err.Error()))
		return
	}

	receipt, err := h.service.Submit(c.Request.Context(), &req)
	if errors.Is(err, export.ErrInvalid) {
		resp.Fail(c.Writer, resp.BadRequest(err.Error()))
		return
	}
	if err != nil {
		logger.Errorf(c.Request.Context(), "submit failed: %v", err)
		resp.Fail(c.Writer, resp.InternalServer("failed to accept export"))
		return
	}

	resp.WithStatusCode(c.Writer, http.StatusAccepted, receipt)
}

// Status reports the state of a job.
func (h *ExportHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("job_id"))
	if errors.Is(err, export.ErrJobNotFound) {
		resp.Fail(c.Writer, resp.NotFound("job not found"))
		return
	}
	if err != nil {
		logger.Errorf(c.Request.Context(), "status lookup failed: %v", err)
		resp.Fail(c.Writer, resp.InternalServer("failed to read job"))
		return
	}

	resp.Success(c.Writer, status)
}

// Download streams the finished artifact when the per-job code matches.
func (h *ExportHandler) Download(c *gin.Context) {
	dl, err := h.service.Release(c.Request.Context(), c.Param("job_id"), c.Query("code"))
	switch {
	case errors.Is(err, export.ErrJobNotFound):
		resp.Fail(c.Writer, resp.NotFound("job not found"))
		return
	case errors.Is(err, export.ErrNotReady):
		resp.Fail(c.Writer, resp.Conflict("export is not complete"))
		return
	case errors.Is(err, export.ErrBadCode):
		resp.Fail(c.Writer, resp.UnAuthorized("invalid download code"))
		return
	case errors.Is(err, export.ErrExpired):
		resp.Fail(c.Writer, resp.NotFound("export file has expired"))
		return
	case err != nil:
		logger.Errorf(c.Request.Context(), "download failed: %v", err)
		resp.Fail(c.Writer, resp.InternalServer("failed to release file"))
		return
	}

	c.FileAttachment(dl.Path, dl.Filename)
}

// Delete removes a job and its stored artifact.
func (h *ExportHandler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("job_id"))
	if errors.Is(err, export.ErrJobNotFound) {
		resp.Fail(c.Writer, resp.NotFound("job not found"))
		return
	}
	if err != nil {
		logger.Errorf(c.Request.Context(), "delete failed: %v", err)
		resp.Fail(c.Writer, resp.InternalServer("failed to delete job"))
		return
	}

	resp.Success(c.Writer, map[string]any{"message": "job deleted"})
}

// Stats returns job counts grouped by status.
func (h *ExportHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		resp.Fail(c.Writer, resp.InternalServer("failed to read stats"))
		return
	}
	resp.Success(c.Writer, stats)
}
