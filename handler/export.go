// Package handler exposes the export pipeline over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nibernar/project-service/ctxutil"
	"github.com/nibernar/project-service/ecode"
	"github.com/nibernar/project-service/export"
	"github.com/nibernar/project-service/logging/logger"
	"github.com/nibernar/project-service/net/resp"
)

// userIDHeader identifies the authenticated caller. Authentication itself
// happens upstream at the gateway.
const userIDHeader = "X-User-Id"

// ExportHandler routes export requests to the orchestrator.
type ExportHandler struct {
	orchestrator *export.Orchestrator
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(orchestrator *export.Orchestrator) *ExportHandler {
	return &ExportHandler{orchestrator: orchestrator}
}

// Register wires the export routes onto the engine.
func (h *ExportHandler) Register(e *gin.Engine) {
	group := e.Group("/export")
	group.POST("/projects/:projectId", h.Export)
	group.GET("/status/:exportId", h.Status)
	group.GET("/health", h.Health)
}

// Export starts an export. Synchronous exports answer 200 with the artifact;
// asynchronous ones answer 202 with an export id to poll.
func (h *ExportHandler) Export(c *gin.Context) {
	ctx := ctxutil.FromGinContext(c)
	userID := c.GetHeader(userIDHeader)

	var req export.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c.Writer, &resp.Exception{
			Status:  http.StatusBadRequest,
			Code:    ecode.RequestErr,
			Message: "invalid request body",
		})
		return
	}
	if req.ProjectID == "" {
		req.ProjectID = c.Param("projectId")
	} else if req.ProjectID != c.Param("projectId") {
		resp.Fail(c.Writer, &resp.Exception{
			Status:  http.StatusBadRequest,
			Code:    ecode.RequestErr,
			Message: "projectId mismatch between path and body",
		})
		return
	}

	result, err := h.orchestrator.Export(ctx, userID, &req)
	if err != nil {
		h.failExport(c, err)
		return
	}

	if result.Async {
		resp.WithStatusCode(c.Writer, http.StatusAccepted, result)
		return
	}
	resp.Success(c.Writer, result)
}

// Status returns the progress record of an export attempt.
func (h *ExportHandler) Status(c *gin.Context) {
	ctx := ctxutil.FromGinContext(c)
	userID := c.GetHeader(userIDHeader)

	status, err := h.orchestrator.GetStatus(ctx, userID, c.Param("exportId"))
	if err != nil {
		resp.FailWithError(c.Writer, err)
		return
	}

	// Ownership metadata stays server-side.
	status.UserID = ""
	resp.Success(c.Writer, status)
}

// Health reports the readiness of the pipeline's collaborators. Degraded and
// unhealthy verdicts map to 503 so load balancers stop routing here.
func (h *ExportHandler) Health(c *gin.Context) {
	ctx := ctxutil.FromGinContext(c)

	status := h.orchestrator.ServiceStatus(ctx)
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	resp.WithStatusCode(c.Writer, code, status)
}

func (h *ExportHandler) failExport(c *gin.Context, err error) {
	ctx := ctxutil.FromGinContext(c)

	var e *export.Error
	if !errors.As(err, &e) {
		logger.Errorf(ctx, "export failed with uncategorized error: %v", err)
		resp.FailWithError(c.Writer, err)
		return
	}

	if e.Code == ecode.ServerErr || e.Code == ecode.ServiceUnavailable {
		logger.Errorf(ctx, "export failed: %v", e)
	}
	resp.FailWithError(c.Writer, e)
}
