package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/application/catalogsync"
	"github.com/shopbridge/backend/internal/domain/syncrun"
	"github.com/shopbridge/backend/internal/interfaces/http/dto"
	"github.com/shopbridge/backend/internal/interfaces/http/middleware"
)

// SyncHandler exposes synchronization runs over HTTP
type SyncHandler struct {
	BaseHandler
	service *catalogsync.Service
	logger  *zap.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(service *catalogsync.Service, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{service: service, logger: logger}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	runs := rg.Group("/sync/runs")
	{
		runs.POST("", h.StartRun)
		runs.GET("", h.ListRuns)
		runs.GET("/:id", h.GetRun)
		runs.GET("/:id/events", h.StreamEvents)
		runs.POST("/:id/cancel", h.CancelRun)
	}
	refresh := rg.Group("/sync/refresh")
	{
		refresh.POST("/prices", h.RefreshPrices)
		refresh.POST("/quantities", h.RefreshQuantities)
	}
}

// StartRun launches a synchronization run
func (h *SyncHandler) StartRun(c *gin.Context) {
	var req dto.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	mode := syncrun.Mode(req.Mode)
	if !mode.IsValid() {
		h.BadRequest(c, "unknown sync mode: "+req.Mode)
		return
	}

	// The run outlives the request; it is tied to the process, not the
	// connection.
	handle, err := h.service.Start(context.WithoutCancel(c.Request.Context()), mode, req.Workers)
	if err != nil {
		if errors.Is(err, catalogsync.ErrRunActive) {
			h.ErrorWithCode(c, dto.ErrCodeRunActive, "a sync run is already active")
			return
		}
		h.Internal(c, err.Error())
		return
	}

	h.logger.Info("sync run started",
		zap.String("run_id", handle.ID().String()),
		zap.String("mode", mode.String()),
	)
	h.Accepted(c, handle.Status())
}

// ListRuns returns all retained runs, most recent first
func (h *SyncHandler) ListRuns(c *gin.Context) {
	h.Success(c, h.service.List())
}

// GetRun returns one run's status
func (h *SyncHandler) GetRun(c *gin.Context) {
	handle, ok := h.lookupRun(c)
	if !ok {
		return
	}
	h.Success(c, handle.Status())
}

// CancelRun requests cooperative cancellation of a run
func (h *SyncHandler) CancelRun(c *gin.Context) {
	var req dto.RunIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "invalid run id")
		return
	}

	switch err := h.service.Cancel(id); {
	case err == nil:
		h.Success(c, gin.H{"cancelled": true})
	case errors.Is(err, catalogsync.ErrRunNotFound):
		h.NotFound(c, "run not found")
	case errors.Is(err, catalogsync.ErrRunFinished):
		h.ErrorWithCode(c, dto.ErrCodeRunFinished, "run already finished")
	default:
		h.Internal(c, err.Error())
	}
}

// RefreshPrices runs a whole-catalog price refresh
func (h *SyncHandler) RefreshPrices(c *gin.Context) {
	h.refresh(c, catalogsync.RefreshKindPrices)
}

// RefreshQuantities runs a whole-catalog quantity refresh
func (h *SyncHandler) RefreshQuantities(c *gin.Context) {
	h.refresh(c, catalogsync.RefreshKindQuantities)
}

// refresh executes one synchronous bulk refresh and returns its report
func (h *SyncHandler) refresh(c *gin.Context, kind catalogsync.RefreshKind) {
	report, err := h.service.Refresh(c.Request.Context(), kind)
	if err != nil {
		if errors.Is(err, catalogsync.ErrRunActive) {
			h.ErrorWithCode(c, dto.ErrCodeRunActive, "a sync run is already active")
			return
		}
		h.Internal(c, err.Error())
		return
	}

	h.logger.Info("catalog refresh served",
		zap.String("kind", string(kind)),
		zap.Int("changed", report.Changed),
		zap.Int("applied", report.Applied),
	)
	h.Success(c, report)
}

// StreamEvents streams run progress as server-sent events until the run
// reaches a terminal state or the client disconnects
func (h *SyncHandler) StreamEvents(c *gin.Context) {
	handle, ok := h.lookupRun(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events := handle.Events()
	clientGone := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, open := <-events:
			if !open {
				c.SSEvent("summary", handle.Status())
				return false
			}
			c.SSEvent("progress", ev)
			return true
		}
	})
}

func (h *SyncHandler) lookupRun(c *gin.Context) (*catalogsync.RunHandle, bool) {
	var req dto.RunIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, err.Error())
		return nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "invalid run id")
		return nil, false
	}
	handle, err := h.service.Get(id)
	if err != nil {
		h.NotFound(c, "run not found")
		return nil, false
	}
	return handle, true
}
