package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/application/migration"
	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/interfaces/http/dto"
	"github.com/shopbridge/backend/internal/interfaces/http/middleware"
)

// MigrationHandler exposes cross-catalog order migration over HTTP
type MigrationHandler struct {
	BaseHandler
	service *migration.Service
	logger  *zap.Logger
}

// NewMigrationHandler creates a new migration handler
func NewMigrationHandler(service *migration.Service, logger *zap.Logger) *MigrationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MigrationHandler{service: service, logger: logger}
}

// RegisterRoutes registers migration routes
func (h *MigrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/migrations/orders", h.MigrateOrder)
}

// MigrateOrder migrates one order from the source catalog to the storefront
func (h *MigrationHandler) MigrateOrder(c *gin.Context) {
	var req dto.MigrateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.MigrateOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, migration.ErrOrderNotFound):
			h.NotFound(c, err.Error())
		case errors.Is(err, migration.ErrNoLinesMatched),
			errors.Is(err, migration.ErrVerificationFailed):
			h.ErrorWithCode(c, dto.ErrCodeMigrationFailed, err.Error())
		case catalog.IsRunFatal(err):
			h.ErrorWithCode(c, dto.ErrCodeUpstream, err.Error())
		default:
			h.Internal(c, err.Error())
		}
		return
	}

	h.logger.Info("order migration completed",
		zap.String("source_order_id", result.SourceOrderID),
		zap.String("destination_order_id", result.DestinationOrderID),
	)
	h.Created(c, result)
}
