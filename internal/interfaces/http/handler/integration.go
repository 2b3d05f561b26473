package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"github.com/opshub/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// SyncDispatcher runs a platform sync
type SyncDispatcher interface {
	Sync(ctx context.Context, integ *integration.Integration) (*integration.SyncResult, error)
}

// IntegrationHandler triggers manual syncs
type IntegrationHandler struct {
	BaseHandler
	users        identity.UserRepository
	integrations integration.Repository
	dispatcher   SyncDispatcher
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(users identity.UserRepository, integrations integration.Repository, dispatcher SyncDispatcher) *IntegrationHandler {
	return &IntegrationHandler{users: users, integrations: integrations, dispatcher: dispatcher}
}

// Sync godoc
// @Summary      Sync an integration now
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Integration ID"
// @Success      200 {object} dto.Response{data=dto.SyncResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/integrations/{id}/sync [post]
func (h *IntegrationHandler) Sync(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "Invalid integration ID")
		return
	}
	ctx := c.Request.Context()

	integ, err := h.integrations.GetIntegration(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !integ.IsConnected {
		h.Conflict(c, "Integration is disconnected")
		return
	}

	// Inactive tenants are never synced, manually or by the sweep
	owner, err := h.users.GetUser(ctx, integ.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !owner.IsActive {
		h.Conflict(c, "Client is deactivated")
		return
	}

	result, err := h.dispatcher.Sync(ctx, integ)
	if err != nil {
		logger.FromContext(ctx).Warn("Manual sync failed",
			logger.Tenant(integ.UserID),
			logger.Platform(integ.Platform),
			zap.Error(err),
		)
		h.Error(c, http.StatusBadGateway, dto.ErrCodeIntegration, integ.Code().DisplayName()+" sync failed")
		return
	}

	h.Success(c, dto.SyncResponse{
		Success:  result.Success,
		Imported: result.Imported,
		Skipped:  result.Skipped,
	})
}
