package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/infrastructure/auth"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"github.com/opshub/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// CredentialEncrypter seals plaintext credentials before storage
type CredentialEncrypter interface {
	EncryptCredentials(creds integration.Credentials) (string, error)
}

// ClientHandler manages client tenants from the admin console
type ClientHandler struct {
	BaseHandler
	users        identity.UserRepository
	integrations integration.Repository
	vault        CredentialEncrypter
	revocations  auth.Revocations
	sessionTTL   time.Duration
}

// NewClientHandler creates a new ClientHandler. sessionTTL bounds how long a
// deactivated client's sessions stay on the revocation list.
func NewClientHandler(
	users identity.UserRepository,
	integrations integration.Repository,
	vault CredentialEncrypter,
	revocations auth.Revocations,
	sessionTTL time.Duration,
) *ClientHandler {
	return &ClientHandler{
		users:        users,
		integrations: integrations,
		vault:        vault,
		revocations:  revocations,
		sessionTTL:   sessionTTL,
	}
}

// List godoc
// @Summary      List clients
// @Tags         clients
// @Produce      json
// @Success      200 {object} dto.Response{data=[]dto.ClientResponse}
// @Router       /admin/clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	clients := make([]dto.ClientResponse, 0, len(users))
	for _, u := range users {
		if u.Role != identity.RoleClient {
			continue
		}
		clients = append(clients, dto.ToClientResponse(u))
	}
	h.Success(c, clients)
}

// Create godoc
// @Summary      Create a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateClientRequest true "Client"
// @Success      201 {object} dto.Response{data=dto.ClientResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var req dto.CreateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := identity.NewClient(req.Email, req.BusinessName)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.users.CreateUser(c.Request.Context(), user); err != nil {
		h.HandleError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("Client created", logger.Tenant(user.ID))
	h.Created(c, dto.ToClientResponse(user))
}

// Deactivate godoc
// @Summary      Deactivate a client
// @Description  Soft-deletes the client. Its sessions are revoked and sweeps skip it.
// @Tags         clients
// @Param        id path string true "Client ID"
// @Success      200 {object} dto.Response{data=dto.ClientResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/clients/{id} [delete]
func (h *ClientHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "Invalid client ID")
		return
	}
	ctx := c.Request.Context()

	inactive := false
	user, err := h.users.UpdateUser(ctx, id, identity.UserUpdate{IsActive: &inactive})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if h.revocations != nil {
		if err := h.revocations.RevokeUser(ctx, id.String(), h.sessionTTL); err != nil {
			logger.FromContext(ctx).Error("Failed to revoke sessions of deactivated client",
				logger.Tenant(id), zap.Error(err))
		}
	}

	logger.FromContext(ctx).Info("Client deactivated", logger.Tenant(id))
	h.Success(c, dto.ToClientResponse(user))
}

// UpdatePreferences godoc
// @Summary      Update email preferences
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id path string true "Client ID"
// @Param        request body dto.UpdatePreferencesRequest true "Preferences"
// @Success      200 {object} dto.Response{data=dto.ClientResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/clients/{id}/preferences [put]
func (h *ClientHandler) UpdatePreferences(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "Invalid client ID")
		return
	}
	var req dto.UpdatePreferencesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var invalid []dto.ValidationDetail
	for name := range req.Preferences {
		if !identity.NotificationCategory(name).IsValid() {
			invalid = append(invalid, dto.ValidationDetail{Field: name, Message: "unknown notification category"})
		}
	}
	if len(invalid) > 0 {
		h.ValidationError(c, invalid)
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	prefs := make(identity.EmailPreferences, len(user.EmailPreferences)+len(req.Preferences))
	for k, v := range user.EmailPreferences {
		prefs[k] = v
	}
	for name, enabled := range req.Preferences {
		prefs[identity.NotificationCategory(name)] = enabled
	}

	updated, err := h.users.UpdateUser(ctx, id, identity.UserUpdate{EmailPreferences: prefs})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToClientResponse(updated))
}

// ListIntegrations godoc
// @Summary      List a client's integrations
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Client ID"
// @Success      200 {object} dto.Response{data=[]dto.IntegrationResponse}
// @Router       /admin/clients/{id}/integrations [get]
func (h *ClientHandler) ListIntegrations(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "Invalid client ID")
		return
	}

	integs, err := h.integrations.ListIntegrations(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]dto.IntegrationResponse, len(integs))
	for i, integ := range integs {
		resp[i] = dto.ToIntegrationResponse(integ)
	}
	h.Success(c, resp)
}

// ConnectIntegration godoc
// @Summary      Connect a platform
// @Description  Stores encrypted credentials for the platform. Reconnecting replaces the stored credentials.
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        id path string true "Client ID"
// @Param        request body dto.ConnectIntegrationRequest true "Platform credentials"
// @Success      201 {object} dto.Response{data=dto.IntegrationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/clients/{id}/integrations [post]
func (h *ClientHandler) ConnectIntegration(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "Invalid client ID")
		return
	}
	var req dto.ConnectIntegrationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if user.Role != identity.RoleClient {
		h.BadRequest(c, "Integrations can only be connected for clients")
		return
	}

	envelope, err := h.vault.EncryptCredentials(integration.Credentials(req.Credentials))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	platform := integration.ParsePlatform(req.Platform)
	existing, err := h.integrations.ListIntegrations(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	for _, integ := range existing {
		if integ.Code() != platform {
			continue
		}
		connected := true
		if err := h.integrations.UpdateIntegration(ctx, integ.ID, integration.Update{
			IsConnected: &connected,
			Credentials: &envelope,
		}); err != nil {
			h.HandleError(c, err)
			return
		}
		integ.IsConnected = true
		logger.FromContext(ctx).Info("Integration reconnected", logger.Tenant(id), logger.Platform(string(platform)))
		h.Success(c, dto.ToIntegrationResponse(integ))
		return
	}

	integ, err := integration.NewIntegration(id, platform, envelope)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.integrations.CreateIntegration(ctx, integ); err != nil {
		h.HandleError(c, err)
		return
	}

	logger.FromContext(ctx).Info("Integration connected", logger.Tenant(id), logger.Platform(string(platform)))
	h.Created(c, dto.ToIntegrationResponse(integ))
}
