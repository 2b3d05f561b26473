package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/shared"
	"github.com/opshub/backend/internal/infrastructure/auth"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"github.com/opshub/backend/internal/interfaces/http/dto"
	"github.com/opshub/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// UserLookup loads users for authentication
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*identity.User, error)
}

// AuthHandler handles console login and logout
type AuthHandler struct {
	BaseHandler
	users        UserLookup
	sessions     *auth.SessionService
	revocations  auth.Revocations
	cookieSecure bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users UserLookup, sessions *auth.SessionService, revocations auth.Revocations, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		users:        users,
		sessions:     sessions,
		revocations:  revocations,
		cookieSecure: cookieSecure,
	}
}

// Login godoc
// @Summary      Console login
// @Description  Authenticate with email and password. The session token is set as an HttpOnly cookie and returned.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body dto.LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=dto.LoginResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.Unauthorized(c, "Invalid email or password")
			return
		}
		h.HandleError(c, err)
		return
	}
	if !user.IsActive || !user.VerifyPassword(req.Password) {
		h.Unauthorized(c, "Invalid email or password")
		return
	}

	session, err := h.sessions.Issue(user)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("Console login",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	h.setSessionCookie(c, session.Token, int(h.sessions.TTL().Seconds()))
	h.Success(c, dto.LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      dto.ToClientResponse(user),
	})
}

// Logout godoc
// @Summary      Console logout
// @Description  Revoke the current session and clear the cookie
// @Tags         auth
// @Produce      json
// @Success      204
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetSessionClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if h.revocations != nil {
		if err := h.revocations.Revoke(c.Request.Context(), claims.ID, claims.GetRemainingTTL()); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	h.setSessionCookie(c, "", -1)
	h.NoContent(c)
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.ClientResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetSessionClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	id, err := claims.GetUserUUID()
	if err != nil {
		h.Unauthorized(c, "Session is invalid")
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToClientResponse(user))
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, value, maxAge, "/", "", h.cookieSecure, true)
}
