package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opshub/backend/internal/infrastructure/auth"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"github.com/opshub/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Session context keys
const (
	SessionClaimsKey  = "session_claims"
	SessionCookieName = "opshub_session"
	AuthHeaderKey     = "Authorization"
	BearerPrefix      = "Bearer "
)

// SessionConfig holds configuration for session middleware
type SessionConfig struct {
	// Sessions is required for token validation
	Sessions *auth.SessionService
	// Revocations is optional; when set, logged-out and deactivated sessions are rejected
	Revocations auth.Revocations
	Logger      *zap.Logger
}

// SessionAuth authenticates the request from the session cookie or a bearer token
func SessionAuth(cfg SessionConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Authentication required")
			return
		}

		claims, err := cfg.Sessions.Validate(token)
		if err != nil {
			abortUnauthorized(c, log, err, "Session is invalid or expired")
			return
		}

		if cfg.Revocations != nil {
			ctx := c.Request.Context()

			revoked, err := cfg.Revocations.IsRevoked(ctx, claims.ID)
			if err != nil {
				// fail open: the revocation store being down must not lock out the console
				log.Error("Failed to check session revocation", zap.String("jti", claims.ID), zap.Error(err))
			} else if revoked {
				abortUnauthorized(c, log, auth.ErrTokenRevoked, "Session has been revoked")
				return
			}

			revoked, err = cfg.Revocations.IsUserRevoked(ctx, claims.UserID, claims.GetIssuedAtTime())
			if err != nil {
				log.Error("Failed to check user session revocation", zap.String("user_id", claims.UserID), zap.Error(err))
			} else if revoked {
				abortUnauthorized(c, log, auth.ErrTokenRevoked, "Session has been revoked")
				return
			}
		}

		c.Set(SessionClaimsKey, claims)

		ctx := c.Request.Context()
		enriched := logger.FromContext(ctx).With(zap.String("user_id", claims.UserID))
		c.Request = c.Request.WithContext(logger.WithContext(ctx, enriched))

		c.Next()
	}
}

// RequireAdmin rejects sessions that do not belong to an admin. It must run after SessionAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetSessionClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Authentication required"))
			return
		}
		if !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(dto.ErrCodeForbidden, "Admin access required"))
			return
		}
		c.Next()
	}
}

// GetSessionClaims returns the authenticated claims, or nil
func GetSessionClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(SessionClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader(AuthHeaderKey)
	if strings.HasPrefix(header, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	}
	return ""
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Debug("Session authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)

	code := dto.ErrCodeUnauthorized
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrCodeTokenExpired
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrTokenRevoked):
		code = dto.ErrCodeTokenInvalid
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message))
}
