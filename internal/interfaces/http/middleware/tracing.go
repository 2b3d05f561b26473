// Package middleware provides HTTP middleware for the admin console.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing returns otelgin followed by a handler that adds request_id and
// user_id to the request span. Server errors (5xx) mark the span as failed.
// Register it after logger.GinMiddleware so the request id is available.
func Tracing(cfg TracingConfig) gin.HandlersChain {
	if !cfg.Enabled {
		return nil
	}
	return gin.HandlersChain{otelgin.Middleware(cfg.ServiceName), enrichSpan}
}

// enrichSpan runs inside the otelgin span, so attributes land before it ends
func enrichSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())

	c.Next()

	if !span.IsRecording() {
		return
	}
	if requestID := logger.GetRequestID(c.Request.Context()); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if claims := GetSessionClaims(c); claims != nil {
		span.SetAttributes(attribute.String("user_id", claims.UserID))
	}
	if status := c.Writer.Status(); status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
