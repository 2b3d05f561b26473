package router

import (
	"github.com/gin-gonic/gin"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"github.com/opshub/backend/internal/interfaces/http/handler"
	"github.com/opshub/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers are the admin console endpoints
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Clients      *handler.ClientHandler
	Integrations *handler.IntegrationHandler
	Scheduler    *handler.SchedulerHandler
}

// EngineConfig configures the middleware stack
type EngineConfig struct {
	Logger  *zap.Logger
	Tracing middleware.TracingConfig
	Session middleware.SessionConfig
}

// NewEngine builds the gin engine serving the admin console API under /api/v1
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(cfg.Tracing)...)

	session := middleware.SessionAuth(cfg.Session)

	system := NewDomainGroup("system", "")
	system.GET("/health", h.Health.Health)

	authRoutes := NewDomainGroup("auth", "/auth")
	authRoutes.POST("/login", h.Auth.Login)
	authRoutes.POST("/logout", session, h.Auth.Logout)
	authRoutes.GET("/me", session, h.Auth.Me)

	admin := NewDomainGroup("admin", "/admin")
	admin.Use(session, middleware.RequireAdmin())

	clients := admin.Group("clients", "/clients")
	clients.GET("", h.Clients.List)
	clients.POST("", h.Clients.Create)
	clients.DELETE("/:id", h.Clients.Deactivate)
	clients.PUT("/:id/preferences", h.Clients.UpdatePreferences)
	clients.GET("/:id/integrations", h.Clients.ListIntegrations)
	clients.POST("/:id/integrations", h.Clients.ConnectIntegration)

	admin.Group("integrations", "/integrations").
		POST("/:id/sync", h.Integrations.Sync)

	admin.Group("scheduler", "/scheduler").
		GET("/jobs", h.Scheduler.ListJobs).
		POST("/jobs/:id/run", h.Scheduler.RunJob)

	NewRouter(engine).
		Register(system).
		Register(authRoutes).
		Register(admin).
		Setup()

	return engine
}
