package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/opshub/backend/internal/application/automation"
	"github.com/opshub/backend/internal/application/notification"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/shared"
	"github.com/opshub/backend/internal/infrastructure/auth"
	"github.com/opshub/backend/internal/infrastructure/config"
	"github.com/opshub/backend/internal/infrastructure/email"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"github.com/opshub/backend/internal/infrastructure/persistence"
	"github.com/opshub/backend/internal/infrastructure/platform"
	"github.com/opshub/backend/internal/infrastructure/scheduler"
	"github.com/opshub/backend/internal/infrastructure/storage"
	"github.com/opshub/backend/internal/infrastructure/telemetry"
	"github.com/opshub/backend/internal/infrastructure/vault"
	"github.com/opshub/backend/internal/interfaces/http/handler"
	"github.com/opshub/backend/internal/interfaces/http/middleware"
	"github.com/opshub/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Ops Hub",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// The vault must exist before anything is scheduled
	credentialVault, err := vault.New(cfg.Security.EncryptionKey, cfg.App.Env, vault.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	metrics, err := telemetry.NewAutomationMetrics(meterProvider.Meter("opshub/automation"))
	if err != nil {
		log.Fatal("Failed to register automation metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel), cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled, log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	store := persistence.NewStore(db.DB)
	ensureAdmin(ctx, store, cfg.Security, log)

	// Email
	var transport email.Transport
	if cfg.Email.APIKey != "" {
		transport, err = email.NewHTTPTransport(email.HTTPConfig{
			BaseURL: cfg.Email.BaseURL,
			APIKey:  cfg.Email.APIKey,
			From:    cfg.Email.From,
			Timeout: cfg.Email.Timeout,
		})
		if err != nil {
			log.Fatal("Failed to initialize email transport", zap.Error(err))
		}
	} else {
		log.Warn("No email API key configured, emails will only be logged")
		transport = email.NewLogTransport(log)
	}
	notifier := notification.NewNotifier(store, transport, log, notification.WithFailureRecorder(metrics))

	// Platform syncs
	syncers := platform.NewSyncers(cfg.Platforms, platform.Deps{
		Vault:        credentialVault,
		Transactions: store,
		Invoices:     store,
		Tasks:        store,
		Integrations: store,
		Logger:       log,
	})
	dispatcher := platform.NewDispatcher(syncers, log)

	// Report archive
	var archive automation.Archive
	if cfg.Storage.Enabled {
		reportArchive, err := storage.NewReportArchive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize report archive", zap.Error(err))
		}
		if err := reportArchive.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to ensure report bucket", zap.Error(err))
		}
		archive = reportArchive
	}

	// Session revocations
	var revocations auth.Revocations
	if cfg.Redis.Enabled {
		redisRevocations, err := auth.NewRedisRevocations(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to initialize session revocations", zap.Error(err))
		}
		defer func() {
			_ = redisRevocations.Close()
		}()
		revocations = redisRevocations
	} else {
		revocations = auth.NewMemoryRevocations()
	}

	sessions, err := auth.NewSessionService(cfg.Security.SessionSecret, cfg.Security.SessionTTL)
	if err != nil {
		log.Fatal("Failed to initialize sessions", zap.Error(err))
	}

	// Scheduler and automation jobs
	clock := clockwork.NewRealClock()
	sched := scheduler.New(
		scheduler.WithClock(clock),
		scheduler.WithLogger(log),
		scheduler.WithRecorder(metrics),
	)
	automationService := automation.NewService(automation.Deps{
		Users:            store,
		Transactions:     store,
		Invoices:         store,
		Tasks:            store,
		Integrations:     store,
		Reports:          store,
		Dispatcher:       dispatcher,
		Notifier:         notifier,
		Archive:          archive,
		Metrics:          metrics,
		Clock:            clock,
		Logger:           log,
		LowCashThreshold: cfg.Scheduler.LowCashThreshold,
	})
	if cfg.Scheduler.Enabled {
		if err := automation.Register(sched, automationService, cfg.Scheduler); err != nil {
			log.Fatal("Failed to register automation jobs", zap.Error(err))
		}
	} else {
		log.Info("Scheduler disabled, automation jobs not registered")
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewEngine(router.EngineConfig{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Session: middleware.SessionConfig{
			Sessions:    sessions,
			Revocations: revocations,
			Logger:      log,
		},
	}, router.Handlers{
		Health:       handler.NewHealthHandler(db),
		Auth:         handler.NewAuthHandler(store, sessions, revocations, cfg.Security.CookieSecure),
		Clients:      handler.NewClientHandler(store, store, credentialVault, revocations, sessions.TTL()),
		Integrations: handler.NewIntegrationHandler(store, store, dispatcher),
		Scheduler:    handler.NewSchedulerHandler(sched),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	httpCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	schedCtx, cancelSched := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer cancelSched()
	if err := sched.StopAll(schedCtx); err != nil {
		log.Warn("Scheduler did not stop in time, abandoning in-flight jobs", zap.Error(err))
	}

	telemetryCtx, cancelTelemetry := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTelemetry()
	if err := meterProvider.Shutdown(telemetryCtx); err != nil {
		log.Warn("Failed to flush metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(telemetryCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// ensureAdmin creates the configured console admin on first start
func ensureAdmin(ctx context.Context, users identity.UserRepository, cfg config.SecurityConfig, log *zap.Logger) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}

	_, err := users.GetUserByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return
	}
	if !errors.Is(err, shared.ErrNotFound) {
		log.Fatal("Failed to look up admin account", zap.Error(err))
	}

	admin, err := identity.NewAdmin(cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		log.Fatal("Invalid admin account configuration", zap.Error(err))
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		log.Fatal("Failed to create admin account", zap.Error(err))
	}
	log.Info("Admin account created", zap.String("user_id", admin.ID.String()))
}
