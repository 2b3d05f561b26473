// Package automation holds the scheduled sweeps that run across every active
// client tenant: integration sync, low-cash and overdue-invoice checks, and
// the weekly report.
package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/opshub/backend/internal/application/notification"
	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/domain/report"
	"github.com/opshub/backend/internal/domain/task"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// DefaultLowCashThreshold is $5,000.00 in minor units
const DefaultLowCashThreshold int64 = 500000

// ErrPartialSweep is returned when a sweep finished but some tenants failed
var ErrPartialSweep = errors.New("automation: sweep failed for some tenants")

// Dispatcher runs one integration sync
type Dispatcher interface {
	Sync(ctx context.Context, integ *integration.Integration) (*integration.SyncResult, error)
}

// Notifier sends tenant emails. Implementations swallow delivery failures.
type Notifier interface {
	SendWeeklyReport(ctx context.Context, userID uuid.UUID, payload notification.WeeklyReportPayload)
	SendLowCashAlert(ctx context.Context, userID uuid.UUID, payload notification.LowCashPayload)
	SendOverdueInvoiceReminder(ctx context.Context, userID uuid.UUID, payload notification.OverdueInvoicePayload)
	SendIntegrationFailureAlert(ctx context.Context, userID uuid.UUID, payload notification.IntegrationFailurePayload)
}

// Archive stores rendered reports
type Archive interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// Metrics records sweep outcomes
type Metrics interface {
	SyncFailed(ctx context.Context, tenantID uuid.UUID, platform string)
	RecordsImported(ctx context.Context, platform string, n int)
	TenantFailed(ctx context.Context, job string, tenantID uuid.UUID)
}

type nopMetrics struct{}

func (nopMetrics) SyncFailed(context.Context, uuid.UUID, string)   {}
func (nopMetrics) RecordsImported(context.Context, string, int)    {}
func (nopMetrics) TenantFailed(context.Context, string, uuid.UUID) {}

// Deps are the collaborators of a Service. Archive, Metrics, Clock and
// Logger are optional.
type Deps struct {
	Users        identity.UserRepository
	Transactions finance.TransactionRepository
	Invoices     finance.InvoiceRepository
	Tasks        task.Repository
	Integrations integration.Repository
	Reports      report.Repository

	Dispatcher Dispatcher
	Notifier   Notifier
	Archive    Archive
	Metrics    Metrics
	Clock      clockwork.Clock
	Logger     *zap.Logger

	// LowCashThreshold in minor units, DefaultLowCashThreshold when zero
	LowCashThreshold int64
}

// Service runs the automation sweeps
type Service struct {
	users        identity.UserRepository
	transactions finance.TransactionRepository
	invoices     finance.InvoiceRepository
	tasks        task.Repository
	integrations integration.Repository
	reports      report.Repository

	dispatcher Dispatcher
	notifier   Notifier
	archive    Archive
	metrics    Metrics
	clock      clockwork.Clock
	logger     *zap.Logger
	threshold  int64
}

// NewService creates the automation service
func NewService(deps Deps) *Service {
	s := &Service{
		users:        deps.Users,
		transactions: deps.Transactions,
		invoices:     deps.Invoices,
		tasks:        deps.Tasks,
		integrations: deps.Integrations,
		reports:      deps.Reports,
		dispatcher:   deps.Dispatcher,
		notifier:     deps.Notifier,
		archive:      deps.Archive,
		metrics:      deps.Metrics,
		clock:        deps.Clock,
		logger:       deps.Logger,
		threshold:    deps.LowCashThreshold,
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.threshold == 0 {
		s.threshold = DefaultLowCashThreshold
	}
	s.logger = s.logger.Named("automation")
	return s
}

// LowCashThreshold returns the effective alert threshold
func (s *Service) LowCashThreshold() int64 {
	return s.threshold
}

// forEachTenant applies fn to every sweepable tenant. Each call has its own
// error and panic boundary, so one tenant never stops the sweep. Only a
// failure to list tenants aborts.
func (s *Service) forEachTenant(ctx context.Context, job string, fn func(ctx context.Context, user *identity.User) error) error {
	started := s.clock.Now()
	log := s.logger.With(logger.Job(job))

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		log.Error("Failed to list tenants", zap.Error(err))
		return fmt.Errorf("list tenants: %w", err)
	}

	var processed, failed int
	for _, user := range users {
		if ctx.Err() != nil {
			log.Warn("Sweep cancelled", zap.Int("processed", processed))
			return ctx.Err()
		}
		if !user.IsSweepable() {
			continue
		}
		processed++

		tenantLog := log.With(logger.Tenant(user.ID))
		if err := s.runTenant(logger.WithContext(ctx, tenantLog), user, fn); err != nil {
			failed++
			tenantLog.Error("Tenant sweep failed", zap.Error(err))
			s.metrics.TenantFailed(ctx, job, user.ID)
		}
	}

	log.Info("Sweep finished",
		zap.Int("tenants", processed),
		zap.Int("failed", failed),
		zap.Duration("duration", s.clock.Since(started)),
	)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrPartialSweep, failed, processed)
	}
	return nil
}

func (s *Service) runTenant(ctx context.Context, user *identity.User, fn func(context.Context, *identity.User) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tenant sweep panicked: %v", r)
		}
	}()
	return fn(ctx, user)
}

func (s *Service) now() time.Time {
	return s.clock.Now()
}
