// Package notification renders and sends tenant emails.
//
// The Notifier is at-most-once: a failed send is logged and counted, never
// retried and never returned to the caller.
package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/infrastructure/email"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// FailureRecorder counts sends that failed
type FailureRecorder interface {
	NotificationFailed(ctx context.Context, tenantID uuid.UUID, category string)
}

type nopRecorder struct{}

func (nopRecorder) NotificationFailed(context.Context, uuid.UUID, string) {}

// Notifier sends category emails to tenants who want them
type Notifier struct {
	users     identity.UserRepository
	transport email.Transport
	failures  FailureRecorder
	logger    *zap.Logger
}

// Option configures a Notifier
type Option func(*Notifier)

// WithFailureRecorder sets where failed sends are counted
func WithFailureRecorder(r FailureRecorder) Option {
	return func(n *Notifier) {
		if r != nil {
			n.failures = r
		}
	}
}

// NewNotifier creates a Notifier
func NewNotifier(users identity.UserRepository, transport email.Transport, log *zap.Logger, opts ...Option) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	n := &Notifier{
		users:     users,
		transport: transport,
		failures:  nopRecorder{},
		logger:    log.Named("notifier"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SendWeeklyReport emails the weekly summary
func (n *Notifier) SendWeeklyReport(ctx context.Context, userID uuid.UUID, payload WeeklyReportPayload) {
	n.send(ctx, userID, identity.CategoryWeeklyReport, payload)
}

// SendLowCashAlert emails a low cash warning
func (n *Notifier) SendLowCashAlert(ctx context.Context, userID uuid.UUID, payload LowCashPayload) {
	n.send(ctx, userID, identity.CategoryLowCashAlert, payload)
}

// SendOverdueInvoiceReminder emails the list of overdue invoices
func (n *Notifier) SendOverdueInvoiceReminder(ctx context.Context, userID uuid.UUID, payload OverdueInvoicePayload) {
	n.send(ctx, userID, identity.CategoryOverdueInvoices, payload)
}

// SendIntegrationFailureAlert emails a failed sync notice
func (n *Notifier) SendIntegrationFailureAlert(ctx context.Context, userID uuid.UUID, payload IntegrationFailurePayload) {
	n.send(ctx, userID, identity.CategoryIntegrationFailure, payload)
}

func (n *Notifier) send(ctx context.Context, userID uuid.UUID, category identity.NotificationCategory, payload any) {
	log := n.logger.With(logger.Tenant(userID), zap.String("category", string(category)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Notification panicked", zap.Any("panic", r))
			n.failures.NotificationFailed(ctx, userID, string(category))
		}
	}()

	user, err := n.users.GetUser(ctx, userID)
	if err != nil {
		log.Warn("Skipping notification, tenant could not be loaded", zap.Error(err))
		return
	}
	if !user.WantsEmail(category) {
		log.Debug("Skipping notification, tenant opted out or has no email")
		return
	}

	msg, err := Render(category, user, payload)
	if err != nil {
		log.Error("Failed to render notification", zap.Error(err))
		n.failures.NotificationFailed(ctx, userID, string(category))
		return
	}

	if err := n.transport.Send(ctx, email.Message{
		To:      user.Email,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}); err != nil {
		log.Error("Failed to send notification", zap.Error(fmt.Errorf("send %s: %w", category, err)))
		n.failures.NotificationFailed(ctx, userID, string(category))
		return
	}

	log.Info("Notification sent")
}
