package automation

import (
	"context"
	"fmt"

	"github.com/opshub/backend/internal/application/notification"
	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const (
	JobLowCash         = "low-cash-check"
	JobOverdueInvoices = "overdue-invoices"
)

// CheckLowCash alerts tenants whose cash position is under the threshold
func (s *Service) CheckLowCash(ctx context.Context) error {
	return s.forEachTenant(ctx, JobLowCash, s.checkTenantCash)
}

func (s *Service) checkTenantCash(ctx context.Context, user *identity.User) error {
	txns, err := s.transactions.ListTransactions(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	cash := finance.CashPosition(txns)
	if cash >= s.threshold {
		return nil
	}

	logger.FromContext(ctx).Info("Cash below threshold",
		zap.Int64("cash", cash),
		zap.Int64("threshold", s.threshold),
	)
	s.notifier.SendLowCashAlert(ctx, user.ID, notification.LowCashPayload{
		CurrentCash: cash,
		Threshold:   s.threshold,
	})
	return nil
}

// CheckOverdueInvoices sends each tenant one reminder listing its overdue invoices
func (s *Service) CheckOverdueInvoices(ctx context.Context) error {
	return s.forEachTenant(ctx, JobOverdueInvoices, s.checkTenantInvoices)
}

func (s *Service) checkTenantInvoices(ctx context.Context, user *identity.User) error {
	invoices, err := s.invoices.ListInvoices(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}

	overdue := finance.Overdue(invoices)
	if len(overdue) == 0 {
		return nil
	}

	logger.FromContext(ctx).Info("Overdue invoices found", zap.Int("count", len(overdue)))
	s.notifier.SendOverdueInvoiceReminder(ctx, user.ID, notification.OverdueInvoicePayload{Invoices: overdue})
	return nil
}
