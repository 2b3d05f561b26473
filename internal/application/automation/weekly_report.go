package automation

import (
	"context"
	"fmt"

	"github.com/opshub/backend/internal/application/notification"
	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/report"
	"github.com/opshub/backend/internal/domain/task"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const JobWeeklyReport = "weekly-report"

// GenerateWeeklyReports stores last week's figures for every tenant, archives
// the rendered report when an archive is configured, and emails it
func (s *Service) GenerateWeeklyReports(ctx context.Context) error {
	return s.forEachTenant(ctx, JobWeeklyReport, s.weeklyReport)
}

func (s *Service) weeklyReport(ctx context.Context, user *identity.User) error {
	start, end := report.WeeklyPeriod(s.now())

	txns, err := s.transactions.ListTransactions(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	invoices, err := s.invoices.ListInvoices(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}
	tasks, err := s.tasks.ListTasks(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	totals := finance.TotalsBetween(txns, start, end)
	overdue := finance.Overdue(invoices)

	r := report.NewWeekly(user.ID, start, end)
	r.Revenue = totals.Revenue
	r.Expenses = totals.Expenses
	r.NetCashFlow = totals.Net()
	r.CashPosition = finance.CashPosition(txns)
	r.OverdueInvoices = len(overdue)
	r.OverdueAmount = finance.TotalAmount(overdue)
	r.NewTasks = task.CreatedBetween(tasks, start, end)

	if err := s.reports.CreateReport(ctx, r); err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	payload := notification.WeeklyReportPayload{
		PeriodStart:     r.PeriodStart,
		PeriodEnd:       r.PeriodEnd,
		Revenue:         r.Revenue,
		Expenses:        r.Expenses,
		NetCashFlow:     r.NetCashFlow,
		CashPosition:    r.CashPosition,
		OverdueInvoices: r.OverdueInvoices,
		OverdueAmount:   r.OverdueAmount,
		NewTasks:        r.NewTasks,
	}

	if s.archive != nil {
		s.archiveReport(ctx, user, r, payload)
	}

	s.notifier.SendWeeklyReport(ctx, user.ID, payload)
	return nil
}

// archiveReport uploads the plain-text rendering. Archive failures are logged
// and do not hold back the email.
func (s *Service) archiveReport(ctx context.Context, user *identity.User, r *report.Report, payload notification.WeeklyReportPayload) {
	log := logger.FromContext(ctx)

	msg, err := notification.Render(identity.CategoryWeeklyReport, user, payload)
	if err != nil {
		log.Error("Failed to render report for archive", zap.Error(err))
		return
	}

	key := ArchiveKey(r)
	if err := s.archive.Put(ctx, key, "text/plain; charset=utf-8", []byte(msg.Text)); err != nil {
		log.Error("Failed to archive report", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.reports.UpdateReportArchive(ctx, r.ID, key); err != nil {
		log.Error("Failed to record report archive key", zap.String("key", key), zap.Error(err))
		return
	}
	r.ArchiveKey = key
}

// ArchiveKey is the object key for a stored report
func ArchiveKey(r *report.Report) string {
	return fmt.Sprintf("reports/%s/%s-%s.txt", r.UserID, r.Kind, r.PeriodStart.Format("2006-01-02"))
}
