package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/shared"
)

// Kind of stored report
type Kind string

const KindWeekly Kind = "weekly"

// Report is a stored snapshot of a tenant's figures for one period
type Report struct {
	shared.BaseEntity
	UserID          uuid.UUID
	Kind            Kind
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Revenue         int64
	Expenses        int64
	NetCashFlow     int64
	CashPosition    int64
	OverdueInvoices int
	OverdueAmount   int64
	NewTasks        int
	// ArchiveKey is the object storage key of the rendered report, empty when not archived
	ArchiveKey string
}

// WeeklyPeriod returns the seven days ending at the start of the day containing now
func WeeklyPeriod(now time.Time) (start, end time.Time) {
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return end.AddDate(0, 0, -7), end
}

// NewWeekly creates an empty weekly report for the period
func NewWeekly(userID uuid.UUID, start, end time.Time) *Report {
	return &Report{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Kind:        KindWeekly,
		PeriodStart: start,
		PeriodEnd:   end,
	}
}

// Repository persists reports
type Repository interface {
	CreateReport(ctx context.Context, r *Report) error
	UpdateReportArchive(ctx context.Context, id uuid.UUID, archiveKey string) error
	ListReports(ctx context.Context, userID uuid.UUID) ([]*Report, error)
}
