package automation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/infrastructure/config"
	"github.com/opshub/backend/internal/infrastructure/scheduler"
)

// Register adds the four sweeps to the scheduler. It registers all of them or
// none: when one fails, the jobs already added are unregistered again.
func Register(s *scheduler.Scheduler, svc *Service, cfg config.SchedulerConfig) error {
	weekday := cfg.WeeklyReportDay

	registrations := []struct {
		name string
		add  func() (uuid.UUID, error)
	}{
		{JobIntegrationSync, func() (uuid.UUID, error) {
			return s.RegisterInterval(JobIntegrationSync, cfg.SyncInterval, svc.SyncIntegrations)
		}},
		{JobLowCash, func() (uuid.UUID, error) {
			return s.RegisterInterval(JobLowCash, cfg.LowCashInterval, svc.CheckLowCash)
		}},
		{JobOverdueInvoices, func() (uuid.UUID, error) {
			return s.RegisterAnchored(JobOverdueInvoices, cfg.OverdueHour, nil, svc.CheckOverdueInvoices)
		}},
		{JobWeeklyReport, func() (uuid.UUID, error) {
			return s.RegisterAnchored(JobWeeklyReport, cfg.WeeklyReportHour, &weekday, svc.GenerateWeeklyReports)
		}},
	}

	ids := make([]uuid.UUID, 0, len(registrations))
	for _, r := range registrations {
		id, err := r.add()
		if err != nil {
			for _, registered := range ids {
				_ = s.Unregister(registered)
			}
			return fmt.Errorf("register %s: %w", r.name, err)
		}
		ids = append(ids, id)
	}
	return nil
}
