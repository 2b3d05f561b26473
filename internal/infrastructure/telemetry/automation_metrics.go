package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics constructor receives no meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// AutomationMetrics counts the failures that scheduled jobs and the notifier
// swallow, so they are visible outside the logs.
type AutomationMetrics struct {
	notificationFailures *Counter
	syncFailures         *Counter
	tenantFailures       *Counter
	recordsImported      *Counter
	jobDuration          *Histogram
}

// NewAutomationMetrics registers the automation instruments on meter.
func NewAutomationMetrics(meter metric.Meter) (*AutomationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   AutomationMetrics
		err error
	)
	if m.notificationFailures, err = NewCounter(meter,
		"opshub_notification_failures_total",
		"Notification emails that failed to send",
		"{emails}"); err != nil {
		return nil, err
	}
	if m.syncFailures, err = NewCounter(meter,
		"opshub_sync_failures_total",
		"Integration sync passes that failed",
		"{syncs}"); err != nil {
		return nil, err
	}
	if m.tenantFailures, err = NewCounter(meter,
		"opshub_sweep_tenant_failures_total",
		"Tenants whose processing failed during a scheduled sweep",
		"{tenants}"); err != nil {
		return nil, err
	}
	if m.recordsImported, err = NewCounter(meter,
		"opshub_sync_records_imported_total",
		"Records created by integration syncs",
		"{records}"); err != nil {
		return nil, err
	}
	if m.jobDuration, err = NewHistogram(meter,
		"opshub_job_duration_seconds",
		"Duration of scheduled job runs",
		"s",
		JobDurationBuckets); err != nil {
		return nil, err
	}
	return &m, nil
}

// NotificationFailed records a swallowed send failure.
func (m *AutomationMetrics) NotificationFailed(ctx context.Context, tenantID uuid.UUID, category string) {
	m.notificationFailures.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrCategory.String(category))
}

// SyncFailed records a failed sync pass.
func (m *AutomationMetrics) SyncFailed(ctx context.Context, tenantID uuid.UUID, platform string) {
	m.syncFailures.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrPlatform.String(platform))
}

// RecordsImported records records created by a sync pass.
func (m *AutomationMetrics) RecordsImported(ctx context.Context, platform string, n int) {
	if n <= 0 {
		return
	}
	m.recordsImported.Add(ctx, int64(n), AttrPlatform.String(platform))
}

// TenantFailed records a tenant whose processing failed inside a sweep.
func (m *AutomationMetrics) TenantFailed(ctx context.Context, job string, tenantID uuid.UUID) {
	m.tenantFailures.Inc(ctx, AttrJob.String(job), AttrTenantID.String(tenantID.String()))
}

// JobCompleted records how long a job run took.
func (m *AutomationMetrics) JobCompleted(ctx context.Context, job string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobDuration.RecordDuration(ctx, d, AttrJob.String(job), AttrResult.String(result))
}
