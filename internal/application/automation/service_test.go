package automation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/opshub/backend/internal/application/notification"
	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/domain/shared"
	"github.com/opshub/backend/internal/domain/task"
	"github.com/opshub/backend/internal/infrastructure/config"
	"github.com/opshub/backend/internal/infrastructure/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// monday8 is Monday 2026-03-16 08:00 UTC
var monday8 = time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store      *memoryStore
	notifier   *MockNotifier
	dispatcher *MockDispatcher
	archive    *fakeArchive
	metrics    *recordingMetrics
	svc        *Service
}

func newFixture(t *testing.T, withArchive bool) *fixture {
	t.Helper()
	f := &fixture{
		store:      newMemoryStore(),
		notifier:   new(MockNotifier),
		dispatcher: new(MockDispatcher),
		metrics:    newRecordingMetrics(),
	}
	deps := Deps{
		Users:        f.store,
		Transactions: f.store,
		Invoices:     f.store,
		Tasks:        f.store,
		Integrations: f.store,
		Reports:      f.store,
		Dispatcher:   f.dispatcher,
		Notifier:     f.notifier,
		Metrics:      f.metrics,
		Clock:        clockwork.NewFakeClockAt(monday8),
		Logger:       zaptest.NewLogger(t),
	}
	if withArchive {
		f.archive = &fakeArchive{}
		deps.Archive = f.archive
	}
	f.svc = NewService(deps)
	return f
}

func (f *fixture) addClient(email string) *identity.User {
	u := mustClient(email, strings.Split(email, "@")[0])
	f.store.users = append(f.store.users, u)
	return u
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(Deps{})
	assert.Equal(t, DefaultLowCashThreshold, svc.LowCashThreshold())

	svc = NewService(Deps{LowCashThreshold: 1000})
	assert.Equal(t, int64(1000), svc.LowCashThreshold())
}

func TestCheckLowCash_OneAlertBelowThreshold(t *testing.T) {
	f := newFixture(t, false)
	tenant := f.addClient("owner@bakery.test")
	f.store.transactions[tenant.ID] = []*finance.Transaction{
		mustTxn(tenant.ID, finance.TransactionPayment, 100000, monday8.AddDate(0, 0, -3)),
		mustTxn(tenant.ID, finance.TransactionExpense, 96000, monday8.AddDate(0, 0, -2)),
	}

	f.notifier.On("SendLowCashAlert", mock.Anything, tenant.ID, notification.LowCashPayload{
		CurrentCash: 4000,
		Threshold:   DefaultLowCashThreshold,
	}).Once()

	require.NoError(t, f.svc.CheckLowCash(context.Background()))
	f.notifier.AssertExpectations(t)
	f.notifier.AssertNumberOfCalls(t, "SendLowCashAlert", 1)
}

func TestCheckLowCash_AtOrAboveThresholdIsQuiet(t *testing.T) {
	f := newFixture(t, false)
	tenant := f.addClient("owner@bakery.test")
	f.store.transactions[tenant.ID] = []*finance.Transaction{
		mustTxn(tenant.ID, finance.TransactionPayment, DefaultLowCashThreshold, monday8),
	}

	require.NoError(t, f.svc.CheckLowCash(context.Background()))
	f.notifier.AssertNotCalled(t, "SendLowCashAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckOverdueInvoices_OneReminderListingOverdue(t *testing.T) {
	f := newFixture(t, false)
	tenant := f.addClient("owner@bakery.test")
	first := mustInvoice(tenant.ID, 12000, finance.InvoiceOverdue)
	second := mustInvoice(tenant.ID, 8000, finance.InvoiceOverdue)
	f.store.invoices[tenant.ID] = []*finance.Invoice{
		first,
		mustInvoice(tenant.ID, 50000, finance.InvoiceDue),
		second,
	}

	f.notifier.On("SendOverdueInvoiceReminder", mock.Anything, tenant.ID,
		mock.MatchedBy(func(p notification.OverdueInvoicePayload) bool {
			return len(p.Invoices) == 2 && p.Invoices[0] == first && p.Invoices[1] == second
		})).Once()

	require.NoError(t, f.svc.CheckOverdueInvoices(context.Background()))
	f.notifier.AssertExpectations(t)
	f.notifier.AssertNumberOfCalls(t, "SendOverdueInvoiceReminder", 1)
}

func TestCheckOverdueInvoices_NoneOverdue(t *testing.T) {
	f := newFixture(t, false)
	tenant := f.addClient("owner@bakery.test")
	f.store.invoices[tenant.ID] = []*finance.Invoice{
		mustInvoice(tenant.ID, 50000, finance.InvoiceDue),
		mustInvoice(tenant.ID, 1000, finance.InvoicePaid),
	}

	require.NoError(t, f.svc.CheckOverdueInvoices(context.Background()))
	f.notifier.AssertNotCalled(t, "SendOverdueInvoiceReminder", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweeps_SkipInactiveTenantsAndAdmins(t *testing.T) {
	f := newFixture(t, false)
	inactive := f.addClient("gone@closed.test")
	inactive.Deactivate()
	admin := f.addClient("ops@hub.test")
	admin.Role = identity.RoleAdmin

	for _, u := range []*identity.User{inactive, admin} {
		f.store.transactions[u.ID] = []*finance.Transaction{mustTxn(u.ID, finance.TransactionExpense, 100, monday8)}
		f.store.invoices[u.ID] = []*finance.Invoice{mustInvoice(u.ID, 100, finance.InvoiceOverdue)}
		f.store.integrations[u.ID] = []*integration.Integration{{
			BaseEntity: shared.NewBaseEntity(), UserID: u.ID, Platform: "stripe", IsConnected: true,
		}}
	}

	ctx := context.Background()
	require.NoError(t, f.svc.CheckLowCash(ctx))
	require.NoError(t, f.svc.CheckOverdueInvoices(ctx))
	require.NoError(t, f.svc.SyncIntegrations(ctx))
	require.NoError(t, f.svc.GenerateWeeklyReports(ctx))

	assert.Empty(t, f.notifier.Calls)
	f.dispatcher.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
	assert.Empty(t, f.store.reports)
}

func TestForEachTenant_IsolatesFailures(t *testing.T) {
	f := newFixture(t, false)
	failing := f.addClient("a@fail.test")
	panicking := f.addClient("b@panic.test")
	healthy := f.addClient("c@ok.test")
	f.store.failFor[failing.ID] = true
	f.store.panicFor[panicking.ID] = true
	f.store.transactions[healthy.ID] = []*finance.Transaction{
		mustTxn(healthy.ID, finance.TransactionPayment, 100, monday8),
	}

	f.notifier.On("SendLowCashAlert", mock.Anything, healthy.ID, mock.Anything).Once()

	err := f.svc.CheckLowCash(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialSweep)
	assert.Contains(t, err.Error(), "2 of 3")

	f.notifier.AssertExpectations(t)
	assert.ElementsMatch(t, []uuid.UUID{failing.ID, panicking.ID}, f.metrics.tenantFailure[JobLowCash])
}

func TestForEachTenant_ListFailureAborts(t *testing.T) {
	f := newFixture(t, false)
	f.store.listErr = errStore

	err := f.svc.CheckOverdueInvoices(context.Background())
	assert.ErrorIs(t, err, errStore)
}

func TestForEachTenant_StopsWhenCancelled(t *testing.T) {
	f := newFixture(t, false)
	f.addClient("a@one.test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.svc.CheckLowCash(ctx), context.Canceled)
	assert.Empty(t, f.notifier.Calls)
}

func TestSyncIntegrations(t *testing.T) {
	f := newFixture(t, false)
	tenant := f.addClient("owner@bakery.test")
	stripe := &integration.Integration{BaseEntity: shared.NewBaseEntity(), UserID: tenant.ID, Platform: "stripe", IsConnected: true}
	asana := &integration.Integration{BaseEntity: shared.NewBaseEntity(), UserID: tenant.ID, Platform: "Asana", IsConnected: true}
	paypal := &integration.Integration{BaseEntity: shared.NewBaseEntity(), UserID: tenant.ID, Platform: "paypal", IsConnected: false}
	legacy := &integration.Integration{BaseEntity: shared.NewBaseEntity(), UserID: tenant.ID, Platform: "xero", IsConnected: true}
	f.store.integrations[tenant.ID] = []*integration.Integration{stripe, asana, paypal, legacy}

	f.dispatcher.On("Sync", mock.Anything, stripe).Return(&integration.SyncResult{Success: true, Imported: 3, Skipped: 1}, nil).Once()
	f.dispatcher.On("Sync", mock.Anything, asana).
		Return(nil, errors.New("asana: GET /tasks: "+integration.ErrReauthorizationRequired.Error())).Once()
	f.dispatcher.On("Sync", mock.Anything, legacy).Return(&integration.SyncResult{Success: false}, nil).Once()

	f.notifier.On("SendIntegrationFailureAlert", mock.Anything, tenant.ID,
		mock.MatchedBy(func(p notification.IntegrationFailurePayload) bool {
			return p.Platform == "Asana" && p.OccurredAt.Equal(monday8) && !strings.Contains(p.Reason, "GET /tasks")
		})).Once()

	require.NoError(t, f.svc.SyncIntegrations(context.Background()))

	f.dispatcher.AssertExpectations(t)
	f.dispatcher.AssertNotCalled(t, "Sync", mock.Anything, paypal)
	f.notifier.AssertExpectations(t)
	assert.Equal(t, 3, f.metrics.imported["stripe"])
	assert.Equal(t, 1, f.metrics.syncFailures["asana"])
	assert.Empty(t, f.metrics.tenantFailure)
}

func TestSyncIntegrations_ListFailureFailsTenantOnly(t *testing.T) {
	f := newFixture(t, false)
	broken := f.addClient("a@broken.test")
	ok := f.addClient("b@ok.test")
	f.store.failFor[broken.ID] = true
	integ := &integration.Integration{BaseEntity: shared.NewBaseEntity(), UserID: ok.ID, Platform: "stripe", IsConnected: true}
	f.store.integrations[ok.ID] = []*integration.Integration{integ}

	f.dispatcher.On("Sync", mock.Anything, integ).Return(&integration.SyncResult{Success: true}, nil).Once()

	err := f.svc.SyncIntegrations(context.Background())
	assert.ErrorIs(t, err, ErrPartialSweep)
	f.dispatcher.AssertExpectations(t)
	assert.Equal(t, []uuid.UUID{broken.ID}, f.metrics.tenantFailure[JobIntegrationSync])
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{integration.ErrMissingCredentials, "missing or incomplete"},
		{integration.ErrReauthorizationRequired, "rejected our authorization"},
		{integration.ErrPlatformUnavailable, "temporarily unavailable"},
		{context.DeadlineExceeded, "timed out"},
		{integration.ErrPlatformRequestFailed, "unexpected response"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Contains(t, failureReason(tt.err), tt.want)
		})
	}
}

func TestGenerateWeeklyReports(t *testing.T) {
	f := newFixture(t, true)
	tenant := f.addClient("owner@bakery.test")
	f.store.transactions[tenant.ID] = []*finance.Transaction{
		mustTxn(tenant.ID, finance.TransactionPayment, 20000, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)),
		mustTxn(tenant.ID, finance.TransactionExpense, 5000, time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)),
		mustTxn(tenant.ID, finance.TransactionPayment, 99999, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
	}
	f.store.invoices[tenant.ID] = []*finance.Invoice{
		mustInvoice(tenant.ID, 7000, finance.InvoiceOverdue),
		mustInvoice(tenant.ID, 3000, finance.InvoiceDue),
	}
	recent, err := task.NewTask(tenant.ID, "Call supplier", "", "")
	require.NoError(t, err)
	recent.CreatedAt = time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	old, err := task.NewTask(tenant.ID, "File taxes", "", "")
	require.NoError(t, err)
	old.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	f.store.tasks[tenant.ID] = []*task.Task{recent, old}

	want := notification.WeeklyReportPayload{
		PeriodStart:     time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		PeriodEnd:       time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		Revenue:         20000,
		Expenses:        5000,
		NetCashFlow:     15000,
		CashPosition:    114999,
		OverdueInvoices: 1,
		OverdueAmount:   7000,
		NewTasks:        1,
	}
	f.notifier.On("SendWeeklyReport", mock.Anything, tenant.ID, want).Once()

	require.NoError(t, f.svc.GenerateWeeklyReports(context.Background()))
	f.notifier.AssertExpectations(t)

	require.Len(t, f.store.reports, 1)
	stored := f.store.reports[0]
	assert.Equal(t, int64(15000), stored.NetCashFlow)
	assert.Equal(t, 1, stored.NewTasks)

	key := ArchiveKey(stored)
	assert.Equal(t, "reports/"+tenant.ID.String()+"/weekly-2026-03-09.txt", key)
	assert.Equal(t, key, stored.ArchiveKey)
	assert.Equal(t, key, f.store.archiveKeys[stored.ID])
	require.Contains(t, f.archive.objects, key)
	assert.Contains(t, string(f.archive.objects[key]), "$150.00")
}

func TestGenerateWeeklyReports_ArchiveFailureStillEmails(t *testing.T) {
	f := newFixture(t, true)
	f.archive.err = errors.New("bucket gone")
	tenant := f.addClient("owner@bakery.test")

	f.notifier.On("SendWeeklyReport", mock.Anything, tenant.ID, mock.Anything).Once()

	require.NoError(t, f.svc.GenerateWeeklyReports(context.Background()))
	f.notifier.AssertExpectations(t)
	require.Len(t, f.store.reports, 1)
	assert.Empty(t, f.store.reports[0].ArchiveKey)
	assert.Empty(t, f.store.archiveKeys)
}

func TestRegister(t *testing.T) {
	f := newFixture(t, false)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))
	s := scheduler.New(scheduler.WithClock(clock), scheduler.WithLocation(time.UTC))
	t.Cleanup(func() { _ = s.StopAll(context.Background()) })

	cfg := config.SchedulerConfig{
		SyncInterval:     15 * time.Minute,
		LowCashInterval:  time.Hour,
		OverdueHour:      9,
		WeeklyReportHour: 8,
		WeeklyReportDay:  time.Monday,
	}
	require.NoError(t, Register(s, f.svc, cfg))
	clock.BlockUntil(4)

	next := make(map[string]time.Time)
	for _, j := range s.Jobs() {
		next[j.Name] = j.NextRun
	}
	assert.Equal(t, map[string]time.Time{
		JobIntegrationSync: time.Date(2026, 3, 10, 10, 15, 0, 0, time.UTC),
		JobLowCash:         time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
		JobOverdueInvoices: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
		JobWeeklyReport:    time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC),
	}, next)
}

func TestRegister_InvalidConfig(t *testing.T) {
	f := newFixture(t, false)
	s := scheduler.New(scheduler.WithClock(clockwork.NewFakeClock()))
	t.Cleanup(func() { _ = s.StopAll(context.Background()) })

	err := Register(s, f.svc, config.SchedulerConfig{SyncInterval: 0})
	assert.ErrorIs(t, err, scheduler.ErrInvalidJob)
}

func TestRegister_FailureLeavesNoJobs(t *testing.T) {
	f := newFixture(t, false)
	s := scheduler.New(scheduler.WithClock(clockwork.NewFakeClock()))
	t.Cleanup(func() { _ = s.StopAll(context.Background()) })

	err := Register(s, f.svc, config.SchedulerConfig{
		SyncInterval:     15 * time.Minute,
		LowCashInterval:  time.Hour,
		OverdueHour:      24,
		WeeklyReportHour: 8,
	})
	require.ErrorIs(t, err, scheduler.ErrInvalidJob)
	assert.Contains(t, err.Error(), JobOverdueInvoices)
	assert.Empty(t, s.Jobs())
}
