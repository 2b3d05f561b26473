package automation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/application/notification"
	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/domain/report"
	"github.com/opshub/backend/internal/domain/shared"
	"github.com/opshub/backend/internal/domain/task"
	"github.com/stretchr/testify/mock"
)

var errStore = errors.New("store unavailable")

// memoryStore implements every repository the service reads from. Listing
// for a tenant in failFor returns errStore; in panicFor it panics.
type memoryStore struct {
	mu           sync.Mutex
	users        []*identity.User
	transactions map[uuid.UUID][]*finance.Transaction
	invoices     map[uuid.UUID][]*finance.Invoice
	tasks        map[uuid.UUID][]*task.Task
	integrations map[uuid.UUID][]*integration.Integration
	reports      []*report.Report
	archiveKeys  map[uuid.UUID]string
	failFor      map[uuid.UUID]bool
	panicFor     map[uuid.UUID]bool
	listErr      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		transactions: make(map[uuid.UUID][]*finance.Transaction),
		invoices:     make(map[uuid.UUID][]*finance.Invoice),
		tasks:        make(map[uuid.UUID][]*task.Task),
		integrations: make(map[uuid.UUID][]*integration.Integration),
		archiveKeys:  make(map[uuid.UUID]string),
		failFor:      make(map[uuid.UUID]bool),
		panicFor:     make(map[uuid.UUID]bool),
	}
}

func (m *memoryStore) check(userID uuid.UUID) error {
	if m.panicFor[userID] {
		panic("corrupt tenant row")
	}
	if m.failFor[userID] {
		return errStore
	}
	return nil
}

func (m *memoryStore) GetUser(_ context.Context, id uuid.UUID) (*identity.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryStore) ListUsers(context.Context) ([]*identity.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.users, nil
}

func (m *memoryStore) CreateUser(_ context.Context, user *identity.User) error {
	m.users = append(m.users, user)
	return nil
}

func (m *memoryStore) UpdateUser(context.Context, uuid.UUID, identity.UserUpdate) (*identity.User, error) {
	return nil, errors.New("not implemented")
}

func (m *memoryStore) ListTransactions(_ context.Context, userID uuid.UUID) ([]*finance.Transaction, error) {
	if err := m.check(userID); err != nil {
		return nil, err
	}
	return m.transactions[userID], nil
}

func (m *memoryStore) CreateTransaction(_ context.Context, txn *finance.Transaction) error {
	m.transactions[txn.UserID] = append(m.transactions[txn.UserID], txn)
	return nil
}

func (m *memoryStore) ListInvoices(_ context.Context, userID uuid.UUID) ([]*finance.Invoice, error) {
	if err := m.check(userID); err != nil {
		return nil, err
	}
	return m.invoices[userID], nil
}

func (m *memoryStore) CreateInvoice(_ context.Context, inv *finance.Invoice) error {
	m.invoices[inv.UserID] = append(m.invoices[inv.UserID], inv)
	return nil
}

func (m *memoryStore) ListTasks(_ context.Context, userID uuid.UUID) ([]*task.Task, error) {
	if err := m.check(userID); err != nil {
		return nil, err
	}
	return m.tasks[userID], nil
}

func (m *memoryStore) CreateTask(_ context.Context, t *task.Task) error {
	m.tasks[t.UserID] = append(m.tasks[t.UserID], t)
	return nil
}

func (m *memoryStore) ListIntegrations(_ context.Context, userID uuid.UUID) ([]*integration.Integration, error) {
	if err := m.check(userID); err != nil {
		return nil, err
	}
	return m.integrations[userID], nil
}

func (m *memoryStore) GetIntegration(_ context.Context, id uuid.UUID) (*integration.Integration, error) {
	for _, list := range m.integrations {
		for _, i := range list {
			if i.ID == id {
				return i, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryStore) CreateIntegration(_ context.Context, integ *integration.Integration) error {
	m.integrations[integ.UserID] = append(m.integrations[integ.UserID], integ)
	return nil
}

func (m *memoryStore) UpdateIntegration(context.Context, uuid.UUID, integration.Update) error {
	return nil
}

func (m *memoryStore) CreateReport(_ context.Context, r *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

func (m *memoryStore) UpdateReportArchive(_ context.Context, id uuid.UUID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archiveKeys[id] = key
	return nil
}

func (m *memoryStore) ListReports(_ context.Context, userID uuid.UUID) ([]*report.Report, error) {
	var out []*report.Report
	for _, r := range m.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendWeeklyReport(ctx context.Context, userID uuid.UUID, payload notification.WeeklyReportPayload) {
	m.Called(ctx, userID, payload)
}

func (m *MockNotifier) SendLowCashAlert(ctx context.Context, userID uuid.UUID, payload notification.LowCashPayload) {
	m.Called(ctx, userID, payload)
}

func (m *MockNotifier) SendOverdueInvoiceReminder(ctx context.Context, userID uuid.UUID, payload notification.OverdueInvoicePayload) {
	m.Called(ctx, userID, payload)
}

func (m *MockNotifier) SendIntegrationFailureAlert(ctx context.Context, userID uuid.UUID, payload notification.IntegrationFailurePayload) {
	m.Called(ctx, userID, payload)
}

// MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Sync(ctx context.Context, integ *integration.Integration) (*integration.SyncResult, error) {
	args := m.Called(ctx, integ)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncResult), args.Error(1)
}

// fakeArchive keeps uploaded objects in memory
type fakeArchive struct {
	objects map[string][]byte
	err     error
}

func (f *fakeArchive) Put(_ context.Context, key, _ string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = body
	return nil
}

// recordingMetrics counts what the service reports
type recordingMetrics struct {
	mu            sync.Mutex
	syncFailures  map[string]int
	imported      map[string]int
	tenantFailure map[string][]uuid.UUID
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		syncFailures:  make(map[string]int),
		imported:      make(map[string]int),
		tenantFailure: make(map[string][]uuid.UUID),
	}
}

func (r *recordingMetrics) SyncFailed(_ context.Context, _ uuid.UUID, platform string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncFailures[platform]++
}

func (r *recordingMetrics) RecordsImported(_ context.Context, platform string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imported[platform] += n
}

func (r *recordingMetrics) TenantFailed(_ context.Context, job string, tenantID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenantFailure[job] = append(r.tenantFailure[job], tenantID)
}

func mustClient(email, name string) *identity.User {
	u, err := identity.NewClient(email, name)
	if err != nil {
		panic(err)
	}
	return u
}

func mustTxn(userID uuid.UUID, typ finance.TransactionType, amount int64, date time.Time) *finance.Transaction {
	t, err := finance.NewTransaction(userID, typ, amount, "", "", date)
	if err != nil {
		panic(err)
	}
	return t
}

func mustInvoice(userID uuid.UUID, amount int64, status finance.InvoiceStatus) *finance.Invoice {
	inv, err := finance.NewInvoice(userID, "Acme", "Consulting", amount, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), status, "")
	if err != nil {
		panic(err)
	}
	return inv
}
