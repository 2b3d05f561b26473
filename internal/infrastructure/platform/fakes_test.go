package platform

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/domain/shared"
	"github.com/opshub/backend/internal/domain/task"
	"github.com/opshub/backend/internal/infrastructure/vault"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// memoryStore is an in-memory implementation of the repositories syncers write through
type memoryStore struct {
	mu           sync.Mutex
	transactions []*finance.Transaction
	invoices     []*finance.Invoice
	tasks        []*task.Task
	integrations map[uuid.UUID]*integration.Integration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{integrations: map[uuid.UUID]*integration.Integration{}}
}

func (m *memoryStore) ListTransactions(_ context.Context, userID uuid.UUID) ([]*finance.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*finance.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateTransaction(_ context.Context, txn *finance.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, txn)
	return nil
}

func (m *memoryStore) ListInvoices(_ context.Context, userID uuid.UUID) ([]*finance.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*finance.Invoice
	for _, inv := range m.invoices {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateInvoice(_ context.Context, inv *finance.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices = append(m.invoices, inv)
	return nil
}

func (m *memoryStore) ListTasks(_ context.Context, userID uuid.UUID) ([]*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*task.Task
	for _, t := range m.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateTask(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, t)
	return nil
}

func (m *memoryStore) ListIntegrations(_ context.Context, userID uuid.UUID) ([]*integration.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*integration.Integration
	for _, i := range m.integrations {
		if i.UserID == userID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *memoryStore) GetIntegration(_ context.Context, id uuid.UUID) (*integration.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.integrations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return i, nil
}

func (m *memoryStore) CreateIntegration(_ context.Context, integ *integration.Integration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integrations[integ.ID] = integ
	return nil
}

func (m *memoryStore) UpdateIntegration(_ context.Context, id uuid.UUID, update integration.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.integrations[id]
	if !ok {
		return shared.ErrNotFound
	}
	if update.IsConnected != nil {
		i.IsConnected = *update.IsConnected
	}
	if update.Credentials != nil {
		i.Credentials = *update.Credentials
	}
	if update.LastSynced != nil {
		t := *update.LastSynced
		i.LastSynced = &t
	}
	return nil
}

func (m *memoryStore) storedCredentials(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.integrations[id].Credentials
}

type harness struct {
	store *memoryStore
	vault *vault.Vault
	deps  Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	v, err := vault.New("test-secret", "development")
	require.NoError(t, err)
	store := newMemoryStore()
	return &harness{
		store: store,
		vault: v,
		deps: Deps{
			Vault:        v,
			Transactions: store,
			Invoices:     store,
			Tasks:        store,
			Integrations: store,
			Logger:       zaptest.NewLogger(t),
			Now:          func() time.Time { return fixedNow },
		},
	}
}

// connect stores an integration with encrypted credentials. The returned
// value is a copy, so each Sync call sees what a fresh database read would.
func (h *harness) connect(t *testing.T, platform integration.PlatformCode, creds integration.Credentials) *integration.Integration {
	t.Helper()
	envelope := ""
	if creds != nil {
		var err error
		envelope, err = h.vault.EncryptCredentials(creds)
		require.NoError(t, err)
	}
	integ, err := integration.NewIntegration(uuid.New(), platform, envelope)
	require.NoError(t, err)
	require.NoError(t, h.store.CreateIntegration(context.Background(), integ))
	copied := *integ
	return &copied
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *integration.Integration {
	t.Helper()
	integ, err := h.store.GetIntegration(context.Background(), id)
	require.NoError(t, err)
	copied := *integ
	return &copied
}
