package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/domain/task"
	"github.com/opshub/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Deps are the collaborators every Syncer writes through
type Deps struct {
	Vault        CredentialVault
	Transactions finance.TransactionRepository
	Invoices     finance.InvoiceRepository
	Tasks        task.Repository
	Integrations integration.Repository
	Logger       *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

// NewSyncers builds a Syncer for every supported platform
func NewSyncers(cfg config.PlatformsConfig, deps Deps) Syncers {
	client := newHTTPClient(cfg.Timeout)
	return Syncers{
		Stripe:     NewStripeSyncer(cfg.StripeBaseURL, client, deps),
		PayPal:     NewPayPalSyncer(cfg.PayPalBaseURL, client, deps),
		QuickBooks: NewQuickBooksSyncer(QuickBooksConfig{BaseURL: cfg.QuickBooksBaseURL, TokenURL: cfg.QuickBooksTokenURL, ClientID: cfg.QuickBooksClientID, ClientSecret: cfg.QuickBooksClientSecret}, client, deps),
		Asana:      NewAsanaSyncer(cfg.AsanaBaseURL, client, deps),
	}
}

// markSynced stamps LastSynced on a successful pass
func markSynced(ctx context.Context, deps Deps, integ *integration.Integration, result *integration.SyncResult) (*integration.SyncResult, error) {
	now := deps.now()
	if err := deps.Integrations.UpdateIntegration(ctx, integ.ID, integration.Update{LastSynced: &now}); err != nil {
		return nil, fmt.Errorf("failed to update last synced: %w", err)
	}
	integ.LastSynced = &now
	result.Success = true
	return result, nil
}

func transactionDescriptions(txns []*finance.Transaction) []string {
	out := make([]string, len(txns))
	for i, t := range txns {
		out[i] = t.Description
	}
	return out
}

func invoiceDescriptions(invoices []*finance.Invoice) []string {
	out := make([]string, len(invoices))
	for i, inv := range invoices {
		out[i] = inv.Description
	}
	return out
}

func taskDescriptions(tasks []*task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Description
	}
	return out
}

// withMarker appends the marker token to a human description
func withMarker(description, marker string) string {
	if description == "" {
		return marker
	}
	return description + " [" + marker + "]"
}
