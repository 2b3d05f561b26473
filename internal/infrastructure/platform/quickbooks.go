package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// QuickBooksConfig holds the app-level OAuth client for QuickBooks Online
type QuickBooksConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

type quickBooksRef struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

type quickBooksInvoice struct {
	ID          string          `json:"Id"`
	DocNumber   string          `json:"DocNumber"`
	TotalAmt    decimal.Decimal `json:"TotalAmt"`
	Balance     decimal.Decimal `json:"Balance"`
	DueDate     string          `json:"DueDate"`
	CustomerRef quickBooksRef   `json:"CustomerRef"`
}

type quickBooksQueryResponse struct {
	QueryResponse struct {
		Invoice []quickBooksInvoice `json:"Invoice"`
	} `json:"QueryResponse"`
}

// QuickBooksSyncer imports invoices from QuickBooks Online
type QuickBooksSyncer struct {
	cfg    QuickBooksConfig
	client *http.Client
	deps   Deps
}

var _ integration.Syncer = (*QuickBooksSyncer)(nil)

// NewQuickBooksSyncer creates a QuickBooksSyncer
func NewQuickBooksSyncer(cfg QuickBooksConfig, client *http.Client, deps Deps) *QuickBooksSyncer {
	return &QuickBooksSyncer{cfg: cfg, client: client, deps: deps}
}

// Platform returns the platform code this syncer handles
func (s *QuickBooksSyncer) Platform() integration.PlatformCode {
	return integration.PlatformQuickBooks
}

// Sync imports the first page of invoices for the connected company
func (s *QuickBooksSyncer) Sync(ctx context.Context, integ *integration.Integration) (*integration.SyncResult, error) {
	var creds quickBooksCredentials
	if err := loadCredentials(s.deps.Vault, integ, &creds); err != nil {
		return nil, err
	}

	token, err := s.refresh(ctx, integ, creds)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"query":        {fmt.Sprintf("select * from Invoice maxresults %d", pageLimit)},
		"minorversion": {"65"},
	}
	var resp quickBooksQueryResponse
	path := "/v3/company/" + url.PathEscape(creds.RealmID) + "/query"
	if err := getJSON(ctx, s.client, s.cfg.BaseURL, path, query, token.SetAuthHeader, &resp); err != nil {
		return nil, err
	}

	existing, err := s.deps.Invoices.ListInvoices(ctx, integ.UserID)
	if err != nil {
		return nil, err
	}
	descriptions := invoiceDescriptions(existing)

	now := s.deps.now()
	result := &integration.SyncResult{}
	for _, remote := range resp.QueryResponse.Invoice {
		marker := s.Platform().Marker(remote.ID)
		if remote.ID == "" || integration.AlreadyImported(descriptions, marker) {
			result.Skipped++
			continue
		}

		due, err := time.Parse("2006-01-02", remote.DueDate)
		if err != nil {
			due = now
		}

		label := "QuickBooks invoice"
		if remote.DocNumber != "" {
			label += " #" + remote.DocNumber
		}
		inv, err := finance.NewInvoice(integ.UserID, remote.CustomerRef.Name, withMarker(label, marker),
			toCents(remote.TotalAmt), due, quickBooksStatus(remote, due, now), string(integration.PlatformQuickBooks))
		if err != nil {
			s.deps.logger().Warn("Skipping QuickBooks invoice", zap.String("invoice_id", remote.ID), zap.Error(err))
			result.Skipped++
			continue
		}
		if err := s.deps.Invoices.CreateInvoice(ctx, inv); err != nil {
			return nil, err
		}
		descriptions = append(descriptions, inv.Description)
		result.Imported++
	}

	return markSynced(ctx, s.deps, integ, result)
}

// refresh exchanges the stored refresh token for an access token. QuickBooks
// rotates refresh tokens, so a new one is re-encrypted and stored.
func (s *QuickBooksSyncer) refresh(ctx context.Context, integ *integration.Integration, creds quickBooksCredentials) (*oauth2.Token, error) {
	oc := &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  s.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := oc.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: quickbooks token refresh failed: %v", integration.ErrReauthorizationRequired, err)
	}

	if token.RefreshToken != "" && token.RefreshToken != creds.RefreshToken {
		envelope, err := s.deps.Vault.EncryptCredentials(integration.Credentials{
			"refreshToken": token.RefreshToken,
			"realmId":      creds.RealmID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt rotated credentials: %w", err)
		}
		if err := s.deps.Integrations.UpdateIntegration(ctx, integ.ID, integration.Update{Credentials: &envelope}); err != nil {
			return nil, fmt.Errorf("failed to store rotated credentials: %w", err)
		}
		integ.Credentials = envelope
	}
	return token, nil
}

func quickBooksStatus(inv quickBooksInvoice, due, now time.Time) finance.InvoiceStatus {
	switch {
	case inv.Balance.IsZero():
		return finance.InvoicePaid
	case due.Before(now):
		return finance.InvoiceOverdue
	default:
		return finance.InvoiceDue
	}
}
