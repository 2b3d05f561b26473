package platform

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/integration"
	"go.uber.org/zap"
)

type stripeCharge struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Refunded    bool   `json:"refunded"`
	Created     int64  `json:"created"`
	Description string `json:"description"`
}

type stripeChargeList struct {
	Data    []stripeCharge `json:"data"`
	HasMore bool           `json:"has_more"`
}

// StripeSyncer imports succeeded charges as payments
type StripeSyncer struct {
	baseURL string
	client  *http.Client
	deps    Deps
}

var _ integration.Syncer = (*StripeSyncer)(nil)

// NewStripeSyncer creates a StripeSyncer
func NewStripeSyncer(baseURL string, client *http.Client, deps Deps) *StripeSyncer {
	return &StripeSyncer{baseURL: baseURL, client: client, deps: deps}
}

// Platform returns the platform code this syncer handles
func (s *StripeSyncer) Platform() integration.PlatformCode {
	return integration.PlatformStripe
}

// Sync imports the most recent page of charges
func (s *StripeSyncer) Sync(ctx context.Context, integ *integration.Integration) (*integration.SyncResult, error) {
	var creds stripeCredentials
	if err := loadCredentials(s.deps.Vault, integ, &creds); err != nil {
		return nil, err
	}

	var charges stripeChargeList
	query := url.Values{"limit": {strconv.Itoa(pageLimit)}}
	if err := getJSON(ctx, s.client, s.baseURL, "/v1/charges", query, bearer(creds.APIKey), &charges); err != nil {
		return nil, err
	}

	existing, err := s.deps.Transactions.ListTransactions(ctx, integ.UserID)
	if err != nil {
		return nil, err
	}
	descriptions := transactionDescriptions(existing)

	result := &integration.SyncResult{}
	for _, ch := range charges.Data {
		marker := s.Platform().Marker(ch.ID)
		if ch.Status != "succeeded" || ch.Refunded || integration.AlreadyImported(descriptions, marker) {
			result.Skipped++
			continue
		}

		label := ch.Description
		if label == "" {
			label = "Stripe payment"
		}
		txn, err := finance.NewTransaction(integ.UserID, finance.TransactionPayment, ch.Amount,
			withMarker(label, marker), string(integration.PlatformStripe), time.Unix(ch.Created, 0).UTC())
		if err != nil {
			s.deps.logger().Warn("Skipping invalid Stripe charge", zap.String("charge_id", ch.ID), zap.Error(err))
			result.Skipped++
			continue
		}
		txn.Category = "Sales"
		if err := s.deps.Transactions.CreateTransaction(ctx, txn); err != nil {
			return nil, err
		}
		descriptions = append(descriptions, txn.Description)
		result.Imported++
	}

	return markSynced(ctx, s.deps, integ, result)
}
