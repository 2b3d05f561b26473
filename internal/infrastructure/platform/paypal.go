package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/integration"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// payPalLookback is how far back the transaction search reaches
const payPalLookback = 30 * 24 * time.Hour

type payPalAmount struct {
	Value        string `json:"value"`
	CurrencyCode string `json:"currency_code"`
}

type payPalTransactionInfo struct {
	TransactionID             string       `json:"transaction_id"`
	TransactionAmount         payPalAmount `json:"transaction_amount"`
	TransactionInitiationDate string       `json:"transaction_initiation_date"`
	TransactionSubject        string       `json:"transaction_subject"`
}

type payPalTransactionDetail struct {
	TransactionInfo payPalTransactionInfo `json:"transaction_info"`
}

type payPalTransactionList struct {
	TransactionDetails []payPalTransactionDetail `json:"transaction_details"`
}

// PayPalSyncer imports account activity as payments and expenses
type PayPalSyncer struct {
	baseURL string
	client  *http.Client
	deps    Deps
}

var _ integration.Syncer = (*PayPalSyncer)(nil)

// NewPayPalSyncer creates a PayPalSyncer
func NewPayPalSyncer(baseURL string, client *http.Client, deps Deps) *PayPalSyncer {
	return &PayPalSyncer{baseURL: baseURL, client: client, deps: deps}
}

// Platform returns the platform code this syncer handles
func (s *PayPalSyncer) Platform() integration.PlatformCode {
	return integration.PlatformPayPal
}

// Sync imports the last 30 days of transactions
func (s *PayPalSyncer) Sync(ctx context.Context, integ *integration.Integration) (*integration.SyncResult, error) {
	var creds payPalCredentials
	if err := loadCredentials(s.deps.Vault, integ, &creds); err != nil {
		return nil, err
	}

	cc := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     strings.TrimRight(s.baseURL, "/") + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	token, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, s.client))
	if err != nil {
		return nil, fmt.Errorf("%w: paypal token exchange failed: %v", integration.ErrReauthorizationRequired, err)
	}

	end := s.deps.now().UTC()
	query := url.Values{
		"start_date": {end.Add(-payPalLookback).Format(time.RFC3339)},
		"end_date":   {end.Format(time.RFC3339)},
		"fields":     {"transaction_info"},
		"page_size":  {strconv.Itoa(pageLimit)},
	}
	var list payPalTransactionList
	if err := getJSON(ctx, s.client, s.baseURL, "/v1/reporting/transactions", query, token.SetAuthHeader, &list); err != nil {
		return nil, err
	}

	existing, err := s.deps.Transactions.ListTransactions(ctx, integ.UserID)
	if err != nil {
		return nil, err
	}
	descriptions := transactionDescriptions(existing)

	result := &integration.SyncResult{}
	for _, detail := range list.TransactionDetails {
		info := detail.TransactionInfo
		marker := s.Platform().Marker(info.TransactionID)
		if info.TransactionID == "" || integration.AlreadyImported(descriptions, marker) {
			result.Skipped++
			continue
		}

		cents, err := parseCents(info.TransactionAmount.Value)
		if err != nil {
			s.deps.logger().Warn("Skipping PayPal transaction", zap.String("transaction_id", info.TransactionID), zap.Error(err))
			result.Skipped++
			continue
		}
		typ := finance.TransactionPayment
		if cents < 0 {
			typ = finance.TransactionExpense
			cents = -cents
		}

		date := end
		if t, err := parsePayPalTime(info.TransactionInitiationDate); err == nil {
			date = t
		}

		label := info.TransactionSubject
		if label == "" {
			label = "PayPal transaction"
		}
		txn, err := finance.NewTransaction(integ.UserID, typ, cents, withMarker(label, marker), string(integration.PlatformPayPal), date)
		if err != nil {
			result.Skipped++
			continue
		}
		if err := s.deps.Transactions.CreateTransaction(ctx, txn); err != nil {
			return nil, err
		}
		descriptions = append(descriptions, txn.Description)
		result.Imported++
	}

	return markSynced(ctx, s.deps, integ, result)
}

// parsePayPalTime accepts RFC 3339 and PayPal's "+0000" offset form
func parsePayPalTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05-0700", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
