package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stripeCharges = `{
  "data": [
    {"id": "ch_1", "amount": 12000, "currency": "usd", "status": "succeeded", "refunded": false, "created": 1772000000, "description": "Catering order"},
    {"id": "ch_2", "amount": 5000, "currency": "usd", "status": "failed", "refunded": false, "created": 1772000100},
    {"id": "ch_3", "amount": 7000, "currency": "usd", "status": "succeeded", "refunded": true, "created": 1772000200},
    {"id": "ch_4", "amount": 2500, "currency": "usd", "status": "succeeded", "refunded": false, "created": 1772000300}
  ],
  "has_more": false
}`

func newStripeServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/charges", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(stripeCharges))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStripeSyncer_ImportsSucceededCharges(t *testing.T) {
	h := newHarness(t)
	srv := newStripeServer(t, http.StatusOK)
	syncer := NewStripeSyncer(srv.URL, srv.Client(), h.deps)
	integ := h.connect(t, integration.PlatformStripe, integration.Credentials{"apiKey": "sk_test_123"})

	result, err := syncer.Sync(context.Background(), integ)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Skipped)

	txns, _ := h.store.ListTransactions(context.Background(), integ.UserID)
	require.Len(t, txns, 2)
	assert.Equal(t, finance.TransactionPayment, txns[0].Type)
	assert.Equal(t, int64(12000), txns[0].Amount)
	assert.Equal(t, "Catering order [Stripe:ch_1]", txns[0].Description)
	assert.Equal(t, "stripe", txns[0].Source)
	assert.Contains(t, txns[1].Description, "Stripe:ch_4")

	stored := h.reload(t, integ.ID)
	require.NotNil(t, stored.LastSynced)
	assert.Equal(t, fixedNow, *stored.LastSynced)
}

func TestStripeSyncer_Idempotent(t *testing.T) {
	h := newHarness(t)
	srv := newStripeServer(t, http.StatusOK)
	syncer := NewStripeSyncer(srv.URL, srv.Client(), h.deps)
	integ := h.connect(t, integration.PlatformStripe, integration.Credentials{"apiKey": "sk_test_123"})

	_, err := syncer.Sync(context.Background(), integ)
	require.NoError(t, err)

	second, err := syncer.Sync(context.Background(), h.reload(t, integ.ID))
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Zero(t, second.Imported)

	txns, _ := h.store.ListTransactions(context.Background(), integ.UserID)
	assert.Len(t, txns, 2)
}

func TestStripeSyncer_HTTPErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, integration.ErrReauthorizationRequired},
		{http.StatusForbidden, integration.ErrReauthorizationRequired},
		{http.StatusBadRequest, integration.ErrPlatformRequestFailed},
		{http.StatusBadGateway, integration.ErrPlatformUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			h := newHarness(t)
			srv := newStripeServer(t, tt.status)
			syncer := NewStripeSyncer(srv.URL, srv.Client(), h.deps)
			integ := h.connect(t, integration.PlatformStripe, integration.Credentials{"apiKey": "sk_test_123"})

			_, err := syncer.Sync(context.Background(), integ)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, h.reload(t, integ.ID).LastSynced)
		})
	}
}

func TestStripeSyncer_InvalidJSON(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	integ := h.connect(t, integration.PlatformStripe, integration.Credentials{"apiKey": "k"})
	_, err := NewStripeSyncer(srv.URL, srv.Client(), h.deps).Sync(context.Background(), integ)
	assert.ErrorIs(t, err, integration.ErrPlatformInvalidResponse)
}

func TestSync_MissingCredentials(t *testing.T) {
	h := newHarness(t)
	srv := newStripeServer(t, http.StatusOK)
	syncer := NewStripeSyncer(srv.URL, srv.Client(), h.deps)

	t.Run("no envelope", func(t *testing.T) {
		integ := h.connect(t, integration.PlatformStripe, nil)
		_, err := syncer.Sync(context.Background(), integ)
		assert.ErrorIs(t, err, integration.ErrMissingCredentials)
	})

	t.Run("required field absent", func(t *testing.T) {
		integ := h.connect(t, integration.PlatformStripe, integration.Credentials{"publishableKey": "pk"})
		_, err := syncer.Sync(context.Background(), integ)
		assert.ErrorIs(t, err, integration.ErrMissingCredentials)
		assert.Contains(t, err.Error(), "apiKey")
	})

	t.Run("malformed envelope", func(t *testing.T) {
		integ := h.connect(t, integration.PlatformStripe, nil)
		integ.Credentials = "not-an-envelope"
		_, err := syncer.Sync(context.Background(), integ)
		assert.ErrorIs(t, err, integration.ErrMissingCredentials)
	})
}

func TestSync_ErrorsNeverContainSecrets(t *testing.T) {
	h := newHarness(t)
	srv := newStripeServer(t, http.StatusUnauthorized)
	integ := h.connect(t, integration.PlatformStripe, integration.Credentials{"apiKey": "sk_test_123"})

	_, err := NewStripeSyncer(srv.URL, srv.Client(), h.deps).Sync(context.Background(), integ)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sk_test_123")
}
