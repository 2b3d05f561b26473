package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// sendAll exercises every Send method once
func sendAll(n *Notifier, userID uuid.UUID) {
	ctx := context.Background()
	n.SendWeeklyReport(ctx, userID, WeeklyReportPayload{PeriodEnd: time.Now()})
	n.SendLowCashAlert(ctx, userID, LowCashPayload{CurrentCash: 4000, Threshold: 500000})
	n.SendOverdueInvoiceReminder(ctx, userID, OverdueInvoicePayload{})
	n.SendIntegrationFailureAlert(ctx, userID, IntegrationFailurePayload{Platform: "Stripe", OccurredAt: time.Now()})
}

func setupNotifier(t *testing.T, user *identity.User) (*Notifier, *fakeTransport, *countingRecorder) {
	t.Helper()
	users := new(MockUserRepository)
	users.On("GetUser", mock.Anything, user.ID).Return(user, nil)
	transport := &fakeTransport{}
	recorder := &countingRecorder{}
	return NewNotifier(users, transport, zaptest.NewLogger(t), WithFailureRecorder(recorder)), transport, recorder
}

func TestNotifier_SendsEveryCategory(t *testing.T) {
	user := testTenant(t)
	n, transport, _ := setupNotifier(t, user)

	sendAll(n, user.ID)

	require.Equal(t, 4, transport.count())
	for _, msg := range transport.sent {
		assert.Equal(t, "owner@bakery.example", msg.To)
		assert.NotEmpty(t, msg.Subject)
		assert.NotEmpty(t, msg.HTML)
		assert.NotEmpty(t, msg.Text)
	}
}

func TestNotifier_PreferenceGating(t *testing.T) {
	for _, category := range identity.AllCategories() {
		t.Run(string(category), func(t *testing.T) {
			user := testTenant(t)
			user.EmailPreferences[category] = false
			n, transport, _ := setupNotifier(t, user)

			sendAll(n, user.ID)

			assert.Equal(t, 3, transport.count())
			for _, msg := range transport.sent {
				expected, err := Render(category, user, payloadFor(category))
				require.NoError(t, err)
				assert.NotEqual(t, expected.Subject, msg.Subject)
			}
		})
	}
}

func payloadFor(category identity.NotificationCategory) any {
	switch category {
	case identity.CategoryWeeklyReport:
		return WeeklyReportPayload{PeriodEnd: time.Now()}
	case identity.CategoryLowCashAlert:
		return LowCashPayload{CurrentCash: 4000, Threshold: 500000}
	case identity.CategoryOverdueInvoices:
		return OverdueInvoicePayload{}
	default:
		return IntegrationFailurePayload{Platform: "Stripe", OccurredAt: time.Now()}
	}
}

func TestNotifier_ExplicitTrueStillSends(t *testing.T) {
	user := testTenant(t)
	user.EmailPreferences[identity.CategoryLowCashAlert] = true
	n, transport, _ := setupNotifier(t, user)

	n.SendLowCashAlert(context.Background(), user.ID, LowCashPayload{CurrentCash: 1})
	assert.Equal(t, 1, transport.count())
}

func TestNotifier_SkipsInactiveAndEmailless(t *testing.T) {
	t.Run("inactive", func(t *testing.T) {
		user := testTenant(t)
		user.IsActive = false
		n, transport, _ := setupNotifier(t, user)
		sendAll(n, user.ID)
		assert.Zero(t, transport.count())
	})

	t.Run("no email", func(t *testing.T) {
		user := testTenant(t)
		user.Email = ""
		n, transport, _ := setupNotifier(t, user)
		sendAll(n, user.ID)
		assert.Zero(t, transport.count())
	})
}

func TestNotifier_MissingTenantIsNoop(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetUser", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	transport := &fakeTransport{}
	n := NewNotifier(users, transport, zaptest.NewLogger(t))

	assert.NotPanics(t, func() { sendAll(n, uuid.New()) })
	assert.Zero(t, transport.count())
	users.AssertNumberOfCalls(t, "GetUser", 4)
}

func TestNotifier_SwallowsSendFailures(t *testing.T) {
	user := testTenant(t)
	n, transport, recorder := setupNotifier(t, user)
	transport.err = errors.New("provider down")

	assert.NotPanics(t, func() { sendAll(n, user.ID) })
	assert.Zero(t, transport.count())
	for _, category := range identity.AllCategories() {
		assert.Equal(t, 1, recorder.calls[string(category)], category)
	}
}

func TestNotifier_RecoversTransportPanic(t *testing.T) {
	user := testTenant(t)
	n, transport, recorder := setupNotifier(t, user)
	transport.panic = true

	assert.NotPanics(t, func() {
		n.SendLowCashAlert(context.Background(), user.ID, LowCashPayload{})
	})
	assert.Equal(t, 1, recorder.calls[string(identity.CategoryLowCashAlert)])
}
