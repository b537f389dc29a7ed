package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questlogger/questlogger/internal/config"
	"github.com/questlogger/questlogger/internal/logger"
	"github.com/questlogger/questlogger/internal/models"
	"github.com/questlogger/questlogger/internal/store"
)

// fakeBilling records calls and returns canned Stripe objects.
type fakeBilling struct {
	canceledID  string
	customerID  string
	subResponse *stripeapi.Subscription
}

func (f *fakeBilling) CreateCustomer(email, name string) (string, error) {
	if f.customerID == "" {
		f.customerID = "cus_test"
	}
	return f.customerID, nil
}

func (f *fakeBilling) CreateSubscription(customerID, billingCycle string, trialDays int, promoCode string) (*stripeapi.Subscription, error) {
	return f.subResponse, nil
}

func (f *fakeBilling) GetSubscription(id string) (*stripeapi.Subscription, error) {
	return f.subResponse, nil
}

func (f *fakeBilling) CancelSubscription(id string) error {
	f.canceledID = id
	return nil
}

func (f *fakeBilling) AttachPaymentMethod(customerID, paymentMethodID string) (*stripeapi.PaymentMethod, error) {
	return &stripeapi.PaymentMethod{ID: paymentMethodID}, nil
}

func (f *fakeBilling) ListInvoices(customerID string, limit int) ([]*stripeapi.Invoice, error) {
	return nil, nil
}

func (f *fakeBilling) CreateCheckoutSession(customerID, billingCycle, successURL, cancelURL, promoCode string) (*stripeapi.CheckoutSession, error) {
	return &stripeapi.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/c/cs_test"}, nil
}

func (f *fakeBilling) VerifyWebhook(payload []byte, signature string) (stripeapi.Event, error) {
	return stripeapi.Event{}, nil
}

var subscriptionColumns = []string{
	"id", "user_id", "billing_cycle", "stripe_subscription_id",
	"stripe_customer_id", "status", "current_period_start",
	"current_period_end", "trial_end", "minutes_used", "minutes_limit",
	"allow_sharing", "allow_exporting", "priority_processing",
	"advanced_ai_features", "created_at", "updated_at",
}

func subscriptionRow(id, userID int, status string, trialEnd *time.Time) []driver.Value {
	now := time.Now()
	var trial driver.Value
	if trialEnd != nil {
		trial = *trialEnd
	}
	return []driver.Value{
		id, userID, models.CycleMonthly, "sub_test", "cus_test", status,
		now, now.Add(30 * 24 * time.Hour), trial, 10.0, 120.0,
		true, true, true, true, now, now,
	}
}

func newSubscriptionService(t *testing.T) (*SubscriptionService, sqlmock.Sqlmock, *fakeBilling) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	billing := &fakeBilling{}
	svc := NewSubscriptionService(
		store.NewSubscriptionRepository(db),
		store.NewUserRepository(db),
		billing,
		&config.Config{MonthlyMinutesLimit: 120, TrialDays: 7, FrontendURL: "http://localhost:3000"},
		logger.Nop(),
	)
	return svc, mock, billing
}

func expectNoDefaultPaymentMethod(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT .+ FROM payment_methods").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
}

func TestGetStatusWithoutSubscription(t *testing.T) {
	svc, mock, _ := newSubscriptionService(t)

	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	status, err := svc.GetStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNone, status.Status)
	assert.Equal(t, models.CycleMonthly, status.BillingCycle)
	assert.Empty(t, status.Features)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatusExpiresLapsedTrial(t *testing.T) {
	svc, mock, _ := newSubscriptionService(t)
	pastTrialEnd := time.Now().Add(-48 * time.Hour)

	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(subscriptionRow(3, 1, models.StatusTrialing, &pastTrialEnd)...))
	mock.ExpectExec("UPDATE subscriptions SET status = ").
		WithArgs(models.StatusTrialExpired, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectNoDefaultPaymentMethod(mock)

	status, err := svc.GetStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrialExpired, status.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatusActiveKeepsFeatures(t *testing.T) {
	svc, mock, _ := newSubscriptionService(t)

	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(subscriptionRow(3, 1, models.StatusActive, nil)...))
	expectNoDefaultPaymentMethod(mock)

	status, err := svc.GetStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, status.Status)
	assert.Equal(t, 10.0, status.MinutesUsed)
	assert.Equal(t, 120.0, status.MinutesLimit)
	assert.True(t, status.Features["advanced_ai"])
	assert.True(t, status.Features["sharing"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatusRefreshesLapsedPeriod(t *testing.T) {
	svc, mock, billing := newSubscriptionService(t)
	newPeriodEnd := time.Now().Add(30 * 24 * time.Hour)
	billing.subResponse = &stripeapi.Subscription{
		ID:                 "sub_test",
		Status:             stripeapi.SubscriptionStatusActive,
		CurrentPeriodStart: time.Now().Unix(),
		CurrentPeriodEnd:   newPeriodEnd.Unix(),
	}

	row := subscriptionRow(3, 1, models.StatusActive, nil)
	row[6] = time.Now().Add(-31 * 24 * time.Hour)
	row[7] = time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).AddRow(row...))
	mock.ExpectExec("UPDATE subscriptions SET status = ").
		WithArgs(models.StatusActive, sqlmock.AnyArg(), sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectNoDefaultPaymentMethod(mock)

	status, err := svc.GetStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, status.Status)
	require.NotNil(t, status.CurrentPeriodEnd)
	assert.WithinDuration(t, newPeriodEnd, *status.CurrentPeriodEnd, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsubscribeCancelsInStripe(t *testing.T) {
	svc, mock, billing := newSubscriptionService(t)

	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(subscriptionRow(3, 1, models.StatusActive, nil)...))
	mock.ExpectExec("UPDATE subscriptions SET status = ").
		WithArgs(models.StatusCanceled, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Final status read.
	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(subscriptionRow(3, 1, models.StatusCanceled, nil)...))
	expectNoDefaultPaymentMethod(mock)

	status, err := svc.Unsubscribe(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, status.Status)
	assert.Equal(t, "sub_test", billing.canceledID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsubscribeWithoutSubscription(t *testing.T) {
	svc, mock, _ := newSubscriptionService(t)

	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Unsubscribe(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestApplyPromoCodeRejectsExhausted(t *testing.T) {
	svc, mock, _ := newSubscriptionService(t)

	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(subscriptionRow(3, 1, models.StatusActive, nil)...))

	promoRows := sqlmock.NewRows([]string{
		"id", "code", "description", "percent_off", "amount_off",
		"duration", "max_redemptions", "times_redeemed", "is_active",
		"expires_at",
	}).AddRow(1, "WELCOME", nil, 20.0, nil, "once", 100, 100, true, nil)
	mock.ExpectQuery("SELECT .+ FROM promotional_codes").
		WithArgs("WELCOME", true).
		WillReturnRows(promoRows)

	_, err := svc.ApplyPromoCode(context.Background(), 1, "WELCOME")
	assert.ErrorIs(t, err, ErrInvalidPromoCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPromoCodeRejectsExpired(t *testing.T) {
	svc, mock, _ := newSubscriptionService(t)
	expired := time.Now().Add(-time.Hour)

	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(subscriptionRow(3, 1, models.StatusActive, nil)...))

	promoRows := sqlmock.NewRows([]string{
		"id", "code", "description", "percent_off", "amount_off",
		"duration", "max_redemptions", "times_redeemed", "is_active",
		"expires_at",
	}).AddRow(1, "OLD", nil, 10.0, nil, "once", 0, 0, true, expired)
	mock.ExpectQuery("SELECT .+ FROM promotional_codes").
		WithArgs("OLD", true).
		WillReturnRows(promoRows)

	_, err := svc.ApplyPromoCode(context.Background(), 1, "OLD")
	assert.ErrorIs(t, err, ErrInvalidPromoCode)
}

func TestCreateCheckoutRejectsActiveSubscription(t *testing.T) {
	svc, mock, _ := newSubscriptionService(t)

	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(subscriptionRow(3, 1, models.StatusActive, nil)...))

	_, err := svc.CreateCheckout(context.Background(), 1, models.CycleMonthly, "")
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
}

func TestCreateCheckoutReusesStoredCustomer(t *testing.T) {
	svc, mock, _ := newSubscriptionService(t)

	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(subscriptionRow(3, 1, models.StatusCanceled, nil)...))

	checkout, err := svc.CreateCheckout(context.Background(), 1, models.CycleMonthly, "")
	require.NoError(t, err)
	assert.Equal(t, "cs_test", checkout.SessionID)
	assert.NotEmpty(t, checkout.CheckoutURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrialNotification(t *testing.T) {
	t.Run("trial ending soon", func(t *testing.T) {
		svc, mock, _ := newSubscriptionService(t)
		trialEnd := time.Now().Add(2*24*time.Hour + time.Hour)

		mock.ExpectQuery("SELECT .+ FROM subscriptions").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows(subscriptionColumns).
				AddRow(subscriptionRow(3, 1, models.StatusTrialing, &trialEnd)...))
		expectNoDefaultPaymentMethod(mock)

		n, err := svc.GetTrialNotification(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, n.HasNotification)
		assert.Contains(t, n.Message, "2 days")
	})

	t.Run("trial not ending soon", func(t *testing.T) {
		svc, mock, _ := newSubscriptionService(t)
		trialEnd := time.Now().Add(6 * 24 * time.Hour)

		mock.ExpectQuery("SELECT .+ FROM subscriptions").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows(subscriptionColumns).
				AddRow(subscriptionRow(3, 1, models.StatusTrialing, &trialEnd)...))
		expectNoDefaultPaymentMethod(mock)

		n, err := svc.GetTrialNotification(context.Background(), 1)
		require.NoError(t, err)
		assert.False(t, n.HasNotification)
	})

	t.Run("no subscription", func(t *testing.T) {
		svc, mock, _ := newSubscriptionService(t)

		mock.ExpectQuery("SELECT .+ FROM subscriptions").
			WithArgs(1).
			WillReturnError(sql.ErrNoRows)

		n, err := svc.GetTrialNotification(context.Background(), 1)
		require.NoError(t, err)
		assert.False(t, n.HasNotification)
		assert.Equal(t, models.StatusNone, n.Status)
	})
}

func TestPricingListsSingleTier(t *testing.T) {
	svc, _, _ := newSubscriptionService(t)

	pricing := svc.Pricing()
	price, ok := pricing["price"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 9.99, price["monthly_price"])
	assert.Equal(t, 99.99, price["annual_price"])
}
