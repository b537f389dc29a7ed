package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questlogger/questlogger/internal/models"
)

func TestSubscriptionGetByUserIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectQuery("SELECT .+ FROM subscriptions").
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns))

	_, err := repo.GetByUserID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionUpdateOnlyChangedFields(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubscriptionRepository(db)

	status := models.StatusActive
	mock.ExpectExec("UPDATE subscriptions SET status = ").
		WithArgs(status, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), 3, SubscriptionUpdate{Status: &status})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionUpdateNoFieldsIsNoop(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubscriptionRepository(db)

	// No expectations set; an unexpected query would fail the test.
	require.NoError(t, repo.Update(context.Background(), 3, SubscriptionUpdate{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackUsageAddsAndRefunds(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectExec(`UPDATE subscriptions SET minutes_used = GREATEST\(minutes_used \+ \?, 0\)`).
		WithArgs(2.5, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.TrackUsage(context.Background(), 7, 2.5))

	mock.ExpectExec(`UPDATE subscriptions SET minutes_used = GREATEST\(minutes_used \+ \?, 0\)`).
		WithArgs(-2.5, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.TrackUsage(context.Background(), 7, -2.5))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireTrials(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubscriptionRepository(db)
	now := time.Now()

	mock.ExpectExec("UPDATE subscriptions SET status = ").
		WithArgs(models.StatusTrialExpired, models.StatusTrialing, now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.ExpireTrials(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddPaymentMethodDemotesOldDefault(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectExec("UPDATE payment_methods SET is_default = FALSE").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payment_methods").
		WillReturnResult(sqlmock.NewResult(11, 1))

	pm := models.PaymentMethod{
		SubscriptionID:        3,
		StripePaymentMethodID: "pm_123",
		Brand:                 "visa",
		Last4:                 "4242",
		ExpMonth:              12,
		ExpYear:               2030,
		IsDefault:             true,
	}
	require.NoError(t, repo.AddPaymentMethod(context.Background(), &pm))
	assert.Equal(t, 11, pm.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPromoCode(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubscriptionRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "code", "description", "percent_off", "amount_off",
		"duration", "max_redemptions", "times_redeemed", "is_active",
		"expires_at",
	}).AddRow(1, "WELCOME", "20% off your first payment", 20.0, nil, "once", 1000, 17, true, nil)

	mock.ExpectQuery("SELECT .+ FROM promotional_codes").
		WithArgs("WELCOME", true).
		WillReturnRows(rows)

	promo, err := repo.GetPromoCode(context.Background(), "WELCOME")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", promo.Code)
	assert.Equal(t, 20.0, promo.PercentOff)
	assert.Equal(t, 17, promo.TimesRedeemed)
	assert.Nil(t, promo.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
