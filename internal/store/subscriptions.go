package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/questlogger/questlogger/internal/models"
)

// SubscriptionRepository persists subscriptions, invoices, payment
// methods and promotional codes.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

var subscriptionColumns = []string{
	"id", "user_id", "billing_cycle", "stripe_subscription_id",
	"stripe_customer_id", "status", "current_period_start",
	"current_period_end", "trial_end", "minutes_used", "minutes_limit",
	"allow_sharing", "allow_exporting", "priority_processing",
	"advanced_ai_features", "created_at", "updated_at",
}

func scanSubscription(row rowScanner) (models.Subscription, error) {
	var (
		s           models.Subscription
		stripeSubID sql.NullString
		stripeCusID sql.NullString
		periodStart sql.NullTime
		periodEnd   sql.NullTime
		trialEnd    sql.NullTime
	)

	err := row.Scan(
		&s.ID, &s.UserID, &s.BillingCycle, &stripeSubID, &stripeCusID,
		&s.Status, &periodStart, &periodEnd, &trialEnd, &s.MinutesUsed,
		&s.MinutesLimit, &s.AllowSharing, &s.AllowExporting,
		&s.PriorityProcessing, &s.AdvancedAIFeatures, &s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Subscription{}, ErrNotFound
	}
	if err != nil {
		return models.Subscription{}, fmt.Errorf("scan subscription: %w", err)
	}

	s.StripeSubscriptionID = stripeSubID.String
	s.StripeCustomerID = stripeCusID.String
	if periodStart.Valid {
		s.CurrentPeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		s.CurrentPeriodEnd = &periodEnd.Time
	}
	if trialEnd.Valid {
		s.TrialEnd = &trialEnd.Time
	}

	return s, nil
}

func (r *SubscriptionRepository) getWhere(ctx context.Context, where sq.Eq) (models.Subscription, error) {
	query, args, err := builder.
		Select(subscriptionColumns...).
		From("subscriptions").
		Where(where).
		ToSql()
	if err != nil {
		return models.Subscription{}, fmt.Errorf("build select: %w", err)
	}

	return scanSubscription(r.db.QueryRowContext(ctx, query, args...))
}

// GetByUserID returns the user's subscription record.
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID int) (models.Subscription, error) {
	return r.getWhere(ctx, sq.Eq{"user_id": userID})
}

// GetByStripeSubscriptionID finds a subscription by its Stripe ID.
func (r *SubscriptionRepository) GetByStripeSubscriptionID(ctx context.Context, id string) (models.Subscription, error) {
	return r.getWhere(ctx, sq.Eq{"stripe_subscription_id": id})
}

// GetByStripeCustomerID finds a subscription by Stripe customer ID.
func (r *SubscriptionRepository) GetByStripeCustomerID(ctx context.Context, id string) (models.Subscription, error) {
	return r.getWhere(ctx, sq.Eq{"stripe_customer_id": id})
}

// Create inserts a subscription row for the user.
func (r *SubscriptionRepository) Create(ctx context.Context, s *models.Subscription) error {
	query, args, err := builder.
		Insert("subscriptions").
		Columns("user_id", "billing_cycle", "stripe_subscription_id",
			"stripe_customer_id", "status", "minutes_limit").
		Values(s.UserID, s.BillingCycle, nullStr(s.StripeSubscriptionID),
			nullStr(s.StripeCustomerID), s.Status, s.MinutesLimit).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("subscription insert id: %w", err)
	}
	s.ID = int(id)

	return nil
}

// SubscriptionUpdate lists optional field changes; nil pointers leave
// the column untouched.
type SubscriptionUpdate struct {
	Status               *string
	BillingCycle         *string
	StripeSubscriptionID *string
	StripeCustomerID     *string
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	TrialEnd             *time.Time
	MinutesLimit         *float64
}

// Update applies the non-nil fields of u to the subscription.
func (r *SubscriptionRepository) Update(ctx context.Context, subscriptionID int, u SubscriptionUpdate) error {
	update := builder.Update("subscriptions").Where(sq.Eq{"id": subscriptionID})

	changed := false
	if u.Status != nil {
		update = update.Set("status", *u.Status)
		changed = true
	}
	if u.BillingCycle != nil {
		update = update.Set("billing_cycle", *u.BillingCycle)
		changed = true
	}
	if u.StripeSubscriptionID != nil {
		update = update.Set("stripe_subscription_id", *u.StripeSubscriptionID)
		changed = true
	}
	if u.StripeCustomerID != nil {
		update = update.Set("stripe_customer_id", *u.StripeCustomerID)
		changed = true
	}
	if u.CurrentPeriodStart != nil {
		update = update.Set("current_period_start", *u.CurrentPeriodStart)
		changed = true
	}
	if u.CurrentPeriodEnd != nil {
		update = update.Set("current_period_end", *u.CurrentPeriodEnd)
		changed = true
	}
	if u.TrialEnd != nil {
		update = update.Set("trial_end", *u.TrialEnd)
		changed = true
	}
	if u.MinutesLimit != nil {
		update = update.Set("minutes_limit", *u.MinutesLimit)
		changed = true
	}
	if !changed {
		return nil
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	return nil
}

// TrackUsage adds minutes to the current period's usage counter.
// Negative values refund previously tracked minutes, floored at zero.
func (r *SubscriptionRepository) TrackUsage(ctx context.Context, userID int, minutes float64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET minutes_used = GREATEST(minutes_used + ?, 0) WHERE user_id = ?",
		minutes, userID)
	if err != nil {
		return fmt.Errorf("track usage: %w", err)
	}
	return nil
}

// ResetUsage zeroes the monthly counter, called when an invoice for a
// new period is paid.
func (r *SubscriptionRepository) ResetUsage(ctx context.Context, subscriptionID int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET minutes_used = 0 WHERE id = ?", subscriptionID)
	if err != nil {
		return fmt.Errorf("reset usage: %w", err)
	}
	return nil
}

// ExpireTrials flips every lapsed trial to trial_expired and returns
// the number of rows changed.
func (r *SubscriptionRepository) ExpireTrials(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET status = ? WHERE status = ? AND trial_end < ?",
		models.StatusTrialExpired, models.StatusTrialing, now)
	if err != nil {
		return 0, fmt.Errorf("expire trials: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire trials: %w", err)
	}
	return int(affected), nil
}

// AddInvoice records a paid or issued invoice.
func (r *SubscriptionRepository) AddInvoice(ctx context.Context, inv *models.Invoice) error {
	query, args, err := builder.
		Insert("invoices").
		Columns("subscription_id", "stripe_invoice_id", "amount_due",
			"amount_paid", "status", "invoice_pdf", "paid_at").
		Values(inv.SubscriptionID, nullStr(inv.StripeInvoiceID),
			inv.AmountDue, inv.AmountPaid, inv.Status,
			nullStr(inv.InvoicePDF), inv.PaidAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("invoice insert id: %w", err)
	}
	inv.ID = int(id)

	return nil
}

// AddPaymentMethod stores a card, demoting previous defaults first.
func (r *SubscriptionRepository) AddPaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	if pm.IsDefault {
		if _, err := r.db.ExecContext(ctx,
			"UPDATE payment_methods SET is_default = FALSE WHERE subscription_id = ?",
			pm.SubscriptionID); err != nil {
			return fmt.Errorf("demote payment methods: %w", err)
		}
	}

	query, args, err := builder.
		Insert("payment_methods").
		Columns("subscription_id", "stripe_payment_method_id", "brand",
			"last4", "exp_month", "exp_year", "is_default").
		Values(pm.SubscriptionID, pm.StripePaymentMethodID, pm.Brand,
			pm.Last4, pm.ExpMonth, pm.ExpYear, pm.IsDefault).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert payment method: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("payment method insert id: %w", err)
	}
	pm.ID = int(id)

	return nil
}

// DefaultPaymentMethod returns the subscription's default card, or
// ErrNotFound when none is stored.
func (r *SubscriptionRepository) DefaultPaymentMethod(ctx context.Context, subscriptionID int) (models.PaymentMethod, error) {
	query, args, err := builder.
		Select("id", "subscription_id", "stripe_payment_method_id",
			"brand", "last4", "exp_month", "exp_year", "is_default").
		From("payment_methods").
		Where(sq.Eq{"subscription_id": subscriptionID, "is_default": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return models.PaymentMethod{}, fmt.Errorf("build select: %w", err)
	}

	var pm models.PaymentMethod
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&pm.ID, &pm.SubscriptionID, &pm.StripePaymentMethodID, &pm.Brand,
		&pm.Last4, &pm.ExpMonth, &pm.ExpYear, &pm.IsDefault)
	if err == sql.ErrNoRows {
		return models.PaymentMethod{}, ErrNotFound
	}
	if err != nil {
		return models.PaymentMethod{}, fmt.Errorf("get payment method: %w", err)
	}

	return pm, nil
}

// GetPromoCode returns an active promotional code by its code string.
func (r *SubscriptionRepository) GetPromoCode(ctx context.Context, code string) (models.PromotionalCode, error) {
	query, args, err := builder.
		Select("id", "code", "description", "percent_off", "amount_off",
			"duration", "max_redemptions", "times_redeemed", "is_active",
			"expires_at").
		From("promotional_codes").
		Where(sq.Eq{"code": code, "is_active": true}).
		ToSql()
	if err != nil {
		return models.PromotionalCode{}, fmt.Errorf("build select: %w", err)
	}

	var (
		p           models.PromotionalCode
		description sql.NullString
		percentOff  sql.NullFloat64
		amountOff   sql.NullFloat64
		maxRedeem   sql.NullInt64
		expiresAt   sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.Code, &description, &percentOff, &amountOff, &p.Duration,
		&maxRedeem, &p.TimesRedeemed, &p.IsActive, &expiresAt)
	if err == sql.ErrNoRows {
		return models.PromotionalCode{}, ErrNotFound
	}
	if err != nil {
		return models.PromotionalCode{}, fmt.Errorf("get promo code: %w", err)
	}

	p.Description = description.String
	p.PercentOff = percentOff.Float64
	p.AmountOff = amountOff.Float64
	p.MaxRedemptions = int(maxRedeem.Int64)
	if expiresAt.Valid {
		p.ExpiresAt = &expiresAt.Time
	}

	return p, nil
}

// RedeemPromoCode bumps the redemption counter.
func (r *SubscriptionRepository) RedeemPromoCode(ctx context.Context, promoID int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE promotional_codes SET times_redeemed = times_redeemed + 1 WHERE id = ?",
		promoID)
	if err != nil {
		return fmt.Errorf("redeem promo code: %w", err)
	}
	return nil
}
