package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v76"

	"github.com/questlogger/questlogger/internal/config"
	"github.com/questlogger/questlogger/internal/logger"
	"github.com/questlogger/questlogger/internal/models"
	"github.com/questlogger/questlogger/internal/store"
)

// Billing is the Stripe surface the subscription service depends on.
type Billing interface {
	CreateCustomer(email, name string) (string, error)
	CreateSubscription(customerID, billingCycle string, trialDays int, promoCode string) (*stripeapi.Subscription, error)
	GetSubscription(id string) (*stripeapi.Subscription, error)
	CancelSubscription(id string) error
	AttachPaymentMethod(customerID, paymentMethodID string) (*stripeapi.PaymentMethod, error)
	ListInvoices(customerID string, limit int) ([]*stripeapi.Invoice, error)
	CreateCheckoutSession(customerID, billingCycle, successURL, cancelURL, promoCode string) (*stripeapi.CheckoutSession, error)
	VerifyWebhook(payload []byte, signature string) (stripeapi.Event, error)
}

// SubscriptionService implements the /subscription endpoints on top of
// the local subscription records and Stripe.
type SubscriptionService struct {
	subs    *store.SubscriptionRepository
	users   *store.UserRepository
	billing Billing
	cfg     *config.Config
	log     *logger.Logger
}

func NewSubscriptionService(subs *store.SubscriptionRepository, users *store.UserRepository, billing Billing, cfg *config.Config, log *logger.Logger) *SubscriptionService {
	return &SubscriptionService{subs: subs, users: users, billing: billing, cfg: cfg, log: log}
}

// Status is the user-facing subscription state.
type Status struct {
	Status           string                `json:"status"`
	BillingCycle     string                `json:"billing_cycle"`
	CurrentPeriodEnd *time.Time            `json:"current_period_end,omitempty"`
	TrialEnd         *time.Time            `json:"trial_end,omitempty"`
	MinutesUsed      float64               `json:"minutes_used"`
	MinutesLimit     float64               `json:"minutes_limit"`
	Features         map[string]bool       `json:"features"`
	PaymentMethod    *models.PaymentMethod `json:"payment_method,omitempty"`
}

func (s *SubscriptionService) statusFrom(ctx context.Context, sub models.Subscription) Status {
	st := Status{
		Status:           sub.Status,
		BillingCycle:     sub.BillingCycle,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		TrialEnd:         sub.TrialEnd,
		MinutesUsed:      sub.MinutesUsed,
		MinutesLimit:     sub.MinutesLimit,
		Features: map[string]bool{
			"sharing":             sub.AllowSharing,
			"exporting":           sub.AllowExporting,
			"priority_processing": sub.PriorityProcessing,
			"advanced_ai":         sub.AdvancedAIFeatures,
		},
	}

	if pm, err := s.subs.DefaultPaymentMethod(ctx, sub.ID); err == nil {
		st.PaymentMethod = &pm
	}

	return st
}

// GetStatus returns the user's subscription status. Lapsed trials are
// flipped to trial_expired on read.
func (s *SubscriptionService) GetStatus(ctx context.Context, userID int) (Status, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Status{
			Status:       models.StatusNone,
			BillingCycle: models.CycleMonthly,
			Features:     map[string]bool{},
		}, nil
	}
	if err != nil {
		return Status{}, err
	}

	if sub.Status == models.StatusTrialing && sub.TrialEnd != nil && sub.TrialEnd.Before(time.Now()) {
		expired := models.StatusTrialExpired
		if err := s.subs.Update(ctx, sub.ID, store.SubscriptionUpdate{Status: &expired}); err != nil {
			return Status{}, err
		}
		sub.Status = expired
	}

	if sub.Status == models.StatusActive && sub.StripeSubscriptionID != "" &&
		sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.Before(time.Now()) {
		s.refreshFromStripe(ctx, &sub)
	}

	return s.statusFrom(ctx, sub), nil
}

// refreshFromStripe re-syncs an active record whose period end has
// passed; a missed webhook otherwise leaves it stuck in the old period.
func (s *SubscriptionService) refreshFromStripe(ctx context.Context, sub *models.Subscription) {
	stripeSub, err := s.billing.GetSubscription(sub.StripeSubscriptionID)
	if err != nil {
		s.log.Error().Err(err).Str("stripe_subscription_id", sub.StripeSubscriptionID).Msg("refresh subscription")
		return
	}

	status := string(stripeSub.Status)
	periodStart := time.Unix(stripeSub.CurrentPeriodStart, 0)
	periodEnd := time.Unix(stripeSub.CurrentPeriodEnd, 0)
	update := store.SubscriptionUpdate{
		Status:             &status,
		CurrentPeriodStart: &periodStart,
		CurrentPeriodEnd:   &periodEnd,
	}
	if err := s.subs.Update(ctx, sub.ID, update); err != nil {
		s.log.Error().Err(err).Msg("apply refreshed subscription")
		return
	}

	sub.Status = status
	sub.CurrentPeriodStart = &periodStart
	sub.CurrentPeriodEnd = &periodEnd
}

// Pricing returns the single-tier pricing sheet.
func (s *SubscriptionService) Pricing() map[string]any {
	return map[string]any{
		"price": map[string]any{
			"display_name":          "QuestLogger Pro",
			"description":           "Full featured with ample recording time",
			"monthly_price":         9.99,
			"annual_price":          99.99,
			"monthly_minutes_limit": s.cfg.MonthlyMinutesLimit,
			"features": []string{
				"2 hour monthly recording limit",
				"Advanced AI processing",
				"Priority transcription",
				"Export to multiple formats",
				"Public sharing of notes",
			},
		},
		"promotional_codes": []map[string]any{
			{
				"code":        "WELCOME",
				"description": "20% off your first payment",
				"percent_off": 20,
			},
		},
	}
}

// SubscribeInput is the POST /subscription/subscribe payload.
type SubscribeInput struct {
	BillingCycle    string `json:"billing_cycle"`
	Trial           bool   `json:"trial"`
	PromotionalCode string `json:"promotional_code"`
	PaymentMethodID string `json:"payment_method_id"`
}

// Subscribe starts a subscription, optionally on a trial.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID int, in SubscribeInput) (Status, error) {
	existing, err := s.subs.GetByUserID(ctx, userID)
	if err == nil && existing.Status == models.StatusActive {
		return s.statusFrom(ctx, existing), nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Status{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	name := user.Username
	if name == "" {
		name = fmt.Sprintf("User %d", user.ID)
	}

	customerID, err := s.billing.CreateCustomer(user.Email, name)
	if err != nil {
		return Status{}, err
	}

	var attachedPM *stripeapi.PaymentMethod
	if in.PaymentMethodID != "" {
		attachedPM, err = s.billing.AttachPaymentMethod(customerID, in.PaymentMethodID)
		if err != nil {
			return Status{}, err
		}
	}

	trialDays := 0
	if in.Trial {
		trialDays = s.cfg.TrialDays
	}

	stripeSub, err := s.billing.CreateSubscription(customerID, in.BillingCycle, trialDays, in.PromotionalCode)
	if err != nil {
		return Status{}, err
	}

	sub := existing
	if sub.ID == 0 {
		sub = models.Subscription{
			UserID:       userID,
			BillingCycle: in.BillingCycle,
			Status:       string(stripeSub.Status),
			MinutesLimit: s.cfg.MonthlyMinutesLimit,
		}
		sub.StripeSubscriptionID = stripeSub.ID
		sub.StripeCustomerID = customerID
		if err := s.subs.Create(ctx, &sub); err != nil {
			return Status{}, err
		}
	}

	status := string(stripeSub.Status)
	periodStart := time.Unix(stripeSub.CurrentPeriodStart, 0)
	periodEnd := time.Unix(stripeSub.CurrentPeriodEnd, 0)
	update := store.SubscriptionUpdate{
		Status:               &status,
		BillingCycle:         &in.BillingCycle,
		StripeSubscriptionID: &stripeSub.ID,
		StripeCustomerID:     &customerID,
		CurrentPeriodStart:   &periodStart,
		CurrentPeriodEnd:     &periodEnd,
	}
	if stripeSub.TrialEnd > 0 {
		trialEnd := time.Unix(stripeSub.TrialEnd, 0)
		update.TrialEnd = &trialEnd
	}
	if err := s.subs.Update(ctx, sub.ID, update); err != nil {
		return Status{}, err
	}

	if attachedPM != nil {
		pm := models.PaymentMethod{
			SubscriptionID:        sub.ID,
			StripePaymentMethodID: in.PaymentMethodID,
			IsDefault:             true,
		}
		if attachedPM.Card != nil {
			pm.Brand = string(attachedPM.Card.Brand)
			pm.Last4 = attachedPM.Card.Last4
			pm.ExpMonth = int(attachedPM.Card.ExpMonth)
			pm.ExpYear = int(attachedPM.Card.ExpYear)
		}
		if err := s.subs.AddPaymentMethod(ctx, &pm); err != nil {
			s.log.Error().Err(err).Msg("store payment method")
		}
	}

	return s.GetStatus(ctx, userID)
}

// Unsubscribe cancels the user's subscription in Stripe and locally.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID int) (Status, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Status{}, ErrNoSubscription
	}
	if err != nil {
		return Status{}, err
	}

	if sub.StripeSubscriptionID != "" {
		if err := s.billing.CancelSubscription(sub.StripeSubscriptionID); err != nil {
			return Status{}, err
		}
	}

	canceled := models.StatusCanceled
	if err := s.subs.Update(ctx, sub.ID, store.SubscriptionUpdate{Status: &canceled}); err != nil {
		return Status{}, err
	}

	return s.GetStatus(ctx, userID)
}

// UpdatePaymentMethod attaches a new default card.
func (s *SubscriptionService) UpdatePaymentMethod(ctx context.Context, userID int, paymentMethodID string) (models.PaymentMethod, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.PaymentMethod{}, ErrNoSubscription
	}
	if err != nil {
		return models.PaymentMethod{}, err
	}
	if sub.StripeCustomerID == "" {
		return models.PaymentMethod{}, errors.New("missing customer information")
	}

	stripePM, err := s.billing.AttachPaymentMethod(sub.StripeCustomerID, paymentMethodID)
	if err != nil {
		return models.PaymentMethod{}, err
	}

	pm := models.PaymentMethod{
		SubscriptionID:        sub.ID,
		StripePaymentMethodID: paymentMethodID,
		IsDefault:             true,
	}
	if stripePM.Card != nil {
		pm.Brand = string(stripePM.Card.Brand)
		pm.Last4 = stripePM.Card.Last4
		pm.ExpMonth = int(stripePM.Card.ExpMonth)
		pm.ExpYear = int(stripePM.Card.ExpYear)
	}

	if err := s.subs.AddPaymentMethod(ctx, &pm); err != nil {
		return models.PaymentMethod{}, err
	}

	return pm, nil
}

// PaymentHistoryEntry is one row of GET /subscription/payment-history.
type PaymentHistoryEntry struct {
	ID         string     `json:"id"`
	AmountPaid float64    `json:"amount_paid"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	InvoicePDF string     `json:"invoice_pdf,omitempty"`
}

// PaymentHistory returns recent Stripe invoices. Users without billing
// history get an empty list, not an error.
func (s *SubscriptionService) PaymentHistory(ctx context.Context, userID, limit int) ([]PaymentHistoryEntry, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sub.StripeCustomerID == "") {
		return []PaymentHistoryEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	invoices, err := s.billing.ListInvoices(sub.StripeCustomerID, limit)
	if err != nil {
		s.log.Error().Err(err).Int("user_id", userID).Msg("fetch invoices")
		return []PaymentHistoryEntry{}, nil
	}

	entries := make([]PaymentHistoryEntry, 0, len(invoices))
	for _, inv := range invoices {
		entry := PaymentHistoryEntry{
			ID:         inv.ID,
			AmountPaid: float64(inv.AmountPaid) / 100, // cents to dollars
			Status:     string(inv.Status),
			CreatedAt:  time.Unix(inv.Created, 0),
			InvoicePDF: inv.InvoicePDF,
		}
		if inv.StatusTransitions != nil && inv.StatusTransitions.PaidAt > 0 {
			paidAt := time.Unix(inv.StatusTransitions.PaidAt, 0)
			entry.PaidAt = &paidAt
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// ChangeBillingCycle switches between monthly and annual billing.
func (s *SubscriptionService) ChangeBillingCycle(ctx context.Context, userID int, newCycle string) (Status, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Status{}, ErrNoSubscription
	}
	if err != nil {
		return Status{}, err
	}

	if sub.BillingCycle == newCycle {
		return s.statusFrom(ctx, sub), nil
	}

	// Proration and the Stripe-side item swap are handled by the
	// billing portal; locally we record the chosen cycle.
	if err := s.subs.Update(ctx, sub.ID, store.SubscriptionUpdate{BillingCycle: &newCycle}); err != nil {
		return Status{}, err
	}

	return s.GetStatus(ctx, userID)
}

// ApplyPromoCode validates and redeems a promotional code.
func (s *SubscriptionService) ApplyPromoCode(ctx context.Context, userID int, code string) (Status, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Status{}, ErrNoSubscription
	}
	if err != nil {
		return Status{}, err
	}

	promo, err := s.subs.GetPromoCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return Status{}, ErrInvalidPromoCode
	}
	if err != nil {
		return Status{}, err
	}

	if promo.MaxRedemptions > 0 && promo.TimesRedeemed >= promo.MaxRedemptions {
		return Status{}, ErrInvalidPromoCode
	}
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(time.Now()) {
		return Status{}, ErrInvalidPromoCode
	}

	if err := s.subs.RedeemPromoCode(ctx, promo.ID); err != nil {
		return Status{}, err
	}

	return s.statusFrom(ctx, sub), nil
}

// Checkout is the POST /subscription/create-checkout response.
type Checkout struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckout opens a Stripe Checkout session for the paid tier.
func (s *SubscriptionService) CreateCheckout(ctx context.Context, userID int, billingCycle, promoCode string) (Checkout, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Checkout{}, err
	}
	if err == nil && sub.Status == models.StatusActive {
		return Checkout{}, ErrAlreadySubscribed
	}

	customerID := sub.StripeCustomerID
	if customerID == "" {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return Checkout{}, err
		}

		name := user.Username
		if name == "" {
			name = fmt.Sprintf("User %d", user.ID)
		}

		customerID, err = s.billing.CreateCustomer(user.Email, name)
		if err != nil {
			return Checkout{}, err
		}

		if sub.ID != 0 {
			if err := s.subs.Update(ctx, sub.ID, store.SubscriptionUpdate{StripeCustomerID: &customerID}); err != nil {
				return Checkout{}, err
			}
		}
	}

	successURL := s.cfg.FrontendURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}"
	cancelURL := s.cfg.FrontendURL + "/subscription/cancel"

	sess, err := s.billing.CreateCheckoutSession(customerID, billingCycle, successURL, cancelURL, promoCode)
	if err != nil {
		return Checkout{}, err
	}

	return Checkout{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

// TrialNotification is the GET /subscription/trial-notification payload.
type TrialNotification struct {
	HasNotification bool       `json:"has_notification"`
	Message         string     `json:"message"`
	Status          string     `json:"status"`
	TrialEnd        *time.Time `json:"trial_end,omitempty"`
}

// GetTrialNotification produces the banner warning users whose trial is
// ending within three days or has expired.
func (s *SubscriptionService) GetTrialNotification(ctx context.Context, userID int) (TrialNotification, error) {
	status, err := s.GetStatus(ctx, userID)
	if err != nil {
		return TrialNotification{}, err
	}

	n := TrialNotification{Status: status.Status, TrialEnd: status.TrialEnd}

	switch {
	case status.Status == models.StatusTrialing && status.TrialEnd != nil:
		daysRemaining := int(time.Until(*status.TrialEnd).Hours() / 24)
		if daysRemaining > 3 {
			return n, nil
		}
		n.HasNotification = true
		switch {
		case daysRemaining <= 0:
			n.Message = "Your trial ends today! Subscribe now to continue using all features."
		case daysRemaining == 1:
			n.Message = "Your trial ends in 1 day. Subscribe now to avoid interruption."
		default:
			n.Message = fmt.Sprintf("Your trial ends in %d days. Subscribe now to avoid interruption.", daysRemaining)
		}
	case status.Status == models.StatusTrialExpired:
		n.HasNotification = true
		n.Message = "Your trial has expired. Subscribe now to continue using all features."
	}

	return n, nil
}

// HandleWebhook verifies and applies a Stripe webhook event.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	event, err := s.billing.VerifyWebhook(payload, signature)
	if err != nil {
		return "", err
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.applySubscriptionEvent(ctx, event)
	case "customer.subscription.deleted":
		err = s.applySubscriptionDeleted(ctx, event)
	case "invoice.paid":
		err = s.applyInvoicePaid(ctx, event)
	default:
		s.log.Debug().Str("type", string(event.Type)).Msg("ignoring webhook event")
	}
	if err != nil {
		return "", err
	}

	return string(event.Type), nil
}

func (s *SubscriptionService) findEventSubscription(ctx context.Context, stripeSubID, customerID string) (models.Subscription, error) {
	sub, err := s.subs.GetByStripeSubscriptionID(ctx, stripeSubID)
	if errors.Is(err, store.ErrNotFound) && customerID != "" {
		// Subscriptions completed through Checkout are first seen here;
		// match them to the customer created for the checkout session.
		sub, err = s.subs.GetByStripeCustomerID(ctx, customerID)
	}
	return sub, err
}

func (s *SubscriptionService) applySubscriptionEvent(ctx context.Context, event stripeapi.Event) error {
	var stripeSub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return fmt.Errorf("decode subscription event: %w", err)
	}

	customerID := ""
	if stripeSub.Customer != nil {
		customerID = stripeSub.Customer.ID
	}

	sub, err := s.findEventSubscription(ctx, stripeSub.ID, customerID)
	if errors.Is(err, store.ErrNotFound) {
		// Created directly in the Stripe dashboard; nothing to attach
		// it to.
		s.log.Warn().Str("stripe_subscription_id", stripeSub.ID).Msg("webhook for unknown subscription")
		return nil
	}
	if err != nil {
		return err
	}

	status := string(stripeSub.Status)
	periodStart := time.Unix(stripeSub.CurrentPeriodStart, 0)
	periodEnd := time.Unix(stripeSub.CurrentPeriodEnd, 0)
	update := store.SubscriptionUpdate{
		Status:               &status,
		StripeSubscriptionID: &stripeSub.ID,
		CurrentPeriodStart:   &periodStart,
		CurrentPeriodEnd:     &periodEnd,
	}
	if stripeSub.TrialEnd > 0 {
		trialEnd := time.Unix(stripeSub.TrialEnd, 0)
		update.TrialEnd = &trialEnd
	}

	return s.subs.Update(ctx, sub.ID, update)
}

func (s *SubscriptionService) applySubscriptionDeleted(ctx context.Context, event stripeapi.Event) error {
	var stripeSub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return fmt.Errorf("decode subscription event: %w", err)
	}

	sub, err := s.subs.GetByStripeSubscriptionID(ctx, stripeSub.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn().Str("stripe_subscription_id", stripeSub.ID).Msg("delete webhook for unknown subscription")
		return nil
	}
	if err != nil {
		return err
	}

	canceled := models.StatusCanceled
	return s.subs.Update(ctx, sub.ID, store.SubscriptionUpdate{Status: &canceled})
}

func (s *SubscriptionService) applyInvoicePaid(ctx context.Context, event stripeapi.Event) error {
	var inv stripeapi.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("decode invoice event: %w", err)
	}
	if inv.Subscription == nil {
		return nil
	}

	sub, err := s.subs.GetByStripeSubscriptionID(ctx, inv.Subscription.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn().Str("stripe_invoice_id", inv.ID).Msg("invoice for unknown subscription")
		return nil
	}
	if err != nil {
		return err
	}

	record := models.Invoice{
		SubscriptionID:  sub.ID,
		StripeInvoiceID: inv.ID,
		AmountDue:       float64(inv.AmountDue) / 100,
		AmountPaid:      float64(inv.AmountPaid) / 100,
		Status:          string(inv.Status),
		InvoicePDF:      inv.InvoicePDF,
	}
	if inv.StatusTransitions != nil && inv.StatusTransitions.PaidAt > 0 {
		paidAt := time.Unix(inv.StatusTransitions.PaidAt, 0)
		record.PaidAt = &paidAt
	}
	if err := s.subs.AddInvoice(ctx, &record); err != nil {
		return err
	}

	// A paid invoice opens a new billing period; recording minutes
	// start over.
	return s.subs.ResetUsage(ctx, sub.ID)
}

// ExpireTrials is the periodic sweep complementing lazy expiry on
// status reads.
func (s *SubscriptionService) ExpireTrials(ctx context.Context) (int, error) {
	return s.subs.ExpireTrials(ctx, time.Now())
}
