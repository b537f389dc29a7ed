// Package stripe wraps the stripe-go SDK with the handful of billing
// operations the subscription endpoints need.
package stripe

import (
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v76"
	checkout "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/invoice"
	"github.com/stripe/stripe-go/v76/paymentmethod"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/questlogger/questlogger/internal/models"
)

type Config struct {
	SecretKey      string
	WebhookSecret  string
	MonthlyPriceID string
	AnnualPriceID  string
}

type Service struct {
	Config Config
}

func NewService(cfg Config) *Service {
	stripeapi.Key = cfg.SecretKey
	return &Service{Config: cfg}
}

// PriceID maps a billing cycle onto the configured Stripe price.
func (s *Service) PriceID(billingCycle string) string {
	if billingCycle == models.CycleAnnual {
		return s.Config.AnnualPriceID
	}
	return s.Config.MonthlyPriceID
}

// CreateCustomer registers the user with Stripe and returns the
// customer ID.
func (s *Service) CreateCustomer(email, name string) (string, error) {
	params := &stripeapi.CustomerParams{
		Email: stripeapi.String(email),
	}
	if name != "" {
		params.Name = stripeapi.String(name)
	}

	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	return c.ID, nil
}

// CreateSubscription starts a subscription for the customer. trialDays
// of 0 means no trial; promoCode is optional.
func (s *Service) CreateSubscription(customerID, billingCycle string, trialDays int, promoCode string) (*stripeapi.Subscription, error) {
	params := &stripeapi.SubscriptionParams{
		Customer: stripeapi.String(customerID),
		Items: []*stripeapi.SubscriptionItemsParams{
			{Price: stripeapi.String(s.PriceID(billingCycle))},
		},
	}
	if trialDays > 0 {
		params.TrialPeriodDays = stripeapi.Int64(int64(trialDays))
	}
	if promoCode != "" {
		params.PromotionCode = stripeapi.String(promoCode)
	}

	sub, err := subscription.New(params)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	return sub, nil
}

// GetSubscription fetches the subscription from Stripe.
func (s *Service) GetSubscription(id string) (*stripeapi.Subscription, error) {
	sub, err := subscription.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// CancelSubscription cancels immediately.
func (s *Service) CancelSubscription(id string) error {
	if _, err := subscription.Cancel(id, nil); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return nil
}

// AttachPaymentMethod attaches the payment method to the customer and
// makes it the default for invoices. Returns the attached method so the
// caller can persist the card details.
func (s *Service) AttachPaymentMethod(customerID, paymentMethodID string) (*stripeapi.PaymentMethod, error) {
	pm, err := paymentmethod.Attach(paymentMethodID, &stripeapi.PaymentMethodAttachParams{
		Customer: stripeapi.String(customerID),
	})
	if err != nil {
		return nil, fmt.Errorf("attach payment method: %w", err)
	}

	_, err = customer.Update(customerID, &stripeapi.CustomerParams{
		InvoiceSettings: &stripeapi.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripeapi.String(paymentMethodID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("set default payment method: %w", err)
	}

	return pm, nil
}

// ListInvoices returns up to limit invoices for the customer, newest
// first.
func (s *Service) ListInvoices(customerID string, limit int) ([]*stripeapi.Invoice, error) {
	if limit <= 0 {
		limit = 10
	}

	params := &stripeapi.InvoiceListParams{
		Customer: stripeapi.String(customerID),
	}
	params.Limit = stripeapi.Int64(int64(limit))

	var invoices []*stripeapi.Invoice
	iter := invoice.List(params)
	for iter.Next() {
		invoices = append(invoices, iter.Invoice())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	return invoices, nil
}

// CreateCheckoutSession opens a Stripe Checkout session in subscription
// mode.
func (s *Service) CreateCheckoutSession(customerID, billingCycle, successURL, cancelURL, promoCode string) (*stripeapi.CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{
		Customer: stripeapi.String(customerID),
		Mode:     stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				Price:    stripeapi.String(s.PriceID(billingCycle)),
				Quantity: stripeapi.Int64(1),
			},
		},
		SuccessURL: stripeapi.String(successURL),
		CancelURL:  stripeapi.String(cancelURL),
	}
	if promoCode != "" {
		params.Discounts = []*stripeapi.CheckoutSessionDiscountParams{
			{PromotionCode: stripeapi.String(promoCode)},
		}
	} else {
		params.AllowPromotionCodes = stripeapi.Bool(true)
	}

	sess, err := checkout.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return sess, nil
}

// VerifyWebhook checks the Stripe signature and returns the decoded
// event.
func (s *Service) VerifyWebhook(payload []byte, signature string) (stripeapi.Event, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload, signature, s.Config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripeapi.Event{}, fmt.Errorf("verify webhook: %w", err)
	}
	return event, nil
}
