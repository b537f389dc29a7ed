package models

import "time"

// Subscription status values, mirroring Stripe's vocabulary plus the
// local trial_expired state set when a trial lapses without payment.
const (
	StatusActive       = "active"
	StatusCanceled     = "canceled"
	StatusTrialing     = "trialing"
	StatusTrialExpired = "trial_expired"
	StatusPastDue      = "past_due"
	StatusNone         = "none"
)

// Billing cycles.
const (
	CycleMonthly = "monthly"
	CycleAnnual  = "annual"
)

type Subscription struct {
	ID     int `json:"id"`
	UserID int `json:"user_id"`

	BillingCycle         string `json:"billing_cycle"`
	StripeSubscriptionID string `json:"-"`
	StripeCustomerID     string `json:"-"`

	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	TrialEnd           *time.Time `json:"trial_end,omitempty"`

	MinutesUsed  float64 `json:"minutes_used"`
	MinutesLimit float64 `json:"minutes_limit"`

	// All features are enabled on the single paid tier.
	AllowSharing       bool `json:"allow_sharing"`
	AllowExporting     bool `json:"allow_exporting"`
	PriorityProcessing bool `json:"priority_processing"`
	AdvancedAIFeatures bool `json:"advanced_ai_features"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Invoice struct {
	ID              int        `json:"id"`
	SubscriptionID  int        `json:"subscription_id"`
	StripeInvoiceID string     `json:"stripe_invoice_id"`
	AmountDue       float64    `json:"amount_due"`
	AmountPaid      float64    `json:"amount_paid"`
	Status          string     `json:"status"`
	InvoicePDF      string     `json:"invoice_pdf,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

type PaymentMethod struct {
	ID                    int    `json:"id"`
	SubscriptionID        int    `json:"-"`
	StripePaymentMethodID string `json:"-"`
	Brand                 string `json:"brand"`
	Last4                 string `json:"last4"`
	ExpMonth              int    `json:"exp_month"`
	ExpYear               int    `json:"exp_year"`
	IsDefault             bool   `json:"is_default"`
}

type PromotionalCode struct {
	ID             int        `json:"id"`
	Code           string     `json:"code"`
	Description    string     `json:"description,omitempty"`
	PercentOff     float64    `json:"percent_off,omitempty"`
	AmountOff      float64    `json:"amount_off,omitempty"`
	Duration       string     `json:"duration"`
	MaxRedemptions int        `json:"max_redemptions,omitempty"`
	TimesRedeemed  int        `json:"times_redeemed"`
	IsActive       bool       `json:"is_active"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}
