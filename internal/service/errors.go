package service

import (
	"errors"

	"github.com/questlogger/questlogger/internal/store"
)

var (
	// ErrNotFound mirrors store.ErrNotFound at the service boundary.
	ErrNotFound = store.ErrNotFound

	// ErrFeatureDisabled means the feature flag for the requested
	// operation is off on this server.
	ErrFeatureDisabled = errors.New("feature is not enabled on this server")

	// ErrQuotaExceeded means the monthly recording minutes are used up.
	ErrQuotaExceeded = errors.New("monthly recording limit reached")

	// ErrNoSubscription means the operation requires a subscription the
	// user does not have.
	ErrNoSubscription = errors.New("subscription not found")

	// ErrAlreadySubscribed guards against double subscriptions.
	ErrAlreadySubscribed = errors.New("user already has an active subscription")

	// ErrInvalidPromoCode covers unknown, exhausted and expired codes.
	ErrInvalidPromoCode = errors.New("invalid or expired promotional code")
)
