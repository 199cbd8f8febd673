package payment

import (
	"errors"
	"net/http"
)

var (
	ErrNoPrice        = errors.New("no price configured for this interval")
	ErrNoCustomer     = errors.New("no billing account for this user")
	ErrInvalidPayload = errors.New("invalid webhook payload")
)

// Provider sells the premium plan.
type Provider interface {
	// CreateCheckoutURL starts a premium checkout billed monthly or yearly.
	CreateCheckoutURL(userID, interval, customerEmail string) (string, error)

	// CustomerPortalURL lets a paying user manage or cancel their plan.
	CustomerPortalURL(userID string) (string, error)

	// HandleWebhook keeps the local subscription in sync with the provider.
	HandleWebhook(payload []byte, headers http.Header) error

	Name() string
}
