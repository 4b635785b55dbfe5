// Package gateway wraps the hosted checkout provider. Callers see plain
// request/response structs; provider SDK types stay inside this package.
package gateway

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidSignature is returned when a webhook payload cannot be
// authenticated: missing header, bad signature or stale timestamp.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrMalformedEvent is returned for a delivery whose signature is valid but
// whose body cannot be decoded. Redelivering it will not help.
var ErrMalformedEvent = errors.New("malformed webhook event")

// Webhook event types the service reacts to.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// CheckoutRequest describes one single-line-item hosted checkout.
type CheckoutRequest struct {
	CustomerEmail string
	Currency      string
	ProductName   string
	Description   string
	Images        []string
	UnitAmount    int64 // minor units (cents)
	Quantity      int64
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is a created checkout session.
type Session struct {
	ID  string
	URL string
}

// SessionStatus is the provider's view of an existing session.
type SessionStatus struct {
	ID            string
	Paid          bool
	PaymentStatus string
	PaymentIntent string
}

// Event is a verified webhook notification. For checkout session events
// SessionID, TicketID (from metadata, may be empty) and PaymentIntent are
// filled in.
type Event struct {
	ID            string
	Type          string
	SessionID     string
	TicketID      string
	PaymentIntent string
}

// MinorUnits converts a USD amount to whole cents, rounding half away from
// zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
