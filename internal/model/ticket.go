package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// TicketStatus is the lifecycle state of a ticket.  PAID and CANCELLED are
// terminal.
type TicketStatus string

const (
    TicketPending   TicketStatus = "PENDING"
    TicketPaid      TicketStatus = "PAID"
    TicketCancelled TicketStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s TicketStatus) Terminal() bool { return s == TicketPaid || s == TicketCancelled }

// PaymentStatus mirrors TicketStatus on the payment row.
type PaymentStatus string

const (
    PaymentPending   PaymentStatus = "PENDING"
    PaymentCompleted PaymentStatus = "COMPLETED"
    PaymentFailed    PaymentStatus = "FAILED"
)

// PaymentStatusFor returns the payment status that accompanies a ticket
// status.  Ticket and payment always move together.
func PaymentStatusFor(s TicketStatus) PaymentStatus {
    switch s {
    case TicketPaid:
        return PaymentCompleted
    case TicketCancelled:
        return PaymentFailed
    default:
        return PaymentPending
    }
}

// Ticket is a reservation of Quantity admissions to one event.
type Ticket struct {
    ID        string       `json:"id"`
    EventID   string       `json:"event_id"`
    UserID    uint64       `json:"user_id"`
    Quantity  int          `json:"quantity"`
    Status    TicketStatus `json:"status"`
    CreatedAt time.Time    `json:"created_at"`
    UpdatedAt time.Time    `json:"updated_at"`
}

// Payment tracks the amount owed for one ticket and its gateway
// correlation.  Amount is fixed when the payment is created.
//
// Fields:
//  CheckoutID – gateway session id, empty until the session is created.
//  GatewayRef – gateway transaction id, set only on success.
type Payment struct {
    ID         string          `json:"id"`
    TicketID   string          `json:"ticket_id"`
    UserID     uint64          `json:"user_id"`
    Amount     decimal.Decimal `json:"amount"`
    CheckoutID string          `json:"stripe_checkout_id"`
    GatewayRef *string         `json:"stripe_payment_id,omitempty"`
    Status     PaymentStatus   `json:"status"`
    CreatedAt  time.Time       `json:"created_at"`
    UpdatedAt  time.Time       `json:"updated_at"`
}

// TicketDetail is a ticket joined with its event and payment, as shown to
// its owner.  Payment is nil when the row is missing.
type TicketDetail struct {
    Ticket
    Event   Event    `json:"event"`
    Payment *Payment `json:"payment,omitempty"`
}
