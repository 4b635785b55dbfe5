// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

// Routing keys, also used as durable queue names.
const (
    TicketPaidQueue      = "ticket.paid"
    TicketCancelledQueue = "ticket.cancelled"
)

// TicketStatusChanged is published after a ticket's terminal transition has
// been committed. It carries enough for downstream consumers to log, notify
// or feed analytics without querying the primary database.
type TicketStatusChanged struct {
    TicketID      string `json:"ticket_id"`
    EventID       string `json:"event_id"`
    UserID        uint64 `json:"user_id"`
    Quantity      int    `json:"quantity"`
    Status        string `json:"status"`
    PaymentStatus string `json:"payment_status"`
    AmountCents   int64  `json:"amount_cents"`
    GatewayRef    string `json:"gateway_ref,omitempty"`
    Source        string `json:"source"` // confirm | webhook
    OccurredAt    string `json:"occurred_at"`
}

// RoutingKey picks the queue for the event's status.
func (e TicketStatusChanged) RoutingKey() string {
    if e.Status == "CANCELLED" {
        return TicketCancelledQueue
    }
    return TicketPaidQueue
}
