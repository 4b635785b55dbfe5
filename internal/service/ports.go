package service

import (
	"context"
	"time"

	"github.com/iliyamo/meethub/internal/gateway"
	"github.com/iliyamo/meethub/internal/model"
	"github.com/iliyamo/meethub/internal/queue"
	"github.com/iliyamo/meethub/internal/repository"
)

// EventReader loads events for checkout.
type EventReader interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// TicketStore is the persistence the reservation and reconciliation flows
// need. *repository.TicketRepo satisfies it.
type TicketStore interface {
	CreatePending(ctx context.Context, t *model.Ticket, p *model.Payment) error
	SetCheckoutID(ctx context.Context, ticketID, checkoutID string) error
	GetWithPayment(ctx context.Context, ticketID string) (*model.Ticket, *model.Payment, error)
	Transition(ctx context.Context, ticketID string, to model.TicketStatus, gatewayRef string) (repository.TransitionResult, error)
}

// AbandonedTicketDeleter removes stale PENDING tickets.
type AbandonedTicketDeleter interface {
	DeleteAbandoned(ctx context.Context, cutoff time.Time) (int64, error)
}

// CheckoutGateway is the hosted checkout provider.
type CheckoutGateway interface {
	CreateSession(ctx context.Context, req gateway.CheckoutRequest) (gateway.Session, error)
	GetSession(ctx context.Context, id string) (gateway.SessionStatus, error)
	ParseEvent(payload []byte, signature string) (gateway.Event, error)
}

// Notifier announces committed ticket transitions.
type Notifier interface {
	PublishTicketStatus(ctx context.Context, ev queue.TicketStatusChanged) error
}

type nopNotifier struct{}

func (nopNotifier) PublishTicketStatus(context.Context, queue.TicketStatusChanged) error { return nil }
