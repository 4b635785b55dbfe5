package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meethub/internal/gateway"
	"github.com/iliyamo/meethub/internal/metrics"
	"github.com/iliyamo/meethub/internal/model"
	"github.com/iliyamo/meethub/internal/queue"
	"github.com/iliyamo/meethub/internal/repository"
)

// Sources of a reconciliation, used in logs, metrics and notifications.
const (
	SourceConfirm = "confirm"
	SourceWebhook = "webhook"
)

// Webhook outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeIgnored = "ignored"
)

// MsgPaymentNotCompleted is returned when the gateway has not captured the
// payment yet.
const MsgPaymentNotCompleted = "Payment not completed"

// ConfirmResult is the outcome of a return-URL confirmation.
type ConfirmResult struct {
	Completed bool
	Message   string
	Status    model.TicketStatus
}

// WebhookResult describes what a webhook delivery did.
type WebhookResult struct {
	EventType string
	TicketID  string
	Outcome   string
}

// ReconciliationService applies gateway outcomes to tickets. The return-URL
// confirmation and the webhook both end in TicketStore.Transition, whose
// conditional update makes the first writer win; the other path observes
// the terminal status and does nothing.
type ReconciliationService struct {
	tickets  TicketStore
	gateway  CheckoutGateway
	notifier Notifier
	log      *logrus.Logger
	now      func() time.Time
}

func NewReconciliationService(tickets TicketStore, gw CheckoutGateway, notifier Notifier, log *logrus.Logger) *ReconciliationService {
	if tickets == nil || gw == nil {
		panic("nil dependency passed to NewReconciliationService")
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReconciliationService{tickets: tickets, gateway: gw, notifier: notifier, log: log, now: time.Now}
}

// ConfirmPayment reconciles a ticket after the gateway redirected the user
// back. The supplied session id must match the one stored on the payment.
// An already PAID ticket reports success without contacting the gateway or
// writing anything.
func (s *ReconciliationService) ConfirmPayment(ctx context.Context, ticketID, sessionID string) (ConfirmResult, error) {
	l := s.log.WithFields(logrus.Fields{"ticket_id": ticketID, "session_id": sessionID, "source": SourceConfirm})

	ticket, payment, err := s.tickets.GetWithPayment(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return ConfirmResult{}, fmt.Errorf("%w: ticket not found", ErrNotFound)
		}
		return ConfirmResult{}, fmt.Errorf("load ticket: %w", err)
	}
	if payment == nil || sessionID == "" || payment.CheckoutID != sessionID {
		l.Warn("session does not match ticket payment")
		return ConfirmResult{}, fmt.Errorf("%w: payment information mismatch", ErrPaymentMismatch)
	}

	switch ticket.Status {
	case model.TicketPaid:
		return ConfirmResult{Completed: true, Status: model.TicketPaid}, nil
	case model.TicketCancelled:
		return ConfirmResult{Completed: false, Message: "Ticket was cancelled", Status: model.TicketCancelled}, nil
	}

	st, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		l.WithError(err).Error("retrieving checkout session failed")
		return ConfirmResult{}, fmt.Errorf("retrieve session: %w", err)
	}
	if !st.Paid {
		l.WithField("payment_status", st.PaymentStatus).Info("payment not completed yet")
		return ConfirmResult{Completed: false, Message: MsgPaymentNotCompleted, Status: ticket.Status}, nil
	}

	res, err := s.transition(ctx, SourceConfirm, ticket, payment, model.TicketPaid, st.PaymentIntent)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return ConfirmResult{}, fmt.Errorf("%w: ticket not found", ErrNotFound)
		}
		return ConfirmResult{}, err
	}
	if res.Status == model.TicketCancelled {
		return ConfirmResult{Completed: false, Message: "Ticket was cancelled", Status: res.Status}, nil
	}
	return ConfirmResult{Completed: true, Status: res.Status}, nil
}

// HandleGatewayEvent authenticates a raw webhook delivery and applies it.
// The signature is checked before anything in the payload is read.
// Deliveries that are malformed, reference no ticket or an unknown one are
// acknowledged without error so the gateway stops retrying; storage
// failures are returned so it retries.
func (s *ReconciliationService) HandleGatewayEvent(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	ev, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			metrics.WebhookEvent("unknown", "rejected")
			return WebhookResult{}, fmt.Errorf("%w: %v", ErrSignature, err)
		}
		// Signed but undecodable: acknowledge so the gateway stops redelivering.
		s.log.WithError(err).WithField("source", SourceWebhook).Error("dropping malformed webhook event")
		metrics.WebhookEvent("unknown", "malformed")
		return WebhookResult{Outcome: OutcomeIgnored}, nil
	}

	out := WebhookResult{EventType: ev.Type, TicketID: ev.TicketID, Outcome: OutcomeIgnored}
	l := s.log.WithFields(logrus.Fields{"event_type": ev.Type, "event_id": ev.ID, "ticket_id": ev.TicketID, "source": SourceWebhook})

	var target model.TicketStatus
	switch ev.Type {
	case gateway.EventCheckoutCompleted:
		target = model.TicketPaid
	case gateway.EventCheckoutExpired:
		target = model.TicketCancelled
	default:
		l.Debug("ignoring webhook event type")
		metrics.WebhookEvent(ev.Type, out.Outcome)
		return out, nil
	}

	if ev.TicketID == "" {
		l.Warn("webhook event without ticketId metadata")
		metrics.WebhookEvent(ev.Type, out.Outcome)
		return out, nil
	}

	ref := ""
	if target == model.TicketPaid {
		ref = ev.PaymentIntent
	}
	res, err := s.transition(ctx, SourceWebhook, &model.Ticket{ID: ev.TicketID}, nil, target, ref)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			l.Warn("webhook references unknown ticket")
			metrics.WebhookEvent(ev.Type, out.Outcome)
			return out, nil
		}
		l.WithError(err).Error("webhook transition failed")
		metrics.WebhookEvent(ev.Type, "error")
		return WebhookResult{}, err
	}
	if res.Applied {
		out.Outcome = OutcomeApplied
	} else {
		out.Outcome = OutcomeNoop
	}
	metrics.WebhookEvent(ev.Type, out.Outcome)
	return out, nil
}

// transition runs the conditional write and, when this caller won, emits
// the notification. Notification failures are logged only.
func (s *ReconciliationService) transition(ctx context.Context, source string, ticket *model.Ticket, payment *model.Payment, to model.TicketStatus, ref string) (repository.TransitionResult, error) {
	l := s.log.WithFields(logrus.Fields{"ticket_id": ticket.ID, "source": source, "target": to})

	res, err := s.tickets.Transition(ctx, ticket.ID, to, ref)
	if err != nil {
		if !errors.Is(err, repository.ErrTicketNotFound) {
			metrics.Reconciliation(source, string(to), "error")
		}
		return res, err
	}
	if !res.Applied {
		l.WithField("current", res.Status).Info("ticket already terminal; nothing to do")
		metrics.Reconciliation(source, string(to), OutcomeNoop)
		return res, nil
	}
	l.Info("ticket transitioned")
	metrics.Reconciliation(source, string(to), OutcomeApplied)

	if ticket.EventID == "" || payment == nil {
		// Webhook path only knows the id; reload for the notification body.
		if t, p, err := s.tickets.GetWithPayment(ctx, ticket.ID); err == nil {
			ticket, payment = t, p
		}
	}
	msg := queue.TicketStatusChanged{
		TicketID:      ticket.ID,
		EventID:       ticket.EventID,
		UserID:        ticket.UserID,
		Quantity:      ticket.Quantity,
		Status:        string(to),
		PaymentStatus: string(model.PaymentStatusFor(to)),
		GatewayRef:    ref,
		Source:        source,
		OccurredAt:    s.now().UTC().Format(time.RFC3339),
	}
	if payment != nil {
		msg.AmountCents = gateway.MinorUnits(payment.Amount)
	}
	if err := s.notifier.PublishTicketStatus(ctx, msg); err != nil {
		l.WithError(err).Warn("publishing ticket notification failed")
	}
	return res, nil
}
