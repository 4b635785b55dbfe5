package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meethub/internal/gateway"
	"github.com/iliyamo/meethub/internal/metrics"
	"github.com/iliyamo/meethub/internal/model"
	"github.com/iliyamo/meethub/internal/repository"
)

// Quantity bounds for a single checkout.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Currency is the only supported checkout currency.
const Currency = "usd"

// Identity is the authenticated caller as issued by the identity provider.
type Identity struct {
	UserID uint64
	Email  string
}

// CheckoutResult is returned by InitiateCheckout.
type CheckoutResult struct {
	TicketID    string
	PaymentID   string
	SessionID   string
	RedirectURL string
	Amount      decimal.Decimal
}

// ReservationService turns a purchase request into a pending ticket plus a
// hosted checkout session.
type ReservationService struct {
	events  EventReader
	tickets TicketStore
	gateway CheckoutGateway
	appURL  string
	log     *logrus.Logger
}

func NewReservationService(events EventReader, tickets TicketStore, gw CheckoutGateway, appURL string, log *logrus.Logger) *ReservationService {
	if events == nil || tickets == nil || gw == nil {
		panic("nil dependency passed to NewReservationService")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReservationService{events: events, tickets: tickets, gateway: gw, appURL: strings.TrimRight(appURL, "/"), log: log}
}

// InitiateCheckout validates the request, creates a PENDING ticket and its
// PENDING payment (amount = price × quantity, fixed from here on), opens a
// gateway session and records the session id on the payment.
//
// It is not idempotent: every call creates new rows. A gateway failure
// leaves the rows PENDING for the sweeper.
func (s *ReservationService) InitiateCheckout(ctx context.Context, id Identity, eventID string, quantity int) (CheckoutResult, error) {
	res, err := s.initiate(ctx, id, eventID, quantity)
	switch {
	case err == nil:
		metrics.Checkout("ok")
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrAuthentication):
		metrics.Checkout("rejected")
	default:
		metrics.Checkout("error")
	}
	return res, err
}

func (s *ReservationService) initiate(ctx context.Context, id Identity, eventID string, quantity int) (CheckoutResult, error) {
	if id.UserID == 0 {
		return CheckoutResult{}, fmt.Errorf("%w: you must be logged in to purchase tickets", ErrAuthentication)
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return CheckoutResult{}, fmt.Errorf("%w: quantity must be between %d and %d", ErrValidation, MinQuantity, MaxQuantity)
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return CheckoutResult{}, fmt.Errorf("%w: event id is required", ErrValidation)
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return CheckoutResult{}, fmt.Errorf("%w: event not found", ErrNotFound)
		}
		return CheckoutResult{}, fmt.Errorf("load event: %w", err)
	}
	if !ev.HasTickets {
		return CheckoutResult{}, fmt.Errorf("%w: this event does not offer tickets", ErrValidation)
	}
	if !ev.Sellable() {
		return CheckoutResult{}, fmt.Errorf("%w: invalid ticket price", ErrValidation)
	}

	price := ev.Price.Decimal
	ticket := &model.Ticket{EventID: ev.ID, UserID: id.UserID, Quantity: quantity}
	payment := &model.Payment{Amount: price.Mul(decimal.NewFromInt(int64(quantity)))}
	if err := s.tickets.CreatePending(ctx, ticket, payment); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return CheckoutResult{}, fmt.Errorf("%w: event not found", ErrNotFound)
		}
		return CheckoutResult{}, fmt.Errorf("create pending ticket: %w", err)
	}

	l := s.log.WithFields(logrus.Fields{"ticket_id": ticket.ID, "event_id": ev.ID, "user_id": id.UserID})

	req := gateway.CheckoutRequest{
		CustomerEmail: id.Email,
		Currency:      Currency,
		ProductName:   ev.Title,
		Description:   "Ticket for " + ev.Title,
		UnitAmount:    gateway.MinorUnits(price),
		Quantity:      int64(quantity),
		SuccessURL:    s.appURL + "/tickets/success?ticket_id=" + url.QueryEscape(ticket.ID) + "&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.appURL + "/events/" + url.PathEscape(ev.ID),
		Metadata: map[string]string{
			"eventId":  ev.ID,
			"ticketId": ticket.ID,
			"userId":   strconv.FormatUint(id.UserID, 10),
		},
	}
	if ev.Banner != "" {
		req.Images = []string{ev.Banner}
	}

	sess, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		l.WithError(err).Error("checkout session creation failed; ticket left pending")
		return CheckoutResult{}, fmt.Errorf("create checkout session: %w", err)
	}
	if err := s.tickets.SetCheckoutID(ctx, ticket.ID, sess.ID); err != nil {
		l.WithError(err).Error("storing checkout session id failed")
		return CheckoutResult{}, fmt.Errorf("store checkout session: %w", err)
	}

	l.WithFields(logrus.Fields{"session_id": sess.ID, "amount": payment.Amount.StringFixed(2)}).Info("checkout initiated")
	return CheckoutResult{
		TicketID:    ticket.ID,
		PaymentID:   payment.ID,
		SessionID:   sess.ID,
		RedirectURL: sess.URL,
		Amount:      payment.Amount,
	}, nil
}
