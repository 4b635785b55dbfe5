package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Stripe implements the checkout gateway on top of stripe-go.
type Stripe struct {
	sessions      *session.Client
	webhookSecret string
	log           *logrus.Logger
}

// NewStripe builds a gateway for the given API key and webhook signing
// secret using the default API backend.
func NewStripe(apiKey, webhookSecret string, log *logrus.Logger) *Stripe {
	return NewStripeWithBackend(stripe.GetBackend(stripe.APIBackend), apiKey, webhookSecret, log)
}

// NewStripeWithBackend is NewStripe with an explicit backend, used to point
// the client at a test server.
func NewStripeWithBackend(b stripe.Backend, apiKey, webhookSecret string, log *logrus.Logger) *Stripe {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Stripe{
		sessions:      &session.Client{B: b, Key: apiKey},
		webhookSecret: webhookSecret,
		log:           log,
	}
}

// CreateSession creates a payment-mode hosted checkout session.
func (s *Stripe) CreateSession(ctx context.Context, req CheckoutRequest) (Session, error) {
	params := sessionParams(req)
	params.Context = ctx
	cs, err := s.sessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	s.log.WithFields(logrus.Fields{"session_id": cs.ID, "ticket_id": req.Metadata["ticketId"]}).Debug("checkout session created")
	return Session{ID: cs.ID, URL: cs.URL}, nil
}

// GetSession retrieves a session by id.
func (s *Stripe) GetSession(ctx context.Context, id string) (SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := s.sessions.Get(id, params)
	if err != nil {
		return SessionStatus{}, fmt.Errorf("retrieve checkout session %s: %w", id, err)
	}
	return statusOf(cs), nil
}

// ParseEvent verifies the Stripe-Signature header against the raw payload
// and only then decodes the body. Checkout session events carry the
// session fields; other types only carry ID and Type.
func (s *Stripe) ParseEvent(payload []byte, signature string) (Event, error) {
	if signature == "" {
		return Event{}, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if signatureFailure(err) {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != EventCheckoutCompleted && out.Type != EventCheckoutExpired {
		return out, nil
	}
	if ev.Data == nil {
		return out, nil
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return Event{}, fmt.Errorf("%w: decode checkout session: %v", ErrMalformedEvent, err)
	}
	st := statusOf(&cs)
	out.SessionID = st.ID
	out.PaymentIntent = st.PaymentIntent
	out.TicketID = cs.Metadata["ticketId"]
	return out, nil
}

// signatureFailure reports whether stripe-go rejected the delivery before
// looking at the body. Any other error means the signed body did not parse.
func signatureFailure(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func sessionParams(req CheckoutRequest) *stripe.CheckoutSessionParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String(req.ProductName),
		Description: stripe.String(req.Description),
	}
	if len(req.Images) > 0 {
		product.Images = stripe.StringSlice(req.Images)
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(req.UnitAmount),
			},
			Quantity: stripe.Int64(req.Quantity),
		}},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func statusOf(cs *stripe.CheckoutSession) SessionStatus {
	st := SessionStatus{
		ID:            cs.ID,
		PaymentStatus: string(cs.PaymentStatus),
		Paid:          cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if cs.PaymentIntent != nil {
		st.PaymentIntent = cs.PaymentIntent.ID
	}
	return st
}
