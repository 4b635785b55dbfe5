package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meethub/internal/gateway"
	"github.com/iliyamo/meethub/internal/model"
	"github.com/iliyamo/meethub/internal/queue"
	"github.com/iliyamo/meethub/internal/repository"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// memStore is an in-memory event and ticket store with the same
// conditional-write semantics as the SQL repository.
type memStore struct {
	mu       sync.Mutex
	now      func() time.Time
	events   map[string]*model.Event
	tickets  map[string]*model.Ticket
	payments map[string]*model.Payment // by ticket id
	writes   int                       // terminal status writes applied
	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		now:      time.Now,
		events:   map[string]*model.Event{},
		tickets:  map[string]*model.Ticket{},
		payments: map[string]*model.Payment{},
	}
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memStore) CreatePending(_ context.Context, t *model.Ticket, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[t.EventID]; !ok {
		return repository.ErrEventNotFound
	}
	t.ID = uuid.NewString()
	p.ID = uuid.NewString()
	t.Status = model.TicketPending
	t.CreatedAt = m.now()
	p.TicketID, p.UserID, p.Status = t.ID, t.UserID, model.PaymentPending
	tc, pc := *t, *p
	m.tickets[t.ID] = &tc
	m.payments[t.ID] = &pc
	return nil
}

func (m *memStore) SetCheckoutID(_ context.Context, ticketID, checkoutID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[ticketID]
	if !ok {
		return repository.ErrTicketNotFound
	}
	p.CheckoutID = checkoutID
	return nil
}

func (m *memStore) GetWithPayment(_ context.Context, ticketID string) (*model.Ticket, *model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok {
		return nil, nil, repository.ErrTicketNotFound
	}
	tc := *t
	var pc *model.Payment
	if p, ok := m.payments[ticketID]; ok {
		cp := *p
		pc = &cp
	}
	return &tc, pc, nil
}

func (m *memStore) Transition(_ context.Context, ticketID string, to model.TicketStatus, ref string) (repository.TransitionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return repository.TransitionResult{}, err
	}
	t, ok := m.tickets[ticketID]
	if !ok {
		return repository.TransitionResult{}, repository.ErrTicketNotFound
	}
	if t.Status != model.TicketPending {
		return repository.TransitionResult{Applied: false, Status: t.Status}, nil
	}
	t.Status = to
	if p, ok := m.payments[ticketID]; ok {
		p.Status = model.PaymentStatusFor(to)
		if ref != "" {
			r := ref
			p.GatewayRef = &r
		}
	}
	m.writes++
	return repository.TransitionResult{Applied: true, Status: to}, nil
}

func (m *memStore) DeleteAbandoned(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tickets {
		if t.Status == model.TicketPending && t.CreatedAt.Before(cutoff) {
			delete(m.tickets, id)
			delete(m.payments, id) // cascade
			n++
		}
	}
	return n, nil
}

func (m *memStore) ticket(id string) model.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tickets[id]
}

func (m *memStore) payment(ticketID string) model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.payments[ticketID]
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// fakeGateway records checkout requests and serves scripted sessions.
// Webhook payloads are JSON gateway.Event values; the signature "valid" is
// the only accepted one.
type fakeGateway struct {
	mu        sync.Mutex
	requests  []gateway.CheckoutRequest
	sessions  map[string]gateway.SessionStatus
	createErr error
	getCalls  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]gateway.SessionStatus{}}
}

func (g *fakeGateway) CreateSession(_ context.Context, req gateway.CheckoutRequest) (gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return gateway.Session{}, g.createErr
	}
	g.requests = append(g.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(g.requests))
	g.sessions[id] = gateway.SessionStatus{ID: id, PaymentStatus: "unpaid"}
	return gateway.Session{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (g *fakeGateway) GetSession(_ context.Context, id string) (gateway.SessionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	st, ok := g.sessions[id]
	if !ok {
		return gateway.SessionStatus{}, errors.New("no such session")
	}
	return st, nil
}

func (g *fakeGateway) ParseEvent(payload []byte, signature string) (gateway.Event, error) {
	if signature != "valid" {
		return gateway.Event{}, gateway.ErrInvalidSignature
	}
	var ev gateway.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return gateway.Event{}, fmt.Errorf("%w: %v", gateway.ErrMalformedEvent, err)
	}
	return ev, nil
}

func (g *fakeGateway) markPaid(sessionID, intent string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[sessionID] = gateway.SessionStatus{ID: sessionID, Paid: true, PaymentStatus: "paid", PaymentIntent: intent}
}

func (g *fakeGateway) lastRequest() gateway.CheckoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []queue.TicketStatusChanged
	err  error
}

func (n *fakeNotifier) PublishTicketStatus(_ context.Context, ev queue.TicketStatusChanged) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, ev)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func webhookPayload(eventType, ticketID, intent string) []byte {
	b, _ := json.Marshal(gateway.Event{ID: "evt_" + ticketID, Type: eventType, TicketID: ticketID, PaymentIntent: intent})
	return b
}
