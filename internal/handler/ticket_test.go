package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meethub/internal/model"
	"github.com/iliyamo/meethub/internal/repository"
	"github.com/iliyamo/meethub/internal/service"
)

type fakeCheckout struct {
	gotID  service.Identity
	gotEv  string
	gotQty int
	calls  int
	err    error
}

func (f *fakeCheckout) InitiateCheckout(_ context.Context, id service.Identity, eventID string, qty int) (service.CheckoutResult, error) {
	f.calls++
	f.gotID, f.gotEv, f.gotQty = id, eventID, qty
	if f.err != nil {
		return service.CheckoutResult{}, f.err
	}
	return service.CheckoutResult{
		TicketID:    "t1",
		SessionID:   "cs_1",
		RedirectURL: "https://checkout.test/cs_1",
		Amount:      decimal.RequireFromString("50.00"),
	}, nil
}

type fakeConfirm struct {
	res   service.ConfirmResult
	err   error
	calls int
}

func (f *fakeConfirm) ConfirmPayment(context.Context, string, string) (service.ConfirmResult, error) {
	f.calls++
	return f.res, f.err
}

// fakeTicketReader serves ticket t1 owned by user 7.
type fakeTicketReader struct{ status model.TicketStatus }

func (f *fakeTicketReader) GetDetailForUser(_ context.Context, id string, uid uint64) (*model.TicketDetail, error) {
	if id != "t1" || uid != 7 {
		return nil, repository.ErrTicketNotFound
	}
	return &model.TicketDetail{
		Ticket: model.Ticket{ID: "t1", EventID: "e1", UserID: 7, Quantity: 2, Status: f.status},
		Event:  model.Event{ID: "e1", Title: "Go Meetup"},
	}, nil
}

func (f *fakeTicketReader) ListDetailByUser(ctx context.Context, uid uint64) ([]*model.TicketDetail, error) {
	d, err := f.GetDetailForUser(ctx, "t1", uid)
	if err != nil {
		return []*model.TicketDetail{}, nil
	}
	return []*model.TicketDetail{d}, nil
}

func newTicketHandler() (*TicketHandler, *fakeCheckout, *fakeConfirm, *fakeTicketReader) {
	co, cf, rd := &fakeCheckout{}, &fakeConfirm{}, &fakeTicketReader{status: model.TicketPending}
	return NewTicketHandler(co, cf, rd, quietLogger()), co, cf, rd
}

func TestCheckout_OK(t *testing.T) {
	h, co, _, _ := newTicketHandler()
	c, rec := newCtx(http.MethodPost, "/v1/tickets/checkout", `{"eventId":"e1","quantity":2}`, 7)

	require.NoError(t, h.Checkout(c))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "https://checkout.test/cs_1", out["sessionUrl"])
	assert.Equal(t, "t1", out["ticketId"])

	assert.Equal(t, service.Identity{UserID: 7, Email: "alice@example.com"}, co.gotID)
	assert.Equal(t, "e1", co.gotEv)
	assert.Equal(t, 2, co.gotQty)
}

func TestCheckout_BadQuantity(t *testing.T) {
	for _, body := range []string{
		`{"eventId":"e1","quantity":1.5}`,
		`{"eventId":"e1","quantity":0}`,
		`{"eventId":"e1","quantity":11}`,
		`{"eventId":"e1"}`,
	} {
		h, co, _, _ := newTicketHandler()
		c, rec := newCtx(http.MethodPost, "/v1/tickets/checkout", body, 7)
		require.NoError(t, h.Checkout(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Zero(t, co.calls, body)
	}
}

func TestCheckout_ServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: event not found", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: this event does not offer tickets", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: log in", service.ErrAuthentication), http.StatusUnauthorized},
		{errors.New("gateway down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h, co, _, _ := newTicketHandler()
		co.err = tc.err
		c, rec := newCtx(http.MethodPost, "/v1/tickets/checkout", `{"eventId":"e1","quantity":1}`, 7)
		require.NoError(t, h.Checkout(c))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestRequireReturnParams(t *testing.T) {
	h, _, _, _ := newTicketHandler()
	next := func(c echo.Context) error { return c.NoContent(http.StatusTeapot) }

	for _, target := range []string{"/tickets/success", "/tickets/success?ticket_id=t1", "/tickets/success?session_id=cs_1"} {
		c, rec := newCtx(http.MethodGet, target, "", 0)
		require.NoError(t, h.RequireReturnParams(next)(c))
		assert.Equal(t, http.StatusFound, rec.Code, target)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	}

	c, rec := newCtx(http.MethodGet, "/tickets/success?ticket_id=t1&session_id=cs_1", "", 0)
	require.NoError(t, h.RequireReturnParams(next)(c))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestSuccess(t *testing.T) {
	const target = "/tickets/success?ticket_id=t1&session_id=cs_1"

	t.Run("completed", func(t *testing.T) {
		h, _, cf, rd := newTicketHandler()
		cf.res = service.ConfirmResult{Completed: true, Status: model.TicketPaid}
		rd.status = model.TicketPaid
		c, rec := newCtx(http.MethodGet, target, "", 7)
		require.NoError(t, h.Success(c))
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode(t, rec)
		assert.Equal(t, true, out["completed"])
		assert.Equal(t, "PAID", out["ticket"].(map[string]any)["status"])
	})

	t.Run("not completed yet", func(t *testing.T) {
		h, _, cf, _ := newTicketHandler()
		cf.res = service.ConfirmResult{Completed: false, Message: service.MsgPaymentNotCompleted}
		c, rec := newCtx(http.MethodGet, target, "", 7)
		require.NoError(t, h.Success(c))
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode(t, rec)
		assert.Equal(t, false, out["completed"])
		assert.Equal(t, service.MsgPaymentNotCompleted, out["message"])
	})

	t.Run("mismatch is generic", func(t *testing.T) {
		h, _, cf, _ := newTicketHandler()
		cf.err = fmt.Errorf("%w: payment information mismatch", service.ErrPaymentMismatch)
		c, rec := newCtx(http.MethodGet, target, "", 7)
		require.NoError(t, h.Success(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		out := decode(t, rec)
		assert.Equal(t, MsgVerificationFailed, out["error"])
		assert.NotContains(t, out, "ticket")
	})

	t.Run("someone else's ticket", func(t *testing.T) {
		h, _, cf, _ := newTicketHandler()
		c, rec := newCtx(http.MethodGet, target, "", 8)
		require.NoError(t, h.Success(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, MsgVerificationFailed, decode(t, rec)["error"])
		assert.Zero(t, cf.calls, "confirmation never runs for a foreign ticket")
	})
}

func TestGetTicket(t *testing.T) {
	h, _, _, _ := newTicketHandler()

	c, rec := newCtx(http.MethodGet, "/v1/tickets/t1", "", 7)
	require.NoError(t, h.Get(withParam(c, "id", "t1")))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newCtx(http.MethodGet, "/v1/tickets/t1", "", 8)
	require.NoError(t, h.Get(withParam(c, "id", "t1")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTickets(t *testing.T) {
	h, _, _, _ := newTicketHandler()
	c, rec := newCtx(http.MethodGet, "/v1/tickets", "", 7)
	require.NoError(t, h.List(c))
	assert.Len(t, decode(t, rec)["items"], 1)
}

type fakeSweeper struct {
	n   int64
	err error
}

func (f fakeSweeper) SweepAbandonedTickets(context.Context) (int64, error) { return f.n, f.err }

func TestCleanupTickets(t *testing.T) {
	h := NewCleanupHandler(fakeSweeper{n: 3}, quietLogger())
	c, rec := newCtx(http.MethodPost, "/api/cleanup/tickets", "", 7)
	require.NoError(t, h.Tickets(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["deletedCount"])

	c, rec = newCtx(http.MethodPost, "/api/cleanup/tickets", "", 0)
	require.NoError(t, h.Tickets(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h = NewCleanupHandler(fakeSweeper{err: errors.New("db down")}, quietLogger())
	c, rec = newCtx(http.MethodPost, "/api/cleanup/tickets", "", 7)
	require.NoError(t, h.Tickets(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
