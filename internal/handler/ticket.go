package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meethub/internal/model"
	"github.com/iliyamo/meethub/internal/repository"
	"github.com/iliyamo/meethub/internal/service"
)

// CheckoutStarter opens a gateway checkout for a new pending ticket.
type CheckoutStarter interface {
	InitiateCheckout(ctx context.Context, id service.Identity, eventID string, quantity int) (service.CheckoutResult, error)
}

// PaymentConfirmer reconciles a ticket on the gateway return URL.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, ticketID, sessionID string) (service.ConfirmResult, error)
}

// TicketReader lists a user's own tickets.
type TicketReader interface {
	GetDetailForUser(ctx context.Context, ticketID string, userID uint64) (*model.TicketDetail, error)
	ListDetailByUser(ctx context.Context, userID uint64) ([]*model.TicketDetail, error)
}

// TicketHandler serves checkout, the gateway return page and ticket reads.
type TicketHandler struct {
	Reservations CheckoutStarter
	Payments     PaymentConfirmer
	Tickets      TicketReader
	Log          *logrus.Logger
}

func NewTicketHandler(res CheckoutStarter, pay PaymentConfirmer, tickets TicketReader, log *logrus.Logger) *TicketHandler {
	if res == nil || pay == nil || tickets == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Reservations: res, Payments: pay, Tickets: tickets, Log: log}
}

type checkoutReq struct {
	EventID  string      `json:"eventId"`
	Quantity json.Number `json:"quantity"`
}

type checkoutResp struct {
	SessionURL string `json:"sessionUrl"`
	TicketID   string `json:"ticketId"`
}

// MsgVerificationFailed is the only detail a failed confirmation exposes.
const MsgVerificationFailed = "payment verification error"

// Checkout handles POST /v1/tickets/checkout.
func (h *TicketHandler) Checkout(c echo.Context) error {
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	qty, err := req.Quantity.Int64()
	if err != nil || qty < service.MinQuantity || qty > service.MaxQuantity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be an integer between 1 and 10"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.Reservations.InitiateCheckout(ctx, identity(c), req.EventID, int(qty))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, checkoutResp{SessionURL: res.RedirectURL, TicketID: res.TicketID})
}

type successResp struct {
	Completed bool                `json:"completed"`
	Message   string              `json:"message,omitempty"`
	Ticket    *model.TicketDetail `json:"ticket"`
}

// RequireReturnParams sends the browser home when the gateway return URL
// lacks ticket_id or session_id. It runs ahead of authentication.
func (h *TicketHandler) RequireReturnParams(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.QueryParam("ticket_id") == "" || c.QueryParam("session_id") == "" {
			return c.Redirect(http.StatusFound, "/")
		}
		return next(c)
	}
}

// Success handles GET /tickets/success, the gateway's return URL. Any
// failure, including a ticket that belongs to someone else, is reported
// with one generic message.
func (h *TicketHandler) Success(c echo.Context) error {
	ticketID, sessionID := c.QueryParam("ticket_id"), c.QueryParam("session_id")
	if ticketID == "" || sessionID == "" {
		return c.Redirect(http.StatusFound, "/")
	}
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	l := h.Log.WithFields(logrus.Fields{"ticket_id": ticketID, "user_id": uid})

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	if _, err := h.Tickets.GetDetailForUser(ctx, ticketID, uid); err != nil {
		l.WithError(err).Warn("confirmation for a ticket the user cannot see")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": MsgVerificationFailed})
	}
	res, err := h.Payments.ConfirmPayment(ctx, ticketID, sessionID)
	if err != nil {
		l.WithError(err).Warn("payment confirmation failed")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": MsgVerificationFailed})
	}
	detail, err := h.Tickets.GetDetailForUser(ctx, ticketID, uid)
	if err != nil {
		l.WithError(err).Error("reloading confirmed ticket failed")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": MsgVerificationFailed})
	}
	return c.JSON(http.StatusOK, successResp{Completed: res.Completed, Message: res.Message, Ticket: detail})
}

// List handles GET /v1/tickets.
func (h *TicketHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, err := h.Tickets.ListDetailByUser(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	d, err := h.Tickets.GetDetailForUser(ctx, c.Param("id"), uid)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}
