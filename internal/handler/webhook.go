package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meethub/internal/service"
)

// SignatureHeader carries the gateway's webhook signature.
const SignatureHeader = "Stripe-Signature"

// maxWebhookBody bounds how much of a delivery is read.
const maxWebhookBody = 64 << 10

// GatewayEventHandler applies a signed gateway delivery.
type GatewayEventHandler interface {
	HandleGatewayEvent(ctx context.Context, payload []byte, signature string) (service.WebhookResult, error)
}

// WebhookHandler receives gateway webhooks. The body is passed through
// untouched because the signature covers the exact bytes.
type WebhookHandler struct {
	Events GatewayEventHandler
	Log    *logrus.Logger
}

func NewWebhookHandler(events GatewayEventHandler, log *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{Events: events, Log: log}
}

// Stripe handles POST /api/webhooks/stripe.
func (h *WebhookHandler) Stripe(c echo.Context) error {
	sig := c.Request().Header.Get(SignatureHeader)
	if sig == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing signature"})
	}
	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Events.HandleGatewayEvent(ctx, payload, sig)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.Log.WithFields(logrus.Fields{
		"event_type": res.EventType,
		"ticket_id":  res.TicketID,
		"outcome":    res.Outcome,
	}).Debug("webhook handled")
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
