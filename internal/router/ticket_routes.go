package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meethub/internal/handler"
	"github.com/iliyamo/meethub/internal/middleware"
)

// RegisterTickets registers checkout, the gateway return URL, ticket reads,
// the gateway webhook and the cleanup trigger. limiter guards checkout;
// hookLimiter is the webhook's own bucket.
func RegisterTickets(e *echo.Echo, t *handler.TicketHandler, w *handler.WebhookHandler, cl *handler.CleanupHandler, jwtSecret string, limiter, hookLimiter echo.MiddlewareFunc) {
	jwt := middleware.JWTAuth(jwtSecret)

	g := e.Group("/v1/tickets", jwt)
	g.POST("/checkout", t.Checkout, limiter)
	g.GET("", t.List)
	g.GET("/:id", t.Get)

	// The gateway redirects the browser here, so the access cookie is accepted
	// alongside the bearer header.
	e.GET("/tickets/success", t.Success, t.RequireReturnParams, middleware.JWTAuthOrCookie(jwtSecret))

	// The webhook authenticates by signature, not by JWT.
	e.POST("/api/webhooks/stripe", w.Stripe, hookLimiter)
	e.POST("/api/cleanup/tickets", cl.Tickets, jwt)
}
