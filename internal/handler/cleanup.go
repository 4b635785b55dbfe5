package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// AbandonedSweeper deletes stale pending tickets.
type AbandonedSweeper interface {
	SweepAbandonedTickets(ctx context.Context) (int64, error)
}

// CleanupHandler exposes the sweeper over HTTP for external schedulers.
type CleanupHandler struct {
	Sweeper AbandonedSweeper
	Log     *logrus.Logger
}

func NewCleanupHandler(s AbandonedSweeper, log *logrus.Logger) *CleanupHandler {
	return &CleanupHandler{Sweeper: s, Log: log}
}

// Tickets handles POST /api/cleanup/tickets.
func (h *CleanupHandler) Tickets(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()
	n, err := h.Sweeper.SweepAbandonedTickets(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deletedCount": n})
}
