package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meethub/internal/model"
)

// MarkStore keeps per-user marks on events (favorites or bookmarks).
type MarkStore interface {
	Add(ctx context.Context, userID uint64, eventID string) (bool, error)
	Remove(ctx context.Context, userID uint64, eventID string) error
	Exists(ctx context.Context, userID uint64, eventID string) (bool, error)
	ListEvents(ctx context.Context, userID uint64) ([]*model.Event, error)
}

// EventGetter loads a single event.
type EventGetter interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// MarkHandler serves one kind of mark. Favorites and bookmarks are two
// instances over different stores.
type MarkHandler struct {
	Kind   string // "favorite" or "bookmark", used as the response key
	Events EventGetter
	Marks  MarkStore
	Log    *logrus.Logger
}

func NewMarkHandler(kind string, events EventGetter, marks MarkStore, log *logrus.Logger) *MarkHandler {
	return &MarkHandler{Kind: kind, Events: events, Marks: marks, Log: log}
}

// Add handles POST /v1/events/:id/{favorite,bookmark}. Marking twice is
// not an error.
func (h *MarkHandler) Add(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	eventID := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// INSERT IGNORE swallows FK failures, so check the event first.
	if _, err := h.Events.GetByID(ctx, eventID); err != nil {
		return respondError(c, h.Log, err)
	}
	added, err := h.Marks.Add(ctx, uid, eventID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{"event_id": eventID, h.Kind: true})
}

// Remove handles DELETE /v1/events/:id/{favorite,bookmark}.
func (h *MarkHandler) Remove(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Marks.Remove(ctx, uid, c.Param("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Status handles GET /v1/events/:id/{favorite,bookmark}.
func (h *MarkHandler) Status(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	ok, err := h.Marks.Exists(ctx, uid, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": c.Param("id"), h.Kind: ok})
}

// List handles GET /v1/me/{favorites,bookmarks}.
func (h *MarkHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, err := h.Marks.ListEvents(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
