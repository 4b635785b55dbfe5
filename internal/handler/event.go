package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meethub/internal/model"
	"github.com/iliyamo/meethub/internal/repository"
)

// EventStore is the event persistence behind the event endpoints.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, f repository.EventFilter) ([]*model.Event, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Event, error)
	Update(ctx context.Context, e *model.Event, ownerID uint64) error
	Delete(ctx context.Context, id string, ownerID uint64) error
}

// EventHandler serves public browsing and owner CRUD for events. OnChange,
// when set, runs after every successful write (the router uses it to purge
// the browse cache).
type EventHandler struct {
	Events   EventStore
	Log      *logrus.Logger
	OnChange func(ctx context.Context)
}

func NewEventHandler(events EventStore, log *logrus.Logger, onChange func(ctx context.Context)) *EventHandler {
	if events == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Log: log, OnChange: onChange}
}

type eventReq struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Date        time.Time        `json:"date"`
	Address     string           `json:"address"`
	Banner      string           `json:"banner"`
	Category    string           `json:"category"`
	HasTickets  bool             `json:"has_tickets"`
	Price       *decimal.Decimal `json:"price"`
}

// toEvent validates the request and returns the event it describes.
func (r eventReq) toEvent() (*model.Event, string) {
	e := &model.Event{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		Date:        r.Date,
		Address:     strings.TrimSpace(r.Address),
		Banner:      strings.TrimSpace(r.Banner),
		Category:    model.Category(strings.ToUpper(strings.TrimSpace(r.Category))),
		HasTickets:  r.HasTickets,
	}
	if e.Category == "" {
		e.Category = model.CategoryOther
	}
	if r.Price != nil {
		e.Price = decimal.NewNullDecimal(r.Price.Round(2))
	}
	switch {
	case e.Title == "":
		return nil, "title is required"
	case e.Date.IsZero():
		return nil, "date is required"
	case !e.Category.Valid():
		return nil, "unknown category"
	case e.Price.Valid && e.Price.Decimal.IsNegative():
		return nil, "price must not be negative"
	case e.HasTickets && !e.Sellable():
		return nil, "events with tickets need a positive price"
	}
	return e, ""
}

func (h *EventHandler) changed(ctx context.Context) {
	if h.OnChange != nil {
		h.OnChange(ctx)
	}
}

// List handles GET /v1/events?category=&q=&limit=&offset=.
func (h *EventHandler) List(c echo.Context) error {
	f := repository.EventFilter{
		Category: model.Category(strings.ToUpper(strings.TrimSpace(c.QueryParam("category")))),
		Query:    c.QueryParam("q"),
	}
	if f.Category != "" && !f.Category.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
	}
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, err := h.Events.List(ctx, f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	e, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Mine handles GET /v1/me/events.
func (h *EventHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, err := h.Events.ListByOwner(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Create handles POST /v1/events.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	e, msg := req.toEvent()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	e.OwnerID = uid

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Events.Create(ctx, e); err != nil {
		return respondError(c, h.Log, err)
	}
	h.changed(ctx)
	h.Log.WithFields(logrus.Fields{"event_id": e.ID, "user_id": uid}).Info("event created")
	return c.JSON(http.StatusCreated, e)
}

// Update handles PUT /v1/events/:id. Only the owner may edit; existing
// tickets keep the amount they were created with.
func (h *EventHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	e, msg := req.toEvent()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	e.ID = c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Events.Update(ctx, e, uid); err != nil {
		return respondError(c, h.Log, err)
	}
	h.changed(ctx)
	return c.JSON(http.StatusOK, e)
}

// Delete handles DELETE /v1/events/:id.
func (h *EventHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Events.Delete(ctx, c.Param("id"), uid); err != nil {
		return respondError(c, h.Log, err)
	}
	h.changed(ctx)
	return c.NoContent(http.StatusNoContent)
}
