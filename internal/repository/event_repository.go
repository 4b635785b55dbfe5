package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/meethub/internal/model"
)

// ErrEventNotFound is returned when an event cannot be found in the DB.
var ErrEventNotFound = errors.New("event not found")

// EventRepo encapsulates all database queries related to events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the provided DB handle.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// EventFilter narrows List results. Zero values mean "no filter"; Limit
// defaults to 50 and is capped at 100.
type EventFilter struct {
	Category model.Category
	Query    string
	Limit    int
	Offset   int
}

const eventColumns = `id, user_id, title, description, date, address, banner, category, has_tickets, price, created_at, updated_at`

func scanEvent(sc interface{ Scan(...any) error }, e *model.Event) error {
	return sc.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.Date, &e.Address,
		&e.Banner, &e.Category, &e.HasTickets, &e.Price, &e.CreatedAt, &e.UpdatedAt)
}

// Create inserts a new event. A UUID is generated when e.ID is empty, and
// timestamps are read back so the caller receives a fully populated record.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	const q = `INSERT INTO events (id, user_id, title, description, date, address, banner, category, has_tickets, price)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, e.ID, e.OwnerID, e.Title, e.Description, e.Date,
		e.Address, e.Banner, e.Category, e.HasTickets, e.Price); err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM events WHERE id = ?", e.ID).Scan(&e.CreatedAt, &e.UpdatedAt)
}

// GetByID fetches an event regardless of owner. It returns ErrEventNotFound
// if no row is found.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id), &e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns events ordered by their scheduled date.
func (r *EventRepo) List(ctx context.Context, f EventFilter) ([]*model.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	query := "SELECT " + eventColumns + " FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	query += " ORDER BY date ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.queryEvents(ctx, query, args...)
}

// ListByOwner returns the events created by ownerID, newest first.
func (r *EventRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Event, error) {
	return r.queryEvents(ctx,
		"SELECT "+eventColumns+" FROM events WHERE user_id = ? ORDER BY created_at DESC", ownerID)
}

func (r *EventRepo) queryEvents(ctx context.Context, query string, args ...any) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Event{}
	for rows.Next() {
		e := new(model.Event)
		if err := scanEvent(rows, e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites the editable fields of an event owned by ownerID.
// ErrEventNotFound is returned for a missing event and ErrForbidden when
// it belongs to someone else. Existing payments keep their amounts.
func (r *EventRepo) Update(ctx context.Context, e *model.Event, ownerID uint64) error {
	if err := r.checkOwner(ctx, r.db, e.ID, ownerID, false); err != nil {
		return err
	}
	const q = `UPDATE events
	           SET title = ?, description = ?, date = ?, address = ?, banner = ?,
	               category = ?, has_tickets = ?, price = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND user_id = ?`
	if _, err := r.db.ExecContext(ctx, q, e.Title, e.Description, e.Date, e.Address, e.Banner,
		e.Category, e.HasTickets, e.Price, e.ID, ownerID); err != nil {
		return err
	}
	updated, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = *updated
	return nil
}

// Delete removes an event owned by ownerID. Events that already have PAID
// tickets cannot be deleted (ErrConflict); pending and cancelled tickets,
// their payments and favorites go with the event through FK cascades.
//
// The event row is locked FOR UPDATE and its tickets FOR SHARE before the
// count, so a concurrent Transition either commits first and is counted or
// waits and then finds its ticket gone.
func (r *EventRepo) Delete(ctx context.Context, id string, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := r.checkOwner(ctx, tx, id, ownerID, true); err != nil {
		return err
	}
	var paid int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tickets WHERE event_id = ? AND status = 'PAID' FOR SHARE", id).Scan(&paid); err != nil {
		return err
	}
	if paid > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *EventRepo) checkOwner(ctx context.Context, q queryRower, id string, ownerID uint64, lock bool) error {
	query := "SELECT user_id FROM events WHERE id = ?"
	if lock {
		query += " FOR UPDATE"
	}
	var dbOwner uint64
	if err := q.QueryRowContext(ctx, query, id).Scan(&dbOwner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	if dbOwner != ownerID {
		return ErrForbidden
	}
	return nil
}
