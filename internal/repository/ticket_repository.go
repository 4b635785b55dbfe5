package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/meethub/internal/model"
)

// ErrTicketNotFound is returned when a ticket cannot be found in the DB.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketRepo stores tickets and their payments. It is the only writer of
// ticket status, and every status write goes through Transition.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// TransitionResult reports the outcome of a conditional status write.
// Applied is true only for the caller whose update moved the ticket out of
// PENDING; Status is the ticket's status after the call either way.
type TransitionResult struct {
	Applied bool
	Status  model.TicketStatus
}

// CreatePending inserts a PENDING ticket and its PENDING payment in one
// transaction. IDs are generated when empty and statuses are forced to
// PENDING. The payment's checkout id starts empty.
func (r *TicketRepo) CreatePending(ctx context.Context, t *model.Ticket, p *model.Payment) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	t.Status = model.TicketPending
	p.TicketID = t.ID
	p.UserID = t.UserID
	p.Status = model.PaymentPending

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

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (id, event_id, user_id, quantity, status) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.EventID, t.UserID, t.Quantity, t.Status); err != nil {
		if isMySQLError(err, mysqlNoReferenced) {
			return ErrEventNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payments (id, ticket_id, user_id, amount, stripe_checkout_id, status) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.TicketID, p.UserID, p.Amount.StringFixed(2), p.CheckoutID, p.Status); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetCheckoutID records the gateway session id on a ticket's payment.
func (r *TicketRepo) SetCheckoutID(ctx context.Context, ticketID, checkoutID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET stripe_checkout_id = ? WHERE ticket_id = ?`, checkoutID, ticketID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// GetWithPayment loads a ticket and its payment. The payment is nil when no
// row exists for the ticket.
func (r *TicketRepo) GetWithPayment(ctx context.Context, ticketID string) (*model.Ticket, *model.Payment, error) {
	const q = `SELECT t.id, t.event_id, t.user_id, t.quantity, t.status, t.created_at, t.updated_at,
	                  ` + paymentJoinColumns + `
	           FROM tickets t
	           LEFT JOIN payments p ON p.ticket_id = t.id
	           WHERE t.id = ?`
	var t model.Ticket
	var pr paymentRow
	err := r.db.QueryRowContext(ctx, q, ticketID).Scan(
		&t.ID, &t.EventID, &t.UserID, &t.Quantity, &t.Status, &t.CreatedAt, &t.UpdatedAt,
		&pr.id, &pr.ticketID, &pr.userID, &pr.amount, &pr.checkoutID, &pr.gatewayRef, &pr.status, &pr.createdAt, &pr.updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrTicketNotFound
		}
		return nil, nil, err
	}
	return &t, pr.payment(), nil
}

// GetDetailForUser returns one ticket with its event and payment, restricted
// to the owning user. A ticket owned by someone else is reported as not found.
func (r *TicketRepo) GetDetailForUser(ctx context.Context, ticketID string, userID uint64) (*model.TicketDetail, error) {
	rows, err := r.db.QueryContext(ctx, detailQuery+` WHERE t.id = ? AND t.user_id = ?`, ticketID, userID)
	if err != nil {
		return nil, err
	}
	out, err := scanDetails(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrTicketNotFound
	}
	return out[0], nil
}

// ListDetailByUser returns a user's tickets, newest first, each with its
// event and payment.
func (r *TicketRepo) ListDetailByUser(ctx context.Context, userID uint64) ([]*model.TicketDetail, error) {
	rows, err := r.db.QueryContext(ctx, detailQuery+` WHERE t.user_id = ? ORDER BY t.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return scanDetails(rows)
}

// Transition moves a PENDING ticket to a terminal status and its payment to
// the matching payment status in one transaction. The ticket update is
// conditional on status = 'PENDING': a caller that loses the race (or
// arrives after a terminal write) changes nothing and gets Applied=false
// with the current status. gatewayRef, when non-empty, is stored as the
// payment's gateway transaction id. ErrTicketNotFound is returned for an
// unknown ticket.
func (r *TicketRepo) Transition(ctx context.Context, ticketID string, to model.TicketStatus, gatewayRef string) (TransitionResult, error) {
	if !to.Terminal() {
		return TransitionResult{}, errors.New("transition target must be terminal")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return TransitionResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE tickets SET status = ?, updated_at = CURRENT_TIMESTAMP(3) WHERE id = ? AND status = 'PENDING'`,
		to, ticketID)
	if err != nil {
		return TransitionResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return TransitionResult{}, err
	}
	if n == 0 {
		var current model.TicketStatus
		if err := tx.QueryRowContext(ctx, `SELECT status FROM tickets WHERE id = ?`, ticketID).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return TransitionResult{}, ErrTicketNotFound
			}
			return TransitionResult{}, err
		}
		return TransitionResult{Applied: false, Status: current}, nil
	}

	ref := sql.NullString{String: gatewayRef, Valid: gatewayRef != ""}
	if _, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, stripe_payment_id = COALESCE(?, stripe_payment_id), updated_at = CURRENT_TIMESTAMP(3)
		 WHERE ticket_id = ?`,
		model.PaymentStatusFor(to), ref, ticketID); err != nil {
		return TransitionResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return TransitionResult{}, err
	}
	committed = true
	return TransitionResult{Applied: true, Status: to}, nil
}

// DeleteAbandoned removes tickets still PENDING that were created before
// cutoff and returns how many were deleted. Payments follow through the
// ON DELETE CASCADE foreign key. A ticket that reached a terminal status is
// never matched.
func (r *TicketRepo) DeleteAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tickets WHERE status = 'PENDING' AND created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const paymentJoinColumns = `p.id, p.ticket_id, p.user_id, p.amount, p.stripe_checkout_id, p.stripe_payment_id, p.status, p.created_at, p.updated_at`

const detailQuery = `SELECT t.id, t.event_id, t.user_id, t.quantity, t.status, t.created_at, t.updated_at,
                            e.id, e.user_id, e.title, e.description, e.date, e.address, e.banner, e.category, e.has_tickets, e.price, e.created_at, e.updated_at,
                            ` + paymentJoinColumns + `
                     FROM tickets t
                     JOIN events e ON e.id = t.event_id
                     LEFT JOIN payments p ON p.ticket_id = t.id`

// paymentRow holds the nullable columns of a LEFT JOINed payment.
type paymentRow struct {
	id, ticketID, checkoutID, status sql.NullString
	gatewayRef                       sql.NullString
	userID                           sql.NullInt64
	amount                           decimal.NullDecimal
	createdAt, updatedAt             sql.NullTime
}

func (pr paymentRow) payment() *model.Payment {
	if !pr.id.Valid {
		return nil
	}
	p := &model.Payment{
		ID:         pr.id.String,
		TicketID:   pr.ticketID.String,
		UserID:     uint64(pr.userID.Int64),
		Amount:     pr.amount.Decimal,
		CheckoutID: pr.checkoutID.String,
		Status:     model.PaymentStatus(pr.status.String),
		CreatedAt:  pr.createdAt.Time,
		UpdatedAt:  pr.updatedAt.Time,
	}
	if pr.gatewayRef.Valid {
		ref := pr.gatewayRef.String
		p.GatewayRef = &ref
	}
	return p
}

func scanDetails(rows *sql.Rows) ([]*model.TicketDetail, error) {
	defer rows.Close()
	out := []*model.TicketDetail{}
	for rows.Next() {
		d := new(model.TicketDetail)
		var pr paymentRow
		e := &d.Event
		if err := rows.Scan(
			&d.ID, &d.EventID, &d.UserID, &d.Quantity, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.Date, &e.Address, &e.Banner, &e.Category, &e.HasTickets, &e.Price, &e.CreatedAt, &e.UpdatedAt,
			&pr.id, &pr.ticketID, &pr.userID, &pr.amount, &pr.checkoutID, &pr.gatewayRef, &pr.status, &pr.createdAt, &pr.updatedAt,
		); err != nil {
			return nil, err
		}
		d.Payment = pr.payment()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
