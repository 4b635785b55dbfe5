package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/meethub/internal/model"
)

// MarkRepo stores per-user event marks in a (user_id, event_id) keyed table.
// Favorites and bookmarks share the same shape and differ only by table.
type MarkRepo struct {
	db    *sql.DB
	table string
}

// NewFavoriteRepo returns a MarkRepo over the favorites table.
func NewFavoriteRepo(db *sql.DB) *MarkRepo { return &MarkRepo{db: db, table: "favorites"} }

// NewBookmarkRepo returns a MarkRepo over the bookmarks table.
func NewBookmarkRepo(db *sql.DB) *MarkRepo { return &MarkRepo{db: db, table: "bookmarks"} }

// Add marks the event for the user. It is idempotent: added is false when
// the mark already existed. ErrEventNotFound is returned for an unknown event.
func (r *MarkRepo) Add(ctx context.Context, userID uint64, eventID string) (added bool, err error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO "+r.table+" (user_id, event_id) VALUES (?, ?)", userID, eventID)
	if err != nil {
		if isMySQLError(err, mysqlNoReferenced) {
			return false, ErrEventNotFound
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remove deletes the mark. Removing a missing mark is not an error.
func (r *MarkRepo) Remove(ctx context.Context, userID uint64, eventID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM "+r.table+" WHERE user_id = ? AND event_id = ?", userID, eventID)
	return err
}

// Exists reports whether the user marked the event.
func (r *MarkRepo) Exists(ctx context.Context, userID uint64, eventID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM "+r.table+" WHERE user_id = ? AND event_id = ? LIMIT 1", userID, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// ListEvents returns the events the user marked, most recently marked first.
func (r *MarkRepo) ListEvents(ctx context.Context, userID uint64) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.user_id, e.title, e.description, e.date, e.address, e.banner, e.category, e.has_tickets, e.price, e.created_at, e.updated_at
		 FROM `+r.table+` m JOIN events e ON e.id = m.event_id
		 WHERE m.user_id = ? ORDER BY m.created_at DESC`, userID)
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
	return out, rows.Err()
}
