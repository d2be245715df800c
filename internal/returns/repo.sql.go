package returns

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora-erp/rentora-erp/internal/delivery"
	"github.com/rentora-erp/rentora-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Apply books a return against an item and records the event. The
// guarded UPDATE rejects quantities beyond what is still outstanding,
// and the parent note flips to RETURNED once nothing remains on site.
func (r *Repository) Apply(ctx context.Context, principalID int64, event Event) (Event, error) {
	err := db.WithPrincipalTx(ctx, r.pool, principalID, func(tx pgx.Tx) error {
		var noteID int64
		err := tx.QueryRow(ctx, `UPDATE delivery_note_items
SET qty_returned = qty_returned + $2, updated_at = NOW()
WHERE id = $1 AND qty_returned + $2 <= qty_delivered
RETURNING delivery_note_id`, event.DeliveryNoteItemID, event.Qty).Scan(&noteID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.classifyFailure(ctx, tx, event.DeliveryNoteItemID)
			}
			return err
		}

		err = tx.QueryRow(ctx, `INSERT INTO return_events (delivery_note_item_id, qty, condition, note, processed_by, processed_at)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, $6) RETURNING id`,
			event.DeliveryNoteItemID, event.Qty, event.Condition, event.Note, event.ProcessedBy, event.ProcessedAt).Scan(&event.ID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE delivery_notes SET status = $2, updated_at = NOW()
WHERE id = $1 AND NOT EXISTS (
  SELECT 1 FROM delivery_note_items WHERE delivery_note_id = $1 AND qty_returned < qty_delivered
)`, noteID, string(delivery.StatusReturned))
		return err
	})
	if err != nil {
		return Event{}, err
	}
	return event, nil
}

// classifyFailure distinguishes a missing item from an excess return.
func (r *Repository) classifyFailure(ctx context.Context, tx pgx.Tx, itemID int64) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM delivery_note_items WHERE id = $1)`, itemID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrExcessQty
}

// ListByItem returns the return history for one item, newest first.
func (r *Repository) ListByItem(ctx context.Context, principalID, itemID int64) ([]Event, error) {
	var events []Event
	err := db.WithPrincipal(ctx, r.pool, principalID, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `SELECT id, delivery_note_item_id, qty, COALESCE(condition,''), COALESCE(note,''), processed_by, processed_at
FROM return_events WHERE delivery_note_item_id = $1 ORDER BY processed_at DESC, id DESC`, itemID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var ev Event
			if err := rows.Scan(&ev.ID, &ev.DeliveryNoteItemID, &ev.Qty, &ev.Condition, &ev.Note, &ev.ProcessedBy, &ev.ProcessedAt); err != nil {
				return err
			}
			events = append(events, ev)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
