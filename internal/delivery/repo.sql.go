package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

const noteColumns = `id, number, purchase_order_id, status, delivered_at, COALESCE(received_by,''), COALESCE(note,''), created_by, created_at, updated_at`

const itemColumns = `id, delivery_note_id, po_item_id, equipment_name, qty_delivered, qty_returned, COALESCE(condition,''), created_at, updated_at`

func scanNote(row pgx.Row) (DeliveryNote, error) {
	var dn DeliveryNote
	err := row.Scan(&dn.ID, &dn.Number, &dn.PurchaseOrderID, &dn.Status, &dn.DeliveredAt, &dn.ReceivedBy, &dn.Note, &dn.CreatedBy, &dn.CreatedAt, &dn.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeliveryNote{}, ErrNotFound
		}
		return DeliveryNote{}, err
	}
	return dn, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.DeliveryNoteID, &item.POItemID, &item.EquipmentName, &item.QtyDelivered, &item.QtyReturned, &item.Condition, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// Create inserts a delivery note and its items in one transaction.
func (r *Repository) Create(ctx context.Context, principalID int64, dn DeliveryNote, items []Item) (int64, error) {
	var id int64
	err := db.WithPrincipalTx(ctx, r.pool, principalID, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO delivery_notes (number, purchase_order_id, status, delivered_at, received_by, note, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, NOW(), NOW()) RETURNING id`,
			dn.Number, dn.PurchaseOrderID, string(dn.Status), dn.DeliveredAt, dn.ReceivedBy, dn.Note, dn.CreatedBy).Scan(&id)
		if err != nil {
			return err
		}
		for _, item := range items {
			if _, err := tx.Exec(ctx, `INSERT INTO delivery_note_items (delivery_note_id, po_item_id, equipment_name, qty_delivered, qty_returned, condition, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, NULLIF($5,''), NOW(), NOW())`,
				id, item.POItemID, item.EquipmentName, item.QtyDelivered, item.Condition); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns a delivery note and its items. Reads run principal-bound
// so the row-security select policies apply.
func (r *Repository) Get(ctx context.Context, principalID, id int64) (DeliveryNote, []Item, error) {
	var dn DeliveryNote
	var items []Item
	err := db.WithPrincipal(ctx, r.pool, principalID, func(conn *pgxpool.Conn) error {
		var err error
		dn, err = scanNote(conn.QueryRow(ctx, `SELECT `+noteColumns+` FROM delivery_notes WHERE id=$1`, id))
		if err != nil {
			return err
		}
		rows, err := conn.Query(ctx, `SELECT `+itemColumns+` FROM delivery_note_items WHERE delivery_note_id=$1 ORDER BY id`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			item, err := scanItem(rows)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return DeliveryNote{}, nil, err
	}
	return dn, items, nil
}

// GetItem returns a single delivery note item.
func (r *Repository) GetItem(ctx context.Context, principalID, itemID int64) (Item, error) {
	var item Item
	err := db.WithPrincipal(ctx, r.pool, principalID, func(conn *pgxpool.Conn) error {
		var err error
		item, err = scanItem(conn.QueryRow(ctx, `SELECT `+itemColumns+` FROM delivery_note_items WHERE id=$1`, itemID))
		return err
	})
	return item, err
}

// ListByOrder returns the delivery notes under a purchase order.
func (r *Repository) ListByOrder(ctx context.Context, principalID, orderID int64) ([]DeliveryNote, error) {
	var notes []DeliveryNote
	err := db.WithPrincipal(ctx, r.pool, principalID, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+noteColumns+` FROM delivery_notes WHERE purchase_order_id=$1 ORDER BY id`, orderID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			dn, err := scanNote(rows)
			if err != nil {
				return err
			}
			notes = append(notes, dn)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// UpdateItem corrects a delivered line. The delivered qty can never
// drop below what has already been returned.
func (r *Repository) UpdateItem(ctx context.Context, principalID, itemID int64, qtyDelivered float64, condition string) error {
	return db.WithPrincipalTx(ctx, r.pool, principalID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE delivery_note_items SET qty_delivered=$2, condition=NULLIF($3,''), updated_at=NOW()
WHERE id=$1 AND qty_returned <= $2`, itemID, qtyDelivered, condition)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM delivery_note_items WHERE id=$1)`, itemID).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: delivered qty below returned qty", ErrValidation)
			}
			return ErrNotFound
		}
		return nil
	})
}

// MarkDelivered stamps the note delivered.
func (r *Repository) MarkDelivered(ctx context.Context, principalID, id int64, at time.Time, receivedBy string) error {
	return db.WithPrincipalTx(ctx, r.pool, principalID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE delivery_notes SET status=$2, delivered_at=$3, received_by=NULLIF($4,''), updated_at=NOW() WHERE id=$1 AND status=$5`,
			id, string(StatusDelivered), at, receivedBy, string(StatusPending))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// NextNumber allocates a delivery note number like DN-20260301-0007.
func (r *Repository) NextNumber(ctx context.Context, at time.Time) (string, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('delivery_note_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("DN-%s-%04d", at.Format("20060102"), seq), nil
}
