package procurement

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

const orderColumns = `id, number, project_id, vendor_id, status, order_date, COALESCE(note,''), created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Number, &po.ProjectID, &po.VendorID, &po.Status, &po.OrderDate, &po.Note, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

// Create inserts a purchase order and its items in one transaction.
func (r *Repository) Create(ctx context.Context, principalID int64, po PurchaseOrder, items []Item) (int64, error) {
	var id int64
	err := db.WithPrincipalTx(ctx, r.pool, principalID, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO purchase_orders (number, project_id, vendor_id, status, order_date, note, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), $7, NOW(), NOW()) RETURNING id`,
			po.Number, po.ProjectID, po.VendorID, string(po.Status), po.OrderDate, po.Note, po.CreatedBy).Scan(&id)
		if err != nil {
			return err
		}
		for _, item := range items {
			if _, err := tx.Exec(ctx, `INSERT INTO purchase_order_items (purchase_order_id, equipment_name, qty, unit_price, rental_start, rental_end)
VALUES ($1, $2, $3, $4, $5, $6)`,
				id, item.EquipmentName, item.Qty, item.UnitPrice, item.RentalStart, item.RentalEnd); err != nil {
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

// Get returns a purchase order and its items. Reads run principal-bound
// so the row-security select policies apply.
func (r *Repository) Get(ctx context.Context, principalID, id int64) (PurchaseOrder, []Item, error) {
	var po PurchaseOrder
	var items []Item
	err := db.WithPrincipal(ctx, r.pool, principalID, func(conn *pgxpool.Conn) error {
		var err error
		po, err = scanOrder(conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1`, id))
		if err != nil {
			return err
		}
		rows, err := conn.Query(ctx, `SELECT id, purchase_order_id, equipment_name, qty, unit_price, rental_start, rental_end FROM purchase_order_items WHERE purchase_order_id=$1 ORDER BY id`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var item Item
			if err := rows.Scan(&item.ID, &item.PurchaseOrderID, &item.EquipmentName, &item.Qty, &item.UnitPrice, &item.RentalStart, &item.RentalEnd); err != nil {
				return err
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, items, nil
}

// ListByProject returns all purchase orders under a project.
func (r *Repository) ListByProject(ctx context.Context, principalID, projectID int64) ([]PurchaseOrder, error) {
	var orders []PurchaseOrder
	err := db.WithPrincipal(ctx, r.pool, principalID, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE project_id=$1 ORDER BY created_at DESC`, projectID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			po, err := scanOrder(rows)
			if err != nil {
				return err
			}
			orders = append(orders, po)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves a purchase order to a new status.
func (r *Repository) UpdateStatus(ctx context.Context, principalID, id int64, status Status) error {
	return db.WithPrincipalTx(ctx, r.pool, principalID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// NextNumber produces a sequential order number for the given day.
func (r *Repository) NextNumber(ctx context.Context, at time.Time) (string, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('purchase_order_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%s-%04d", at.Format("20060102"), seq), nil
}
