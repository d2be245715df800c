package vendors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const vendorColumns = `id, code, name, COALESCE(email,''), COALESCE(phone,''), is_active, created_at, updated_at`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Code, &v.Name, &v.Email, &v.Phone, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, ErrNotFound
		}
		return Vendor{}, err
	}
	return v, nil
}

// Create inserts a vendor.
func (r *Repository) Create(ctx context.Context, principalID int64, v Vendor) (int64, error) {
	var id int64
	err := db.WithPrincipalTx(ctx, r.pool, principalID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `INSERT INTO vendors (code, name, email, phone, is_active, created_at, updated_at)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, NOW(), NOW()) RETURNING id`,
			v.Code, v.Name, v.Email, v.Phone, v.IsActive).Scan(&id)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateCode
		}
		return 0, err
	}
	return id, nil
}

// Get returns a vendor by id. Reads run principal-bound so the vendor
// select policy sees an authenticated caller.
func (r *Repository) Get(ctx context.Context, principalID, id int64) (Vendor, error) {
	var v Vendor
	err := db.WithPrincipal(ctx, r.pool, principalID, func(conn *pgxpool.Conn) error {
		var err error
		v, err = scanVendor(conn.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=$1`, id))
		return err
	})
	return v, err
}

// List returns vendors ordered by name.
func (r *Repository) List(ctx context.Context, principalID int64, search string, activeOnly bool, limit, offset int) ([]Vendor, int, error) {
	where := ` WHERE ($1 = '' OR code ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
  AND (NOT $2::bool OR is_active)`

	var items []Vendor
	var total int
	err := db.WithPrincipal(ctx, r.pool, principalID, func(conn *pgxpool.Conn) error {
		if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+where, search, activeOnly).Scan(&total); err != nil {
			return err
		}

		rows, err := conn.Query(ctx, `SELECT `+vendorColumns+` FROM vendors`+where+` ORDER BY name LIMIT $3 OFFSET $4`, search, activeOnly, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanVendor(rows)
			if err != nil {
				return err
			}
			items = append(items, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update rewrites vendor fields.
func (r *Repository) Update(ctx context.Context, principalID int64, v Vendor) error {
	return db.WithPrincipalTx(ctx, r.pool, principalID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE vendors SET name=$2, email=NULLIF($3,''), phone=NULLIF($4,''), is_active=$5, updated_at=NOW() WHERE id=$1`,
			v.ID, v.Name, v.Email, v.Phone, v.IsActive)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
