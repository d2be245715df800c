package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora-erp/rentora-erp/internal/platform/db"
)

// ListFilters narrows project listings.
type ListFilters struct {
	Status    string
	Search    string
	CreatedBy int64
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `id, code, name, COALESCE(description,''), status, created_by, created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

// Create inserts a project inside a principal-bound transaction so the
// row-security insert policy re-validates the creator.
func (r *Repository) Create(ctx context.Context, principalID int64, p Project) (int64, error) {
	var id int64
	err := db.WithPrincipalTx(ctx, r.pool, principalID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `INSERT INTO projects (code, name, description, status, created_by, created_at, updated_at)
VALUES ($1, $2, NULLIF($3,''), $4, $5, NOW(), NOW()) RETURNING id`,
			p.Code, p.Name, p.Description, string(p.Status), p.CreatedBy).Scan(&id)
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

// Get returns a project by id. The read runs principal-bound so the
// row-security select policy applies to it.
func (r *Repository) Get(ctx context.Context, principalID, id int64) (Project, error) {
	var p Project
	err := db.WithPrincipal(ctx, r.pool, principalID, func(conn *pgxpool.Conn) error {
		var err error
		p, err = scanProject(conn.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id))
		return err
	})
	return p, err
}

// List returns projects matching filters plus the total count.
func (r *Repository) List(ctx context.Context, principalID int64, filters ListFilters, limit, offset int) ([]Project, int, error) {
	where := ` WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR code ILIKE '%' || $2 || '%' OR name ILIKE '%' || $2 || '%')
  AND ($3::bigint = 0 OR created_by = $3)`

	var items []Project
	var total int
	err := db.WithPrincipal(ctx, r.pool, principalID, func(conn *pgxpool.Conn) error {
		if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM projects`+where, filters.Status, filters.Search, filters.CreatedBy).Scan(&total); err != nil {
			return err
		}

		rows, err := conn.Query(ctx, `SELECT `+projectColumns+` FROM projects`+where+` ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
			filters.Status, filters.Search, filters.CreatedBy, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				return err
			}
			items = append(items, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update rewrites the mutable fields of a project.
func (r *Repository) Update(ctx context.Context, principalID int64, p Project) error {
	return db.WithPrincipalTx(ctx, r.pool, principalID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE projects SET name=$2, description=NULLIF($3,''), status=$4, updated_at=NOW() WHERE id=$1`,
			p.ID, p.Name, p.Description, string(p.Status))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
