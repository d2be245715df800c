package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	RecordToken(ctx context.Context, token string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteToken(ctx context.Context, token string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	var role string
	err := r.pool.QueryRow(ctx, `SELECT id, email, full_name, password_hash, role, is_active, created_at, updated_at FROM users WHERE email=$1`, email).
		Scan(&user.ID, &user.Email, &user.FullName, &user.PasswordHash, &role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.Role = shared.Role(role)
	return user, nil
}

// RecordToken persists issued-token metadata for auditing.
func (r *PGRepository) RecordToken(ctx context.Context, token string, userID int64, expiresAt time.Time, ip, ua string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `INSERT INTO access_tokens (token, user_id, issued_at, expires_at, ip, ua) VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''))`,
		token, userID, now, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteToken removes a token record.
func (r *PGRepository) DeleteToken(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM access_tokens WHERE token=$1`, token)
	return err
}

var _ Repository = (*PGRepository)(nil)
