package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora-erp/rentora-erp/internal/platform/db"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// PGStore implements Store using PostgreSQL single-row lookups. Each
// parent-link lookup runs with the principal bound, so the row-security
// policies filter it the same way they filter the repositories' reads.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL backed store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) lookupID(ctx context.Context, principalID int64, query string, arg int64) (int64, error) {
	var result int64
	err := db.WithPrincipal(ctx, s.pool, principalID, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, query, arg).Scan(&result)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return result, nil
}

// PrincipalRole reads the principal's current role attribute.
func (s *PGStore) PrincipalRole(ctx context.Context, principalID int64) (shared.Role, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM users WHERE id=$1 AND is_active`, principalID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return shared.Role(role), nil
}

// ProjectOwner resolves the creator of a project.
func (s *PGStore) ProjectOwner(ctx context.Context, principalID, projectID int64) (int64, error) {
	return s.lookupID(ctx, principalID, `SELECT created_by FROM projects WHERE id=$1`, projectID)
}

// PurchaseOrderProject resolves the parent project of a purchase order.
func (s *PGStore) PurchaseOrderProject(ctx context.Context, principalID, purchaseOrderID int64) (int64, error) {
	return s.lookupID(ctx, principalID, `SELECT project_id FROM purchase_orders WHERE id=$1`, purchaseOrderID)
}

// DeliveryNoteOrder resolves the parent purchase order of a delivery note.
func (s *PGStore) DeliveryNoteOrder(ctx context.Context, principalID, deliveryNoteID int64) (int64, error) {
	return s.lookupID(ctx, principalID, `SELECT purchase_order_id FROM delivery_notes WHERE id=$1`, deliveryNoteID)
}

// DeliveryNoteItemNote resolves the parent delivery note of an item.
func (s *PGStore) DeliveryNoteItemNote(ctx context.Context, principalID, itemID int64) (int64, error) {
	return s.lookupID(ctx, principalID, `SELECT delivery_note_id FROM delivery_note_items WHERE id=$1`, itemID)
}

var _ Store = (*PGStore)(nil)
