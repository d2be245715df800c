package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

type memoryStore struct {
	roles     map[int64]shared.Role
	projects  map[int64]int64
	orders    map[int64]int64
	notes     map[int64]int64
	items     map[int64]int64
	roleErr   error
	lookupErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		roles:    make(map[int64]shared.Role),
		projects: make(map[int64]int64),
		orders:   make(map[int64]int64),
		notes:    make(map[int64]int64),
		items:    make(map[int64]int64),
	}
}

func (s *memoryStore) PrincipalRole(ctx context.Context, principalID int64) (shared.Role, error) {
	if s.roleErr != nil {
		return "", s.roleErr
	}
	role, ok := s.roles[principalID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return role, nil
}

func (s *memoryStore) lookup(m map[int64]int64, id int64) (int64, error) {
	if s.lookupErr != nil {
		return 0, s.lookupErr
	}
	parent, ok := m[id]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return parent, nil
}

func (s *memoryStore) ProjectOwner(ctx context.Context, principalID, projectID int64) (int64, error) {
	return s.lookup(s.projects, projectID)
}

func (s *memoryStore) PurchaseOrderProject(ctx context.Context, principalID, purchaseOrderID int64) (int64, error) {
	return s.lookup(s.orders, purchaseOrderID)
}

func (s *memoryStore) DeliveryNoteOrder(ctx context.Context, principalID, deliveryNoteID int64) (int64, error) {
	return s.lookup(s.notes, deliveryNoteID)
}

func (s *memoryStore) DeliveryNoteItemNote(ctx context.Context, principalID, itemID int64) (int64, error) {
	return s.lookup(s.items, itemID)
}

const (
	ownerID   = int64(1)
	otherID   = int64(2)
	managerID = int64(3)
	adminID   = int64(4)

	projectID = int64(10)
	orderID   = int64(20)
	noteID    = int64(30)
	itemID    = int64(40)
)

func seededStore() *memoryStore {
	store := newMemoryStore()
	store.roles[ownerID] = shared.RoleUser
	store.roles[otherID] = shared.RoleUser
	store.roles[managerID] = shared.RoleManager
	store.roles[adminID] = shared.RoleAdmin
	store.projects[projectID] = ownerID
	store.orders[orderID] = projectID
	store.notes[noteID] = orderID
	store.items[itemID] = noteID
	return store
}

func TestPrivilegedRolesAccessAnyProject(t *testing.T) {
	checker := NewChecker(seededStore())
	ctx := context.Background()

	require.True(t, checker.CanAccessProject(ctx, managerID, projectID))
	require.True(t, checker.CanAccessProject(ctx, adminID, projectID))
}

func TestOwnerAccessesOwnProject(t *testing.T) {
	checker := NewChecker(seededStore())

	require.True(t, checker.CanAccessProject(context.Background(), ownerID, projectID))
}

func TestNonOwnerUserDenied(t *testing.T) {
	checker := NewChecker(seededStore())

	require.False(t, checker.CanAccessProject(context.Background(), otherID, projectID))
}

func TestTransitiveAccessDownTheChain(t *testing.T) {
	checker := NewChecker(seededStore())
	ctx := context.Background()

	for _, principal := range []int64{ownerID, managerID} {
		require.True(t, checker.CanAccessPurchaseOrder(ctx, principal, orderID))
		require.True(t, checker.CanAccessDeliveryNote(ctx, principal, noteID))
		require.True(t, checker.CanAccessDeliveryNoteItem(ctx, principal, itemID))
	}

	// Denial at the project root propagates to every descendant.
	require.False(t, checker.CanAccessPurchaseOrder(ctx, otherID, orderID))
	require.False(t, checker.CanAccessDeliveryNote(ctx, otherID, noteID))
	require.False(t, checker.CanAccessDeliveryNoteItem(ctx, otherID, itemID))
}

func TestMissingResourcesFailClosed(t *testing.T) {
	checker := NewChecker(seededStore())
	ctx := context.Background()

	require.False(t, checker.CanAccessProject(ctx, adminID, 999))
	require.False(t, checker.CanAccessPurchaseOrder(ctx, adminID, 999))
	require.False(t, checker.CanAccessDeliveryNote(ctx, adminID, 999))
	require.False(t, checker.CanAccessDeliveryNoteItem(ctx, adminID, 999))
}

func TestMissingPrincipalFailsClosed(t *testing.T) {
	checker := NewChecker(seededStore())
	ctx := context.Background()

	require.False(t, checker.HasRole(ctx, 999, shared.RoleAdmin, shared.RoleManager, shared.RoleUser))
	require.False(t, checker.CanAccessProject(ctx, 999, projectID))
}

func TestStoreErrorsDeny(t *testing.T) {
	store := seededStore()
	store.lookupErr = errors.New("connection refused")
	checker := NewChecker(store)
	ctx := context.Background()

	require.False(t, checker.CanAccessProject(ctx, adminID, projectID))
	require.False(t, checker.CanAccessDeliveryNoteItem(ctx, adminID, itemID))

	store = seededStore()
	store.roleErr = errors.New("connection refused")
	checker = NewChecker(store)
	require.False(t, checker.CanAccessProject(ctx, ownerID, projectID))
	require.False(t, checker.CanProcessReturns(ctx, managerID))
}

func TestReturnProcessingRoleGate(t *testing.T) {
	checker := NewChecker(seededStore())
	ctx := context.Background()

	// Owning the parent project does not grant the return action.
	require.True(t, checker.CanAccessDeliveryNoteItem(ctx, ownerID, itemID))
	require.False(t, checker.CanProcessReturns(ctx, ownerID))

	require.True(t, checker.CanProcessReturns(ctx, managerID))
	require.True(t, checker.CanProcessReturns(ctx, adminID))
}

func TestHasRoleMatchesCurrentRoleOnly(t *testing.T) {
	store := seededStore()
	checker := NewChecker(store)
	ctx := context.Background()

	require.True(t, checker.HasRole(ctx, managerID, shared.RoleAdmin, shared.RoleManager))
	require.False(t, checker.HasRole(ctx, ownerID, shared.RoleAdmin, shared.RoleManager))

	// A role downgrade is visible on the very next check.
	store.roles[managerID] = shared.RoleUser
	require.False(t, checker.HasRole(ctx, managerID, shared.RoleAdmin, shared.RoleManager))
}

func TestFullHierarchyScenario(t *testing.T) {
	checker := NewChecker(seededStore())
	ctx := context.Background()

	cases := []struct {
		name      string
		principal int64
		want      bool
	}{
		{"creator with user role", ownerID, true},
		{"unrelated user", otherID, false},
		{"manager regardless of creator", managerID, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, checker.CanAccessProject(ctx, tc.principal, projectID))
			require.Equal(t, tc.want, checker.CanAccessPurchaseOrder(ctx, tc.principal, orderID))
			require.Equal(t, tc.want, checker.CanAccessDeliveryNote(ctx, tc.principal, noteID))
			require.Equal(t, tc.want, checker.CanAccessDeliveryNoteItem(ctx, tc.principal, itemID))
		})
	}
}
