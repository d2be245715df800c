package vendors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rentora-erp/rentora-erp/internal/authz"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

type memoryRepo struct {
	vendors map[int64]Vendor
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{vendors: make(map[int64]Vendor)}
}

func (r *memoryRepo) Create(ctx context.Context, principalID int64, v Vendor) (int64, error) {
	for _, existing := range r.vendors {
		if existing.Code == v.Code {
			return 0, ErrDuplicateCode
		}
	}
	r.nextID++
	v.ID = r.nextID
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	r.vendors[v.ID] = v
	return v.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, principalID, id int64) (Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return Vendor{}, ErrNotFound
	}
	return v, nil
}

func (r *memoryRepo) List(ctx context.Context, principalID int64, search string, activeOnly bool, limit, offset int) ([]Vendor, int, error) {
	var items []Vendor
	for _, v := range r.vendors {
		if activeOnly && !v.IsActive {
			continue
		}
		items = append(items, v)
	}
	return items, len(items), nil
}

func (r *memoryRepo) Update(ctx context.Context, principalID int64, v Vendor) error {
	current, ok := r.vendors[v.ID]
	if !ok {
		return ErrNotFound
	}
	v.Code = current.Code
	v.CreatedAt = current.CreatedAt
	v.UpdatedAt = time.Now()
	r.vendors[v.ID] = v
	return nil
}

type rolesOnlyStore struct {
	roles map[int64]shared.Role
}

func (s *rolesOnlyStore) PrincipalRole(ctx context.Context, principalID int64) (shared.Role, error) {
	role, ok := s.roles[principalID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return role, nil
}

func (s *rolesOnlyStore) ProjectOwner(ctx context.Context, principalID, id int64) (int64, error) {
	return 0, shared.ErrNotFound
}

func (s *rolesOnlyStore) PurchaseOrderProject(ctx context.Context, principalID, id int64) (int64, error) {
	return 0, shared.ErrNotFound
}

func (s *rolesOnlyStore) DeliveryNoteOrder(ctx context.Context, principalID, id int64) (int64, error) {
	return 0, shared.ErrNotFound
}

func (s *rolesOnlyStore) DeliveryNoteItemNote(ctx context.Context, principalID, id int64) (int64, error) {
	return 0, shared.ErrNotFound
}

type discardSink struct{}

func (discardSink) Submit(ctx context.Context, log shared.AuditLog) {}

func newFixture() *Service {
	store := &rolesOnlyStore{roles: map[int64]shared.Role{
		1: shared.RoleUser,
		2: shared.RoleManager,
		3: shared.RoleAdmin,
	}}
	return NewService(newMemoryRepo(), authz.NewChecker(store), discardSink{})
}

func TestCreateRequiresPrivilegedRole(t *testing.T) {
	svc := newFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, Input{Code: "ACME", Name: "acme equipment"})
	require.ErrorIs(t, err, shared.ErrForbidden)

	vendor, err := svc.Create(ctx, 2, Input{Code: "acme", Name: "acme equipment", IsActive: true})
	require.NoError(t, err)
	require.Equal(t, "ACME", vendor.Code)
	require.Equal(t, "Acme Equipment", vendor.Name)
}

func TestCreateValidates(t *testing.T) {
	svc := newFixture()

	_, err := svc.Create(context.Background(), 2, Input{Code: "", Name: "No Code"})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Create(context.Background(), 2, Input{Code: "X", Name: "  "})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestDuplicateCode(t *testing.T) {
	svc := newFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, 3, Input{Code: "ACME", Name: "Acme", IsActive: true})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 3, Input{Code: "ACME", Name: "Other"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestReadOpenToAnyPrincipal(t *testing.T) {
	svc := newFixture()
	ctx := context.Background()

	vendor, err := svc.Create(ctx, 2, Input{Code: "ACME", Name: "Acme", IsActive: true})
	require.NoError(t, err)

	got, err := svc.Get(ctx, 1, vendor.ID)
	require.NoError(t, err)
	require.Equal(t, vendor.ID, got.ID)

	items, _, err := svc.List(ctx, 1, "", false, 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// Unknown principal is denied, not errored.
	_, err = svc.Get(ctx, 99, vendor.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateRoleGate(t *testing.T) {
	svc := newFixture()
	ctx := context.Background()

	vendor, err := svc.Create(ctx, 2, Input{Code: "ACME", Name: "Acme", IsActive: true})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, vendor.ID, Input{Name: "New Name", IsActive: true})
	require.ErrorIs(t, err, shared.ErrForbidden)

	updated, err := svc.Update(ctx, 3, vendor.ID, Input{Name: "new name", IsActive: false})
	require.NoError(t, err)
	require.Equal(t, "New Name", updated.Name)
	require.False(t, updated.IsActive)
}
