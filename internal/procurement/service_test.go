package procurement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rentora-erp/rentora-erp/internal/authz"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

type memoryRepo struct {
	orders  map[int64]PurchaseOrder
	items   map[int64][]Item
	nextID  int64
	nextSeq int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[int64]PurchaseOrder), items: make(map[int64][]Item)}
}

func (r *memoryRepo) Create(ctx context.Context, principalID int64, po PurchaseOrder, items []Item) (int64, error) {
	r.nextID++
	po.ID = r.nextID
	po.CreatedAt = time.Now()
	po.UpdatedAt = po.CreatedAt
	r.orders[po.ID] = po
	for i, item := range items {
		item.ID = int64(i + 1)
		item.PurchaseOrderID = po.ID
		r.items[po.ID] = append(r.items[po.ID], item)
	}
	return po.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, principalID, id int64) (PurchaseOrder, []Item, error) {
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, nil, ErrNotFound
	}
	return po, append([]Item(nil), r.items[id]...), nil
}

func (r *memoryRepo) ListByProject(ctx context.Context, principalID, projectID int64) ([]PurchaseOrder, error) {
	var orders []PurchaseOrder
	for _, po := range r.orders {
		if po.ProjectID == projectID {
			orders = append(orders, po)
		}
	}
	return orders, nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, principalID, id int64, status Status) error {
	po, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.Status = status
	r.orders[id] = po
	return nil
}

func (r *memoryRepo) NextNumber(ctx context.Context, at time.Time) (string, error) {
	r.nextSeq++
	return fmt.Sprintf("PO-%s-%04d", at.Format("20060102"), r.nextSeq), nil
}

type hierarchyStore struct {
	roles    map[int64]shared.Role
	projects map[int64]int64
	repo     *memoryRepo
}

func (s *hierarchyStore) PrincipalRole(ctx context.Context, principalID int64) (shared.Role, error) {
	role, ok := s.roles[principalID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return role, nil
}

func (s *hierarchyStore) ProjectOwner(ctx context.Context, principalID, projectID int64) (int64, error) {
	owner, ok := s.projects[projectID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return owner, nil
}

func (s *hierarchyStore) PurchaseOrderProject(ctx context.Context, principalID, id int64) (int64, error) {
	po, ok := s.repo.orders[id]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return po.ProjectID, nil
}

func (s *hierarchyStore) DeliveryNoteOrder(ctx context.Context, principalID, id int64) (int64, error) {
	return 0, shared.ErrNotFound
}

func (s *hierarchyStore) DeliveryNoteItemNote(ctx context.Context, principalID, id int64) (int64, error) {
	return 0, shared.ErrNotFound
}

type discardSink struct{}

func (discardSink) Submit(ctx context.Context, log shared.AuditLog) {}

// Principals: 1 owns project 10, 2 is an unrelated user, 3 is a manager.
func newFixture() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	store := &hierarchyStore{
		roles:    map[int64]shared.Role{1: shared.RoleUser, 2: shared.RoleUser, 3: shared.RoleManager},
		projects: map[int64]int64{10: 1},
		repo:     repo,
	}
	return NewService(repo, authz.NewChecker(store), discardSink{}), repo
}

func validInput() CreateInput {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return CreateInput{
		ProjectID: 10,
		VendorID:  5,
		Items: []ItemInput{{
			EquipmentName: "Tower Crane",
			Qty:           1,
			UnitPrice:     1200,
			RentalStart:   start,
			RentalEnd:     start.AddDate(0, 2, 0),
		}},
	}
}

func TestCreateUnderOwnProject(t *testing.T) {
	svc, _ := newFixture()

	po, items, err := svc.Create(context.Background(), 1, validInput())
	require.NoError(t, err)
	require.Equal(t, StatusDraft, po.Status)
	require.Equal(t, int64(10), po.ProjectID)
	require.Equal(t, int64(1), po.CreatedBy)
	require.Contains(t, po.Number, "PO-")
	require.Len(t, items, 1)
}

func TestCreateDeniedForNonOwner(t *testing.T) {
	svc, _ := newFixture()

	_, _, err := svc.Create(context.Background(), 2, validInput())
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCreateDeniedForMissingProject(t *testing.T) {
	svc, _ := newFixture()

	input := validInput()
	input.ProjectID = 999
	_, _, err := svc.Create(context.Background(), 3, input)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCreateValidatesItems(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()

	input := validInput()
	input.Items = nil
	_, _, err := svc.Create(ctx, 1, input)
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	input = validInput()
	input.Items[0].RentalEnd = input.Items[0].RentalStart.AddDate(0, 0, -1)
	_, _, err = svc.Create(ctx, 1, input)
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	input = validInput()
	input.Items[0].Qty = 0
	_, _, err = svc.Create(ctx, 1, input)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGetTransitiveAccess(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()

	po, _, err := svc.Create(ctx, 1, validInput())
	require.NoError(t, err)

	_, _, err = svc.Get(ctx, 1, po.ID)
	require.NoError(t, err)

	_, _, err = svc.Get(ctx, 3, po.ID)
	require.NoError(t, err)

	_, _, err = svc.Get(ctx, 2, po.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	// Missing order is denied, not distinguished from forbidden.
	_, _, err = svc.Get(ctx, 3, 999)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestStatusWorkflow(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()

	po, _, err := svc.Create(ctx, 1, validInput())
	require.NoError(t, err)

	// Draft cannot be approved directly.
	_, err = svc.Transition(ctx, 3, po.ID, StatusApproved)
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	submitted, err := svc.Transition(ctx, 1, po.ID, StatusSubmitted)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, submitted.Status)

	// Approval needs a privileged role even for the project owner.
	_, err = svc.Transition(ctx, 1, po.ID, StatusApproved)
	require.ErrorIs(t, err, shared.ErrForbidden)

	approved, err := svc.Transition(ctx, 3, po.ID, StatusApproved)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
}

func TestListByProjectAccess(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()

	_, _, err := svc.Create(ctx, 1, validInput())
	require.NoError(t, err)

	orders, err := svc.ListByProject(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	_, err = svc.ListByProject(ctx, 2, 10)
	require.ErrorIs(t, err, shared.ErrForbidden)
}
