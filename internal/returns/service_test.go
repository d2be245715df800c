package returns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rentora-erp/rentora-erp/internal/authz"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

type memoryItem struct {
	noteID       int64
	qtyDelivered float64
	qtyReturned  float64
}

type memoryRepo struct {
	items     map[int64]*memoryItem
	noteState map[int64]string
	events    []Event
	nextID    int64
}

func (r *memoryRepo) Apply(ctx context.Context, principalID int64, event Event) (Event, error) {
	item, ok := r.items[event.DeliveryNoteItemID]
	if !ok {
		return Event{}, ErrNotFound
	}
	if item.qtyReturned+event.Qty > item.qtyDelivered {
		return Event{}, ErrExcessQty
	}
	item.qtyReturned += event.Qty
	r.nextID++
	event.ID = r.nextID
	r.events = append(r.events, event)

	done := true
	for _, other := range r.items {
		if other.noteID == item.noteID && other.qtyReturned < other.qtyDelivered {
			done = false
		}
	}
	if done {
		r.noteState[item.noteID] = "RETURNED"
	}
	return event, nil
}

func (r *memoryRepo) ListByItem(ctx context.Context, principalID, itemID int64) ([]Event, error) {
	var events []Event
	for _, ev := range r.events {
		if ev.DeliveryNoteItemID == itemID {
			events = append(events, ev)
		}
	}
	return events, nil
}

type memoryKeys struct {
	seen map[string]bool
}

func (k *memoryKeys) CheckAndInsert(ctx context.Context, key, module string) error {
	if k.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	k.seen[key] = true
	return nil
}

func (k *memoryKeys) Delete(ctx context.Context, key string) error {
	delete(k.seen, key)
	return nil
}

type hierarchyStore struct {
	roles map[int64]shared.Role
	repo  *memoryRepo
}

func (s *hierarchyStore) PrincipalRole(ctx context.Context, principalID int64) (shared.Role, error) {
	role, ok := s.roles[principalID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return role, nil
}

func (s *hierarchyStore) ProjectOwner(ctx context.Context, principalID, projectID int64) (int64, error) {
	if projectID != 10 {
		return 0, shared.ErrNotFound
	}
	return 1, nil
}

func (s *hierarchyStore) PurchaseOrderProject(ctx context.Context, principalID, id int64) (int64, error) {
	if id != 20 {
		return 0, shared.ErrNotFound
	}
	return 10, nil
}

func (s *hierarchyStore) DeliveryNoteOrder(ctx context.Context, principalID, id int64) (int64, error) {
	if id != 30 {
		return 0, shared.ErrNotFound
	}
	return 20, nil
}

func (s *hierarchyStore) DeliveryNoteItemNote(ctx context.Context, principalID, id int64) (int64, error) {
	item, ok := s.repo.items[id]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return item.noteID, nil
}

type discardSink struct{}

func (discardSink) Submit(ctx context.Context, log shared.AuditLog) {}

// Principals: 1 owns project 10 with a plain user role, 3 is a
// manager, 5 is a manager with no project of their own. Note 30 under
// order 20 carries items 40 and 41.
func newFixture() (*Service, *memoryRepo, *memoryKeys) {
	repo := &memoryRepo{
		items: map[int64]*memoryItem{
			40: {noteID: 30, qtyDelivered: 2},
			41: {noteID: 30, qtyDelivered: 1},
		},
		noteState: map[int64]string{30: "DELIVERED"},
	}
	keys := &memoryKeys{seen: make(map[string]bool)}
	store := &hierarchyStore{
		roles: map[int64]shared.Role{1: shared.RoleUser, 3: shared.RoleManager, 5: shared.RoleManager},
		repo:  repo,
	}
	return NewService(repo, keys, authz.NewChecker(store), discardSink{}), repo, keys
}

func TestProcessByManager(t *testing.T) {
	svc, repo, _ := newFixture()

	event, err := svc.Process(context.Background(), 3, ProcessInput{
		DeliveryNoteItemID: 40,
		Qty:                1,
		Condition:          "scratched",
	})
	require.NoError(t, err)
	require.NotZero(t, event.ID)
	require.Equal(t, int64(3), event.ProcessedBy)
	require.InDelta(t, 1.0, repo.items[40].qtyReturned, 0.001)
}

func TestOwnerWithUserRoleDenied(t *testing.T) {
	svc, _, _ := newFixture()

	// Principal 1 owns the project the item hangs under, but owning a
	// project does not grant return processing.
	_, err := svc.Process(context.Background(), 1, ProcessInput{DeliveryNoteItemID: 40, Qty: 1})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestProcessDeniedForUnknownPrincipal(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.Process(context.Background(), 99, ProcessInput{DeliveryNoteItemID: 40, Qty: 1})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestProcessMissingItemDenied(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.Process(context.Background(), 3, ProcessInput{DeliveryNoteItemID: 999, Qty: 1})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestExcessQtyRejected(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	_, err := svc.Process(ctx, 3, ProcessInput{DeliveryNoteItemID: 40, Qty: 5})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Process(ctx, 3, ProcessInput{DeliveryNoteItemID: 40, Qty: 0})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestIdempotencyKeyDeduplicates(t *testing.T) {
	svc, repo, _ := newFixture()
	ctx := context.Background()

	input := ProcessInput{DeliveryNoteItemID: 40, Qty: 1, IdempotencyKey: "req-abc"}
	_, err := svc.Process(ctx, 3, input)
	require.NoError(t, err)

	_, err = svc.Process(ctx, 3, input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.InDelta(t, 1.0, repo.items[40].qtyReturned, 0.001)
}

func TestFailedProcessFreesKey(t *testing.T) {
	svc, _, keys := newFixture()
	ctx := context.Background()

	input := ProcessInput{DeliveryNoteItemID: 40, Qty: 5, IdempotencyKey: "req-xyz"}
	_, err := svc.Process(ctx, 3, input)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	require.False(t, keys.seen["req-xyz"])

	input.Qty = 1
	_, err = svc.Process(ctx, 3, input)
	require.NoError(t, err)
}

func TestNoteFlipsWhenAllReturned(t *testing.T) {
	svc, repo, _ := newFixture()
	ctx := context.Background()

	_, err := svc.Process(ctx, 3, ProcessInput{DeliveryNoteItemID: 40, Qty: 2})
	require.NoError(t, err)
	require.Equal(t, "DELIVERED", repo.noteState[30])

	_, err = svc.Process(ctx, 5, ProcessInput{DeliveryNoteItemID: 41, Qty: 1})
	require.NoError(t, err)
	require.Equal(t, "RETURNED", repo.noteState[30])
}

func TestHistoryAccess(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	_, err := svc.Process(ctx, 3, ProcessInput{DeliveryNoteItemID: 40, Qty: 1})
	require.NoError(t, err)

	events, err := svc.History(ctx, 3, 40)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// Principal 1 can read history through project ownership even
	// though they cannot process returns.
	events, err = svc.History(ctx, 1, 40)
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, err = svc.History(ctx, 99, 40)
	require.ErrorIs(t, err, shared.ErrForbidden)
}
