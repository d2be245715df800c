package projects

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rentora-erp/rentora-erp/internal/authz"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

type memoryRepo struct {
	projects map[int64]Project
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{projects: make(map[int64]Project)}
}

func (r *memoryRepo) Create(ctx context.Context, principalID int64, p Project) (int64, error) {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.projects[p.ID] = p
	return p.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, principalID, id int64) (Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) List(ctx context.Context, principalID int64, filters ListFilters, limit, offset int) ([]Project, int, error) {
	var items []Project
	for _, p := range r.projects {
		if filters.CreatedBy != 0 && p.CreatedBy != filters.CreatedBy {
			continue
		}
		if filters.Status != "" && string(p.Status) != filters.Status {
			continue
		}
		items = append(items, p)
	}
	return items, len(items), nil
}

func (r *memoryRepo) Update(ctx context.Context, principalID int64, p Project) error {
	current, ok := r.projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	current.Name = p.Name
	current.Description = p.Description
	current.Status = p.Status
	current.UpdatedAt = time.Now()
	r.projects[p.ID] = current
	return nil
}

// authzStore adapts the repo into the checker's store, so access checks
// in tests see the same data the service mutates.
type authzStore struct {
	repo  *memoryRepo
	roles map[int64]shared.Role
}

func (s *authzStore) PrincipalRole(ctx context.Context, principalID int64) (shared.Role, error) {
	role, ok := s.roles[principalID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return role, nil
}

func (s *authzStore) ProjectOwner(ctx context.Context, principalID, projectID int64) (int64, error) {
	p, ok := s.repo.projects[projectID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return p.CreatedBy, nil
}

func (s *authzStore) PurchaseOrderProject(ctx context.Context, principalID, id int64) (int64, error) {
	return 0, shared.ErrNotFound
}

func (s *authzStore) DeliveryNoteOrder(ctx context.Context, principalID, id int64) (int64, error) {
	return 0, shared.ErrNotFound
}

func (s *authzStore) DeliveryNoteItemNote(ctx context.Context, principalID, id int64) (int64, error) {
	return 0, shared.ErrNotFound
}

type discardSink struct{}

func (discardSink) Submit(ctx context.Context, log shared.AuditLog) {}

func newFixture() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	store := &authzStore{repo: repo, roles: map[int64]shared.Role{
		1: shared.RoleUser,
		2: shared.RoleUser,
		3: shared.RoleManager,
	}}
	return NewService(repo, authz.NewChecker(store), discardSink{}), repo
}

func TestCreateAssignsCreator(t *testing.T) {
	svc, _ := newFixture()

	project, err := svc.Create(context.Background(), 1, CreateInput{Code: "prj-001", Name: "Depot Build-out"})
	require.NoError(t, err)
	require.Equal(t, int64(1), project.CreatedBy)
	require.Equal(t, "PRJ-001", project.Code)
	require.Equal(t, StatusDraft, project.Status)
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newFixture()

	_, err := svc.Create(context.Background(), 1, CreateInput{Code: "", Name: ""})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGetDeniesNonOwner(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()

	project, err := svc.Create(ctx, 1, CreateInput{Code: "P1", Name: "Project"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, project.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	// Manager sees it regardless of ownership.
	got, err := svc.Get(ctx, 3, project.ID)
	require.NoError(t, err)
	require.Equal(t, project.ID, got.ID)
}

func TestGetCollapsesMissingIntoForbidden(t *testing.T) {
	svc, _ := newFixture()

	_, err := svc.Get(context.Background(), 3, 999)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestListScopesNonPrivilegedToOwnProjects(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateInput{Code: "A", Name: "Mine"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, CreateInput{Code: "B", Name: "Theirs"})
	require.NoError(t, err)

	mine, _, err := svc.List(ctx, 1, ListFilters{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, int64(1), mine[0].CreatedBy)

	all, _, err := svc.List(ctx, 3, ListFilters{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestUpdateRequiresAccess(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()

	project, err := svc.Create(ctx, 1, CreateInput{Code: "P1", Name: "Project"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 2, project.ID, UpdateInput{Name: "Hijack", Status: StatusActive})
	require.ErrorIs(t, err, shared.ErrForbidden)

	updated, err := svc.Update(ctx, 1, project.ID, UpdateInput{Name: "Renamed", Status: StatusActive})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, StatusActive, updated.Status)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()

	project, err := svc.Create(ctx, 1, CreateInput{Code: "P1", Name: "Project"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, project.ID, UpdateInput{Name: "X", Status: Status("BOGUS")})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestArchive(t *testing.T) {
	svc, repo := newFixture()
	ctx := context.Background()

	project, err := svc.Create(ctx, 1, CreateInput{Code: "P1", Name: "Project"})
	require.NoError(t, err)

	require.NoError(t, svc.Archive(ctx, 1, project.ID))
	require.Equal(t, StatusArchived, repo.projects[project.ID].Status)
}
