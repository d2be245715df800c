package projects

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rentora-erp/rentora-erp/internal/authz"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Repo abstracts persistence for the service.
type Repo interface {
	Create(ctx context.Context, principalID int64, p Project) (int64, error)
	Get(ctx context.Context, principalID, id int64) (Project, error)
	List(ctx context.Context, principalID int64, filters ListFilters, limit, offset int) ([]Project, int, error)
	Update(ctx context.Context, principalID int64, p Project) error
}

// Service orchestrates project operations. Every read and mutation takes
// the calling principal explicitly; nothing is derived from ambient state.
type Service struct {
	repo    Repo
	checker *authz.Checker
	audit   shared.AuditSink
}

// NewService constructs a Service.
func NewService(repo Repo, checker *authz.Checker, audit shared.AuditSink) *Service {
	return &Service{repo: repo, checker: checker, audit: audit}
}

// CreateInput carries fields for a new project.
type CreateInput struct {
	Code        string
	Name        string
	Description string
}

// UpdateInput carries mutable project fields.
type UpdateInput struct {
	Name        string
	Description string
	Status      Status
}

// Create registers a new project owned by the calling principal.
func (s *Service) Create(ctx context.Context, principalID int64, input CreateInput) (Project, error) {
	code := strings.TrimSpace(strings.ToUpper(input.Code))
	name := strings.TrimSpace(input.Name)
	if code == "" || name == "" {
		return Project{}, fmt.Errorf("%w: code and name required", ErrValidation)
	}
	project := Project{
		Code:        code,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      StatusDraft,
		CreatedBy:   principalID,
	}
	id, err := s.repo.Create(ctx, principalID, project)
	if err != nil {
		return Project{}, err
	}
	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "project.create",
		Entity:   "project",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"code": code},
	})
	return s.repo.Get(ctx, principalID, id)
}

// Get returns a project the principal may access. Missing and denied
// both surface as shared.ErrForbidden so existence does not leak.
func (s *Service) Get(ctx context.Context, principalID, projectID int64) (Project, error) {
	if !s.checker.CanAccessProject(ctx, principalID, projectID) {
		return Project{}, shared.ErrForbidden
	}
	return s.repo.Get(ctx, principalID, projectID)
}

// List returns projects visible to the principal. Non-privileged
// principals only see projects they created, mirroring the access
// predicate enforced on single-row reads.
func (s *Service) List(ctx context.Context, principalID int64, filters ListFilters, page, perPage int) ([]Project, shared.Pagination, error) {
	if !s.checker.HasRole(ctx, principalID, shared.PrivilegedRoles()...) {
		filters.CreatedBy = principalID
	}
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.List(ctx, principalID, filters, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// Update rewrites project fields after an access check.
func (s *Service) Update(ctx context.Context, principalID, projectID int64, input UpdateInput) (Project, error) {
	if !s.checker.CanAccessProject(ctx, principalID, projectID) {
		return Project{}, shared.ErrForbidden
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Project{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	switch input.Status {
	case StatusDraft, StatusActive, StatusArchived:
	default:
		return Project{}, fmt.Errorf("%w: unknown status %q", ErrValidation, input.Status)
	}
	err := s.repo.Update(ctx, principalID, Project{
		ID:          projectID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
	})
	if err != nil {
		return Project{}, err
	}
	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "project.update",
		Entity:   "project",
		EntityID: strconv.FormatInt(projectID, 10),
		Meta:     map[string]any{"status": string(input.Status)},
	})
	return s.repo.Get(ctx, principalID, projectID)
}

// Archive marks a project archived.
func (s *Service) Archive(ctx context.Context, principalID, projectID int64) error {
	if !s.checker.CanAccessProject(ctx, principalID, projectID) {
		return shared.ErrForbidden
	}
	current, err := s.repo.Get(ctx, principalID, projectID)
	if err != nil {
		return err
	}
	current.Status = StatusArchived
	if err := s.repo.Update(ctx, principalID, current); err != nil {
		return err
	}
	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "project.archive",
		Entity:   "project",
		EntityID: strconv.FormatInt(projectID, 10),
	})
	return nil
}
