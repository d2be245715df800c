package vendors

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rentora-erp/rentora-erp/internal/authz"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Repo abstracts persistence for the service.
type Repo interface {
	Create(ctx context.Context, principalID int64, v Vendor) (int64, error)
	Get(ctx context.Context, principalID, id int64) (Vendor, error)
	List(ctx context.Context, principalID int64, search string, activeOnly bool, limit, offset int) ([]Vendor, int, error)
	Update(ctx context.Context, principalID int64, v Vendor) error
}

// Service orchestrates vendor operations. Reads are open to any
// authenticated principal; mutations are restricted to privileged roles.
type Service struct {
	repo    Repo
	checker *authz.Checker
	audit   shared.AuditSink
	titler  cases.Caser
}

// NewService constructs a Service.
func NewService(repo Repo, checker *authz.Checker, audit shared.AuditSink) *Service {
	return &Service{
		repo:    repo,
		checker: checker,
		audit:   audit,
		titler:  cases.Title(language.English),
	}
}

// Input carries vendor fields for create and update.
type Input struct {
	Code     string
	Name     string
	Email    string
	Phone    string
	IsActive bool
}

func (s *Service) normalize(input Input) (Vendor, error) {
	code := strings.TrimSpace(strings.ToUpper(input.Code))
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Vendor{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	return Vendor{
		Code:     code,
		Name:     s.titler.String(name),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:    strings.TrimSpace(input.Phone),
		IsActive: input.IsActive,
	}, nil
}

// Create registers a new vendor. Privileged roles only.
func (s *Service) Create(ctx context.Context, principalID int64, input Input) (Vendor, error) {
	if !s.checker.HasRole(ctx, principalID, shared.PrivilegedRoles()...) {
		return Vendor{}, shared.ErrForbidden
	}
	vendor, err := s.normalize(input)
	if err != nil {
		return Vendor{}, err
	}
	if vendor.Code == "" {
		return Vendor{}, fmt.Errorf("%w: code required", ErrValidation)
	}
	id, err := s.repo.Create(ctx, principalID, vendor)
	if err != nil {
		return Vendor{}, err
	}
	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "vendor.create",
		Entity:   "vendor",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"code": vendor.Code},
	})
	return s.repo.Get(ctx, principalID, id)
}

// Get returns a vendor for any authenticated principal.
func (s *Service) Get(ctx context.Context, principalID, vendorID int64) (Vendor, error) {
	if !s.checker.HasRole(ctx, principalID, shared.RoleAdmin, shared.RoleManager, shared.RoleUser) {
		return Vendor{}, shared.ErrForbidden
	}
	return s.repo.Get(ctx, principalID, vendorID)
}

// List returns vendors for any authenticated principal.
func (s *Service) List(ctx context.Context, principalID int64, search string, activeOnly bool, page, perPage int) ([]Vendor, shared.Pagination, error) {
	if !s.checker.HasRole(ctx, principalID, shared.RoleAdmin, shared.RoleManager, shared.RoleUser) {
		return nil, shared.Pagination{}, shared.ErrForbidden
	}
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.List(ctx, principalID, strings.TrimSpace(search), activeOnly, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// Update rewrites vendor fields. Privileged roles only.
func (s *Service) Update(ctx context.Context, principalID, vendorID int64, input Input) (Vendor, error) {
	if !s.checker.HasRole(ctx, principalID, shared.PrivilegedRoles()...) {
		return Vendor{}, shared.ErrForbidden
	}
	vendor, err := s.normalize(input)
	if err != nil {
		return Vendor{}, err
	}
	vendor.ID = vendorID
	if err := s.repo.Update(ctx, principalID, vendor); err != nil {
		return Vendor{}, err
	}
	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "vendor.update",
		Entity:   "vendor",
		EntityID: strconv.FormatInt(vendorID, 10),
	})
	return s.repo.Get(ctx, principalID, vendorID)
}
