// Package authz implements the layered access-control model: a typed
// predicate tree shared between the application-level checker and the
// row-security policies, so both layers enforce one rule definition.
package authz

import (
	"fmt"
	"strings"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// EvalInput carries the facts a predicate is evaluated against.
type EvalInput struct {
	PrincipalID int64
	Role        shared.Role
	OwnerID     int64
}

// Predicate is a boolean access rule that can be evaluated in-process
// and rendered as the equivalent SQL expression for row-security policies.
type Predicate interface {
	Eval(in EvalInput) bool
	SQL() string
}

// RoleIn matches when the principal's role is a member of the set.
type RoleIn []shared.Role

// Eval implements Predicate.
func (p RoleIn) Eval(in EvalInput) bool {
	for _, role := range p {
		if in.Role == role {
			return true
		}
	}
	return false
}

// SQL implements Predicate.
func (p RoleIn) SQL() string {
	quoted := make([]string, 0, len(p))
	for _, role := range p {
		quoted = append(quoted, "'"+string(role)+"'")
	}
	return fmt.Sprintf("app_principal_role() IN (%s)", strings.Join(quoted, ", "))
}

// OwnerIs matches when the row's owner column equals the principal.
type OwnerIs struct {
	Column string
}

// Eval implements Predicate.
func (p OwnerIs) Eval(in EvalInput) bool {
	return in.PrincipalID != 0 && in.OwnerID == in.PrincipalID
}

// SQL implements Predicate.
func (p OwnerIs) SQL() string {
	return fmt.Sprintf("%s = app_principal_id()", p.Column)
}

// AnyOf matches when at least one child predicate matches.
type AnyOf []Predicate

// Eval implements Predicate.
func (p AnyOf) Eval(in EvalInput) bool {
	for _, child := range p {
		if child.Eval(in) {
			return true
		}
	}
	return false
}

// SQL implements Predicate.
func (p AnyOf) SQL() string {
	return joinSQL(p, " OR ")
}

// AllOf matches when every child predicate matches.
type AllOf []Predicate

// Eval implements Predicate.
func (p AllOf) Eval(in EvalInput) bool {
	for _, child := range p {
		if !child.Eval(in) {
			return false
		}
	}
	return true
}

// SQL implements Predicate.
func (p AllOf) SQL() string {
	return joinSQL(p, " AND ")
}

func joinSQL(children []Predicate, sep string) string {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		parts = append(parts, child.SQL())
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// ProjectAccess is the authoritative project access rule: a privileged
// role sees every project, everyone else only the projects they created.
// Both Checker.CanAccessProject and the generated row-security function
// derive from this single definition.
func ProjectAccess() Predicate {
	return AnyOf{
		RoleIn(shared.PrivilegedRoles()),
		OwnerIs{Column: "created_by"},
	}
}

// ReturnProcessing gates the return-processing mutation. Ownership never
// satisfies it; the action is restricted to privileged roles outright.
func ReturnProcessing() Predicate {
	return RoleIn(shared.PrivilegedRoles())
}
