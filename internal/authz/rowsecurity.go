package authz

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// TablePolicy describes one row-security policy. Using guards reads and
// the row's old image on writes; WithCheck guards the new image.
type TablePolicy struct {
	Table     string
	Name      string
	Command   string
	Using     string
	WithCheck string
}

// Session principal helpers. Repositories bind the caller with
// set_config('app.principal_id', ...) on every read and mutation; an
// unset or empty setting resolves to NULL so every policy denies by
// default. Both helpers run as their definer: app_principal_role reads
// users, and a policy that consulted it under the caller's own row
// security would recurse through the users policies.
const helperFunctionsDDL = `
CREATE OR REPLACE FUNCTION app_principal_id() RETURNS bigint
LANGUAGE sql STABLE SECURITY DEFINER AS $$
  SELECT NULLIF(current_setting('app.principal_id', true), '')::bigint
$$;

CREATE OR REPLACE FUNCTION app_principal_role() RETURNS text
LANGUAGE sql STABLE SECURITY DEFINER AS $$
  SELECT role FROM users WHERE id = app_principal_id() AND is_active
$$;
`

// ProjectAccessFunctionDDL renders the authoritative project-access
// predicate as a storage-side function. The body is generated from the
// same ProjectAccess tree the in-process checker evaluates, so the two
// layers cannot drift independently.
func ProjectAccessFunctionDDL() string {
	return fmt.Sprintf(`CREATE OR REPLACE FUNCTION app_can_access_project(p_project_id bigint) RETURNS boolean
LANGUAGE sql STABLE AS $$
  SELECT EXISTS (
    SELECT 1 FROM projects
    WHERE id = p_project_id
      AND %s
  )
$$;`, ProjectAccess().SQL())
}

// Policies lists every row-security policy, scoped per table per
// operation. Children delegate to app_can_access_project through their
// stored parent links, mirroring the checker's walk to the root.
func Policies() []TablePolicy {
	authenticated := "app_principal_id() IS NOT NULL"
	privileged := RoleIn(shared.PrivilegedRoles()).SQL()
	// The projects policies inline the predicate against the row's own
	// created_by column. Calling app_can_access_project(id) here would
	// select from projects inside the projects policy and recurse.
	projectAccess := ProjectAccess().SQL()
	orderAccess := "app_can_access_project(project_id)"
	noteAccess := "app_can_access_project((SELECT project_id FROM purchase_orders po WHERE po.id = purchase_order_id))"
	itemAccess := "app_can_access_project((SELECT po.project_id FROM delivery_notes dn JOIN purchase_orders po ON po.id = dn.purchase_order_id WHERE dn.id = delivery_note_id))"

	return []TablePolicy{
		{Table: "users", Name: "users_select", Command: "SELECT", Using: fmt.Sprintf("(id = app_principal_id() OR %s)", privileged)},
		{Table: "users", Name: "users_update", Command: "UPDATE", Using: RoleIn{shared.RoleAdmin}.SQL(), WithCheck: RoleIn{shared.RoleAdmin}.SQL()},

		{Table: "vendors", Name: "vendors_select", Command: "SELECT", Using: authenticated},
		{Table: "vendors", Name: "vendors_insert", Command: "INSERT", WithCheck: privileged},
		{Table: "vendors", Name: "vendors_update", Command: "UPDATE", Using: privileged, WithCheck: privileged},

		{Table: "projects", Name: "projects_select", Command: "SELECT", Using: projectAccess},
		{Table: "projects", Name: "projects_insert", Command: "INSERT", WithCheck: "(created_by = app_principal_id())"},
		{Table: "projects", Name: "projects_update", Command: "UPDATE", Using: projectAccess, WithCheck: projectAccess},
		{Table: "projects", Name: "projects_delete", Command: "DELETE", Using: RoleIn{shared.RoleAdmin}.SQL()},

		{Table: "purchase_orders", Name: "purchase_orders_select", Command: "SELECT", Using: orderAccess},
		{Table: "purchase_orders", Name: "purchase_orders_insert", Command: "INSERT", WithCheck: orderAccess},
		{Table: "purchase_orders", Name: "purchase_orders_update", Command: "UPDATE", Using: orderAccess, WithCheck: orderAccess},
		{Table: "purchase_orders", Name: "purchase_orders_delete", Command: "DELETE", Using: RoleIn{shared.RoleAdmin}.SQL()},

		{Table: "delivery_notes", Name: "delivery_notes_select", Command: "SELECT", Using: noteAccess},
		{Table: "delivery_notes", Name: "delivery_notes_insert", Command: "INSERT", WithCheck: noteAccess},
		{Table: "delivery_notes", Name: "delivery_notes_update", Command: "UPDATE", Using: noteAccess, WithCheck: noteAccess},

		{Table: "delivery_note_items", Name: "delivery_note_items_select", Command: "SELECT", Using: itemAccess},
		{Table: "delivery_note_items", Name: "delivery_note_items_insert", Command: "INSERT", WithCheck: itemAccess},
		{Table: "delivery_note_items", Name: "delivery_note_items_update", Command: "UPDATE", Using: fmt.Sprintf("(%s AND %s)", itemAccess, privileged), WithCheck: itemAccess},
	}
}

// DDL renders the policy statements for one table policy.
func (p TablePolicy) DDL() []string {
	stmt := fmt.Sprintf("CREATE POLICY %s ON %s FOR %s", p.Name, p.Table, p.Command)
	if p.Using != "" {
		stmt += fmt.Sprintf(" USING (%s)", p.Using)
	}
	if p.WithCheck != "" {
		stmt += fmt.Sprintf(" WITH CHECK (%s)", p.WithCheck)
	}
	return []string{
		fmt.Sprintf("DROP POLICY IF EXISTS %s ON %s", p.Name, p.Table),
		stmt,
	}
}

// securityStatements renders the full DDL sequence: helper functions,
// the shared access function, then per table ENABLE, FORCE, and the
// policies. FORCE is required because the application connects as the
// table owner, whom PostgreSQL otherwise exempts from row security.
// users stays un-forced: app_principal_role() and the pre-auth login
// lookup read it, and forcing it would recurse through its own policy.
func securityStatements() []string {
	statements := []string{helperFunctionsDDL, ProjectAccessFunctionDDL()}
	enabled := map[string]bool{}
	for _, policy := range Policies() {
		if !enabled[policy.Table] {
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", policy.Table))
			if policy.Table != "users" {
				statements = append(statements, fmt.Sprintf("ALTER TABLE %s FORCE ROW LEVEL SECURITY", policy.Table))
			}
			enabled[policy.Table] = true
		}
		statements = append(statements, policy.DDL()...)
	}
	return statements
}

// EnsurePolicies applies helper functions, the shared access function,
// and every table policy. It is idempotent and safe to run at startup.
func EnsurePolicies(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range securityStatements() {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("authz: apply row security: %w", err)
		}
	}
	return nil
}
