package authz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProjectAccessFunctionUsesSharedPredicate(t *testing.T) {
	ddl := ProjectAccessFunctionDDL()

	// The SQL function body must be rendered from the same predicate tree
	// the checker evaluates, not a hand-written copy.
	require.Contains(t, ddl, ProjectAccess().SQL())
	require.Contains(t, ddl, "CREATE OR REPLACE FUNCTION app_can_access_project")
}

func TestPoliciesCoverHierarchyTables(t *testing.T) {
	byTable := map[string][]TablePolicy{}
	for _, policy := range Policies() {
		byTable[policy.Table] = append(byTable[policy.Table], policy)
	}

	for _, table := range []string{"projects", "purchase_orders", "delivery_notes", "delivery_note_items", "users", "vendors"} {
		require.NotEmpty(t, byTable[table], "missing policies for %s", table)
	}

	// Every child table routes through the shared access function.
	for _, table := range []string{"purchase_orders", "delivery_notes", "delivery_note_items"} {
		found := false
		for _, policy := range byTable[table] {
			if strings.Contains(policy.Using, "app_can_access_project") || strings.Contains(policy.WithCheck, "app_can_access_project") {
				found = true
			}
		}
		require.True(t, found, "%s policies must call app_can_access_project", table)
	}

	// The projects policies inline the predicate instead of calling the
	// function: selecting from projects inside a projects policy recurses.
	found := false
	for _, policy := range byTable["projects"] {
		require.NotContains(t, policy.Using, "app_can_access_project")
		require.NotContains(t, policy.WithCheck, "app_can_access_project")
		if policy.Using == ProjectAccess().SQL() {
			found = true
		}
	}
	require.True(t, found, "projects policies must inline the shared predicate")
}

func TestChildPoliciesResolveParentFromStoredLink(t *testing.T) {
	for _, policy := range Policies() {
		switch policy.Table {
		case "purchase_orders":
			if policy.Using != "" && strings.Contains(policy.Using, "app_can_access_project") {
				require.Contains(t, policy.Using, "project_id")
			}
		case "delivery_notes":
			if policy.Using != "" {
				require.Contains(t, policy.Using, "purchase_order_id")
			}
		case "delivery_note_items":
			if policy.Using != "" {
				require.Contains(t, policy.Using, "delivery_note_id")
			}
		}
	}
}

func TestPolicyDDLShape(t *testing.T) {
	policy := TablePolicy{
		Table:     "projects",
		Name:      "projects_update",
		Command:   "UPDATE",
		Using:     "app_can_access_project(id)",
		WithCheck: "app_can_access_project(id)",
	}

	statements := policy.DDL()
	require.Len(t, statements, 2)
	require.Equal(t, "DROP POLICY IF EXISTS projects_update ON projects", statements[0])
	require.Equal(t,
		"CREATE POLICY projects_update ON projects FOR UPDATE USING (app_can_access_project(id)) WITH CHECK (app_can_access_project(id))",
		statements[1])
}

func TestPolicyNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, policy := range Policies() {
		key := policy.Table + "." + policy.Name
		require.False(t, seen[key], "duplicate policy %s", key)
		seen[key] = true
	}
}

func TestPoliciesForcedForTableOwner(t *testing.T) {
	statements := securityStatements()

	// The application connects as the table owner, whom PostgreSQL
	// exempts from row security unless the table is forced. Without
	// FORCE no policy would ever be evaluated.
	for _, table := range []string{"projects", "purchase_orders", "delivery_notes", "delivery_note_items", "vendors"} {
		require.Contains(t, statements, "ALTER TABLE "+table+" ENABLE ROW LEVEL SECURITY")
		require.Contains(t, statements, "ALTER TABLE "+table+" FORCE ROW LEVEL SECURITY")
	}

	// users stays un-forced: app_principal_role() reads it and a forced
	// users policy consulting the role helper would recurse, and the
	// login lookup runs before any principal exists.
	require.Contains(t, statements, "ALTER TABLE users ENABLE ROW LEVEL SECURITY")
	require.NotContains(t, statements, "ALTER TABLE users FORCE ROW LEVEL SECURITY")
}

func TestHelperFunctionsRunAsDefiner(t *testing.T) {
	require.Equal(t, 2, strings.Count(helperFunctionsDDL, "SECURITY DEFINER"))
	require.Contains(t, helperFunctionsDDL, "current_setting('app.principal_id', true)")
}
