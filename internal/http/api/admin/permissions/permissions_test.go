package permissions

import (
	"testing"

	"github.com/zeyuan/appeal-service/internal/models"
)

func TestDefinitionMapIncludesAppealAndPOARoutes(t *testing.T) {
	t.Parallel()

	definitionMap := DefinitionMap()
	requiredKeys := []string{
		"GET /v0/admin/appeals",
		"PUT /v0/admin/appeals/:id",
		"GET /v0/admin/appeals/export",
		"POST /v0/admin/recharges/:id/approve",
		"POST /v0/admin/poa/generate",
		"POST /v0/admin/kb/import",
	}

	for _, key := range requiredKeys {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			if _, ok := definitionMap[key]; !ok {
				t.Fatalf("DefinitionMap() missing permission key %q", key)
			}
		})
	}
}

func TestSuperAdminOnlyRoutes(t *testing.T) {
	t.Parallel()

	definitionMap := DefinitionMap()
	for _, key := range []string{"GET /v0/admin/users", "PUT /v0/admin/users/:id", "GET /v0/admin/kb", "DELETE /v0/admin/kb/:id", "POST /v0/admin/kb/archive"} {
		d, ok := definitionMap[key]
		if !ok {
			t.Fatalf("missing %q", key)
		}
		if Allows(models.RoleAdmin, d) {
			t.Fatalf("%q should be super admin only", key)
		}
		if !Allows(models.RoleSuperAdmin, d) {
			t.Fatalf("%q should allow super admin", key)
		}
	}
}

func TestClientsAllowedNothing(t *testing.T) {
	t.Parallel()

	if got := ForRole(models.RoleClient); len(got) != 0 {
		t.Fatalf("clients should not reach admin routes, got %d", len(got))
	}
	if len(ForRole(models.RoleSuperAdmin)) != len(Definitions()) {
		t.Fatalf("super admin should reach every admin route")
	}
}

func TestDefinitionKeysUnique(t *testing.T) {
	t.Parallel()

	if len(DefinitionMap()) != len(Definitions()) {
		t.Fatalf("duplicate definition keys")
	}
}
