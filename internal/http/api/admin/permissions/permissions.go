// Package permissions lists the admin routes and the role each one requires.
package permissions

import (
	"net/http"
	"strings"

	"github.com/zeyuan/appeal-service/internal/models"
)

// Definition describes one admin route.
type Definition struct {
	Key    string      `json:"key"`
	Method string      `json:"method"`
	Path   string      `json:"path"`
	Role   models.Role `json:"role"`   // Minimum role.
	Module string      `json:"module"` // Grouping for the back office menu.
}

const prefix = "/v0/admin"

// Key builds the lookup key "METHOD /path".
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

func def(method, path string, role models.Role, module string) Definition {
	full := prefix + path
	return Definition{Key: Key(method, full), Method: method, Path: full, Role: role, Module: module}
}

var definitions = []Definition{
	def(http.MethodPost, "/mfa/totp/setup", models.RoleAdmin, "Security"),
	def(http.MethodPost, "/mfa/totp/confirm", models.RoleAdmin, "Security"),
	def(http.MethodGet, "/me", models.RoleAdmin, "Security"),
	def(http.MethodPost, "/auth/sign-out", models.RoleAdmin, "Security"),

	def(http.MethodGet, "/appeals", models.RoleAdmin, "Appeals"),
	def(http.MethodGet, "/appeals/export", models.RoleAdmin, "Appeals"),
	def(http.MethodGet, "/appeals/:id", models.RoleAdmin, "Appeals"),
	def(http.MethodPut, "/appeals/:id", models.RoleAdmin, "Appeals"),

	def(http.MethodGet, "/transactions", models.RoleAdmin, "Finance"),
	def(http.MethodPost, "/recharges/:id/approve", models.RoleAdmin, "Finance"),
	def(http.MethodPost, "/recharges/:id/reject", models.RoleAdmin, "Finance"),

	def(http.MethodGet, "/config", models.RoleAdmin, "Settings"),
	def(http.MethodPut, "/config", models.RoleAdmin, "Settings"),
	def(http.MethodPost, "/config/qr", models.RoleAdmin, "Settings"),
	def(http.MethodGet, "/stats", models.RoleAdmin, "Settings"),

	def(http.MethodGet, "/users", models.RoleSuperAdmin, "Users"),
	def(http.MethodPut, "/users/:id", models.RoleSuperAdmin, "Users"),

	def(http.MethodGet, "/kb", models.RoleSuperAdmin, "Knowledge Base"),
	def(http.MethodPost, "/kb", models.RoleSuperAdmin, "Knowledge Base"),
	def(http.MethodDelete, "/kb/:id", models.RoleSuperAdmin, "Knowledge Base"),
	def(http.MethodPost, "/kb/import", models.RoleSuperAdmin, "Knowledge Base"),
	def(http.MethodPost, "/kb/archive", models.RoleSuperAdmin, "Knowledge Base"),

	def(http.MethodGet, "/poa/types", models.RoleAdmin, "POA"),
	def(http.MethodPost, "/poa/generate", models.RoleAdmin, "POA"),
	def(http.MethodPost, "/poa/export", models.RoleAdmin, "POA"),

	def(http.MethodGet, "/events", models.RoleAdmin, "Realtime"),
	def(http.MethodGet, "/permissions", models.RoleAdmin, "Security"),
}

// Definitions returns every admin route definition.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap indexes the definitions by Key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		out[d.Key] = d
	}
	return out
}

// Allows reports whether role satisfies d.
func Allows(role models.Role, d Definition) bool {
	switch d.Role {
	case models.RoleSuperAdmin:
		return role == models.RoleSuperAdmin
	case models.RoleAdmin:
		return role.IsStaff()
	default:
		return role.Valid()
	}
}

// ForRole returns the definitions role may call.
func ForRole(role models.Role) []Definition {
	var out []Definition
	for _, d := range definitions {
		if Allows(role, d) {
			out = append(out, d)
		}
	}
	return out
}
