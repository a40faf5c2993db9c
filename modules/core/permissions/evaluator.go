package permissions

import (
	"strings"

	"github.com/veloxcrm/velox/modules/core/domain/entities/principal"
)

// Evaluator answers allow/deny for a principal and a permission name using
// the static role table plus the principal's direct permission claims. The
// role table is normalized once at construction, not per request.
type Evaluator struct {
	byRole map[string]map[string]struct{}
}

func NewEvaluator() *Evaluator {
	byRole := make(map[string]map[string]struct{}, len(rolePermissions))
	for role, perms := range rolePermissions {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[strings.ToLower(p)] = struct{}{}
		}
		byRole[strings.ToLower(role)] = set
	}
	return &Evaluator{byRole: byRole}
}

// HasPermission reports whether the principal may perform the named
// permission. An empty name means no requirement was declared and is always
// allowed. An unauthenticated principal is denied any non-empty permission.
func (e *Evaluator) HasPermission(p *principal.Principal, permissionName string) bool {
	if permissionName == "" {
		return true
	}
	if !p.Authenticated() {
		return false
	}

	needle := strings.ToLower(permissionName)
	for _, claim := range p.Permissions() {
		if strings.ToLower(claim) == needle {
			return true
		}
	}
	for _, role := range p.Roles() {
		if set, ok := e.byRole[strings.ToLower(role)]; ok {
			if _, ok := set[needle]; ok {
				return true
			}
		}
	}
	return false
}

// RolePermissions returns the permissions bundled by a role, for claim
// issuance and admin UIs. Unknown roles yield nil.
func (e *Evaluator) RolePermissions(role string) []string {
	set, ok := e.byRole[strings.ToLower(role)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}
