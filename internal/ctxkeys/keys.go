// Package ctxkeys defines typed context keys shared between middleware and
// handlers. This avoids import cycles: both middleware and handlers import
// this package, but neither imports the other for context key types.
package ctxkeys

import "context"

// Key is a typed string used as context key to prevent collisions.
type Key string

const (
	UserID      Key = "userID"
	UserRole    Key = "userRole"
	BranchScope Key = "branchScope"
)

// GetBranchScope returns the list of branch slugs the current user has
// access to. Returns nil for admin/super_admin (meaning "all branches").
func GetBranchScope(ctx context.Context) []string {
	v := ctx.Value(BranchScope)
	if v == nil {
		return nil
	}
	branches, _ := v.([]string)
	return branches
}

// IsGlobalScope returns true if the user has access to all branches
// (admin/super_admin).
func IsGlobalScope(ctx context.Context) bool {
	return ctx.Value(BranchScope) == nil
}

// ValidRoles lists all valid role strings.
var ValidRoles = map[string]bool{
	"viewer":      true,
	"manager":     true,
	"admin":       true,
	"super_admin": true,
}

// RoleLevel maps role names to permission levels.
var RoleLevel = map[string]int{
	"viewer":      1,
	"manager":     2,
	"admin":       3,
	"super_admin": 4,
}
