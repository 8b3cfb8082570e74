package access

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
)

// System role names. These roles are seeded at install time, cannot be
// renamed, re-permissioned or deleted, and grant full access implicitly.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

var nameFolder = cases.Fold()

// FoldName canonicalizes a role name for case-insensitive comparison.
func FoldName(name string) string {
	return nameFolder.String(name)
}

// IsSystemRoleName reports whether the given name belongs to a built-in
// role, ignoring case.
func IsSystemRoleName(name string) bool {
	folded := FoldName(name)
	return folded == RoleAdmin || folded == RoleManager
}

// Role is a named, persisted collection of permission sets, exactly one
// per known module.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []PermissionSet
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsSystem reports whether the role is one of the built-in roles.
func (r Role) IsSystem() bool {
	return IsSystemRoleName(r.Name)
}

// Permission returns the permission set for the given module.
func (r Role) Permission(m Module) (PermissionSet, bool) {
	for _, p := range r.Permissions {
		if p.Module == m {
			return p, true
		}
	}
	return PermissionSet{}, false
}

// ValidatePermissions checks a full permission grid: exactly one set per
// known module, no unknown modules, the action-implies-view invariant,
// and the accessManagement restriction. The restriction is bound to the
// system-role flag rather than the role's current name so that renaming
// can never grant the privilege.
func ValidatePermissions(sets []PermissionSet, system bool) error {
	seen := make(map[Module]bool, len(sets))
	for _, p := range sets {
		if _, err := ParseModule(string(p.Module)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
		if seen[p.Module] {
			return fmt.Errorf("%w: duplicate permission set for module %s", ErrInvariantViolation, p.Module)
		}
		seen[p.Module] = true
		if p.RequiresView() && !p.CanView {
			return fmt.Errorf("%w: module %s grants actions without view", ErrInvariantViolation, p.Module)
		}
		if p.Module == ModuleAccessManagement && p.RequiresView() && !system {
			return fmt.Errorf("%w: accessManagement actions reserved for system roles", ErrInvariantViolation)
		}
	}
	for _, m := range Modules() {
		if !seen[m] {
			return fmt.Errorf("%w: missing permission set for module %s", ErrInvariantViolation, m)
		}
	}
	return nil
}

// Actor is the administrative user on whose behalf a check or mutation
// runs. It is an explicit value passed to every call, never ambient
// process state, so tests can use synthetic actors.
type Actor struct {
	ID       string
	Name     string
	Email    string
	RoleName string
	IsActive bool
}
