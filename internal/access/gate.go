package access

import (
	"context"
	"errors"
	"log/slog"
)

// RoleResolver looks up the current state of a role by name. The gate
// resolves on every check so that a role edit takes effect on the next
// decision without session invalidation.
type RoleResolver interface {
	GetRoleByName(ctx context.Context, name string) (Role, error)
}

// Gate is the authorization decision point consulted by every feature
// area before exposing a view or a mutating affordance.
type Gate struct {
	roles  RoleResolver
	logger *slog.Logger
}

// NewGate constructs a Gate.
func NewGate(roles RoleResolver, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{roles: roles, logger: logger}
}

// Allows decides whether the actor may exercise the capability on the
// module. The decision is side-effect-free and safe to call concurrently
// with mutations; it reads a snapshot and holds no lock.
//
// Denials, in order: nil or inactive actor; dangling role reference;
// missing permission set for the module. A resolver failure is treated
// as a denial rather than an error so a storage hiccup can never widen
// access.
func (g *Gate) Allows(ctx context.Context, actor *Actor, m Module, c Capability) bool {
	if actor == nil || !actor.IsActive {
		return false
	}
	role, err := g.roles.GetRoleByName(ctx, actor.RoleName)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			g.logger.Warn("gate resolve role", slog.String("role", actor.RoleName), slog.Any("error", err))
		}
		return false
	}
	if role.IsSystem() {
		return true
	}
	perm, ok := role.Permission(m)
	if !ok {
		return false
	}
	return perm.Allows(c)
}
