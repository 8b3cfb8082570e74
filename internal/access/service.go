package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/audit"
)

// RoleReader exposes read access to persisted roles.
type RoleReader interface {
	GetRole(ctx context.Context, id string) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
}

// TxRepository groups the writes available inside one transaction. A
// role mutation and its audit append always travel together: if the
// append fails the surrounding transaction rolls back.
type TxRepository interface {
	InsertRole(ctx context.Context, role Role) error
	UpdateRole(ctx context.Context, role Role) error
	DeleteRole(ctx context.Context, id string) error
	AppendLog(ctx context.Context, entry audit.Entry) error
}

// Repository provides role persistence.
type Repository interface {
	RoleReader
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// Alerts receives operational signals that deserve more than a log line.
type Alerts interface {
	IncAuditWriteFailure()
}

// Service implements the role store operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	alerts Alerts
	now    func() time.Time
	newID  func() string
}

// NewService builds a Service instance. alerts may be nil.
func NewService(repo Repository, logger *slog.Logger, alerts Alerts) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		alerts: alerts,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// CreateRoleInput carries the fields of a role creation request.
type CreateRoleInput struct {
	Name        string
	Description string
	Permissions []PermissionSet
}

// CreateRole validates and persists a new role, recording the creation
// in the access log within the same transaction.
func (s *Service) CreateRole(ctx context.Context, actor *Actor, input CreateRoleInput) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", ErrInvariantViolation)
	}
	perms := input.Permissions
	if len(perms) == 0 {
		perms = DefaultTemplate()
	}
	if err := ValidatePermissions(perms, IsSystemRoleName(name)); err != nil {
		return Role{}, err
	}
	if _, err := s.repo.GetRoleByName(ctx, name); err == nil {
		return Role{}, ErrDuplicateName
	} else if !errors.Is(err, ErrNotFound) {
		return Role{}, err
	}

	now := s.now().UTC()
	role := Role{
		ID:          s.newID(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertRole(ctx, role); err != nil {
			return err
		}
		return s.appendLog(ctx, tx, actor, audit.ActionCreate, audit.TargetRole, role.ID,
			fmt.Sprintf("Created role %s", role.Name))
	})
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// UpdateRole persists changes to an existing role. System roles reject
// any name or permission change.
func (s *Service) UpdateRole(ctx context.Context, actor *Actor, role Role) (Role, error) {
	existing, err := s.repo.GetRole(ctx, role.ID)
	if err != nil {
		return Role{}, err
	}
	name := strings.TrimSpace(role.Name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", ErrInvariantViolation)
	}
	if existing.IsSystem() {
		if name != existing.Name || !permissionsEqual(role.Permissions, existing.Permissions) {
			return Role{}, ErrImmutableRole
		}
	}
	if err := ValidatePermissions(role.Permissions, existing.IsSystem()); err != nil {
		return Role{}, err
	}
	if other, err := s.repo.GetRoleByName(ctx, name); err == nil {
		if other.ID != role.ID {
			return Role{}, ErrDuplicateName
		}
	} else if !errors.Is(err, ErrNotFound) {
		return Role{}, err
	}

	updated := existing
	updated.Name = name
	updated.Description = strings.TrimSpace(role.Description)
	updated.Permissions = role.Permissions
	updated.UpdatedAt = s.now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateRole(ctx, updated); err != nil {
			return err
		}
		return s.appendLog(ctx, tx, actor, audit.ActionUpdate, audit.TargetRole, updated.ID,
			fmt.Sprintf("Updated role %s", updated.Name))
	})
	if err != nil {
		return Role{}, err
	}
	return updated, nil
}

// DeleteRole removes a non-system role. Users still referencing the
// deleted role keep a dangling name that the gate resolves as no access.
func (s *Service) DeleteRole(ctx context.Context, actor *Actor, id string) error {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem() {
		return ErrImmutableRole
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteRole(ctx, id); err != nil {
			return err
		}
		return s.appendLog(ctx, tx, actor, audit.ActionDelete, audit.TargetRole, id,
			fmt.Sprintf("Deleted role %s", existing.Name))
	})
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id string) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *Service) appendLog(ctx context.Context, tx TxRepository, actor *Actor, action audit.Action, target audit.TargetType, targetID, details string) error {
	entry := audit.Entry{
		ID:         s.newID(),
		Action:     action,
		TargetType: target,
		TargetID:   targetID,
		Details:    details,
		CreatedAt:  s.now().UTC(),
	}
	if actor != nil {
		entry.ActorID = actor.ID
	}
	if err := tx.AppendLog(ctx, entry); err != nil {
		s.logger.Error("audit append failed, rolling back mutation",
			slog.String("action", string(action)),
			slog.String("target_id", targetID),
			slog.Any("error", err))
		if s.alerts != nil {
			s.alerts.IncAuditWriteFailure()
		}
		return fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}
	return nil
}

func permissionsEqual(a, b []PermissionSet) bool {
	if len(a) != len(b) {
		return false
	}
	byModule := make(map[Module]PermissionSet, len(b))
	for _, p := range b {
		byModule[p.Module] = p
	}
	for _, p := range a {
		if byModule[p.Module] != p {
			return false
		}
	}
	return true
}
