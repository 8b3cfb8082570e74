package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/access"
	"github.com/clinicore/clinicore/internal/audit"
)

// TxRepository groups the writes available inside one transaction.
type TxRepository interface {
	SetUserRole(ctx context.Context, userID, roleName string, isActive bool, updatedAt time.Time) error
	AppendLog(ctx context.Context, entry audit.Entry) error
}

// Repository provides user persistence.
type Repository interface {
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// Service handles user directory and role binding operations.
type Service struct {
	repo   Repository
	roles  access.RoleResolver
	logger *slog.Logger
	alerts access.Alerts
	now    func() time.Time
	newID  func() string
}

// NewService builds Service instance. alerts may be nil.
func NewService(repo Repository, roles access.RoleResolver, logger *slog.Logger, alerts access.Alerts) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		roles:  roles,
		logger: logger,
		alerts: alerts,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// AssignRole overwrites the user's role binding and active flag. Both
// the user and the role must exist. The binding change and its access
// log entry are committed as one transaction.
func (s *Service) AssignRole(ctx context.Context, actor *access.Actor, userID, roleName string, isActive bool) (User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	role, err := s.roles.GetRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, access.ErrNotFound) {
			return User{}, access.ErrNotFound
		}
		return User{}, err
	}

	now := s.now().UTC()
	details := fmt.Sprintf("Assigned role %s to user %s", role.Name, displayName(user))
	if !isActive {
		details = fmt.Sprintf("Assigned role %s to user %s (deactivated)", role.Name, displayName(user))
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetUserRole(ctx, userID, role.Name, isActive, now); err != nil {
			return err
		}
		return s.appendLog(ctx, tx, actor, audit.ActionUpdate, userID, details)
	})
	if err != nil {
		return User{}, err
	}
	user.RoleName = role.Name
	user.IsActive = isActive
	user.UpdatedAt = now
	return user, nil
}

// SetActive toggles the user's active flag without touching the role.
func (s *Service) SetActive(ctx context.Context, actor *access.Actor, userID string, isActive bool) (User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	verb := "Deactivated"
	if isActive {
		verb = "Activated"
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetUserRole(ctx, userID, user.RoleName, isActive, now); err != nil {
			return err
		}
		return s.appendLog(ctx, tx, actor, audit.ActionUpdate, userID,
			fmt.Sprintf("%s user %s", verb, displayName(user)))
	})
	if err != nil {
		return User{}, err
	}
	user.IsActive = isActive
	user.UpdatedAt = now
	return user, nil
}

func (s *Service) appendLog(ctx context.Context, tx TxRepository, actor *access.Actor, action audit.Action, targetID, details string) error {
	entry := audit.Entry{
		ID:         s.newID(),
		Action:     action,
		TargetType: audit.TargetUser,
		TargetID:   targetID,
		Details:    details,
		CreatedAt:  s.now().UTC(),
	}
	if actor != nil {
		entry.ActorID = actor.ID
	}
	if err := tx.AppendLog(ctx, entry); err != nil {
		s.logger.Error("audit append failed, rolling back mutation",
			slog.String("target_id", targetID),
			slog.Any("error", err))
		if s.alerts != nil {
			s.alerts.IncAuditWriteFailure()
		}
		return fmt.Errorf("%w: %v", access.ErrAuditWrite, err)
	}
	return nil
}

func displayName(u User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
