package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/access"
	"github.com/clinicore/clinicore/internal/audit"
)

type stubRoles struct {
	roles map[string]access.Role
}

func (s *stubRoles) GetRoleByName(ctx context.Context, name string) (access.Role, error) {
	role, ok := s.roles[access.FoldName(name)]
	if !ok {
		return access.Role{}, access.ErrNotFound
	}
	return role, nil
}

type mockRepository struct {
	users     map[string]User
	log       []audit.Entry
	appendErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[string]User)}
}

func (m *mockRepository) GetUser(ctx context.Context, id string) (User, error) {
	user, ok := m.users[id]
	if !ok {
		return User{}, access.ErrNotFound
	}
	return user, nil
}

func (m *mockRepository) ListUsers(ctx context.Context) ([]User, error) {
	list := make([]User, 0, len(m.users))
	for _, u := range m.users {
		list = append(list, u)
	}
	return list, nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	staged := &mockTxRepository{
		mock:  m,
		users: make(map[string]User, len(m.users)),
		log:   append([]audit.Entry(nil), m.log...),
	}
	for id, u := range m.users {
		staged.users[id] = u
	}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	m.users = staged.users
	m.log = staged.log
	return nil
}

type mockTxRepository struct {
	mock  *mockRepository
	users map[string]User
	log   []audit.Entry
}

func (t *mockTxRepository) SetUserRole(ctx context.Context, userID, roleName string, isActive bool, updatedAt time.Time) error {
	user, ok := t.users[userID]
	if !ok {
		return access.ErrNotFound
	}
	user.RoleName = roleName
	user.IsActive = isActive
	user.UpdatedAt = updatedAt
	t.users[userID] = user
	return nil
}

func (t *mockTxRepository) AppendLog(ctx context.Context, entry audit.Entry) error {
	if t.mock.appendErr != nil {
		return t.mock.appendErr
	}
	t.log = append(t.log, entry)
	return nil
}

func newTestService(repo *mockRepository, roles *stubRoles) *Service {
	svc := NewService(repo, roles, nil, nil)
	base := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	seq := 0
	svc.now = func() time.Time {
		seq++
		return base.Add(time.Duration(seq) * time.Second)
	}
	id := 0
	svc.newID = func() string {
		id++
		return fmt.Sprintf("log-%d", id)
	}
	return svc
}

func nurseRole() access.Role {
	perms := access.DefaultTemplate()
	return access.Role{ID: "role-1", Name: "nurse", Permissions: perms}
}

func seedUser(repo *mockRepository, id, name string) User {
	user := User{ID: id, Name: name, Email: name + "@clinic.test", IsActive: true}
	repo.users[id] = user
	return user
}

func adminActor() *access.Actor {
	return &access.Actor{ID: "admin-1", Name: "Root", RoleName: access.RoleAdmin, IsActive: true}
}

func TestAssignRoleUnknownUser(t *testing.T) {
	repo := newMockRepository()
	roles := &stubRoles{roles: map[string]access.Role{"nurse": nurseRole()}}
	svc := newTestService(repo, roles)

	_, err := svc.AssignRole(context.Background(), adminActor(), "ghost", "nurse", true)
	require.ErrorIs(t, err, access.ErrNotFound)
}

func TestAssignRoleUnknownRole(t *testing.T) {
	repo := newMockRepository()
	seedUser(repo, "u1", "Bintou")
	svc := newTestService(repo, &stubRoles{roles: map[string]access.Role{}})

	_, err := svc.AssignRole(context.Background(), adminActor(), "u1", "nurse", true)
	require.ErrorIs(t, err, access.ErrNotFound)
	require.Empty(t, repo.log)
}

func TestAssignRoleOverwritesBindingAndLogs(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(repo, "u1", "Bintou")
	user.RoleName = "receptionist"
	repo.users["u1"] = user
	roles := &stubRoles{roles: map[string]access.Role{"nurse": nurseRole()}}
	svc := newTestService(repo, roles)

	updated, err := svc.AssignRole(context.Background(), adminActor(), "u1", "NURSE", true)
	require.NoError(t, err)
	assert.Equal(t, "nurse", updated.RoleName, "binding stores the role's canonical name")
	assert.True(t, updated.IsActive)
	assert.Equal(t, "nurse", repo.users["u1"].RoleName)

	require.Len(t, repo.log, 1)
	entry := repo.log[0]
	assert.Equal(t, audit.ActionUpdate, entry.Action)
	assert.Equal(t, audit.TargetUser, entry.TargetType)
	assert.Equal(t, "u1", entry.TargetID)
	assert.Equal(t, "admin-1", entry.ActorID)
	assert.Equal(t, "Assigned role nurse to user Bintou", entry.Details)
}

func TestAssignRoleThenGateDecisions(t *testing.T) {
	repo := newMockRepository()
	seedUser(repo, "u1", "Bintou")
	roles := &stubRoles{roles: map[string]access.Role{"nurse": nurseRole()}}
	svc := newTestService(repo, roles)

	updated, err := svc.AssignRole(context.Background(), adminActor(), "u1", "nurse", true)
	require.NoError(t, err)

	gate := access.NewGate(roles, nil)
	nurse := &access.Actor{ID: updated.ID, RoleName: updated.RoleName, IsActive: updated.IsActive}
	assert.True(t, gate.Allows(context.Background(), nurse, access.ModuleDashboard, access.CapabilityView))
	assert.False(t, gate.Allows(context.Background(), nurse, access.ModuleBilling, access.CapabilityView))
}

func TestSetActiveDeactivatesAndLogs(t *testing.T) {
	repo := newMockRepository()
	user := seedUser(repo, "u1", "Bintou")
	user.RoleName = "nurse"
	repo.users["u1"] = user
	svc := newTestService(repo, &stubRoles{})

	updated, err := svc.SetActive(context.Background(), adminActor(), "u1", false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "nurse", updated.RoleName, "role binding survives deactivation")

	require.Len(t, repo.log, 1)
	assert.Equal(t, "Deactivated user Bintou", repo.log[0].Details)
}

func TestAssignRoleAuditFailureRollsBack(t *testing.T) {
	repo := newMockRepository()
	seedUser(repo, "u1", "Bintou")
	repo.appendErr = errors.New("disk full")
	roles := &stubRoles{roles: map[string]access.Role{"nurse": nurseRole()}}
	svc := newTestService(repo, roles)

	_, err := svc.AssignRole(context.Background(), adminActor(), "u1", "nurse", true)
	require.ErrorIs(t, err, access.ErrAuditWrite)
	assert.Empty(t, repo.users["u1"].RoleName, "binding must roll back with the failed audit write")
	assert.Empty(t, repo.log)
}
