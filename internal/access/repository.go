package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/audit"
	"github.com/clinicore/clinicore/internal/platform/db"
)

// PGRepository provides PostgreSQL backed role persistence. Role names
// are stored alongside a case-folded copy carrying the unique index, so
// uniqueness is enforced by the database as well as by the service.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type permissionRecord struct {
	Module    string `json:"module"`
	CanView   bool   `json:"can_view"`
	CanCreate bool   `json:"can_create"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
}

const roleColumns = `id, name, description, permissions, created_at, updated_at`

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

// GetRoleByName fetches a role by case-insensitive name.
func (r *PGRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name_folded = $1`, FoldName(name))
	return scanRole(row)
}

// ListRoles returns all roles ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name_folded`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// WithTx runs fn against transaction-scoped writers.
func (r *PGRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) InsertRole(ctx context.Context, role Role) error {
	perms, err := marshalPermissions(role.Permissions)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx,
		`INSERT INTO roles (id, name, name_folded, description, permissions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		role.ID, role.Name, FoldName(role.Name), role.Description, perms, role.CreatedAt, role.UpdatedAt)
	return mapRoleError(err)
}

func (r *pgTxRepository) UpdateRole(ctx context.Context, role Role) error {
	perms, err := marshalPermissions(role.Permissions)
	if err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx,
		`UPDATE roles SET name = $2, name_folded = $3, description = $4, permissions = $5, updated_at = $6 WHERE id = $1`,
		role.ID, role.Name, FoldName(role.Name), role.Description, perms, role.UpdatedAt)
	if err != nil {
		return mapRoleError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgTxRepository) DeleteRole(ctx context.Context, id string) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgTxRepository) AppendLog(ctx context.Context, entry audit.Entry) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO access_log (id, actor_id, action, target_type, target_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.ActorID, string(entry.Action), string(entry.TargetType), entry.TargetID, entry.Details, entry.CreatedAt)
	return err
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	var raw []byte
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &raw, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	perms, err := unmarshalPermissions(raw)
	if err != nil {
		return Role{}, fmt.Errorf("access: role %s: %w", role.ID, err)
	}
	role.Permissions = perms
	return role, nil
}

func marshalPermissions(sets []PermissionSet) ([]byte, error) {
	records := make([]permissionRecord, 0, len(sets))
	for _, p := range sets {
		records = append(records, permissionRecord{
			Module:    string(p.Module),
			CanView:   p.CanView,
			CanCreate: p.CanCreate,
			CanEdit:   p.CanEdit,
			CanDelete: p.CanDelete,
		})
	}
	return json.Marshal(records)
}

func unmarshalPermissions(raw []byte) ([]PermissionSet, error) {
	var records []permissionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	sets := make([]PermissionSet, 0, len(records))
	for _, rec := range records {
		module, err := ParseModule(rec.Module)
		if err != nil {
			return nil, err
		}
		sets = append(sets, PermissionSet{
			Module:    module,
			CanView:   rec.CanView,
			CanCreate: rec.CanCreate,
			CanEdit:   rec.CanEdit,
			CanDelete: rec.CanDelete,
		})
	}
	return sets, nil
}

func mapRoleError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return err
}
