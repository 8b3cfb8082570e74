package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/access"
	"github.com/clinicore/clinicore/internal/audit"
	"github.com/clinicore/clinicore/internal/platform/db"
)

// PGRepository provides PostgreSQL backed user persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, name, email, role_name, is_active, created_at, updated_at`

// GetUser fetches a user by ID.
func (r *PGRepository) GetUser(ctx context.Context, id string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ListUsers returns all users ordered by name.
func (r *PGRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
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

func (r *pgTxRepository) SetUserRole(ctx context.Context, userID, roleName string, isActive bool, updatedAt time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE users SET role_name = $2, is_active = $3, updated_at = $4 WHERE id = $1`,
		userID, roleName, isActive, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return access.ErrNotFound
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

func scanUser(row pgx.Row) (User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.RoleName, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, access.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}
