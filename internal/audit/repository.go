package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads the access log from PostgreSQL. Appends happen in
// the mutation transactions of the access and users packages; this side
// only ever reads.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListEntries returns log entries in descending creation order. A limit
// of zero returns everything.
func (r *PGRepository) ListEntries(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, actor_id, action, target_type, target_id, details, created_at
	          FROM access_log ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var action, target string
		if err := rows.Scan(&e.ID, &e.ActorID, &action, &target, &e.TargetID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		e.TargetType = TargetType(target)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
