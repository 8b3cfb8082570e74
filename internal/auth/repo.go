package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed credential lookup.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetCredentialByEmail fetches the credential record for an email.
func (r *Repository) GetCredentialByEmail(ctx context.Context, email string) (Credential, error) {
	var cred Credential
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, is_active FROM users WHERE lower(email) = lower($1)`,
		email).Scan(&cred.UserID, &cred.Email, &cred.PasswordHash, &cred.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, ErrInvalidCredentials
		}
		return Credential{}, err
	}
	return cred, nil
}
