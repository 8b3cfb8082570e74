package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// CredentialStore looks up stored credentials.
type CredentialStore interface {
	GetCredentialByEmail(ctx context.Context, email string) (Credential, error)
}

// Service verifies credentials.
type Service struct {
	repo CredentialStore
}

// NewService builds Service instance.
func NewService(repo CredentialStore) *Service {
	return &Service{repo: repo}
}

// Authenticate checks email and password and returns the user ID on
// success. Inactive accounts fail like wrong passwords.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	cred, err := s.repo.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !cred.IsActive {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return cred.UserID, nil
}

// HashPassword produces a bcrypt hash for seeding and account creation.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
