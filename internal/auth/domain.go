package auth

import "errors"

// ErrInvalidCredentials indicates login failure. The handler never
// distinguishes unknown email from wrong password or inactive account.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Credential is the authentication slice of a user account.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
	IsActive     bool
}
