package users

import "time"

// User is an administrative account. Identity and profile are owned by
// user management; this package also carries the user's single role
// binding (role name plus active flag). Reassigning the role is an
// overwrite, never an addition.
type User struct {
	ID        string
	Name      string
	Email     string
	RoleName  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
