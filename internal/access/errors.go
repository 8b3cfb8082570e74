package access

import "errors"

var (
	// ErrNotFound indicates the referenced role or user does not exist.
	ErrNotFound = errors.New("access: not found")
	// ErrDuplicateName indicates a case-insensitive role name collision.
	ErrDuplicateName = errors.New("access: role name already exists")
	// ErrImmutableRole indicates an attempt to rename, re-permission or
	// delete a system role.
	ErrImmutableRole = errors.New("access: system role is immutable")
	// ErrInvariantViolation indicates a permission set with action
	// capabilities but no view, or accessManagement actions on a
	// non-system role.
	ErrInvariantViolation = errors.New("access: permission invariant violated")
	// ErrAuditWrite indicates the audit append paired with a mutation
	// could not be persisted; the mutation is rolled back.
	ErrAuditWrite = errors.New("access: audit write failed")
)
