package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core unwraps to exactly one of
// these, and the HTTP layer maps on the kind rather than on the message.
var (
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("access forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConfiguration   = errors.New("server misconfiguration")
	ErrTooManyAttempts = errors.New("too many attempts")
)

var (
	ErrInvalidCredentials  = newError(ErrUnauthenticated, "invalid credentials")
	ErrInvalidToken        = newError(ErrUnauthenticated, "invalid or expired token")
	ErrInvalidRefreshToken = newError(ErrUnauthenticated, "invalid refresh token")

	ErrPasswordMismatch = newError(ErrValidation, "passwords do not match")
	ErrSelfDeletion     = newError(ErrValidation, "you cannot delete yourself")
	ErrSameRole         = newError(ErrValidation, "source and target roles must differ")
	ErrNotGroupMember   = newError(ErrValidation, "user is not a member of this group")

	ErrEmailTaken     = newError(ErrConflict, "email already exists")
	ErrUsernameTaken  = newError(ErrConflict, "username already exists")
	ErrRoleNameTaken  = newError(ErrConflict, "role name already exists")
	ErrGroupNameTaken = newError(ErrConflict, "group name already exists")
	ErrAlreadyMember  = newError(ErrConflict, "user is already a member of this group")
	// ErrAlreadyBootstrapped is returned by CreateFirst once any user exists.
	ErrAlreadyBootstrapped = newError(ErrConflict, "first user already exists")

	ErrUserNotFound  = newError(ErrNotFound, "user not found")
	ErrRoleNotFound  = newError(ErrNotFound, "role not found")
	ErrGroupNotFound = newError(ErrNotFound, "group not found")

	ErrStaffOnly     = newError(ErrForbidden, "only staff users can perform this action")
	ErrBootstrapOnly = newError(ErrForbidden, "only "+BootstrapRoleName+" can perform this action")

	ErrLoginLocked = newError(ErrTooManyAttempts, "too many failed login attempts, try again later")
)

type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Errorf builds an error of the given kind with a formatted message.
func Errorf(kind error, format string, args ...any) error {
	return newError(kind, fmt.Sprintf(format, args...))
}

// KindOf returns the kind sentinel err unwraps to, or nil for foreign errors.
func KindOf(err error) error {
	for _, k := range []error{
		ErrValidation, ErrConflict, ErrUnauthenticated, ErrForbidden,
		ErrNotFound, ErrConfiguration, ErrTooManyAttempts,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
