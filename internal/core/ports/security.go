package ports

import (
	"context"
	"time"

	"github.com/globalbi/admin-api/internal/core/domain"
)

// TokenIssuer signs and verifies one class of bearer tokens. Access and
// refresh tokens use two issuers with independent secrets.
type TokenIssuer interface {
	Sign(claims domain.Claims, ttl time.Duration) (string, error)
	// Verify checks signature and expiry and returns domain.ErrInvalidToken
	// on any failure.
	Verify(token string) (*domain.Claims, error)
}

// PasswordHasher is a one-way salted hash.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Compare returns nil only when plain matches hash.
	Compare(hash, plain string) error
}

// LoginThrottle counts failed logins per identifier.
type LoginThrottle interface {
	Locked(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}
