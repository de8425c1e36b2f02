package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/globalbi/admin-api/internal/core/domain"
)

// DefaultCost is the bcrypt work factor for passwords and refresh tokens.
const DefaultCost = 10

// BcryptHasher implements ports.PasswordHasher.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// ErrPasswordTooLong is returned for input past bcrypt's 72-byte limit.
// Multibyte passwords reach it with fewer than 72 characters.
var ErrPasswordTooLong = domain.Errorf(domain.ErrValidation, "password must be at most 72 bytes")

func (h *BcryptHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
