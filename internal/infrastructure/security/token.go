package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/globalbi/admin-api/internal/core/domain"
)

// tokenClaims is the JWT payload: {sub, role, email} plus iat/exp.
type tokenClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens with a single secret.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

// Sign issues a token for claims that expires after ttl.
func (i *TokenIssuer) Sign(claims domain.Claims, ttl time.Duration) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("token issuer: empty secret")
	}
	now := i.now()
	tc := tokenClaims{
		Role:  claims.Role,
		Email: claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(i.secret)
}

// Verify parses token, checking algorithm, signature and expiry.
func (i *TokenIssuer) Verify(token string) (*domain.Claims, error) {
	var tc tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return i.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid || tc.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Claims{Subject: tc.Subject, Role: tc.Role, Email: tc.Email}, nil
}
