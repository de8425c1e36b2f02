package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/globalbi/admin-api/internal/core/domain"
)

func TestTokenIssuer_SignVerify_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("access-secret")
	in := domain.Claims{Subject: "u-1", Role: domain.BootstrapRoleName, Email: "a@example.com"}

	token, err := issuer.Sign(in, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected three-segment token, got %q", token)
	}

	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if *got != in {
		t.Fatalf("claims mismatch: got %+v want %+v", *got, in)
	}
}

func TestTokenIssuer_Verify_WrongSecret(t *testing.T) {
	token, _ := NewTokenIssuer("access-secret").Sign(domain.Claims{Subject: "u-1"}, time.Minute)

	if _, err := NewTokenIssuer("refresh-secret").Verify(token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestTokenIssuer_Verify_Expired(t *testing.T) {
	issuer := NewTokenIssuer("secret")
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := issuer.Sign(domain.Claims{Subject: "u-1"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_Verify_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewTokenIssuer("secret").Verify(signed); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

func TestTokenIssuer_Verify_Garbage(t *testing.T) {
	if _, err := NewTokenIssuer("secret").Verify("not-a-token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_Sign_EmptySecret(t *testing.T) {
	if _, err := NewTokenIssuer("").Sign(domain.Claims{Subject: "u-1"}, time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("expected hashed value")
	}
	if err := h.Compare(hash, "s3cret"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := h.Compare(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	if h := NewBcryptHasher(0); h.cost != DefaultCost {
		t.Fatalf("expected cost %d, got %d", DefaultCost, h.cost)
	}
}

func TestBcryptHasher_MultibytePasswordOverLimit(t *testing.T) {
	h := NewBcryptHasher(4)

	// 40 characters, 80 bytes.
	_, err := h.Hash(strings.Repeat("é", 40))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "password must be at most 72 bytes" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if _, err := h.Hash(strings.Repeat("é", 36)); err != nil {
		t.Fatalf("72 bytes should hash: %v", err)
	}
}
