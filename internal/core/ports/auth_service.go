package ports

import (
	"context"

	"github.com/globalbi/admin-api/internal/core/domain"
)

// RegisterInput carries a self-service or MASTER-driven registration.
type RegisterInput struct {
	Name            string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User         domain.SafeUser `json:"user"`
	Role         string          `json:"role"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

// RefreshResult always carries a new access token. RefreshToken is set only
// when rotation is enabled.
type RefreshResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type AuthService interface {
	// Register creates a user. requesterID is the caller's user id and is
	// empty for unauthenticated callers.
	Register(ctx context.Context, in RegisterInput, requesterID string) (*domain.SafeUser, error)
	Login(ctx context.Context, identifier, password string) (*LoginResult, error)
	// Refresh verifies a refresh token and mints a new access token.
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
	Logout(ctx context.Context, userID string) error
	// Authenticate verifies an access token.
	Authenticate(ctx context.Context, accessToken string) (*domain.Claims, error)
}
