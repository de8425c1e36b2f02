package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthConfig holds token lifetimes and the refresh rotation switch.
type AuthConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotateRefresh bool
}

// AuthDeps groups the collaborators of AuthService. Throttle is optional.
type AuthDeps struct {
	Users    ports.UserRepository
	Roles    ports.RoleRepository
	Hasher   ports.PasswordHasher
	Access   ports.TokenIssuer
	Refresh  ports.TokenIssuer
	Throttle ports.LoginThrottle
}

// AuthService implements registration, login, refresh and logout.
type AuthService struct {
	users    ports.UserRepository
	roles    ports.RoleRepository
	hasher   ports.PasswordHasher
	access   ports.TokenIssuer
	refresh  ports.TokenIssuer
	throttle ports.LoginThrottle
	policy   accessPolicy
	cfg      AuthConfig
	log      zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(deps AuthDeps, cfg AuthConfig, log zerolog.Logger) *AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &AuthService{
		users:    deps.Users,
		roles:    deps.Roles,
		hasher:   deps.Hasher,
		access:   deps.Access,
		refresh:  deps.Refresh,
		throttle: deps.Throttle,
		policy:   accessPolicy{users: deps.Users},
		cfg:      cfg,
		log:      log,
	}
}

// Register creates a user. The very first user needs no caller and receives
// the bootstrap role; every later registration must come from a MASTER and
// receives the default role. requesterID is empty for anonymous callers and
// the caller's role is read from the store, not from its token.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput, requesterID string) (*domain.SafeUser, error) {
	if in.Password != in.ConfirmPassword {
		return nil, domain.ErrPasswordMismatch
	}
	if err := ensureUniqueIdentity(ctx, s.users, in.Email, in.Username, ""); err != nil {
		return nil, err
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		user, err := s.createWithRole(ctx, in, domain.BootstrapRoleName, s.users.CreateFirst)
		if !errors.Is(err, domain.ErrAlreadyBootstrapped) {
			return user, err
		}
		s.log.Info().Str("email", in.Email).Msg("first user registered concurrently")
	}

	if requesterID == "" {
		return nil, domain.ErrBootstrapOnly
	}
	if _, err := s.policy.requireBootstrap(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.createWithRole(ctx, in, domain.DefaultRoleName, s.users.Create)
}

func (s *AuthService) createWithRole(
	ctx context.Context,
	in ports.RegisterInput,
	roleName string,
	create func(context.Context, domain.NewUser) (*domain.SafeUser, error),
) (*domain.SafeUser, error) {
	role, err := s.seededRole(ctx, roleName)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := create(ctx, domain.NewUser{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		RoleID:       role.ID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", role.Name).Bool("bootstrap", roleName == domain.BootstrapRoleName).Msg("user registered")
	return user, nil
}

// seededRole loads a role the seed is responsible for creating.
func (s *AuthService) seededRole(ctx context.Context, name string) (*domain.Role, error) {
	role, err := s.roles.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrConfiguration, "role %s not found, run the seed first", name)
		}
		return nil, err
	}
	return role, nil
}

// Login verifies an email-or-username plus password and issues a token pair.
// Unknown identifiers and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*ports.LoginResult, error) {
	if s.locked(ctx, identifier) {
		return nil, domain.ErrLoginLocked
	}

	creds, err := s.lookupCredentials(ctx, identifier)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		s.burnCompare(password)
		s.recordFailure(ctx, identifier)
		return nil, domain.ErrInvalidCredentials
	}

	if s.hasher.Compare(creds.PasswordHash, password) != nil {
		s.recordFailure(ctx, identifier)
		s.log.Info().Str("user_id", creds.User.ID).Msg("login failed")
		return nil, domain.ErrInvalidCredentials
	}
	s.resetFailures(ctx, identifier)

	claims := claimsFor(&creds.User)
	accessToken, err := s.access.Sign(claims, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.storeRefreshToken(ctx, claims)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", creds.User.ID).Str("role", creds.User.Role.Name).Msg("user logged in")
	return &ports.LoginResult{
		User:         creds.User,
		Role:         creds.User.Role.Name,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) lookupCredentials(ctx context.Context, identifier string) (*domain.Credentials, error) {
	if emailPattern.MatchString(identifier) {
		return s.users.CredentialsByEmail(ctx, identifier)
	}
	return s.users.CredentialsByUsername(ctx, identifier)
}

// burnCompare spends one bcrypt comparison so a miss costs as much as a
// wrong password.
func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("dummy-password-for-timing")
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}

// storeRefreshToken signs a refresh token and replaces the stored hash.
func (s *AuthService) storeRefreshToken(ctx context.Context, claims domain.Claims) (string, error) {
	token, err := s.refresh.Sign(claims, s.cfg.RefreshTTL)
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(tokenDigest(token))
	if err != nil {
		return "", err
	}
	if err := s.users.SetRefreshTokenHash(ctx, claims.Subject, &hash); err != nil {
		return "", err
	}
	return token, nil
}

// Refresh mints a new access token from a refresh token that is validly
// signed, unexpired, and matches the hash stored for its subject.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.RefreshResult, error) {
	claims, err := s.refresh.Verify(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}

	creds, err := s.users.CredentialsByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if creds.RefreshTokenHash == nil || s.hasher.Compare(*creds.RefreshTokenHash, tokenDigest(refreshToken)) != nil {
		s.log.Warn().Str("user_id", claims.Subject).Msg("refresh token rejected")
		return nil, domain.ErrInvalidRefreshToken
	}

	current := claimsFor(&creds.User)
	accessToken, err := s.access.Sign(current, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	res := &ports.RefreshResult{AccessToken: accessToken}

	if s.cfg.RotateRefresh {
		res.RefreshToken, err = s.storeRefreshToken(ctx, current)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Logout clears the stored refresh hash. Calling it again is a no-op.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshTokenHash(ctx, userID, nil); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	s.log.Info().Str("user_id", userID).Msg("user logged out")
	return nil
}

// Authenticate verifies an access token.
func (s *AuthService) Authenticate(_ context.Context, accessToken string) (*domain.Claims, error) {
	return s.access.Verify(accessToken)
}

func (s *AuthService) locked(ctx context.Context, identifier string) bool {
	if s.throttle == nil {
		return false
	}
	locked, err := s.throttle.Locked(ctx, identifier)
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle check failed, allowing attempt")
		return false
	}
	return locked
}

func (s *AuthService) recordFailure(ctx context.Context, identifier string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, identifier); err != nil {
		s.log.Warn().Err(err).Msg("login throttle record failed")
	}
}

func (s *AuthService) resetFailures(ctx context.Context, identifier string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Reset(ctx, identifier); err != nil {
		s.log.Warn().Err(err).Msg("login throttle reset failed")
	}
}

func claimsFor(u *domain.SafeUser) domain.Claims {
	return domain.Claims{Subject: u.ID, Role: u.Role.Name, Email: u.Email}
}

// tokenDigest shortens a token to a fixed 64-byte hex string so that bcrypt,
// which reads at most 72 bytes, hashes all of it.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ensureUniqueIdentity pre-checks email and username. selfID is excluded so
// updates can keep their own values. The store remains the authority.
func ensureUniqueIdentity(ctx context.Context, users ports.UserRepository, email, username, selfID string) error {
	if email != "" {
		u, err := users.FindByEmail(ctx, email)
		if err == nil && u.ID != selfID {
			return domain.ErrEmailTaken
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	if username != "" {
		u, err := users.FindByUsername(ctx, username)
		if err == nil && u.ID != selfID {
			return domain.ErrUsernameTaken
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}
