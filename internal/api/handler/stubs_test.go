package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/globalbi/admin-api/internal/api/middleware"
	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

const (
	masterID = "7d1f7a3e-8f0e-4b7e-9a53-2b2d3c6a9e01"
	userID   = "1c9a0f55-3d2b-4c7e-8e0f-5a6b7c8d9e02"
	roleA    = "0b8e9d2c-1a3f-4e5d-9c7b-6a5f4e3d2c03"
	roleB    = "4f3e2d1c-0b9a-4877-a6b5-c4d3e2f1a004"
	groupID  = "9e8d7c6b-5a4f-4e2d-8c1b-0a9f8e7d6c05"
)

// newTestContext builds an echo context with the validator registered and,
// when actor is non-empty, the claims Auth would have injected.
func newTestContext(method, target, body, actor, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if actor != "" {
		c.Set(middleware.CtxUserID, actor)
		c.Set(middleware.CtxRole, role)
	}
	return c, rec
}

func expectHTTPError(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError with %d, got %v", code, err)
	}
	if he.Code != code {
		t.Fatalf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
	return he
}

// --- AuthService ---

type stubAuthService struct {
	registerFn     func(ctx context.Context, in ports.RegisterInput, requesterID string) (*domain.SafeUser, error)
	loginFn        func(ctx context.Context, identifier, password string) (*ports.LoginResult, error)
	refreshFn      func(ctx context.Context, token string) (*ports.RefreshResult, error)
	logoutFn       func(ctx context.Context, userID string) error
	authenticateFn func(ctx context.Context, token string) (*domain.Claims, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput, requesterID string) (*domain.SafeUser, error) {
	return s.registerFn(ctx, in, requesterID)
}

func (s *stubAuthService) Login(ctx context.Context, identifier, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, identifier, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (*ports.RefreshResult, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubAuthService) Logout(ctx context.Context, userID string) error {
	return s.logoutFn(ctx, userID)
}

func (s *stubAuthService) Authenticate(ctx context.Context, token string) (*domain.Claims, error) {
	return s.authenticateFn(ctx, token)
}

// --- UserService ---

type stubUserService struct {
	createFn func(ctx context.Context, actorID string, in ports.CreateUserInput) (*domain.SafeUser, error)
	listFn   func(ctx context.Context, actorID string) ([]domain.SafeUser, error)
	getFn    func(ctx context.Context, actorID, id string) (*domain.SafeUser, error)
	updateFn func(ctx context.Context, actorID, id string, in ports.UpdateUserInput) (*domain.SafeUser, error)
	deleteFn func(ctx context.Context, actorID, id string) (*domain.SafeUser, error)
}

func (s *stubUserService) Create(ctx context.Context, actorID string, in ports.CreateUserInput) (*domain.SafeUser, error) {
	return s.createFn(ctx, actorID, in)
}

func (s *stubUserService) List(ctx context.Context, actorID string) ([]domain.SafeUser, error) {
	return s.listFn(ctx, actorID)
}

func (s *stubUserService) Get(ctx context.Context, actorID, id string) (*domain.SafeUser, error) {
	return s.getFn(ctx, actorID, id)
}

func (s *stubUserService) Update(ctx context.Context, actorID, id string, in ports.UpdateUserInput) (*domain.SafeUser, error) {
	return s.updateFn(ctx, actorID, id, in)
}

func (s *stubUserService) Delete(ctx context.Context, actorID, id string) (*domain.SafeUser, error) {
	return s.deleteFn(ctx, actorID, id)
}

// --- GroupService ---

type stubGroupService struct {
	createFn       func(ctx context.Context, actorID, name, description string) (*domain.Group, error)
	listFn         func(ctx context.Context, actorID string) ([]domain.Group, error)
	getFn          func(ctx context.Context, actorID, id string) (*domain.GroupDetail, error)
	updateFn       func(ctx context.Context, actorID, id string, patch domain.GroupPatch) (*domain.Group, error)
	deleteFn       func(ctx context.Context, actorID, id string) (*domain.Group, error)
	addMemberFn    func(ctx context.Context, actorID, groupID, userID string) (*domain.Membership, error)
	removeMemberFn func(ctx context.Context, actorID, groupID, userID string) error
	membersFn      func(ctx context.Context, actorID, groupID string) ([]domain.GroupMember, error)
}

func (s *stubGroupService) Create(ctx context.Context, actorID, name, description string) (*domain.Group, error) {
	return s.createFn(ctx, actorID, name, description)
}

func (s *stubGroupService) List(ctx context.Context, actorID string) ([]domain.Group, error) {
	return s.listFn(ctx, actorID)
}

func (s *stubGroupService) Get(ctx context.Context, actorID, id string) (*domain.GroupDetail, error) {
	return s.getFn(ctx, actorID, id)
}

func (s *stubGroupService) Update(ctx context.Context, actorID, id string, patch domain.GroupPatch) (*domain.Group, error) {
	return s.updateFn(ctx, actorID, id, patch)
}

func (s *stubGroupService) Delete(ctx context.Context, actorID, id string) (*domain.Group, error) {
	return s.deleteFn(ctx, actorID, id)
}

func (s *stubGroupService) AddMember(ctx context.Context, actorID, groupID, userID string) (*domain.Membership, error) {
	return s.addMemberFn(ctx, actorID, groupID, userID)
}

func (s *stubGroupService) RemoveMember(ctx context.Context, actorID, groupID, userID string) error {
	return s.removeMemberFn(ctx, actorID, groupID, userID)
}

func (s *stubGroupService) Members(ctx context.Context, actorID, groupID string) ([]domain.GroupMember, error) {
	return s.membersFn(ctx, actorID, groupID)
}

// --- RoleService ---

type stubRoleService struct {
	createFn  func(ctx context.Context, actorID string, in ports.CreateRoleInput) (*domain.Role, error)
	listFn    func(ctx context.Context, actorID string) ([]domain.Role, error)
	getFn     func(ctx context.Context, actorID, id string) (*domain.Role, error)
	updateFn  func(ctx context.Context, actorID, id string, patch domain.RolePatch) (*domain.Role, error)
	deleteFn  func(ctx context.Context, actorID, id string) (*domain.Role, error)
	migrateFn func(ctx context.Context, actorID, from, to string) (*domain.MigrationResult, error)
}

func (s *stubRoleService) Create(ctx context.Context, actorID string, in ports.CreateRoleInput) (*domain.Role, error) {
	return s.createFn(ctx, actorID, in)
}

func (s *stubRoleService) List(ctx context.Context, actorID string) ([]domain.Role, error) {
	return s.listFn(ctx, actorID)
}

func (s *stubRoleService) Get(ctx context.Context, actorID, id string) (*domain.Role, error) {
	return s.getFn(ctx, actorID, id)
}

func (s *stubRoleService) Update(ctx context.Context, actorID, id string, patch domain.RolePatch) (*domain.Role, error) {
	return s.updateFn(ctx, actorID, id, patch)
}

func (s *stubRoleService) Delete(ctx context.Context, actorID, id string) (*domain.Role, error) {
	return s.deleteFn(ctx, actorID, id)
}

func (s *stubRoleService) Migrate(ctx context.Context, actorID, from, to string) (*domain.MigrationResult, error) {
	return s.migrateFn(ctx, actorID, from, to)
}

func (s *stubRoleService) EnsureDefaults(context.Context) ([]domain.Role, error) {
	return domain.DefaultRoles(), nil
}
