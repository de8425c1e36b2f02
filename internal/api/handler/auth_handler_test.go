package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

const validRegistration = `{"name":"Alice","username":"alice","email":"alice@example.com","password":"secret1","confirmPassword":"secret1"}`

func TestAuthHandler_Register_Bootstrap(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput, requesterID string) (*domain.SafeUser, error) {
			if in.Username != "alice" || in.Email != "alice@example.com" || in.ConfirmPassword != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if requesterID != "" {
				t.Fatalf("anonymous request should carry no caller, got %q", requesterID)
			}
			return &domain.SafeUser{ID: masterID, Username: in.Username, Role: domain.RoleRef{Name: domain.BootstrapRoleName, StaffStatus: true}}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(http.MethodPost, "/auth/register", validRegistration, "", "")
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["username"] != "alice" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password material: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_PassesCallerID(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput, requesterID string) (*domain.SafeUser, error) {
			if requesterID != masterID {
				t.Fatalf("expected caller %q, got %q", masterID, requesterID)
			}
			return &domain.SafeUser{ID: userID, Username: in.Username}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(http.MethodPost, "/auth/register", validRegistration, masterID, domain.BootstrapRoleName)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_ServiceError(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput, requesterID string) (*domain.SafeUser, error) {
			return nil, domain.ErrEmailTaken
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(http.MethodPost, "/auth/register", validRegistration, "", "")
	if err := h.Register(c); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput, requesterID string) (*domain.SafeUser, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	cases := map[string]string{
		"not json":       "not-json",
		"missing fields": `{"username":"bob"}`,
		"bad email":      `{"name":"Bob","username":"bob","email":"bob","password":"secret1","confirmPassword":"secret1"}`,
		"short password": `{"name":"Bob","username":"bob","email":"bob@example.com","password":"123","confirmPassword":"123"}`,
	}
	for name, body := range cases {
		c, _ := newTestContext(http.MethodPost, "/auth/register", body, "", "")
		err := h.Register(c)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		expectHTTPError(t, err, http.StatusBadRequest)
	}
}

func TestAuthHandler_Register_ValidationMessageUsesJSONNames(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, _ := newTestContext(http.MethodPost, "/auth/register",
		`{"name":"Bob","username":"bob","email":"bob@example.com","password":"secret1"}`, "", "")
	he := expectHTTPError(t, h.Register(c), http.StatusBadRequest)
	if msg, _ := he.Message.(string); msg != "confirmPassword is required" {
		t.Fatalf("unexpected message %q", he.Message)
	}
}

func TestAuthHandler_Register_PasswordByteLimit(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	long := strings.Repeat("é", 40)
	body := `{"name":"Bob","username":"bob","email":"bob@example.com","password":"` + long + `","confirmPassword":"` + long + `"}`
	c, _ := newTestContext(http.MethodPost, "/auth/register", body, "", "")
	he := expectHTTPError(t, h.Register(c), http.StatusBadRequest)
	if msg, _ := he.Message.(string); msg != "password must be at most 72 bytes" {
		t.Fatalf("unexpected message %q", he.Message)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, identifier, password string) (*ports.LoginResult, error) {
			if identifier != "alice" || password != "secret1" {
				t.Fatalf("unexpected args: %s %s", identifier, password)
			}
			return &ports.LoginResult{
				User:         domain.SafeUser{ID: masterID, Username: "alice"},
				Role:         domain.BootstrapRoleName,
				AccessToken:  "access123",
				RefreshToken: "refresh123",
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"identifier":"alice","password":"secret1"}`, "", "")
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["accessToken"] != "access123" || resp["refreshToken"] != "refresh123" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}
	if resp["role"] != domain.BootstrapRoleName {
		t.Fatalf("unexpected role: %v", resp["role"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, identifier, password string) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(http.MethodPost, "/auth/login", `{"identifier":"alice@example.com","password":"bad"}`, "", "")
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, identifier, password string) (*ports.LoginResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	for _, body := range []string{"{", `{"password":"x"}`} {
		c, _ := newTestContext(http.MethodPost, "/auth/login", body, "", "")
		expectHTTPError(t, h.Login(c), http.StatusBadRequest)
	}
}

func TestLoginResult(t *testing.T) {
	cases := map[string]error{
		"success":             nil,
		"locked":              domain.ErrLoginLocked,
		"invalid_credentials": domain.ErrInvalidCredentials,
		"error":               errors.New("boom"),
	}
	for want, err := range cases {
		if got := loginResult(err); got != want {
			t.Fatalf("loginResult(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestAuthHandler_Refresh_FromBody(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, token string) (*ports.RefreshResult, error) {
			if token != "body-token" {
				t.Fatalf("unexpected token %q", token)
			}
			return &ports.RefreshResult{AccessToken: "new-access"}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(http.MethodPost, "/auth/refresh", `{"refreshToken":"body-token"}`, "", "")
	c.Request().Header.Set("Authorization", "Bearer header-token")
	if err := h.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["accessToken"] != "new-access" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if _, ok := resp["refreshToken"]; ok {
		t.Fatalf("refresh token must be omitted when not rotated")
	}
}

func TestAuthHandler_Refresh_FromBearer(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, token string) (*ports.RefreshResult, error) {
			if token != "header-token" {
				t.Fatalf("unexpected token %q", token)
			}
			return &ports.RefreshResult{AccessToken: "new-access"}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(http.MethodPost, "/auth/refresh", "", "", "")
	c.Request().Header.Set("Authorization", "Bearer header-token")
	if err := h.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Refresh_MissingToken(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, token string) (*ports.RefreshResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(http.MethodPost, "/auth/refresh", "", "", "")
	expectHTTPError(t, h.Refresh(c), http.StatusUnauthorized)
}

func TestAuthHandler_Refresh_Rejected(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, token string) (*ports.RefreshResult, error) {
			return nil, domain.ErrInvalidRefreshToken
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(http.MethodPost, "/auth/refresh", `{"refreshToken":"stale"}`, "", "")
	if err := h.Refresh(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	calls := 0
	stub := &stubAuthService{
		logoutFn: func(ctx context.Context, id string) error {
			if id != userID {
				t.Fatalf("unexpected user %q", id)
			}
			calls++
			return nil
		},
	}
	h := NewAuthHandler(stub)

	for i := 0; i < 2; i++ {
		c, rec := newTestContext(http.MethodPost, "/auth/logout", "", userID, domain.DefaultRoleName)
		if err := h.Logout(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 logout calls, got %d", calls)
	}
}

func TestAuthHandler_Logout_MissingClaims(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, _ := newTestContext(http.MethodPost, "/auth/logout", "", "", "")
	expectHTTPError(t, h.Logout(c), http.StatusUnauthorized)
}

func TestAuthHandler_MasterCheck(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, rec := newTestContext(http.MethodGet, "/auth/me/master-check", "", masterID, domain.BootstrapRoleName)
	if err := h.MasterCheck(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
