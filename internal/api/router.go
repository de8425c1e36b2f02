package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/globalbi/admin-api/internal/api/handler"
	"github.com/globalbi/admin-api/internal/api/middleware"
	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

// Deps are the services the router wires into handlers.
type Deps struct {
	Auth   ports.AuthService
	Users  ports.UserService
	Groups ports.GroupService
	Roles  ports.RoleService
	Health *handler.HealthHandler
	Log    zerolog.Logger
	// Metrics registers the echoprometheus collectors on the default
	// registry and exposes /metrics. Enable it once per process.
	Metrics bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	if d.Metrics {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace: "admin_api",
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics" || c.Path() == "/health" || c.Path() == "/health/ready"
			},
		}))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	authn := middleware.Auth(d.Auth)
	masterOnly := middleware.RequireRole(domain.BootstrapRoleName)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	e.POST("/auth/register", authHandler.Register, middleware.OptionalAuth(d.Auth))
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/auth/logout", authHandler.Logout, authn)
	e.GET("/auth/me/master-check", authHandler.MasterCheck, authn, masterOnly)

	// --- Users ---
	userHandler := handler.NewUserHandler(d.Users)
	users := e.Group("/users", authn)
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.GET("/:id", userHandler.Get)
	users.PATCH("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// --- Groups ---
	groupHandler := handler.NewGroupHandler(d.Groups)
	groups := e.Group("/groups", authn)
	groups.GET("", groupHandler.List)
	groups.POST("", groupHandler.Create)
	groups.GET("/:id", groupHandler.Get)
	groups.PATCH("/:id", groupHandler.Update)
	groups.DELETE("/:id", groupHandler.Delete)
	groups.GET("/:id/users", groupHandler.Members)
	groups.POST("/:id/users", groupHandler.AddMember)
	groups.DELETE("/:id/users/:userId", groupHandler.RemoveMember)

	// --- Roles (MASTER only) ---
	roleHandler := handler.NewRoleHandler(d.Roles)
	roles := e.Group("/roles", authn, masterOnly)
	roles.GET("", roleHandler.List)
	roles.POST("", roleHandler.Create)
	roles.POST("/migrate", roleHandler.Migrate)
	roles.GET("/:id", roleHandler.Get)
	roles.PATCH("/:id", roleHandler.Update)
	roles.DELETE("/:id", roleHandler.Delete)

	// --- Health probes and docs (no auth required) ---
	if d.Health != nil {
		e.GET("/health", d.Health.Liveness)        // liveness  – is the process alive?
		e.GET("/health/ready", d.Health.Readiness) // readiness – are dependencies up?
	}
	e.GET("/docs/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one structured line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID)
			if userID, ok := c.Get(middleware.CtxUserID).(string); ok {
				ev.Str("user_id", userID)
			}
			ev.Msg("request")
			return nil
		},
	})
}
