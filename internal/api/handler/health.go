package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	statusOK        = "ok"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// Pinger is implemented by ports.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store   Pinger
	redis   *redis.Client
	timeout time.Duration
}

// NewHealthHandler builds the probes. rdb may be nil when the login
// throttle is disabled.
func NewHealthHandler(store Pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{store: store, redis: rdb, timeout: 3 * time.Second}
}

type dependencyStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Liveness handles GET /health and confirms the process is alive.
//
// @Summary  Liveness probe
// @Tags     health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": statusOK,
	})
}

// Readiness handles GET /health/ready. The store is required; Redis only
// backs the login throttle, so losing it degrades the service without
// taking it out of rotation.
//
// @Summary  Readiness probe
// @Tags     health
// @Produce  json
// @Success  200  {object}  readinessResponse
// @Failure  503  {object}  readinessResponse
// @Router   /health/ready [get]
func (h *HealthHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	resp := readinessResponse{Status: statusOK, Dependencies: make(map[string]dependencyStatus)}

	store := check(ctx, h.store.Ping)
	resp.Dependencies["store"] = store
	if store.Status != statusOK {
		resp.Status = statusUnhealthy
	}

	if h.redis != nil {
		rs := check(ctx, func(ctx context.Context) error { return h.redis.Ping(ctx).Err() })
		resp.Dependencies["redis"] = rs
		if rs.Status != statusOK && resp.Status == statusOK {
			resp.Status = statusDegraded
		}
	}

	code := http.StatusOK
	if resp.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

func check(ctx context.Context, ping func(context.Context) error) dependencyStatus {
	start := time.Now()
	err := ping(ctx)
	ds := dependencyStatus{Status: statusOK, LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		ds.Status = statusUnhealthy
		ds.Error = err.Error()
	}
	return ds
}
