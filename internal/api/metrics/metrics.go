// Package metrics defines the custom Prometheus metrics of the admin API.
// HTTP request metrics come from echoprometheus; everything here counts
// authentication and authorization outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "admin_api"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "locked" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts successful registrations.
// Label:
//   - kind: "bootstrap" for the first user, "invited" otherwise
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of users registered through /auth/register.",
	},
	[]string{"kind"},
)

// TokenRefreshTotal counts refresh attempts.
// Label:
//   - result: "success" or "rejected"
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of access-token refresh attempts, by result.",
	},
	[]string{"result"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthorizationDenialsTotal counts requests rejected by the access policy.
// Label:
//   - route: the matched echo route (e.g. "/groups/:id")
var AuthorizationDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denials_total",
		Help:      "Total number of requests denied with 403, by route.",
	},
	[]string{"route"},
)
