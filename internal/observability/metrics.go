// Package observability holds the Prometheus metrics of the auth core.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// AuthAttemptsTotal counts login attempts by strategy and outcome.
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiteboard_auth_attempts_total",
			Help: "Authentication attempts",
		},
		[]string{"strategy", "outcome"},
	)

	// RegistrationsTotal counts local registrations by outcome.
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiteboard_registrations_total",
			Help: "Local account registrations",
		},
		[]string{"outcome"},
	)

	// ExternalUsersCreatedTotal counts users created on a first provider login.
	ExternalUsersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiteboard_external_users_created_total",
			Help: "Users created from delegated identities",
		},
		[]string{"strategy"},
	)

	// ProviderLatency records the provider code exchange plus profile fetch.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kiteboard_provider_latency_seconds",
			Help:    "Identity provider round trip latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"strategy"},
	)

	// UnauthorizedTotal counts requests turned away by the auth gate.
	UnauthorizedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kiteboard_unauthorized_total",
			Help: "Requests rejected by the auth gate",
		},
	)
)

func init() {
	prometheus.MustRegister(
		AuthAttemptsTotal,
		RegistrationsTotal,
		ExternalUsersCreatedTotal,
		ProviderLatency,
		UnauthorizedTotal,
	)
}
