// Package metrics exposes Prometheus counters for authorization request
// verification and token issuance.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

const namespace = "tollgate"

// Metrics owns its registry so tests and multiple servers in one process
// do not collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	verificationFailures *prometheus.CounterVec
	authorizations       *prometheus.CounterVec
	tokensIssued         *prometheus.CounterVec
	tokenErrors          *prometheus.CounterVec
	introspections       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_verification_failures_total",
			Help:      "Authorization requests rejected by the verification pipeline.",
		}, []string{"profile", "rule", "error"}),
		authorizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_requests_total",
			Help:      "Authorization requests accepted, by profile.",
		}, []string{"tenant", "profile"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens issued at the token endpoint.",
		}, []string{"tenant", "grant_type"}),
		tokenErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_errors_total",
			Help:      "Token requests rejected, by OAuth error code.",
		}, []string{"grant_type", "error"}),
		introspections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "introspections_total",
			Help:      "Introspection calls by outcome.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.verificationFailures,
		m.authorizations,
		m.tokensIssued,
		m.tokenErrors,
		m.introspections,
	)
	return m
}

// VerificationFailed implements verifier.Observer.
func (m *Metrics) VerificationFailed(profile domain.Profile, ruleID, code string) {
	m.verificationFailures.WithLabelValues(string(profile), ruleID, code).Inc()
}

func (m *Metrics) AuthorizationAccepted(tenantID string, profile domain.Profile) {
	m.authorizations.WithLabelValues(tenantID, string(profile)).Inc()
}

func (m *Metrics) TokenIssued(tenantID string, gt domain.GrantType) {
	m.tokensIssued.WithLabelValues(tenantID, string(gt)).Inc()
}

func (m *Metrics) TokenFailed(gt domain.GrantType, code string) {
	m.tokenErrors.WithLabelValues(string(gt), code).Inc()
}

// Introspected records an introspection outcome: "active" or the reason
// the token was reported inactive.
func (m *Metrics) Introspected(result string) {
	m.introspections.WithLabelValues(result).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
