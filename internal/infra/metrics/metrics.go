package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the authorization and
// delivery pipeline. A nil *Metrics is safe to use; every method no-ops.
type Metrics struct {
	authDecisions    *prometheus.CounterVec
	rateLimitDenials prometheus.Counter
	lockouts         prometheus.Counter
	deliveryAttempts *prometheus.CounterVec
	alertsDispatched *prometheus.CounterVec
}

// New registers the pipeline collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adpilot",
			Name:      "auth_decisions_total",
			Help:      "Authorization decisions by result (allowed, denied, blocked).",
		}, []string{"result"}),
		rateLimitDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adpilot",
			Name:      "rate_limit_denials_total",
			Help:      "Requests denied because a rate ceiling was met.",
		}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adpilot",
			Name:      "lockouts_total",
			Help:      "Identities locked out after repeated failures.",
		}),
		deliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adpilot",
			Name:      "delivery_attempts_total",
			Help:      "Delivery attempts by outcome.",
		}, []string{"outcome"}),
		alertsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adpilot",
			Name:      "alerts_dispatched_total",
			Help:      "Security alerts dispatched by severity.",
		}, []string{"severity"}),
	}
	reg.MustRegister(
		m.authDecisions, m.rateLimitDenials, m.lockouts,
		m.deliveryAttempts, m.alertsDispatched,
	)
	return m
}

// AuthDecision counts one authorization decision.
func (m *Metrics) AuthDecision(result string) {
	if m == nil {
		return
	}
	m.authDecisions.WithLabelValues(result).Inc()
}

// RateLimitDenial counts one rate-limit denial.
func (m *Metrics) RateLimitDenial() {
	if m == nil {
		return
	}
	m.rateLimitDenials.Inc()
}

// Lockout counts one new lockout.
func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

// DeliveryAttempt counts one delivery attempt by outcome.
func (m *Metrics) DeliveryAttempt(outcome string) {
	if m == nil {
		return
	}
	m.deliveryAttempts.WithLabelValues(outcome).Inc()
}

// AlertDispatched counts one dispatched alert by severity.
func (m *Metrics) AlertDispatched(severity string) {
	if m == nil {
		return
	}
	m.alertsDispatched.WithLabelValues(severity).Inc()
}
