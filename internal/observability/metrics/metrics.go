package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels shared by the handler counters.
const (
	OutcomeSuccess         = "success"
	OutcomeInvalid         = "invalid"
	OutcomeConfig          = "config_error"
	OutcomeRateLimited     = "rate_limited"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeNotSuccessful   = "not_successful"
	OutcomeStoreError      = "store_error"
	OutcomeUnexpectedError = "unexpected_error"
)

// Best-effort operations whose failures are swallowed.
const (
	OperationRateLimitLookup = "rate_limit_lookup"
	OperationAuditInsert     = "audit_insert"
)

// HandlerMetrics exposes counters for the call and payment handlers.
type HandlerMetrics struct {
	callsInitiated    *prometheus.CounterVec
	paymentsVerified  *prometheus.CounterVec
	bestEffortFailure *prometheus.CounterVec
}

func NewHandlerMetrics(reg prometheus.Registerer) *HandlerMetrics {
	m := &HandlerMetrics{
		callsInitiated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthline",
			Name:      "calls_initiated_total",
			Help:      "Outbound emergency call requests by outcome",
		}, []string{"outcome"}),
		paymentsVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthline",
			Name:      "payments_verified_total",
			Help:      "Payment verification requests by outcome",
		}, []string{"outcome"}),
		bestEffortFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthline",
			Name:      "best_effort_failures_total",
			Help:      "Swallowed failures of best-effort operations",
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.callsInitiated, m.paymentsVerified, m.bestEffortFailure)
	return m
}

func (m *HandlerMetrics) ObserveCall(outcome string) {
	if m == nil {
		return
	}
	m.callsInitiated.WithLabelValues(outcome).Inc()
}

func (m *HandlerMetrics) ObservePayment(outcome string) {
	if m == nil {
		return
	}
	m.paymentsVerified.WithLabelValues(outcome).Inc()
}

func (m *HandlerMetrics) ObserveBestEffortFailure(operation string) {
	if m == nil {
		return
	}
	m.bestEffortFailure.WithLabelValues(operation).Inc()
}
