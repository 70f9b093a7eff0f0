package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records outcomes of the claim, reconciliation, and
// redemption workflows.
type WorkflowMetrics struct {
	claimDuration *prometheus.HistogramVec
	claims        *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	reconcile     *prometheus.CounterVec
}

// NewWorkflowMetrics registers workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	claimDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claim_txn_duration_seconds",
		Help:    "Duration of claim transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claims_total",
		Help: "Claim workflow results by outcome.",
	}, []string{"outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Provider webhook deliveries by result.",
	}, []string{"result"})
	reconcile := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliations_total",
		Help: "Payment reconciliation results by path and outcome.",
	}, []string{"path", "outcome"})
	reg.MustRegister(claimDuration, claims, webhookEvents, reconcile)
	return &WorkflowMetrics{
		claimDuration: claimDuration,
		claims:        claims,
		webhookEvents: webhookEvents,
		reconcile:     reconcile,
	}
}

// ObserveClaim records one claim workflow invocation.
func (m *WorkflowMetrics) ObserveClaim(outcome string, duration time.Duration) {
	if m == nil || m.claims == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.claims.WithLabelValues(label).Inc()
	m.claimDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncWebhookEvent counts one webhook delivery result.
func (m *WorkflowMetrics) IncWebhookEvent(result string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncReconciliation counts one reconciliation outcome for a path (push/pull).
func (m *WorkflowMetrics) IncReconciliation(path, outcome string) {
	if m == nil || m.reconcile == nil {
		return
	}
	m.reconcile.WithLabelValues(normalizeLabel(path), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	label := strings.TrimSpace(strings.ToLower(value))
	if label == "" {
		return "unknown"
	}
	return strings.ReplaceAll(label, " ", "_")
}
