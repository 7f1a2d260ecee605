package panelcore

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricID identifies an Engine counter.
type MetricID uint16

const (
	MetricSessionCreated MetricID = iota
	MetricSessionCreateDenied
	MetricSessionVerified
	MetricSessionRejected
	MetricSessionExpired
	MetricSessionRevoked
	MetricSessionIPMismatch
	MetricPermissionDenied
	MetricAuditRecorded
	MetricAuditRecordFailed
	MetricAuditQuery
	MetricAuditExport
	MetricAuditExportDenied
	MetricRoutingTokenIssued
	MetricRoutingTokenRejected

	metricIDCount
)

var metricDefs = [metricIDCount]struct {
	name string
	help string
}{
	MetricSessionCreated:       {"sessions_created_total", "Sessions issued."},
	MetricSessionCreateDenied:  {"sessions_create_denied_total", "Session creation refused for inactive accounts."},
	MetricSessionVerified:      {"sessions_verified_total", "Successful session verifications."},
	MetricSessionRejected:      {"sessions_rejected_total", "Failed session verifications."},
	MetricSessionExpired:       {"sessions_expired_total", "Sessions found expired at verification."},
	MetricSessionRevoked:       {"sessions_revoked_total", "Live sessions revoked."},
	MetricSessionIPMismatch:    {"sessions_ip_mismatch_total", "Verifications from an IP other than the session's."},
	MetricPermissionDenied:     {"permission_denied_total", "Authorization checks that failed."},
	MetricAuditRecorded:        {"audit_recorded_total", "Audit entries appended."},
	MetricAuditRecordFailed:    {"audit_record_failed_total", "Audit entries rejected or lost to storage failure."},
	MetricAuditQuery:           {"audit_queries_total", "Audit queries served."},
	MetricAuditExport:          {"audit_exports_total", "Audit exports rendered."},
	MetricAuditExportDenied:    {"audit_exports_denied_total", "Audit exports refused."},
	MetricRoutingTokenIssued:   {"routing_tokens_issued_total", "Routing tokens issued."},
	MetricRoutingTokenRejected: {"routing_tokens_rejected_total", "Routing tokens that failed inspection."},
}

const metricsNamespace = "panelcore"

// Metrics holds the Engine counters. Counts are kept in atomics and exposed to
// Prometheus through CounterFuncs, so a nil Registerer still counts.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]atomic.Uint64
	queryLatency  prometheus.Histogram
}

// NewMetrics builds the counters and registers them on reg when reg is non-nil.
func NewMetrics(cfg MetricsConfig, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
	if !m.enabled {
		return m, nil
	}

	m.queryLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "audit_query_duration_seconds",
		Help:      "Latency of audit queries and exports.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	if reg == nil {
		return m, nil
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		counter := &m.counters[id]
		c := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      metricDefs[id].name,
			Help:      metricDefs[id].help,
		}, func() float64 { return float64(counter.Load()) })
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	if m.enableLatency {
		if err := reg.Register(m.queryLatency); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Enabled reports whether counting is on.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Add adds n to id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	m.counters[id].Add(n)
}

// ObserveQuery records one audit query latency.
func (m *Metrics) ObserveQuery(d time.Duration) {
	if m == nil || !m.enableLatency {
		return
	}
	m.queryLatency.Observe(d.Seconds())
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot returns every counter keyed by its exposed name.
func (m *Metrics) Snapshot() map[string]uint64 {
	out := make(map[string]uint64, int(metricIDCount))
	if m == nil || !m.enabled {
		return out
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		out[metricDefs[id].name] = m.counters[id].Load()
	}
	return out
}
