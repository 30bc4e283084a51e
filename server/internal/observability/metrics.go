package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-operation request metrics. Counts are exported to
// Prometheus and also kept in process for the metrics overview endpoint.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	operations map[string]*OperationMetrics

	// Ring of the most recent durations, used for percentiles.
	durations    []time.Duration
	maxDurations int

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// OperationMetrics holds the counters of one API operation.
type OperationMetrics struct {
	executionCount atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
	errorCount     atomic.Int64
}

// NewMetrics creates a collector keeping the last maxDurations durations.
// Collectors are registered with reg when it is not nil.
func NewMetrics(maxDurations int, reg prometheus.Registerer) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	m := &Metrics{
		operations:   make(map[string]*OperationMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cartsync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by operation and result.",
		}, []string{"operation", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cartsync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.latency)
	}
	return m
}

// Record records one finished request.
func (m *Metrics) Record(operation string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	om := m.getOperationMetrics(operation)
	om.executionCount.Add(1)
	om.totalDuration.Add(duration.Milliseconds())

	result := "ok"
	if failed {
		result = "error"
		m.requestFailed.Add(1)
		om.errorCount.Add(1)
	}
	m.requests.WithLabelValues(operation, result).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

func (m *Metrics) getOperationMetrics(operation string) *OperationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.operations[operation]
	if !ok {
		om = &OperationMetrics{}
		m.operations[operation] = om
	}
	return om
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make(map[string]*OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		count := om.executionCount.Load()
		snap := &OperationSnapshot{
			ExecutionCount: count,
			TotalDuration:  om.totalDuration.Load(),
			ErrorCount:     om.errorCount.Load(),
		}
		if count > 0 {
			snap.AverageDuration = snap.TotalDuration / count
		}
		ops[name] = snap
	}

	sorted := append([]time.Duration(nil), m.durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		Operations:    ops,
		P50:           percentile(sorted, 50),
		P95:           percentile(sorted, 95),
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted)*p+99)/100 - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64
	RequestFailed int64
	Operations    map[string]*OperationSnapshot
	P50           time.Duration
	P95           time.Duration
}

// OperationSnapshot represents metrics for a specific operation.
type OperationSnapshot struct {
	ExecutionCount  int64
	TotalDuration   int64
	ErrorCount      int64
	AverageDuration int64
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}

// AverageDuration returns the mean latency in milliseconds over all operations.
func (s *MetricsSnapshot) AverageDuration() int64 {
	var total, count int64
	for _, op := range s.Operations {
		total += op.TotalDuration
		count += op.ExecutionCount
	}
	if count == 0 {
		return 0
	}
	return total / count
}
