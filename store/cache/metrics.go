package cache

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the query cache and the
// mutation coordinator. Collectors are labeled by query name, the key prefix
// before the first ':'.
type Metrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	Fetches       *prometheus.CounterVec
	FetchErrors   *prometheus.CounterVec
	Discarded     *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
	Mutations     *prometheus.CounterVec
}

// NewMetrics creates the collectors. They are registered only when reg is
// not nil, so tests can build as many caches as they like.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartsync_query_cache_hits_total",
			Help: "Reads served from a fresh cache entry",
		}, []string{"query"}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartsync_query_cache_misses_total",
			Help: "Reads that found an absent or stale entry",
		}, []string{"query"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartsync_query_cache_fetches_total",
			Help: "Backing-store fetches issued",
		}, []string{"query"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartsync_query_cache_fetch_errors_total",
			Help: "Backing-store fetches that failed",
		}, []string{"query"}),
		Discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartsync_query_cache_discarded_total",
			Help: "Fetch results dropped because a newer generation was issued",
		}, []string{"query"}),
		Invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartsync_query_cache_invalidations_total",
			Help: "Entries moved to stale",
		}, []string{"query"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartsync_mutations_total",
			Help: "Mutations executed against the backing store",
		}, []string{"kind", "result"}),
	}

	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.Fetches, m.FetchErrors, m.Discarded, m.Invalidations, m.Mutations)
	}
	return m
}

// queryName returns the metric label of a key.
func queryName(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
