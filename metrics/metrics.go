package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/krisalay/storekit/types"
)

// Metrics holds all Prometheus metrics for the cache regions.
type Metrics struct {
	Hits        *prometheus.CounterVec
	Misses      *prometheus.CounterVec
	Evictions   *prometheus.CounterVec
	Expirations *prometheus.CounterVec
	Saves       *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storekit_cache_hits_total",
		Help: "Reads that returned a live value",
	}, []string{"region"})

	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storekit_cache_misses_total",
		Help: "Reads that found nothing or an expired entry",
	}, []string{"region"})

	evictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storekit_cache_evictions_total",
		Help: "Entries dropped because the region was full",
	}, []string{"region"})

	expirations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storekit_cache_expirations_total",
		Help: "Entries reclaimed after their deadline",
	}, []string{"region"})

	saves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storekit_cache_saves_total",
		Help: "Snapshot writes by result",
	}, []string{"region", "result"})

	reg.MustRegister(hits, misses, evictions, expirations, saves)

	return &Metrics{
		Hits:        hits,
		Misses:      misses,
		Evictions:   evictions,
		Expirations: expirations,
		Saves:       saves,
	}
}

// For returns a types.Metrics that reports under the given region label.
func (m *Metrics) For(region string) types.Metrics {
	return &regionMetrics{
		hits:        m.Hits.WithLabelValues(region),
		misses:      m.Misses.WithLabelValues(region),
		evictions:   m.Evictions.WithLabelValues(region),
		expirations: m.Expirations.WithLabelValues(region),
		saved:       m.Saves.WithLabelValues(region, "ok"),
		failed:      m.Saves.WithLabelValues(region, "error"),
	}
}

type regionMetrics struct {
	hits, misses, evictions, expirations prometheus.Counter
	saved, failed                        prometheus.Counter
}

func (r *regionMetrics) Hit()      { r.hits.Inc() }
func (r *regionMetrics) Miss()     { r.misses.Inc() }
func (r *regionMetrics) Eviction() { r.evictions.Inc() }
func (r *regionMetrics) Expire()   { r.expirations.Inc() }

func (r *regionMetrics) Save(err error) {
	if err != nil {
		r.failed.Inc()
		return
	}
	r.saved.Inc()
}
