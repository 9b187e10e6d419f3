// Package metrics records adapter fetch and feed merge activity with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsfeed"

// Recorder holds the collectors on its own registry, not the global default.
type Recorder struct {
	registry      *prometheus.Registry
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	articles      *prometheus.CounterVec
	merges        *prometheus.CounterVec
}

// New builds a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_fetches_total",
			Help:      "Vendor page fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_fetch_duration_seconds",
			Help:      "Vendor page fetch latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_articles_total",
			Help:      "Articles mapped from vendor responses.",
		}, []string{"source"}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_merges_total",
			Help:      "Feed page merges by result (applied or stale).",
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.fetches, r.fetchDuration, r.articles, r.merges)
	return r
}

// ObserveFetch records one adapter call; outcome is one of the sources.Outcome labels.
func (r *Recorder) ObserveFetch(source, outcome string, elapsed time.Duration, articles int) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(source, outcome).Inc()
	r.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if articles > 0 {
		r.articles.WithLabelValues(source).Add(float64(articles))
	}
}

// ObserveMerge records whether a settled page was applied or discarded as stale.
func (r *Recorder) ObserveMerge(applied bool) {
	if r == nil {
		return
	}
	result := "applied"
	if !applied {
		result = "stale"
	}
	r.merges.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
