package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters and latency histograms.
type Metrics struct {
	Ingests        *prometheus.CounterVec
	Enrichments    *prometheus.CounterVec
	Turns          *prometheus.CounterVec
	RetrievalTime  prometheus.Histogram
	SynthesisTime  prometheus.Histogram
	ActiveSessions prometheus.Gauge
}

// NewMux returns the handler served on the dedicated metrics port. Pass nil
// to gather from the default registry.
func NewMux(g prometheus.Gatherer) *http.ServeMux {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

// Serve exposes /metrics on its own listener, separate from the API port.
func Serve(port int, g prometheus.Gatherer) error {
	return http.ListenAndServe(fmt.Sprintf(":%d", port), NewMux(g))
}

// New registers the service metrics on the given registerer. Pass nil to use
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Ingests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hiresight",
			Name:      "ingests_total",
			Help:      "Resume ingestions by outcome.",
		}, []string{"outcome"}),
		Enrichments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hiresight",
			Name:      "enrichment_outcomes_total",
			Help:      "Enrichment source results.",
		}, []string{"source", "outcome"}),
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hiresight",
			Name:      "turns_total",
			Help:      "Conversation turns by status.",
		}, []string{"status"}),
		RetrievalTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hiresight",
			Name:      "retrieval_seconds",
			Help:      "Hybrid retrieval latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		SynthesisTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hiresight",
			Name:      "synthesis_seconds",
			Help:      "Answer synthesis latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "hiresight",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
	}
}
