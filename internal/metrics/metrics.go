package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "review_scraper", Name: "collector_cycles_total", Help: "Harvest cycles run."},
	)
	ReviewsCollected = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "review_scraper", Name: "reviews_collected_total", Help: "Reviews harvested."},
	)
	ItemFaults = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "review_scraper", Name: "item_faults_total", Help: "Reviews skipped after an extraction fault."},
	)
	Terminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "review_scraper", Name: "collector_terminations_total", Help: "Collector stops by reason."},
		[]string{"reason"}, // target|exhausted|stagnation|max_cycles|max_reviews
	)
	Jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "review_scraper", Name: "jobs_total", Help: "Collection jobs by outcome."},
		[]string{"status"}, // completed|empty|failed
	)
	JobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "review_scraper", Name: "job_duration_seconds",
			Help:    "Collection job duration seconds.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)
)

// InitRegistry registers every collector on a fresh registry.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Cycles, ReviewsCollected, ItemFaults, Terminations, Jobs, JobDuration)
	return reg
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveTermination(reason string) {
	Terminations.WithLabelValues(reason).Inc()
}

func ObserveJob(status string, seconds float64) {
	Jobs.WithLabelValues(status).Inc()
	JobDuration.Observe(seconds)
}
