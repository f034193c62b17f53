// Package metrics exposes Prometheus counters for every point where a poll
// cycle can fail or degrade.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pollCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataparser_poll_cycles_total",
			Help: "Poll cycles by cycle name and result.",
		},
		[]string{"cycle", "result"},
	)

	pollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataparser_poll_duration_seconds",
			Help:    "Poll cycle duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cycle"},
	)

	fetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataparser_fetch_failures_total",
			Help: "Failed upstream fetches by feed.",
		},
		[]string{"feed"},
	)

	storeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataparser_store_failures_total",
			Help: "Failed persistent store writes by entity class.",
		},
		[]string{"class"},
	)

	cacheFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataparser_cache_failures_total",
			Help: "Failed cache operations by entity class.",
		},
		[]string{"class"},
	)

	leaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataparser_leave_notifications_total",
			Help: "Leave notifications published by entity class.",
		},
		[]string{"class"},
	)

	activeEntities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataparser_active_entities",
			Help: "Entities in the current active set by class.",
		},
		[]string{"class"},
	)

	accountingFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dataparser_accounting_failures_total",
			Help: "Failed new-session notifications.",
		},
	)

	reportInsertFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dataparser_report_insert_failures_total",
			Help: "Reports that could not be stored.",
		},
	)
)

func init() {
	prometheus.MustRegister(pollCycles)
	prometheus.MustRegister(pollDuration)
	prometheus.MustRegister(fetchFailures)
	prometheus.MustRegister(storeFailures)
	prometheus.MustRegister(cacheFailures)
	prometheus.MustRegister(leaves)
	prometheus.MustRegister(activeEntities)
	prometheus.MustRegister(accountingFailures)
	prometheus.MustRegister(reportInsertFailures)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObservePoll(cycle string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	pollCycles.WithLabelValues(cycle, result).Inc()
	pollDuration.WithLabelValues(cycle).Observe(d.Seconds())
}

func IncFetchFailure(feed string) {
	fetchFailures.WithLabelValues(feed).Inc()
}

func IncStoreFailure(class string) {
	storeFailures.WithLabelValues(class).Inc()
}

func IncCacheFailure(class string) {
	cacheFailures.WithLabelValues(class).Inc()
}

func AddLeaves(class string, n int) {
	leaves.WithLabelValues(class).Add(float64(n))
}

func SetActive(class string, n int) {
	activeEntities.WithLabelValues(class).Set(float64(n))
}

func IncAccountingFailure() {
	accountingFailures.Inc()
}

func IncReportInsertFailure() {
	reportInsertFailures.Inc()
}
