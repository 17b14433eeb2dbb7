package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	LoginSuccess       = "success"
	LoginRejected      = "rejected"
	LoginMisconfigured = "misconfigured"
	LoginThrottled     = "throttled"
)

var (
	importQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "holdings_imports",
			Name:      "queries_total",
			Help:      "Import list queries handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	importQuerySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "holdings_imports",
			Name:      "query_seconds",
			Help:      "Import list query latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	droppedFiltersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "holdings_imports",
			Name:      "dropped_filters_total",
			Help:      "Filter parameters ignored because they could not be parsed.",
		},
		[]string{"param"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "holdings_imports",
			Name:      "logins_total",
			Help:      "Login attempts, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches the collectors to reg. Registering twice is a no-op.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		importQueriesTotal,
		importQuerySeconds,
		droppedFiltersTotal,
		loginsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveQuery records a list query duration and outcome label.
func ObserveQuery(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	importQueriesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	importQuerySeconds.Observe(duration.Seconds())
}

func DroppedFilter(param string) {
	droppedFiltersTotal.WithLabelValues(param).Inc()
}

func Login(result string) {
	loginsTotal.WithLabelValues(result).Inc()
}
