package intercept

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts interceptor activity. A nil *Metrics disables collection
// at every use site.
type Metrics struct {
	// Connection-related metrics.
	InterceptedConns *prometheus.CounterVec
	PassthroughConns *prometheus.CounterVec

	// Exchange-related metrics.
	ExchangeDuration *prometheus.HistogramVec
	ParseFailures    prometheus.Counter
}

// NewMetrics creates AND registers metrics. It will panic if a collector
// has already been registered. Note: no namespace is specified here; the
// provided registerer may add one using [prometheus.WrapRegistererWithPrefix].
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		InterceptedConns: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: "connections",
			Name:      "intercepted_total",
		}, []string{"host"}),
		PassthroughConns: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: "connections",
			Name:      "passthrough_total",
		}, []string{"host"}),
		ExchangeDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: "exchanges",
			Name:      "duration_seconds",
			// Exchanges are in-process function calls; the interesting
			// range is well below a second.
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"host"}),
		ParseFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Subsystem: "exchanges",
			Name:      "parse_failures_total",
		}),
	}
}
