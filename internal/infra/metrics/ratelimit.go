package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(rateLimitedTotal, rateLimitErrorsTotal, rateLimitWindows)
}

var (
	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by policy.",
		},
		[]string{"policy"},
	)

	rateLimitErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_errors_total",
			Help:      "Limiter backend failures that let the request through, by policy.",
		},
		[]string{"policy"},
	)

	rateLimitWindows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limit_windows",
			Help:      "Open fixed windows held by the process-local limiter.",
		},
	)
)

func IncRateLimited(policy string) {
	rateLimitedTotal.WithLabelValues(norm(policy)).Inc()
}

func IncRateLimitError(policy string) {
	rateLimitErrorsTotal.WithLabelValues(norm(policy)).Inc()
}

func SetRateLimitWindows(n int) {
	rateLimitWindows.Set(float64(n))
}
