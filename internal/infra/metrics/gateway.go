package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(gatewayCallDuration) }

var gatewayCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_call_duration_seconds",
		Help:      "Payment gateway call latency by provider, operation and success.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	},
	[]string{"provider", "op", "success"},
)

func ObserveGatewayCall(provider, op string, d time.Duration, success bool) {
	gatewayCallDuration.WithLabelValues(norm(provider), norm(op), strconv.FormatBool(success)).Observe(d.Seconds())
}
