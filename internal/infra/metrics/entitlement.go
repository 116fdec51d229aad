package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(subscriptionsTotal, entitlementChecksTotal)
}

var (
	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_total",
			Help:      "Paid subscriptions by state.",
		},
		[]string{"state"}, // 'active', 'lapsed'
	)

	entitlementChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlement_checks_total",
			Help:      "Entitlement lookups by result.",
		},
		[]string{"result"}, // 'granted', 'denied', 'admin', 'error'
	)
)

func SetSubscriptions(active, lapsed int) {
	subscriptionsTotal.WithLabelValues("active").Set(float64(active))
	subscriptionsTotal.WithLabelValues("lapsed").Set(float64(lapsed))
}

func IncEntitlementCheck(result string) {
	entitlementChecksTotal.WithLabelValues(norm(result)).Inc()
}
