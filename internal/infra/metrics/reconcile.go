package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		reconcileTotal,
		paymentsCommittedTotal,
		paymentsRevenueTotal,
		webhookEventsTotal,
		ordersCreatedTotal,
	)
}

var (
	// source: pull|push
	// outcome: committed|already_processed|not_paid|forbidden|amount_mismatch|upstream_error|store_error
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Reconciliation attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	paymentsCommittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_committed_total",
			Help:      "Payments written to the ledger, by source.",
		},
		[]string{"source"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_revenue_total",
			Help:      "Total value of committed payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	// result: accepted|ignored|bad_signature|stale|malformed|rate_limited
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Inbound payment webhooks by result.",
		},
		[]string{"result"},
	)

	ordersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Order creation attempts by result.",
		},
		[]string{"result"},
	)
)

func IncReconcile(source, outcome string) {
	reconcileTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func IncPaymentCommitted(source, currency string, amount decimal.Decimal) {
	paymentsCommittedTotal.WithLabelValues(norm(source)).Inc()
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount.InexactFloat64())
}

func IncWebhook(result string) {
	webhookEventsTotal.WithLabelValues(norm(result)).Inc()
}

func IncOrderCreated(result string) {
	ordersCreatedTotal.WithLabelValues(norm(result)).Inc()
}
