//go:build !integration

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestReconcileCounters(t *testing.T) {
	before := testutil.ToFloat64(reconcileTotal.WithLabelValues("push", "committed"))
	IncReconcile(" PUSH ", "Committed")
	if got := testutil.ToFloat64(reconcileTotal.WithLabelValues("push", "committed")); got != before+1 {
		t.Fatalf("reconcile_total = %v, want %v", got, before+1)
	}

	rev := testutil.ToFloat64(paymentsRevenueTotal.WithLabelValues("inr"))
	IncPaymentCommitted("pull", "INR", decimal.RequireFromString("999.50"))
	if got := testutil.ToFloat64(paymentsRevenueTotal.WithLabelValues("inr")); got != rev+999.5 {
		t.Fatalf("revenue = %v, want %v", got, rev+999.5)
	}
}

func TestSetSubscriptions(t *testing.T) {
	SetSubscriptions(3, 2)
	if got := testutil.ToFloat64(subscriptionsTotal.WithLabelValues("active")); got != 3 {
		t.Fatalf("active = %v", got)
	}
	if got := testutil.ToFloat64(subscriptionsTotal.WithLabelValues("lapsed")); got != 2 {
		t.Fatalf("lapsed = %v", got)
	}
}

func TestMustRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)
	MustRegister(reg)

	SetBuildInfo("v1.2.3", "abc123")
	SetDBPoolStats(10, 6, 4, 10)
	n, err := testutil.GatherAndCount(reg, "paywall_build_info", "paywall_db_pool_connections")
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("gathered %d series, want 5", n)
	}
	if got := testutil.ToFloat64(dbPoolConnections.WithLabelValues("acquired")); got != 4 {
		t.Fatalf("acquired = %v", got)
	}
}
