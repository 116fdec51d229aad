package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "paywall"

var (
	mu         sync.Mutex
	collectors []prometheus.Collector
	registered = make(map[prometheus.Registerer]struct{})
)

// register is called from init() in each metrics file.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister adds the paywall collectors to reg, or to the default registerer
// when reg is nil. A second call with the same registerer does nothing.
func MustRegister(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registered[reg]; ok {
		return
	}
	reg.MustRegister(collectors...)
	registered[reg] = struct{}{}
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
