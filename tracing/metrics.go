package tracing

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/sim/hooking"
)

// MetricsTracer exports page table activity as Prometheus metrics.
type MetricsTracer struct {
	faults   *prometheus.CounterVec
	accesses *prometheus.CounterVec
	mapped   *prometheus.GaugeVec
}

// NewMetricsTracer creates a MetricsTracer and registers its collectors.
func NewMetricsTracer(reg prometheus.Registerer) (*MetricsTracer, error) {
	t := &MetricsTracer{
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagesim",
			Name:      "page_faults_total",
			Help:      "Page faults dispatched to the fault handler.",
		}, []string{"table", "kind"}),
		accesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagesim",
			Name:      "accesses_total",
			Help:      "Completed reads and writes.",
		}, []string{"table", "op"}),
		mapped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pagesim",
			Name:      "mapped_pages",
			Help:      "Pages currently mapped through Map and Unmap.",
		}, []string{"table"}),
	}

	for _, c := range []prometheus.Collector{t.faults, t.accesses, t.mapped} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering page table metrics: %w", err)
		}
	}

	return t, nil
}

// Func updates the metrics.
func (t *MetricsTracer) Func(ctx hooking.HookCtx) {
	table := domainName(ctx.Domain)

	switch ctx.Pos {
	case vm.HookPosPageFault:
		kind := ctx.Item.(vm.PageFault).Kind.String()
		t.faults.WithLabelValues(table, kind).Inc()
	case vm.HookPosRead:
		t.accesses.WithLabelValues(table, "read").Inc()
	case vm.HookPosWrite:
		t.accesses.WithLabelValues(table, "write").Inc()
	case vm.HookPosMap:
		t.mapped.WithLabelValues(table).Inc()
	case vm.HookPosUnmap:
		t.mapped.WithLabelValues(table).Dec()
	}
}
