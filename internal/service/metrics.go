package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 创建来源标签。
const (
	SourceForm   = "form"
	SourceImport = "import"
	SourceClone  = "clone"
	SourcePack   = "pack"
)

// Metrics holds the domain counters exported on /metrics. A nil *Metrics is a no-op.
type Metrics struct {
	created        *prometheus.CounterVec
	importFailures prometheus.Counter
	packPlans      *prometheus.CounterVec
}

// NewMetrics registers the counters on reg; a nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "inboundpanel"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		created: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inbounds",
			Name:      "created_total",
			Help:      "Inbound profiles persisted, by creation source.",
		}, []string{"source"}),
		importFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inbounds",
			Name:      "import_failures_total",
			Help:      "Import items that could not be persisted.",
		}),
		packPlans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "packs",
			Name:      "plans_total",
			Help:      "Pack invocations, by mode.",
		}, []string{"mode"}),
	}
}

func (m *Metrics) profileCreated(source string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(source).Inc()
}

func (m *Metrics) importFailed() {
	if m == nil {
		return
	}
	m.importFailures.Inc()
}

func (m *Metrics) packPlanned(dryRun bool) {
	if m == nil {
		return
	}
	mode := "commit"
	if dryRun {
		mode = "dry_run"
	}
	m.packPlans.WithLabelValues(mode).Inc()
}
