package outbox

import "github.com/prometheus/client_golang/prometheus"

const (
	resultDelivered = "delivered"
	resultFailed    = "failed"
	resultSkipped   = "skipped"
	resultDropped   = "dropped"
)

type metrics struct {
	tasks *prometheus.CounterVec
	depth prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthlog",
			Subsystem: "outbox",
			Name:      "tasks_total",
			Help:      "Remote sync tasks by outcome.",
		}, []string{"result"}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "healthlog",
			Subsystem: "outbox",
			Name:      "queue_depth",
			Help:      "Remote sync tasks waiting for delivery.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.tasks, m.depth)
	}
	return m
}
