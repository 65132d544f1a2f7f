package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BurnsExecuted prometheus.Counter
	BurnsRejected prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		BurnsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aurum_burn_executed_total",
			Help: "Total supply burns admitted and executed",
		}),
		BurnsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aurum_burn_rejected_total",
			Help: "Total supply burns rejected by the schedule",
		}),
	}
}

func (m *Metrics) IncrementExecuted() {
	if m != nil {
		m.BurnsExecuted.Inc()
	}
}

func (m *Metrics) IncrementRejected() {
	if m != nil {
		m.BurnsRejected.Inc()
	}
}
