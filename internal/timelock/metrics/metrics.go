package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActionsScheduled    *prometheus.CounterVec
	ActionsExecuted     *prometheus.CounterVec
	EmergencyExecutions *prometheus.CounterVec
	ActionsRejected     *prometheus.CounterVec
}

func New() *Metrics {
	labels := []string{"specialization"}
	return &Metrics{
		ActionsScheduled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_timelock_scheduled_total",
			Help: "Total timelocked actions scheduled",
		}, labels),
		ActionsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_timelock_executed_total",
			Help: "Total timelocked actions executed through the window",
		}, labels),
		EmergencyExecutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_timelock_emergency_executed_total",
			Help: "Total timelocked actions executed through the emergency path",
		}, labels),
		ActionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_timelock_rejected_total",
			Help: "Total timelock schedule or execute rejections",
		}, labels),
	}
}

func (m *Metrics) IncrementScheduled(specialization string) {
	if m != nil {
		m.ActionsScheduled.WithLabelValues(specialization).Inc()
	}
}

func (m *Metrics) IncrementExecuted(specialization string) {
	if m != nil {
		m.ActionsExecuted.WithLabelValues(specialization).Inc()
	}
}

func (m *Metrics) IncrementEmergency(specialization string) {
	if m != nil {
		m.EmergencyExecutions.WithLabelValues(specialization).Inc()
	}
}

func (m *Metrics) IncrementRejected(specialization string) {
	if m != nil {
		m.ActionsRejected.WithLabelValues(specialization).Inc()
	}
}
