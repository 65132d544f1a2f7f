package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TransfersAdmitted prometheus.Counter
	TransfersDenied   prometheus.Counter
	ExemptBypasses    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		TransfersAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aurum_ratelimit_transfers_admitted_total",
			Help: "Total transfers admitted by the rate limit window",
		}),
		TransfersDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aurum_ratelimit_transfers_denied_total",
			Help: "Total transfers denied by the rate limit window",
		}),
		ExemptBypasses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aurum_ratelimit_exempt_bypasses_total",
			Help: "Total transfers that bypassed the window via exemption",
		}),
	}
}

func (m *Metrics) IncrementAdmitted() {
	if m != nil {
		m.TransfersAdmitted.Inc()
	}
}

func (m *Metrics) IncrementDenied() {
	if m != nil {
		m.TransfersDenied.Inc()
	}
}

func (m *Metrics) IncrementExemptBypass() {
	if m != nil {
		m.ExemptBypasses.Inc()
	}
}
