package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GrantsRegistered prometheus.Counter
	ClaimsPaid       *prometheus.CounterVec
	ClaimsRejected   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		GrantsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aurum_vesting_grants_registered_total",
			Help: "Total vesting grants registered",
		}),
		ClaimsPaid: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_vesting_claims_paid_total",
			Help: "Total vesting claims paid out, by claim type",
		}, []string{"type"}),
		ClaimsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aurum_vesting_claims_rejected_total",
			Help: "Total vesting claims rejected",
		}),
	}
}

func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.GrantsRegistered.Inc()
	}
}

func (m *Metrics) IncrementClaimPaid(claimType string) {
	if m != nil {
		m.ClaimsPaid.WithLabelValues(claimType).Inc()
	}
}

func (m *Metrics) IncrementRejected() {
	if m != nil {
		m.ClaimsRejected.Inc()
	}
}
