package claims

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	decisions  *prometheus.CounterVec
	nameChecks *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muralhub",
			Name:      "claim_decisions_total",
			Help:      "Organization claim checks by outcome kind.",
		}, []string{"outcome"}),
		nameChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muralhub",
			Name:      "name_checks_total",
			Help:      "Organization name checks by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.decisions, m.nameChecks)
	return m
}

func (m *Metrics) observeDecision(kind Kind) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) observeNameCheck(status string) {
	if m == nil {
		return
	}
	m.nameChecks.WithLabelValues(status).Inc()
}
