package reagentbank

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts reagent bank activity.
type Metrics struct {
	Deposited  prometheus.Counter
	Withdrawn  prometheus.Counter
	Purchases  prometheus.Counter
	Operations *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Deposited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reagentbank_deposited_units_total",
			Help: "Reagent units moved from player inventories into guild banks",
		}),
		Withdrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reagentbank_withdrawn_units_total",
			Help: "Reagent units moved from guild banks into player inventories",
		}),
		Purchases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reagentbank_capacity_purchases_total",
			Help: "Storage capacity purchases by guild leaders",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reagentbank_operations_total",
			Help: "Reagent bank operations by outcome",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(m.Deposited, m.Withdrawn, m.Purchases, m.Operations)
	return m
}

func (m *Metrics) op(op, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) deposited(n uint32) {
	if m == nil {
		return
	}
	m.Deposited.Add(float64(n))
}

func (m *Metrics) withdrawn(n uint32) {
	if m == nil {
		return
	}
	m.Withdrawn.Add(float64(n))
}

func (m *Metrics) purchased() {
	if m == nil {
		return
	}
	m.Purchases.Inc()
}
