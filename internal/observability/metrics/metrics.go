package metrics

import "github.com/prometheus/client_golang/prometheus"

// TurnMetrics exposes counters for the persona chat turn pipeline.
type TurnMetrics struct {
	outcomeTotal    *prometheus.CounterVec
	scopeTotal      *prometheus.CounterVec
	quantityTotal   *prometheus.CounterVec
	turnLatency     *prometheus.HistogramVec
	priceGuardTotal *prometheus.CounterVec
}

func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	m := &TurnMetrics{
		outcomeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chilltuna",
			Subsystem: "turn",
			Name:      "outcome_total",
			Help:      "Turns by the pipeline stage that produced the reply",
		}, []string{"stage"}),
		scopeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chilltuna",
			Subsystem: "turn",
			Name:      "scope_decision_total",
			Help:      "Scope decisions by deciding strategy",
		}, []string{"strategy", "in_scope"}),
		quantityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chilltuna",
			Subsystem: "turn",
			Name:      "quantity_adjustment_total",
			Help:      "Quantity guard clamps by product category and direction",
		}, []string{"category", "direction"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chilltuna",
			Subsystem: "turn",
			Name:      "latency_seconds",
			Help:      "End-to-end latency of a chat turn",
			Buckets:   []float64{0.05, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"stage"}),
		priceGuardTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chilltuna",
			Subsystem: "turn",
			Name:      "price_guard_total",
			Help:      "Price guard overrides by price ceiling category",
		}, []string{"category"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomeTotal, m.scopeTotal, m.quantityTotal, m.turnLatency, m.priceGuardTotal)
	return m
}

// ObserveOutcome records which stage answered a turn and how long it took.
func (m *TurnMetrics) ObserveOutcome(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.outcomeTotal.WithLabelValues(stage).Inc()
	m.turnLatency.WithLabelValues(stage).Observe(seconds)
}

func (m *TurnMetrics) ObserveScopeDecision(strategy string, inScope bool) {
	if m == nil {
		return
	}
	label := "false"
	if inScope {
		label = "true"
	}
	m.scopeTotal.WithLabelValues(strategy, label).Inc()
}

func (m *TurnMetrics) ObserveQuantityAdjustment(category, direction string) {
	if m == nil {
		return
	}
	m.quantityTotal.WithLabelValues(category, direction).Inc()
}

func (m *TurnMetrics) ObservePriceGuard(category string) {
	if m == nil {
		return
	}
	m.priceGuardTotal.WithLabelValues(category).Inc()
}
