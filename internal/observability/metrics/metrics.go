package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	bookedTotal        prometheus.Counter
	conflictsTotal     prometheus.Counter
	sideEffectFailures *prometheus.CounterVec
	resolveLatency     prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "renoworks",
			Subsystem: "bookings",
			Name:      "committed_total",
			Help:      "Total bookings committed to the ledger",
		}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "renoworks",
			Subsystem: "bookings",
			Name:      "conflicts_total",
			Help:      "Total booking attempts rejected for slot conflicts",
		}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "renoworks",
			Subsystem: "bookings",
			Name:      "side_effect_failures_total",
			Help:      "Best-effort integration failures after commit",
		}, []string{"integration"}),
		resolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "renoworks",
			Subsystem: "bookings",
			Name:      "slot_resolve_seconds",
			Help:      "Latency of slot resolution queries",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookedTotal, m.conflictsTotal, m.sideEffectFailures, m.resolveLatency)
	return m
}

func (m *BookingMetrics) ObserveBooked() {
	if m == nil {
		return
	}
	m.bookedTotal.Inc()
}

func (m *BookingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *BookingMetrics) ObserveSideEffectFailure(integration string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(integration).Inc()
}

func (m *BookingMetrics) ObserveResolveLatency(seconds float64) {
	if m == nil {
		return
	}
	m.resolveLatency.Observe(seconds)
}
