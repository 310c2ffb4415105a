package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JourneyMetrics counts ledger state changes and best-effort cascade failures.
type JourneyMetrics struct {
	transitions   *prometheus.CounterVec
	locks         *prometheus.CounterVec
	sideEffects   *prometheus.CounterVec
	truckLockWait prometheus.Histogram
}

// NewJourneyMetrics registers the journey metrics on the provided registerer.
func NewJourneyMetrics(reg prometheus.Registerer) *JourneyMetrics {
	if reg == nil {
		return &JourneyMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "journey_transitions_total",
		Help:      "Fuel record journey status transitions.",
	}, []string{"to"})
	locks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fuel_record_locks_total",
		Help:      "Fuel records locked for missing configuration.",
	}, []string{"reason"})
	sideEffects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cascade_side_effect_failures_total",
		Help:      "Best-effort cascade side effects that failed and were skipped.",
	}, []string{"effect"})
	wait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "truck_lock_wait_seconds",
		Help:      "Time spent waiting for the per-truck serialization lock.",
		Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	})
	reg.MustRegister(transitions, locks, sideEffects, wait)
	return &JourneyMetrics{
		transitions:   transitions,
		locks:         locks,
		sideEffects:   sideEffects,
		truckLockWait: wait,
	}
}

func (m *JourneyMetrics) IncTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

func (m *JourneyMetrics) IncLock(reason string) {
	if m == nil || m.locks == nil {
		return
	}
	m.locks.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *JourneyMetrics) IncSideEffectFailure(effect string) {
	if m == nil || m.sideEffects == nil {
		return
	}
	m.sideEffects.WithLabelValues(normalizeLabel(effect)).Inc()
}

func (m *JourneyMetrics) ObserveTruckLockWait(d time.Duration) {
	if m == nil || m.truckLockWait == nil {
		return
	}
	m.truckLockWait.Observe(d.Seconds())
}
