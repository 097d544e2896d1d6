package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	kindOrdersExpired          = "orders_expired"
	kindPaymentIntentsCanceled = "payment_intents_canceled"
	kindPaymentsUpdated        = "payments_updated"
	kindStockUnitsReleased     = "stock_units_released"
	kindReservationsExpired    = "reservations_expired"
)

// SweepRun describes the most recent execution of one sweep.
type SweepRun struct {
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
	Errors   int           `json:"errors"`
}

// SweepSnapshot is a point-in-time copy of the cumulative sweep counters.
type SweepSnapshot struct {
	OrdersExpired          int64               `json:"orders_expired"`
	PaymentIntentsCanceled int64               `json:"payment_intents_canceled"`
	PaymentsUpdated        int64               `json:"payments_updated"`
	StockUnitsReleased     int64               `json:"stock_units_released"`
	ReservationsExpired    int64               `json:"reservations_expired"`
	LastRuns               map[string]SweepRun `json:"last_runs"`
}

// SweepMetrics is the process-wide sweep counter. It is created once at
// startup and handed to every sweep; readers only ever see snapshots.
type SweepMetrics struct {
	mu    sync.Mutex
	state SweepSnapshot

	counters *prometheus.CounterVec
	lastRun  *prometheus.GaugeVec
}

// NewSweepMetrics registers the sweep counters on reg. A nil registerer keeps
// the in-memory snapshot only.
func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	m := &SweepMetrics{state: SweepSnapshot{LastRuns: map[string]SweepRun{}}}
	if reg == nil {
		return m
	}
	m.counters = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_items_total",
		Help: "Records touched by reconciliation sweeps, by kind.",
	}, []string{"kind"})
	m.lastRun = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sweep_last_run_timestamp_seconds",
		Help: "Unix time of the last completed sweep run.",
	}, []string{"job"})
	reg.MustRegister(m.counters, m.lastRun)
	return m
}

func (m *SweepMetrics) AddOrdersExpired(n int) {
	m.add(kindOrdersExpired, n)
}

func (m *SweepMetrics) AddPaymentIntentsCanceled(n int) {
	m.add(kindPaymentIntentsCanceled, n)
}

func (m *SweepMetrics) AddPaymentsUpdated(n int) {
	m.add(kindPaymentsUpdated, n)
}

func (m *SweepMetrics) AddStockUnitsReleased(n int) {
	m.add(kindStockUnitsReleased, n)
}

func (m *SweepMetrics) AddReservationsExpired(n int) {
	m.add(kindReservationsExpired, n)
}

// SetLastRun records when job finished and how long it took.
func (m *SweepMetrics) SetLastRun(job string, at time.Time, duration time.Duration, errs int) {
	if m == nil {
		return
	}
	job = normalizeLabel(job)
	m.mu.Lock()
	m.state.LastRuns[job] = SweepRun{At: at, Duration: duration, Errors: errs}
	m.mu.Unlock()
	if m.lastRun != nil {
		m.lastRun.WithLabelValues(job).Set(float64(at.Unix()))
	}
}

// Snapshot returns a copy safe to hand to callers.
func (m *SweepMetrics) Snapshot() SweepSnapshot {
	if m == nil {
		return SweepSnapshot{LastRuns: map[string]SweepRun{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.state
	out.LastRuns = make(map[string]SweepRun, len(m.state.LastRuns))
	for k, v := range m.state.LastRuns {
		out.LastRuns[k] = v
	}
	return out
}

// Reset zeroes the in-memory snapshot. Prometheus counters are monotonic and
// are left alone.
func (m *SweepMetrics) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.state = SweepSnapshot{LastRuns: map[string]SweepRun{}}
	m.mu.Unlock()
}

func (m *SweepMetrics) add(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mu.Lock()
	switch kind {
	case kindOrdersExpired:
		m.state.OrdersExpired += int64(n)
	case kindPaymentIntentsCanceled:
		m.state.PaymentIntentsCanceled += int64(n)
	case kindPaymentsUpdated:
		m.state.PaymentsUpdated += int64(n)
	case kindStockUnitsReleased:
		m.state.StockUnitsReleased += int64(n)
	case kindReservationsExpired:
		m.state.ReservationsExpired += int64(n)
	}
	m.mu.Unlock()
	if m.counters != nil {
		m.counters.WithLabelValues(kind).Add(float64(n))
	}
}
