// Package metrics holds the Prometheus instrumentation for the trading loop
// and the backtester.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	pollCycles     *prometheus.CounterVec
	pollErrors     *prometheus.CounterVec
	signals        *prometheus.CounterVec
	orders         *prometheus.CounterVec
	sessionsActive *prometheus.GaugeVec
	backtests      *prometheus.CounterVec
	backtestTime   prometheus.Histogram
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		pollCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptobot_poll_cycles_total",
				Help: "Total number of completed trading loop iterations",
			},
			[]string{"symbol"},
		),
		pollErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptobot_poll_errors_total",
				Help: "Total number of trading loop iterations that failed",
			},
			[]string{"symbol", "code"},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptobot_signals_total",
				Help: "Total number of evaluated signals",
			},
			[]string{"strategy", "signal"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptobot_orders_total",
				Help: "Total number of market order attempts",
			},
			[]string{"symbol", "side", "status"},
		),
		sessionsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptobot_sessions_active",
				Help: "Whether a trading session is active for a symbol",
			},
			[]string{"symbol"},
		),
		backtests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptobot_backtests_total",
				Help: "Total number of backtest runs",
			},
			[]string{"status"},
		),
		backtestTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cryptobot_backtest_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(r.pollCycles)
	reg.MustRegister(r.pollErrors)
	reg.MustRegister(r.signals)
	reg.MustRegister(r.orders)
	reg.MustRegister(r.sessionsActive)
	reg.MustRegister(r.backtests)
	reg.MustRegister(r.backtestTime)

	return r
}

// RecordPollCycle records a completed loop iteration.
func (r *Registry) RecordPollCycle(symbol string) {
	r.pollCycles.WithLabelValues(symbol).Inc()
}

// RecordPollError records a failed loop iteration by error code.
func (r *Registry) RecordPollError(symbol, code string) {
	r.pollErrors.WithLabelValues(symbol, code).Inc()
}

// RecordSignal records an evaluated signal.
func (r *Registry) RecordSignal(strategy, signal string) {
	r.signals.WithLabelValues(strategy, signal).Inc()
}

// RecordOrder records a market order attempt.
func (r *Registry) RecordOrder(symbol, side, status string) {
	r.orders.WithLabelValues(symbol, side, status).Inc()
}

// SetSessionActive flags whether a session is running for symbol.
func (r *Registry) SetSessionActive(symbol string, active bool) {
	v := 0.0
	if active {
		v = 1.0
	}
	r.sessionsActive.WithLabelValues(symbol).Set(v)
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtests.WithLabelValues(status).Inc()
	r.backtestTime.Observe(duration)
}
