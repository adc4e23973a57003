// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type Metrics struct {
	ActiveSessions   prometheus.Gauge
	CommandsReceived prometheus.Counter
	CommandLatency   prometheus.Histogram
	GamesStarted     *prometheus.CounterVec
	GamesSettled     *prometheus.CounterVec
	AmountWagered    *prometheus.CounterVec
	AmountPaidOut    *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of connected player sessions",
		}),
		CommandsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_received_total",
			Help:      "Total number of chat commands received",
		}),
		CommandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_latency_seconds",
			Help:      "Command processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		GamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started, by game type",
		}, []string{"game"}),
		GamesSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_settled_total",
			Help:      "Games settled, by game type and outcome",
		}, []string{"game", "outcome"}),
		AmountWagered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amount_wagered_total",
			Help:      "Total amount wagered, by game type",
		}, []string{"game"}),
		AmountPaidOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amount_paid_out_total",
			Help:      "Total amount paid out, by game type",
		}, []string{"game"}),
	}

	prometheus.MustRegister(
		m.ActiveSessions,
		m.CommandsReceived,
		m.CommandLatency,
		m.GamesStarted,
		m.GamesSettled,
		m.AmountWagered,
		m.AmountPaidOut,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	startTime    time.Time
	commandCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

// StartServer exposes /metrics plus a couple of expvar gauges.
func (m *Monitor) StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	expvar.Publish("commands", expvar.Func(func() interface{} {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		return m.commandCount
	}))

	go http.ListenAndServe(addr, nil)
}

func (m *Monitor) IncActiveSessions() {
	if m == nil {
		return
	}
	m.metrics.ActiveSessions.Inc()
}

func (m *Monitor) DecActiveSessions() {
	if m == nil {
		return
	}
	m.metrics.ActiveSessions.Dec()
}

func (m *Monitor) IncCommandsReceived() {
	if m == nil {
		return
	}
	m.metrics.CommandsReceived.Inc()
	m.mutex.Lock()
	m.commandCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveCommandLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.CommandLatency.Observe(duration.Seconds())
}

// GameStarted records a new game and its initial stake. The exact-decimal
// amounts are approximated as floats here; the ledger stays exact.
func (m *Monitor) GameStarted(game string, wagered decimal.Decimal) {
	if m == nil {
		return
	}
	m.metrics.GamesStarted.WithLabelValues(game).Inc()
	m.metrics.AmountWagered.WithLabelValues(game).Add(wagered.InexactFloat64())
}

// WagerRaised records stake added to an already running game.
func (m *Monitor) WagerRaised(game string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.metrics.AmountWagered.WithLabelValues(game).Add(amount.InexactFloat64())
}

// GameSettled records a finished game and what it paid.
func (m *Monitor) GameSettled(game, outcome string, payout decimal.Decimal) {
	if m == nil {
		return
	}
	m.metrics.GamesSettled.WithLabelValues(game, outcome).Inc()
	m.metrics.AmountPaidOut.WithLabelValues(game).Add(payout.InexactFloat64())
}
