// Package metrics exposes Prometheus instrumentation for the bot.
//
// Served at /metrics on the dashboard HTTP server:
//   - bot_api_requests_total{endpoint,outcome}: gateway calls by outcome (success, error, retry, rejected)
//   - bot_circuit_open: 1 while the gateway circuit is open
//   - bot_trades_total{result}: trades by result (executed, blocked, failed, closed)
//   - bot_realized_pnl: daily realized P&L snapshot
//   - bot_unrealized_pnl: current unrealized P&L snapshot
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_api_requests_total",
			Help: "Gateway API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	CircuitOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_circuit_open",
			Help: "1 while the gateway circuit breaker is open",
		},
	)

	Trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Trade attempts by result",
		},
		[]string{"result"},
	)

	RealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_realized_pnl",
			Help: "Daily realized P&L in INR",
		},
	)

	UnrealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_unrealized_pnl",
			Help: "Current unrealized P&L in INR",
		},
	)
)

func init() {
	prometheus.MustRegister(APIRequests, CircuitOpen, Trades, RealizedPnL, UnrealizedPnL)
}
