// Package risk implements the trade-lifecycle state machine: gating
// new entries, sizing positions, tracking the single active trade, and
// enforcing daily loss and trade-count limits.
//
// State per trading day moves IDLE -> OPEN -> IDLE and, once the daily
// loss limit trips, SHUTDOWN until an explicit reset or date rollover.
// Expected business blocks (trade already open, daily loss hit,
// quantity zero) are outcome values, never errors.
package risk

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fyers-orb-bot/internal/config"
	"fyers-orb-bot/internal/metrics"
	"fyers-orb-bot/internal/models"
	"fyers-orb-bot/internal/strategy"
)

// minRiskPerUnit keeps the sizing divisor away from zero for tiny
// premiums.
const minRiskPerUnit = 1e-9

// Broker is the gateway surface the engine needs. *fyers.Client
// satisfies it.
type Broker interface {
	GetLTP(ctx context.Context, symbol string) (float64, error)
	PlaceOrder(ctx context.Context, order *models.Order) (string, error)
	ConfirmFillPrice(ctx context.Context, symbol, orderID string) (float64, error)
	GetPositions(ctx context.Context) ([]models.Position, error)
	IsTradingPaused() bool
	PauseRemaining() time.Duration
}

// Journal persists closed trades. Write failures must be handled by
// the implementation; the trading path treats journaling as
// best-effort.
type Journal interface {
	RecordClosedTrade(trade models.ClosedTrade) error
}

// Notifier receives trade lifecycle events.
type Notifier interface {
	Notify(event, message string)
}

// DayState is the per-trading-day counters, reset lazily on IST date
// rollover.
type DayState struct {
	Date           string  `json:"date"`
	TradesToday    int     `json:"trades_today"`
	RealizedPnL    float64 `json:"realized_pnl"`
	Shutdown       bool    `json:"shutdown"`
	ShutdownReason string  `json:"shutdown_reason,omitempty"`
}

// PnLTracker carries running capital. Realized accumulates, unrealized
// is overwritten on every monitor tick.
type PnLTracker struct {
	InitialCapital float64 `json:"initial_capital"`
	Realized       float64 `json:"realized_pnl"`
	Unrealized     float64 `json:"unrealized_pnl"`
}

// CurrentCapital is initial capital plus realized P&L.
func (p PnLTracker) CurrentCapital() float64 {
	return p.InitialCapital + p.Realized
}

// Engine is the risk engine. All trading state mutations go through
// its mutex; external readers get copies via Snapshot.
type Engine struct {
	cfg      *config.Config
	broker   Broker
	journal  Journal
	notifier Notifier
	logger   zerolog.Logger

	mu        sync.Mutex
	day       DayState
	pnl       PnLTracker
	active    *models.ActiveTrade
	executing bool // entry in flight, slot reserved

	monitorCancel context.CancelFunc
	monitorDone   chan MonitorStatus

	now func() time.Time
}

// NewEngine creates a risk engine. journal and notifier may be nil.
func NewEngine(cfg *config.Config, broker Broker, journal Journal, notifier Notifier, logger zerolog.Logger) *Engine {
	e := &Engine{
		cfg:      cfg,
		broker:   broker,
		journal:  journal,
		notifier: notifier,
		logger:   logger.With().Str("component", "risk").Logger(),
		now:      time.Now,
	}
	e.day = DayState{Date: strategy.TradingDate(e.now())}
	e.pnl = PnLTracker{InitialCapital: cfg.Risk.InitialCapital}
	return e
}

// CanTradeNow reports whether a new entry is allowed. Checks run in
// fixed order and the first failure short-circuits with its reason.
func (e *Engine) CanTradeNow() (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canTradeNowLocked()
}

func (e *Engine) canTradeNowLocked() (bool, string) {
	e.rolloverLocked()

	if e.day.Shutdown {
		return false, "shutdown_active"
	}
	if e.day.RealizedPnL <= -e.cfg.Risk.MaxDailyLoss {
		e.tripShutdownLocked("max_daily_loss_hit")
		return false, "max_daily_loss_hit"
	}
	if e.day.TradesToday >= e.cfg.Risk.MaxTradesPerDay {
		return false, "max_trades_reached"
	}
	if e.active != nil || e.executing {
		return false, "trade_already_open"
	}
	if e.broker.IsTradingPaused() {
		return false, "gateway_circuit_open"
	}
	return true, ""
}

// ComputeQuantity sizes a position: risk budget divided by per-unit
// stop distance, floored to whole lots. Zero means the entry is
// unaffordable under the risk bounds; callers treat that as a block.
func (e *Engine) ComputeQuantity(entryPrice float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.computeQuantityLocked(entryPrice)
}

func (e *Engine) computeQuantityLocked(entryPrice float64) int {
	riskBudget := e.pnl.CurrentCapital() * e.cfg.Risk.RiskPctPerTrade / 100
	perUnit := entryPrice * e.cfg.Trading.StopLossPct
	if perUnit < minRiskPerUnit {
		perUnit = minRiskPerUnit
	}

	units := int(math.Floor(riskBudget / perUnit))
	lots := units / e.cfg.Trading.LotSize
	return lots * e.cfg.Trading.LotSize
}

// tripShutdownLocked enters the SHUTDOWN state. Caller must hold e.mu.
func (e *Engine) tripShutdownLocked(reason string) {
	if e.day.Shutdown {
		return
	}
	e.day.Shutdown = true
	e.day.ShutdownReason = reason
	e.logger.Warn().
		Str("reason", reason).
		Float64("daily_pnl", e.day.RealizedPnL).
		Msg("Trading shut down for the day")
	if e.notifier != nil {
		e.notifier.Notify("shutdown", "trading disabled: "+reason)
	}
}

// rolloverLocked resets daily state when the IST date changes. Caller
// must hold e.mu. An open trade survives rollover; only the daily
// counters and the shutdown flag reset.
func (e *Engine) rolloverLocked() {
	today := strategy.TradingDate(e.now())
	if e.day.Date == today {
		return
	}
	e.logger.Info().
		Str("from", e.day.Date).
		Str("to", today).
		Msg("Trading date rollover, daily state reset")
	e.day = DayState{Date: today}
	e.pnl.Unrealized = 0
	metrics.UnrealizedPnL.Set(0)
}

// ResetDay clears daily counters and the shutdown flag on demand.
func (e *Engine) ResetDay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.day = DayState{Date: strategy.TradingDate(e.now())}
	e.logger.Info().Msg("Daily state reset")
}

// Snapshot is a point-in-time copy of engine state for the dashboard.
type Snapshot struct {
	Day            DayState            `json:"day"`
	PnL            PnLTracker          `json:"pnl"`
	CurrentCapital float64             `json:"current_capital"`
	ActiveTrade    *models.ActiveTrade `json:"active_trade,omitempty"`
	GatewayPaused  bool                `json:"gateway_paused"`
}

// Snapshot returns a copy of the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rolloverLocked()

	s := Snapshot{
		Day:            e.day,
		PnL:            e.pnl,
		CurrentCapital: e.pnl.CurrentCapital(),
		GatewayPaused:  e.broker.IsTradingPaused(),
	}
	if e.active != nil {
		trade := *e.active
		s.ActiveTrade = &trade
	}
	return s
}

// HasActiveTrade reports whether a trade is currently open.
func (e *Engine) HasActiveTrade() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// ReconcileOnStartup queries broker positions and logs them. It never
// fails boot; any error degrades to a warning.
func (e *Engine) ReconcileOnStartup(ctx context.Context) {
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Startup position reconciliation failed, continuing without it")
		return
	}
	if len(positions) == 0 {
		e.logger.Info().Msg("No open broker positions at startup")
		return
	}
	for _, p := range positions {
		e.logger.Warn().
			Str("symbol", p.Symbol).
			Int("qty", p.Quantity).
			Float64("avg_price", p.AveragePrice).
			Float64("pnl", p.PnL).
			Msg("Broker reports an open position not managed by this bot")
	}
}
