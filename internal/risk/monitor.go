package risk

import (
	"context"
	"fmt"
	"time"

	"fyers-orb-bot/internal/metrics"
	"fyers-orb-bot/internal/models"
	"fyers-orb-bot/internal/strategy"
)

// MonitorStatus classifies one monitor tick.
type MonitorStatus string

const (
	MonitorIdle       MonitorStatus = "idle"
	MonitorHolding    MonitorStatus = "holding"
	MonitorExited     MonitorStatus = "exited"
	MonitorExitFailed MonitorStatus = "exit_failed"
	MonitorError      MonitorStatus = "error"
)

// MonitorReport is the snapshot returned by one MonitorTrade call.
type MonitorReport struct {
	Status         MonitorStatus       `json:"status"`
	Trade          *models.ActiveTrade `json:"trade,omitempty"`
	LTP            float64             `json:"ltp,omitempty"`
	UnrealizedPnL  float64             `json:"unrealized_pnl"`
	RealizedPnL    float64             `json:"realized_pnl"`
	CurrentCapital float64             `json:"current_capital"`
	TradesToday    int                 `json:"trades_today"`
	ExitReason     string              `json:"exit_reason,omitempty"`
}

// MonitorTrade runs one monitoring iteration: with no active trade it
// returns an idle snapshot; otherwise it fetches the quote, refreshes
// unrealized P&L, and evaluates exit conditions in fixed priority,
// hours cutoff before stop-loss before target.
func (e *Engine) MonitorTrade(ctx context.Context) MonitorReport {
	e.mu.Lock()
	if e.active == nil {
		report := e.idleReportLocked()
		e.mu.Unlock()
		return report
	}
	trade := *e.active
	e.mu.Unlock()

	ltp, err := e.broker.GetLTP(ctx, trade.Symbol)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", trade.Symbol).Msg("Quote fetch failed during monitoring")
		return e.reportWith(MonitorError, &trade, 0, "")
	}

	unrealized := pnl(trade.Direction, trade.EntryPrice, ltp, trade.Quantity)

	e.mu.Lock()
	if e.active == nil {
		report := e.idleReportLocked()
		e.mu.Unlock()
		return report
	}
	e.pnl.Unrealized = unrealized
	e.mu.Unlock()
	metrics.UnrealizedPnL.Set(unrealized)

	exitReason := evaluateExit(&trade, ltp, e.now())
	if exitReason == "" {
		return e.reportWith(MonitorHolding, &trade, ltp, "")
	}

	closed, err := e.exitTrade(ctx, exitReason, ltp)
	if err != nil {
		// The position is still live. Keep it OPEN and let the next
		// tick retry rather than abandoning exposure.
		e.logger.Error().Err(err).
			Str("symbol", trade.Symbol).
			Str("exit_reason", exitReason).
			Msg("Exit attempt failed, trade remains open")
		return e.reportWith(MonitorExitFailed, &trade, ltp, exitReason)
	}

	return e.reportWith(MonitorExited, closed, ltp, exitReason)
}

// evaluateExit checks exit conditions in fixed priority and returns
// the exit reason, or "" to keep holding. Comparisons are
// direction-aware: for CALL the stop is below entry, for PUT above.
func evaluateExit(trade *models.ActiveTrade, ltp float64, now time.Time) string {
	if strategy.PastSquareOff(now) {
		return "square_off_hours"
	}
	if trade.Direction == models.DirectionPut {
		if ltp >= trade.StopLoss {
			return "stop_loss"
		}
		if ltp <= trade.Target {
			return "target"
		}
		return ""
	}
	if ltp <= trade.StopLoss {
		return "stop_loss"
	}
	if ltp >= trade.Target {
		return "target"
	}
	return ""
}

// exitTrade places the closing order (or simulates it), books realized
// P&L, journals the trade, and releases the slot, returning the closed
// trade record. On error the trade stays OPEN and untouched.
func (e *Engine) exitTrade(ctx context.Context, reason string, lastPrice float64) (*models.ActiveTrade, error) {
	e.mu.Lock()
	if e.active == nil {
		e.mu.Unlock()
		return nil, nil
	}
	trade := *e.active
	e.mu.Unlock()

	exitPrice := lastPrice
	if !e.cfg.IsPaperMode() {
		order := &models.Order{
			Symbol:      trade.Symbol,
			Qty:         trade.Quantity,
			Type:        2, // market
			Side:        -entrySide(trade.Direction),
			ProductType: "INTRADAY",
			Validity:    "DAY",
			OrderTag:    "orbbot",
		}

		orderID, err := e.broker.PlaceOrder(ctx, order)
		if err != nil {
			return nil, err
		}

		price, err := e.broker.ConfirmFillPrice(ctx, trade.Symbol, orderID)
		if err != nil {
			// The closing order went through; the last quote is the
			// best available exit estimate for the books.
			e.logger.Warn().Err(err).Msg("Exit fill confirmation failed, booking at last quote")
		} else {
			exitPrice = price
		}
	}

	realized := pnl(trade.Direction, trade.EntryPrice, exitPrice, trade.Quantity)
	exitTime := e.now()

	trade.Status = models.TradeClosed
	trade.ExitPrice = exitPrice
	trade.ExitTime = exitTime
	trade.ExitReason = reason

	e.mu.Lock()
	e.day.RealizedPnL += realized
	e.pnl.Realized += realized
	e.pnl.Unrealized = 0
	if e.day.RealizedPnL <= -e.cfg.Risk.MaxDailyLoss {
		e.tripShutdownLocked("max_daily_loss_hit")
	}
	e.active = nil
	dailyPnL := e.day.RealizedPnL
	e.mu.Unlock()

	metrics.RealizedPnL.Set(dailyPnL)
	metrics.UnrealizedPnL.Set(0)
	metrics.Trades.WithLabelValues("closed").Inc()

	e.logger.Info().
		Str("symbol", trade.Symbol).
		Str("reason", reason).
		Float64("entry", trade.EntryPrice).
		Float64("exit", exitPrice).
		Float64("realized_pnl", realized).
		Float64("daily_pnl", dailyPnL).
		Msg("Trade closed")
	if e.notifier != nil {
		e.notifier.Notify("exit", fmt.Sprintf("%s closed (%s): %.2f -> %.2f, P&L %.2f",
			trade.Symbol, reason, trade.EntryPrice, exitPrice, realized))
	}

	e.journalClosed(trade, exitPrice, realized, reason, exitTime)
	return &trade, nil
}

// journalClosed writes the journal row. Journal failures never affect
// the trading path.
func (e *Engine) journalClosed(trade models.ActiveTrade, exitPrice, realized float64, reason string, exitTime time.Time) {
	if e.journal == nil {
		return
	}
	record := models.ClosedTrade{
		Symbol:      trade.Symbol,
		Direction:   trade.Direction,
		Quantity:    trade.Quantity,
		EntryPrice:  trade.EntryPrice,
		ExitPrice:   exitPrice,
		RealizedPnL: realized,
		ExitReason:  reason,
		EntryTime:   trade.EntryTime,
		ExitTime:    exitTime,
		IsPaper:     e.cfg.IsPaperMode(),
	}
	if err := e.journal.RecordClosedTrade(record); err != nil {
		e.logger.Warn().Err(err).Str("symbol", trade.Symbol).Msg("Failed to journal closed trade")
	}
}

// monitorLoop runs MonitorTrade on a fixed interval for the lifetime
// of the open trade. It reports its terminal status on done and exits
// when the trade closes or the context is cancelled.
func (e *Engine) monitorLoop(ctx context.Context, done chan<- MonitorStatus) {
	ticker := time.NewTicker(e.cfg.Trading.MonitorInterval)
	defer ticker.Stop()

	last := MonitorHolding
	for {
		select {
		case <-ctx.Done():
			done <- last
			return
		case <-ticker.C:
			report := e.MonitorTrade(ctx)
			last = report.Status
			if report.Status == MonitorExited || report.Status == MonitorIdle {
				done <- report.Status
				return
			}
		}
	}
}

// SquareOffAndShutdown best-effort closes any open trade during
// graceful shutdown. All errors are suppressed; shutdown must
// complete regardless.
func (e *Engine) SquareOffAndShutdown(ctx context.Context) {
	e.StopMonitor()

	e.mu.Lock()
	trade := e.active
	e.mu.Unlock()
	if trade == nil {
		return
	}

	ltp, err := e.broker.GetLTP(ctx, trade.Symbol)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Quote fetch failed during square-off, booking at entry")
		ltp = trade.EntryPrice
	}

	if _, err := e.exitTrade(ctx, "shutdown_square_off", ltp); err != nil {
		e.logger.Error().Err(err).
			Str("symbol", trade.Symbol).
			Msg("Square-off failed during shutdown, position may still be live at the broker")
	}
}

// pnl computes direction-signed P&L for qty units between entry and
// price. CALL is +1, PUT is -1.
func pnl(d models.Direction, entry, price float64, qty int) float64 {
	return (price - entry) * float64(qty) * d.Sign()
}

func (e *Engine) idleReportLocked() MonitorReport {
	return MonitorReport{
		Status:         MonitorIdle,
		RealizedPnL:    e.day.RealizedPnL,
		CurrentCapital: e.pnl.CurrentCapital(),
		TradesToday:    e.day.TradesToday,
	}
}

func (e *Engine) reportWith(status MonitorStatus, trade *models.ActiveTrade, ltp float64, exitReason string) MonitorReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	report := MonitorReport{
		Status:         status,
		Trade:          trade,
		LTP:            ltp,
		UnrealizedPnL:  e.pnl.Unrealized,
		RealizedPnL:    e.day.RealizedPnL,
		CurrentCapital: e.pnl.CurrentCapital(),
		TradesToday:    e.day.TradesToday,
		ExitReason:     exitReason,
	}
	return report
}
