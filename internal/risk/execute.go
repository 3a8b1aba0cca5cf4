package risk

import (
	"context"
	"fmt"
	"time"

	apperrors "fyers-orb-bot/internal/errors"
	"fyers-orb-bot/internal/metrics"
	"fyers-orb-bot/internal/models"
)

// Outcome tags an ExecutionResult. Blocks are expected control flow,
// failures wrap an underlying error, executed carries the new trade.
type Outcome string

const (
	OutcomeBlocked  Outcome = "blocked"
	OutcomeFailed   Outcome = "failed"
	OutcomeExecuted Outcome = "executed"
)

// ExecutionResult is the tagged outcome of ExecuteTrade.
type ExecutionResult struct {
	Outcome Outcome             `json:"status"`
	Reason  string              `json:"reason,omitempty"`
	Trade   *models.ActiveTrade `json:"trade,omitempty"`
	Err     error               `json:"-"`
}

func blocked(reason string) ExecutionResult {
	metrics.Trades.WithLabelValues("blocked").Inc()
	return ExecutionResult{Outcome: OutcomeBlocked, Reason: reason}
}

func failed(reason string, err error) ExecutionResult {
	metrics.Trades.WithLabelValues("failed").Inc()
	return ExecutionResult{Outcome: OutcomeFailed, Reason: reason, Err: err}
}

// ExecuteTrade runs the full entry pipeline for a signal that has
// already been resolved into a candidate contract: re-validate the
// gates, size the position, place (or simulate) the order, resolve the
// fill, derive stop/target, store the ActiveTrade, and start the
// monitor. No failure path leaves a half-initialized trade behind.
func (e *Engine) ExecuteTrade(ctx context.Context, signal *models.Signal, candidate *models.TradeCandidate) ExecutionResult {
	e.mu.Lock()
	if ok, reason := e.canTradeNowLocked(); !ok {
		e.mu.Unlock()
		return blocked(reason)
	}

	qty := e.computeQuantityLocked(candidate.LTP)
	if qty <= 0 {
		e.mu.Unlock()
		e.logger.Info().
			Str("symbol", candidate.Symbol).
			Float64("ltp", candidate.LTP).
			Msg("Entry blocked, risk budget below one lot")
		return blocked("quantity_below_minimum_for_risk")
	}

	// Reserve the slot before releasing the lock for the network call.
	e.executing = true
	e.mu.Unlock()

	trade, err := e.enterPosition(ctx, candidate, qty)

	e.mu.Lock()
	e.executing = false
	if err != nil {
		e.mu.Unlock()
		e.logger.Error().Err(err).
			Str("symbol", candidate.Symbol).
			Msg("Trade entry failed")
		return failed("order_placement_failed", err)
	}

	e.active = trade
	e.day.TradesToday++
	tradesToday := e.day.TradesToday
	e.mu.Unlock()

	metrics.Trades.WithLabelValues("executed").Inc()
	e.logger.Info().
		Str("symbol", trade.Symbol).
		Str("direction", string(trade.Direction)).
		Int("qty", trade.Quantity).
		Float64("entry", trade.EntryPrice).
		Float64("stop_loss", trade.StopLoss).
		Float64("target", trade.Target).
		Int("trades_today", tradesToday).
		Msg("Trade opened")
	if e.notifier != nil {
		e.notifier.Notify("entry", fmt.Sprintf("%s %s x%d @ %.2f (SL %.2f, TGT %.2f)",
			trade.Direction, trade.Symbol, trade.Quantity, trade.EntryPrice, trade.StopLoss, trade.Target))
	}

	e.startMonitor()

	result := *trade
	return ExecutionResult{Outcome: OutcomeExecuted, Trade: &result}
}

// enterPosition places the entry order (or simulates one in paper
// mode), resolves the fill price, and builds the ActiveTrade.
func (e *Engine) enterPosition(ctx context.Context, candidate *models.TradeCandidate, qty int) (*models.ActiveTrade, error) {
	var (
		orderID   string
		fillPrice float64
	)

	if e.cfg.IsPaperMode() {
		orderID = fmt.Sprintf("PAPER-%d", e.now().UnixNano())
		fillPrice = candidate.LTP
	} else {
		order := &models.Order{
			Symbol:      candidate.Symbol,
			Qty:         qty,
			Type:        2, // market
			Side:        entrySide(candidate.Direction),
			ProductType: "INTRADAY",
			Validity:    "DAY",
			OrderTag:    "orbbot",
		}

		id, err := e.broker.PlaceOrder(ctx, order)
		if err != nil {
			return nil, err
		}
		orderID = id

		price, err := e.broker.ConfirmFillPrice(ctx, candidate.Symbol, orderID)
		if err != nil {
			return nil, apperrors.Wrap(err, "resolving fill price")
		}
		fillPrice = price
	}

	stop, target := exitLevels(candidate.Direction, fillPrice, e.cfg.Trading.StopLossPct, e.cfg.Trading.TargetPct)

	return &models.ActiveTrade{
		Symbol:     candidate.Symbol,
		Direction:  candidate.Direction,
		Quantity:   qty,
		EntryPrice: fillPrice,
		StopLoss:   stop,
		Target:     target,
		Status:     models.TradeOpen,
		OrderID:    orderID,
		EntryTime:  e.now(),
	}, nil
}

// entrySide maps direction to the broker order side. The exit order
// uses the negation.
func entrySide(d models.Direction) int {
	return int(d.Sign())
}

// exitLevels derives stop-loss and target from the fill by fixed
// percentage offsets, direction-aware: for CALL stop sits below entry
// and target above, for PUT inverted.
func exitLevels(d models.Direction, entry, slPct, tgtPct float64) (stop, target float64) {
	if d == models.DirectionPut {
		return entry * (1 + slPct), entry * (1 - tgtPct)
	}
	return entry * (1 - slPct), entry * (1 + tgtPct)
}

// startMonitor spawns the supervised monitor loop for the active
// trade. The previous loop, if any, is cancelled first.
func (e *Engine) startMonitor() {
	e.mu.Lock()
	if e.monitorCancel != nil {
		e.monitorCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan MonitorStatus, 1)
	e.monitorCancel = cancel
	e.monitorDone = done
	e.mu.Unlock()

	go e.monitorLoop(ctx, done)
}

// StopMonitor cancels the monitor loop and waits for its terminal
// status. Used during graceful shutdown.
func (e *Engine) StopMonitor() {
	e.mu.Lock()
	cancel := e.monitorCancel
	done := e.monitorDone
	e.monitorCancel = nil
	e.monitorDone = nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		select {
		case status := <-done:
			e.logger.Debug().Str("status", string(status)).Msg("Monitor loop stopped")
		case <-time.After(10 * time.Second):
			e.logger.Warn().Msg("Monitor loop did not stop within timeout")
		}
	}
}
