// Package strategy implements the Opening-Range-Breakout signal
// detector.
//
// The detector consumes live ticks, builds the opening range during
// [09:15, 09:30) IST, locks it for the rest of the day, and answers
// breakout queries against the locked range. A breakout reading is a
// point-in-time query, not an edge-triggered event: repeated calls
// while price stays past the boundary return the same signal.
package strategy

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fyers-orb-bot/internal/models"
)

// tickState accumulates the running range while collecting.
type tickState struct {
	high      float64
	low       float64
	lastPrice float64
	lastTS    time.Time
	samples   int
}

// Detector is the ORB signal detector. All mutation happens through
// OnTick; CheckBreakout is a read.
type Detector struct {
	logger zerolog.Logger

	mu        sync.Mutex
	rangeDate string // IST date the range is locked for, "" if unlocked
	rangeHigh float64
	rangeLow  float64
	ticks     tickState

	now func() time.Time // injectable clock for tests
}

// NewDetector creates an ORB detector.
func NewDetector(logger zerolog.Logger) *Detector {
	return &Detector{
		logger: logger.With().Str("component", "orb").Logger(),
		now:    time.Now,
	}
}

// OnTick consumes one price tick. Inside the opening window it extends
// the running range; at or after 09:30 it locks the range once per
// trading date.
func (d *Detector) OnTick(price float64, ts time.Time) {
	if price <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	today := TradingDate(ts)
	d.rolloverLocked(today)

	d.ticks.lastPrice = price
	d.ticks.lastTS = ts

	if InOpeningRange(ts) {
		if d.ticks.samples == 0 || price > d.ticks.high {
			d.ticks.high = price
		}
		if d.ticks.samples == 0 || price < d.ticks.low {
			d.ticks.low = price
		}
		d.ticks.samples++
		return
	}

	if minuteOfDay(ts) >= openingRangeEnd && d.rangeDate != today && d.ticks.samples > 0 {
		d.lockRange(today)
	}
}

// CheckBreakout returns the current breakout signal, or nil when no
// breakout condition holds. Outside [09:30, 15:15] IST it always
// returns nil. Boundary touches are not breakouts: comparisons are
// strict.
func (d *Detector) CheckBreakout() *models.Signal {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !InEvaluationWindow(now) {
		return nil
	}

	today := TradingDate(now)
	d.rolloverLocked(today)

	if d.rangeDate != today {
		// Feed gap fallback: lock from whatever samples exist.
		if d.ticks.samples == 0 {
			return nil
		}
		d.lockRange(today)
	}

	price := d.ticks.lastPrice
	if price <= 0 {
		return nil
	}

	switch {
	case price > d.rangeHigh:
		return &models.Signal{
			Direction: models.DirectionCall,
			Price:     price,
			RangeHigh: d.rangeHigh,
			RangeLow:  d.rangeLow,
			Timestamp: now,
		}
	case price < d.rangeLow:
		return &models.Signal{
			Direction: models.DirectionPut,
			Price:     price,
			RangeHigh: d.rangeHigh,
			RangeLow:  d.rangeLow,
			Timestamp: now,
		}
	default:
		return nil
	}
}

// Range returns the locked range and whether a lock exists for today.
func (d *Detector) Range() (high, low float64, locked bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rangeDate != TradingDate(d.now()) {
		return 0, 0, false
	}
	return d.rangeHigh, d.rangeLow, true
}

// LastPrice returns the most recent known price.
func (d *Detector) LastPrice() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticks.lastPrice
}

// Reset clears the locked range and tick state, used by the daily
// reset operation.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rangeDate = ""
	d.rangeHigh = 0
	d.rangeLow = 0
	d.ticks = tickState{}
}

// rolloverLocked clears stale state when the trading date changes.
// Caller must hold d.mu.
func (d *Detector) rolloverLocked(today string) {
	if d.rangeDate != "" && d.rangeDate != today {
		d.rangeDate = ""
		d.rangeHigh = 0
		d.rangeLow = 0
		d.ticks = tickState{}
	}
	if d.ticks.lastTS.IsZero() {
		return
	}
	if TradingDate(d.ticks.lastTS) != today {
		d.ticks = tickState{}
	}
}

// lockRange fixes the range for the day. Once locked, high/low are
// immutable until the next date rollover. Caller must hold d.mu.
func (d *Detector) lockRange(today string) {
	d.rangeDate = today
	d.rangeHigh = d.ticks.high
	d.rangeLow = d.ticks.low
	d.logger.Info().
		Float64("high", d.rangeHigh).
		Float64("low", d.rangeLow).
		Str("date", today).
		Msg("ORB range locked")
}
