// Package models provides domain models for the trading bot.
package models

import "time"

// Direction is the side of an options signal.
type Direction string

const (
	DirectionCall Direction = "CALL"
	DirectionPut  Direction = "PUT"
)

// Sign returns +1 for CALL (long) and -1 for PUT (short) P&L math.
func (d Direction) Sign() float64 {
	if d == DirectionPut {
		return -1
	}
	return 1
}

// OptionType returns the FYERS contract suffix for the direction.
func (d Direction) OptionType() string {
	if d == DirectionPut {
		return "PE"
	}
	return "CE"
}

// TradingMode selects between live broker orders and simulated fills.
type TradingMode string

const (
	ModeLive  TradingMode = "LIVE"
	ModePaper TradingMode = "PAPER"
)

// Signal is a point-in-time ORB breakout reading. It is a transient
// value consumed by the caller, never persisted.
type Signal struct {
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`
	RangeHigh float64   `json:"range_high"`
	RangeLow  float64   `json:"range_low"`
	Timestamp time.Time `json:"timestamp"`
}

// TradeCandidate is a concrete tradable contract resolved from a signal.
type TradeCandidate struct {
	Symbol          string    `json:"symbol"`
	Strike          int       `json:"strike"`
	OptionType      string    `json:"option_type"`
	LTP             float64   `json:"ltp"`
	UnderlyingPrice float64   `json:"underlying_price"`
	ATMStrike       int       `json:"atm_strike"`
	Direction       Direction `json:"direction"`
}

// TradeStatus is the lifecycle state of an ActiveTrade.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)
