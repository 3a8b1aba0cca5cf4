package models

import "time"

// ActiveTrade is the single open position managed by the risk engine.
// At most one instance exists at a time.
type ActiveTrade struct {
	Symbol     string      `json:"symbol"`
	Direction  Direction   `json:"direction"`
	Quantity   int         `json:"qty"`
	EntryPrice float64     `json:"entry_price"`
	StopLoss   float64     `json:"stop_loss"`
	Target     float64     `json:"target"`
	Status     TradeStatus `json:"status"`
	OrderID    string      `json:"order_id,omitempty"`
	EntryTime  time.Time   `json:"entry_time"`
	ExitPrice  float64     `json:"exit_price,omitempty"`
	ExitTime   time.Time   `json:"exit_time,omitempty"`
	ExitReason string      `json:"exit_reason,omitempty"`
}

// ClosedTrade is the journal record written once a trade closes.
type ClosedTrade struct {
	ID          int64
	Symbol      string
	Direction   Direction
	Quantity    int
	EntryPrice  float64
	ExitPrice   float64
	RealizedPnL float64
	ExitReason  string
	EntryTime   time.Time
	ExitTime    time.Time
	IsPaper     bool
}

// DailySummary aggregates one trading day's journal rows.
type DailySummary struct {
	Date        string
	Trades      int
	RealizedPnL float64
}

// Position is a broker-reported open position, used only for
// startup reconciliation.
type Position struct {
	Symbol       string
	Quantity     int
	AveragePrice float64
	LTP          float64
	PnL          float64
}

// Order is an outbound order request in FYERS v3 shape.
type Order struct {
	Symbol       string  `json:"symbol"`
	Qty          int     `json:"qty"`
	Type         int     `json:"type"` // 2 = market
	Side         int     `json:"side"` // 1 = buy, -1 = sell
	ProductType  string  `json:"productType"`
	LimitPrice   float64 `json:"limitPrice"`
	StopPrice    float64 `json:"stopPrice"`
	Validity     string  `json:"validity"`
	DisclosedQty int     `json:"disclosedQty"`
	OfflineOrder bool    `json:"offlineOrder"`
	StopLoss     float64 `json:"stopLoss"`
	TakeProfit   float64 `json:"takeProfit"`
	OrderTag     string  `json:"orderTag,omitempty"`
}

// OptionContract is one row of the FYERS option chain after the
// tolerant-parsing boundary has normalized it.
type OptionContract struct {
	Symbol     string
	Strike     int
	OptionType string // CE or PE
	Expiry     time.Time
	LTP        float64
}
