package fyers

import (
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	apperrors "fyers-orb-bot/internal/errors"
	"fyers-orb-bot/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Payload is a decoded FYERS response body. FYERS responses vary in
// shape across endpoints and API revisions, so typed extraction goes
// through the fallback-key tables below rather than struct tags.
type Payload map[string]interface{}

// Fallback key tables. FYERS has shipped several shapes for the same
// fields; each table enumerates the known variants in lookup order.
var (
	ltpKeys       = []string{"ltp", "lp", "ltP"}
	strikeKeys    = []string{"strike_price", "strike"}
	expiryKeys    = []string{"expiry", "expiryDate"}
	symbolKeys    = []string{"symbol", "symbol_name"}
	typeKeys      = []string{"option_type", "type"}
	chainKeys     = []string{"optionsChain", "data"}
	positionsKeys = []string{"netPositions", "positions"}
	qtyKeys       = []string{"netQty", "qty"}
)

// decodePayload parses a response body. Non-JSON bodies (HTML error
// pages, plain text) are normalized into an error-marker payload so
// they never crash the caller.
func decodePayload(body []byte, status int) Payload {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		raw := string(body)
		if len(raw) > 500 {
			raw = raw[:500]
		}
		return Payload{
			"s":       "error",
			"message": "non-JSON response from FYERS",
			"raw":     raw,
			"status":  status,
		}
	}
	return payload
}

// IsErrorMarker reports whether the broker marked this payload failed.
func (p Payload) IsErrorMarker() bool {
	s, _ := p["s"].(string)
	return s == "error"
}

// Message returns the broker message, or a fallback.
func (p Payload) Message(fallback string) string {
	if m, ok := p["message"].(string); ok && m != "" {
		return m
	}
	return fallback
}

// Code returns the broker-specific numeric error code, zero if absent.
func (p Payload) Code() int {
	return int(toFloat(p["code"]))
}

// float returns the first present key from keys converted to float64.
func (p Payload) float(keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := p[k]; ok && v != nil {
			return toFloat(v), true
		}
	}
	return 0, false
}

// str returns the first present non-empty string from keys.
func (p Payload) str(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := p[k].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// list returns the first present key from keys as a slice of payloads.
func (p Payload) list(keys ...string) []Payload {
	for _, k := range keys {
		items, ok := p[k].([]interface{})
		if !ok {
			continue
		}
		out := make([]Payload, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, Payload(m))
			}
		}
		return out
	}
	return nil
}

// QuoteLTP extracts the last traded price from a /quotes payload:
// {"d": [{"v": {"lp": ...}}]} with flattened fallbacks.
func (p Payload) QuoteLTP() (float64, error) {
	for _, entry := range p.list("d") {
		if v, ok := entry["v"].(map[string]interface{}); ok {
			if ltp, ok := Payload(v).float(ltpKeys...); ok {
				return ltp, nil
			}
		}
		if ltp, ok := entry.float(ltpKeys...); ok {
			return ltp, nil
		}
	}
	return 0, apperrors.Wrap(apperrors.ErrMalformedResponse, "quotes payload missing ltp")
}

// OptionChain extracts normalized contracts from an option-chain payload.
func (p Payload) OptionChain() ([]models.OptionContract, error) {
	rows := p.list(chainKeys...)
	if len(rows) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrMalformedResponse, "option chain payload empty")
	}

	contracts := make([]models.OptionContract, 0, len(rows))
	for _, row := range rows {
		symbol, ok := row.str(symbolKeys...)
		if !ok {
			continue
		}
		optType, _ := row.str(typeKeys...)
		optType = strings.ToUpper(optType)
		switch {
		case strings.HasSuffix(optType, "CE"):
			optType = "CE"
		case strings.HasSuffix(optType, "PE"):
			optType = "PE"
		default:
			continue // underlying / futures rows
		}

		strike, _ := row.float(strikeKeys...)
		ltp, _ := row.float(ltpKeys...)

		contracts = append(contracts, models.OptionContract{
			Symbol:     symbol,
			Strike:     int(strike),
			OptionType: optType,
			Expiry:     parseExpiry(row),
			LTP:        ltp,
		})
	}

	if len(contracts) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrMalformedResponse, "option chain has no option rows")
	}
	return contracts, nil
}

// Positions extracts open positions from a /positions payload.
func (p Payload) Positions() []models.Position {
	var out []models.Position
	for _, row := range p.list(positionsKeys...) {
		qty, _ := row.float(qtyKeys...)
		if qty == 0 {
			continue
		}
		symbol, _ := row.str(symbolKeys...)
		avg, _ := row.float("avgPrice", "buyAvg")
		ltp, _ := row.float(ltpKeys...)
		pl, _ := row.float("pl", "realized_profit")
		out = append(out, models.Position{
			Symbol:       symbol,
			Quantity:     int(qty),
			AveragePrice: avg,
			LTP:          ltp,
			PnL:          pl,
		})
	}
	return out
}

// FundsAvailable extracts the available balance from a /funds payload:
/// {"fund_limit": [{"title": "Available Balance", "equityAmount": ...}]}.
func (p Payload) FundsAvailable() (float64, bool) {
	for _, row := range p.list("fund_limit", "data") {
		title, _ := row.str("title")
		if !strings.Contains(strings.ToLower(title), "available") {
			continue
		}
		if amount, ok := row.float("equityAmount", "amount"); ok {
			return amount, true
		}
	}
	return 0, false
}

// TradedPrice extracts the traded (fill) price for orderID from a
// tradebook payload, if present.
func (p Payload) TradedPrice(orderID string) (float64, bool) {
	for _, row := range p.list("tradeBook", "orderBook", "data") {
		id, _ := row.str("orderNumber", "id", "orderId")
		if id != orderID {
			continue
		}
		if price, ok := row.float("tradePrice", "tradedPrice", "avgPrice"); ok && price > 0 {
			return price, true
		}
	}
	return 0, false
}

// OrderID extracts the order identifier from an order placement response.
func (p Payload) OrderID() string {
	if id, ok := p.str("id", "orderNumber"); ok {
		return id
	}
	return ""
}

func parseExpiry(row Payload) time.Time {
	raw, ok := row.str(expiryKeys...)
	if !ok {
		// Some revisions ship expiry as an epoch number.
		if epoch, ok := row.float(expiryKeys...); ok && epoch > 0 {
			return time.Unix(int64(epoch), 0)
		}
		return time.Time{}
	}
	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(epoch, 0)
	}
	if len(raw) >= 10 {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t
		}
	}
	if t, err := time.Parse("02-01-2006", raw); err == nil {
		return t
	}
	return time.Time{}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
