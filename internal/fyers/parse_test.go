package fyers

import (
	"testing"
	"time"

	apperrors "fyers-orb-bot/internal/errors"
)

func TestDecodePayloadNonJSON(t *testing.T) {
	payload := decodePayload([]byte("<html>bad gateway</html>"), 502)

	if !payload.IsErrorMarker() {
		t.Fatal("non-JSON body should decode to an error payload")
	}
	if payload.Message("") != "non-JSON response from FYERS" {
		t.Fatalf("unexpected message: %s", payload.Message(""))
	}
	if payload["status"] != 502 {
		t.Fatalf("status = %v, want 502", payload["status"])
	}
}

func TestDecodePayloadTruncatesRaw(t *testing.T) {
	big := make([]byte, 2000)
	for i := range big {
		big[i] = 'x'
	}
	payload := decodePayload(big, 500)
	if raw := payload["raw"].(string); len(raw) != 500 {
		t.Fatalf("raw length = %d, want 500", len(raw))
	}
}

func TestQuoteLTPFallbackKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"nested v.lp", `{"s":"ok","d":[{"v":{"lp":25012.5}}]}`, 25012.5},
		{"nested v.ltp", `{"s":"ok","d":[{"v":{"ltp":25013.0}}]}`, 25013.0},
		{"flattened lp", `{"s":"ok","d":[{"lp":101.5}]}`, 101.5},
		{"flattened ltp", `{"s":"ok","d":[{"ltp":102.25}]}`, 102.25},
		{"camel ltP", `{"s":"ok","d":[{"ltP":99.75}]}`, 99.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := decodePayload([]byte(tt.body), 200)
			got, err := payload.QuoteLTP()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("QuoteLTP = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuoteLTPMissing(t *testing.T) {
	payload := decodePayload([]byte(`{"s":"ok","d":[{"v":{"volume":12}}]}`), 200)
	if _, err := payload.QuoteLTP(); !apperrors.Is(err, apperrors.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestOptionChainVariants(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			"optionsChain key",
			`{"s":"ok","data":{"ignored":true},"optionsChain":[
				{"symbol":"NSE:NIFTY2582825000CE","strike_price":25000,"option_type":"CE","ltp":120.5,"expiry":"2026-08-28"},
				{"symbol":"NSE:NIFTY2582825000PE","strike_price":25000,"option_type":"PE","ltp":95.25,"expiry":"2026-08-28"},
				{"symbol":"NSE:NIFTY50-INDEX","ltp":25010}
			]}`,
		},
		{
			"data key fallback",
			`{"s":"ok","data":[
				{"symbol":"NSE:NIFTY2582825000CE","strike":25000,"type":"CE","lp":120.5,"expiryDate":"28-08-2026"},
				{"symbol":"NSE:NIFTY2582825000PE","strike":25000,"type":"PE","lp":95.25,"expiryDate":"28-08-2026"}
			]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := decodePayload([]byte(tt.body), 200)
			contracts, err := payload.OptionChain()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(contracts) != 2 {
				t.Fatalf("contracts = %d, want 2 (index row filtered)", len(contracts))
			}
			ce := contracts[0]
			if ce.OptionType != "CE" || ce.Strike != 25000 || ce.LTP != 120.5 {
				t.Fatalf("unexpected CE contract: %+v", ce)
			}
			want := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
			if !ce.Expiry.Equal(want) {
				t.Fatalf("expiry = %v, want %v", ce.Expiry, want)
			}
		})
	}
}

func TestOptionChainEmpty(t *testing.T) {
	payload := decodePayload([]byte(`{"s":"ok","optionsChain":[]}`), 200)
	if _, err := payload.OptionChain(); !apperrors.Is(err, apperrors.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestPositionsFallbackKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"netPositions", `{"s":"ok","netPositions":[{"symbol":"NSE:X","netQty":75,"avgPrice":100.5,"ltp":101,"pl":37.5},{"symbol":"NSE:FLAT","netQty":0}]}`},
		{"positions", `{"s":"ok","positions":[{"symbol":"NSE:X","qty":75,"buyAvg":100.5,"lp":101,"realized_profit":37.5},{"symbol":"NSE:FLAT","qty":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := decodePayload([]byte(tt.body), 200)
			positions := payload.Positions()
			if len(positions) != 1 {
				t.Fatalf("positions = %d, want 1 (zero-qty filtered)", len(positions))
			}
			p := positions[0]
			if p.Symbol != "NSE:X" || p.Quantity != 75 || p.AveragePrice != 100.5 {
				t.Fatalf("unexpected position: %+v", p)
			}
		})
	}
}

func TestFundsAvailable(t *testing.T) {
	payload := decodePayload([]byte(`{"s":"ok","fund_limit":[
		{"title":"Total Balance","equityAmount":250000},
		{"title":"Available Balance","equityAmount":187500.5}
	]}`), 200)

	available, ok := payload.FundsAvailable()
	if !ok || available != 187500.5 {
		t.Fatalf("FundsAvailable = %v %v, want 187500.5 true", available, ok)
	}

	if _, ok := decodePayload([]byte(`{"s":"ok","fund_limit":[]}`), 200).FundsAvailable(); ok {
		t.Fatal("FundsAvailable should miss when no available row exists")
	}
}

func TestTradedPrice(t *testing.T) {
	payload := decodePayload([]byte(`{"s":"ok","tradeBook":[
		{"orderNumber":"111","tradePrice":120.5},
		{"orderNumber":"222","tradedPrice":99.0}
	]}`), 200)

	if price, ok := payload.TradedPrice("222"); !ok || price != 99.0 {
		t.Fatalf("TradedPrice(222) = %v %v, want 99 true", price, ok)
	}
	if _, ok := payload.TradedPrice("999"); ok {
		t.Fatal("TradedPrice should miss unknown order ids")
	}
}

func TestParseExpiryVariants(t *testing.T) {
	epoch := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC).Unix()
	tests := []struct {
		name string
		row  Payload
		want time.Time
	}{
		{"epoch string", Payload{"expiry": "1787616000"}, time.Unix(1787616000, 0)},
		{"epoch number", Payload{"expiry": float64(epoch)}, time.Unix(epoch, 0)},
		{"iso date", Payload{"expiry": "2026-08-28"}, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)},
		{"dd-mm-yyyy", Payload{"expiryDate": "28-08-2026"}, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)},
		{"absent", Payload{}, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseExpiry(tt.row); !got.Equal(tt.want) {
				t.Fatalf("parseExpiry = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderIDFallback(t *testing.T) {
	if id := (Payload{"id": "ABC123"}).OrderID(); id != "ABC123" {
		t.Fatalf("OrderID = %s", id)
	}
	if id := (Payload{"orderNumber": "XYZ"}).OrderID(); id != "XYZ" {
		t.Fatalf("OrderID = %s", id)
	}
	if id := (Payload{}).OrderID(); id != "" {
		t.Fatalf("OrderID on empty payload = %s, want empty", id)
	}
}
