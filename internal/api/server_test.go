package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"fyers-orb-bot/internal/config"
	"fyers-orb-bot/internal/models"
	"fyers-orb-bot/internal/risk"
	"fyers-orb-bot/internal/strategy"
)

type stubBroker struct{}

func (stubBroker) GetLTP(ctx context.Context, symbol string) (float64, error) { return 100, nil }
func (stubBroker) PlaceOrder(ctx context.Context, order *models.Order) (string, error) {
	return "FY1", nil
}
func (stubBroker) ConfirmFillPrice(ctx context.Context, symbol, orderID string) (float64, error) {
	return 100, nil
}
func (stubBroker) GetPositions(ctx context.Context) ([]models.Position, error) { return nil, nil }
func (stubBroker) IsTradingPaused() bool                                       { return false }
func (stubBroker) PauseRemaining() time.Duration                               { return 0 }

func newTestServer(t *testing.T) (*httptest.Server, *strategy.Detector) {
	t.Helper()

	cfg := &config.Config{
		Trading: config.TradingConfig{
			Mode:             "PAPER",
			UnderlyingSymbol: "NSE:NIFTY50-INDEX",
			LotSize:          75,
			StopLossPct:      0.15,
			TargetPct:        0.30,
			MonitorInterval:  time.Hour,
		},
		Risk: config.RiskConfig{
			InitialCapital:  100000,
			MaxDailyLoss:    2500,
			MaxTradesPerDay: 3,
			RiskPctPerTrade: 1.0,
		},
	}

	detector := strategy.NewDetector(zerolog.Nop())
	engine := risk.NewEngine(cfg, stubBroker{}, nil, nil, zerolog.Nop())
	s := NewServer("127.0.0.1:0", detector, nil, engine, nil, zerolog.Nop())

	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return ts, detector
}

func getJSON(t *testing.T, url string, method string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := jsoniter.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, body
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/healthz", http.MethodGet)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz = %d %v", status, body)
	}
}

func TestScanBeforeAnyTicks(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/scan", http.MethodGet)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["signal"] != nil {
		t.Fatalf("signal = %v, want null", body["signal"])
	}
	if body["range_locked"] != false {
		t.Fatalf("range_locked = %v", body["range_locked"])
	}
}

func TestApproveWithoutSignalIsBlocked(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/approve", http.MethodPost)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["status"] != "blocked" || body["reason"] != "no_signal" {
		t.Fatalf("approve = %v", body)
	}
}

func TestMonitorReturnsSnapshot(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/monitor", http.MethodGet)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	monitor, ok := body["monitor"].(map[string]interface{})
	if !ok {
		t.Fatalf("monitor payload: %v", body)
	}
	if monitor["status"] != "idle" {
		t.Fatalf("monitor status = %v, want idle", monitor["status"])
	}
	if _, ok := body["snapshot"]; !ok {
		t.Fatal("snapshot missing from monitor payload")
	}
}

func TestResetClearsDetectorState(t *testing.T) {
	ts, detector := newTestServer(t)

	ist := time.Date(2026, 8, 20, 9, 20, 0, 0, strategy.IST)
	detector.OnTick(25010, ist)

	status, body := getJSON(t, ts.URL+"/reset", http.MethodPost)
	if status != http.StatusOK || body["status"] != "reset" {
		t.Fatalf("reset = %d %v", status, body)
	}
	if price := detector.LastPrice(); price != 0 {
		t.Fatalf("last price after reset = %v", price)
	}
}

func TestMethodRouting(t *testing.T) {
	ts, _ := newTestServer(t)

	// GET on a POST-only route is rejected by the router.
	resp, err := http.Get(ts.URL + "/approve")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /approve = %d, want 405", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
}
