package risk

import (
	"context"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"fyers-orb-bot/internal/models"
)

// Property: realized P&L of a closed trade is exactly
// (exit - entry) * qty * sign, with sign +1 for CALL and -1 for PUT.
func TestPropertyRealizedPnLConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("single trade P&L formula", prop.ForAll(
		func(entry, exit float64, lots int, isPut bool) bool {
			qty := lots * 75
			direction := models.DirectionCall
			if isPut {
				direction = models.DirectionPut
			}

			cfg := testConfig()
			cfg.Risk.MaxDailyLoss = math.MaxFloat64 / 4 // keep shutdown out of this property
			broker := &fakeBroker{ltp: exit}
			e := newTestEngine(cfg, broker, nil)
			// Stop and target pinned at the exit price so the monitor closes
			// immediately regardless of direction.
			openPaperTrade(e, direction, entry, exit, exit, qty)

			report := e.MonitorTrade(context.Background())
			if report.Status != MonitorExited {
				t.Logf("status = %s", report.Status)
				return false
			}

			want := (exit - entry) * float64(qty) * direction.Sign()
			got := e.Snapshot().Day.RealizedPnL
			if math.Abs(got-want) > 1e-6 {
				t.Logf("realized = %v, want %v", got, want)
				return false
			}
			return true
		},
		gen.Float64Range(1, 1000),
		gen.Float64Range(1, 1000),
		gen.IntRange(1, 10),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property: daily realized P&L after N closed trades equals the sum of
// their individual realized P&L values.
func TestPropertyDailyPnLIsSumOfTrades(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("daily total accumulates", prop.ForAll(
		func(moves []float64) bool {
			cfg := testConfig()
			cfg.Risk.MaxDailyLoss = math.MaxFloat64 / 4
			cfg.Risk.MaxTradesPerDay = len(moves) + 1
			broker := &fakeBroker{}
			e := newTestEngine(cfg, broker, nil)

			var wantTotal float64
			for _, move := range moves {
				entry := 100.0
				exit := entry + move
				if exit <= 0 {
					continue
				}

				broker.mu.Lock()
				broker.ltp = exit
				broker.mu.Unlock()

				openPaperTrade(e, models.DirectionCall, entry, exit, exit, 75)
				report := e.MonitorTrade(context.Background())
				if report.Status != MonitorExited {
					t.Logf("trade did not close: %s", report.Status)
					return false
				}
				wantTotal += (exit - entry) * 75
			}

			got := e.Snapshot().Day.RealizedPnL
			if math.Abs(got-wantTotal) > 1e-6 {
				t.Logf("daily total = %v, want %v", got, wantTotal)
				return false
			}
			return true
		},
		gen.SliceOfN(5, gen.Float64Range(-50, 50)),
	))

	properties.TestingRun(t)
}

// Property: computeQuantity is always a non-negative whole number of
// lots, and the implied risk never exceeds the budget.
func TestPropertyQuantityRespectsRiskBudget(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("whole lots under budget", prop.ForAll(
		func(capital, entry float64, lotSize int) bool {
			cfg := testConfig()
			cfg.Risk.InitialCapital = capital
			cfg.Trading.LotSize = lotSize
			e := newTestEngine(cfg, &fakeBroker{}, nil)

			qty := e.ComputeQuantity(entry)
			if qty < 0 || qty%lotSize != 0 {
				t.Logf("qty = %d with lot size %d", qty, lotSize)
				return false
			}

			budget := capital * cfg.Risk.RiskPctPerTrade / 100
			riskAtStop := float64(qty) * entry * cfg.Trading.StopLossPct
			if riskAtStop > budget+1e-6 {
				t.Logf("risk %v exceeds budget %v", riskAtStop, budget)
				return false
			}
			return true
		},
		gen.Float64Range(10000, 10000000),
		gen.Float64Range(0.05, 2000),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}
