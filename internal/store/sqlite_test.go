package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fyers-orb-bot/internal/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func closedTrade(exitTime time.Time, pnl float64) models.ClosedTrade {
	return models.ClosedTrade{
		Symbol:      "NSE:NIFTY2582825000CE",
		Direction:   models.DirectionCall,
		Quantity:    75,
		EntryPrice:  100,
		ExitPrice:   100 + pnl/75,
		RealizedPnL: pnl,
		ExitReason:  "target",
		EntryTime:   exitTime.Add(-time.Hour),
		ExitTime:    exitTime,
		IsPaper:     true,
	}
}

func TestRecordAndGetTrades(t *testing.T) {
	store := newTestStore(t)
	exitTime := time.Date(2026, 8, 20, 11, 30, 0, 0, time.UTC)

	if err := store.RecordClosedTrade(closedTrade(exitTime, 2250)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.RecordClosedTrade(closedTrade(exitTime.Add(time.Hour), -1125)); err != nil {
		t.Fatalf("record: %v", err)
	}

	trades, err := store.GetTrades(context.Background(), 10)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	// Newest first.
	if trades[0].RealizedPnL != -1125 || trades[1].RealizedPnL != 2250 {
		t.Fatalf("trade order: %v, %v", trades[0].RealizedPnL, trades[1].RealizedPnL)
	}
	if trades[1].Direction != models.DirectionCall || !trades[1].IsPaper {
		t.Fatalf("row round-trip: %+v", trades[1])
	}
}

func TestGetTradesDefaultLimit(t *testing.T) {
	store := newTestStore(t)

	trades, err := store.GetTrades(context.Background(), 0)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("empty journal returned %d rows", len(trades))
	}
}

func TestDailySummaryAggregates(t *testing.T) {
	store := newTestStore(t)
	day1 := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 21, 11, 0, 0, 0, time.UTC)

	for _, pnl := range []float64{2250, -1125} {
		if err := store.RecordClosedTrade(closedTrade(day1, pnl)); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.RecordClosedTrade(closedTrade(day2, 500)); err != nil {
		t.Fatal(err)
	}

	summary, err := store.GetDailySummary(context.Background(), "2026-08-20")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Trades != 2 || summary.RealizedPnL != 1125 {
		t.Fatalf("summary: %+v", summary)
	}

	// A date with no trades is a zero summary, not an error.
	empty, err := store.GetDailySummary(context.Background(), "2026-08-22")
	if err != nil {
		t.Fatalf("empty summary: %v", err)
	}
	if empty.Trades != 0 || empty.RealizedPnL != 0 {
		t.Fatalf("empty summary: %+v", empty)
	}
}

func TestRecentSummariesNewestFirst(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 3; i++ {
		exit := time.Date(2026, 8, 18+i, 11, 0, 0, 0, time.UTC)
		if err := store.RecordClosedTrade(closedTrade(exit, 100)); err != nil {
			t.Fatal(err)
		}
	}

	summaries, err := store.GetRecentSummaries(context.Background(), 2)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].Date != "2026-08-20" || summaries[1].Date != "2026-08-19" {
		t.Fatalf("order: %s, %s", summaries[0].Date, summaries[1].Date)
	}
}

// Property: the daily aggregate always equals the sum of its rows.
func TestPropertyDailySummaryMatchesRows(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("aggregate equals row sum", prop.ForAll(
		func(pnls []float64) bool {
			store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
			if err != nil {
				t.Logf("open: %v", err)
				return false
			}
			defer store.Close()

			exit := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)
			var want float64
			for _, pnl := range pnls {
				if err := store.RecordClosedTrade(closedTrade(exit, pnl)); err != nil {
					t.Logf("record: %v", err)
					return false
				}
				want += pnl
			}

			summary, err := store.GetDailySummary(context.Background(), "2026-08-20")
			if err != nil {
				t.Logf("summary: %v", err)
				return false
			}
			if summary.Trades != len(pnls) {
				t.Logf("trades = %d, want %d", summary.Trades, len(pnls))
				return false
			}
			diff := summary.RealizedPnL - want
			if diff < -1e-6 || diff > 1e-6 {
				t.Logf("pnl = %v, want %v", summary.RealizedPnL, want)
				return false
			}
			return true
		},
		gen.SliceOfN(8, gen.Float64Range(-5000, 5000)),
	))

	properties.TestingRun(t)
}
