package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestExtractLTP(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  float64
		ok    bool
	}{
		{"ltp key", `{"ltp": 25012.5}`, 25012.5, true},
		{"lp key", `{"lp": 101.25}`, 101.25, true},
		{"ltP key", `{"ltP": 99.9}`, 99.9, true},
		{"nested v.lp", `{"v": {"lp": 250.75}}`, 250.75, true},
		{"nested v.ltp", `{"v": {"ltp": 42.0}}`, 42.0, true},
		{"top-level wins over nested", `{"ltp": 10, "v": {"lp": 20}}`, 10, true},
		{"zero price rejected", `{"ltp": 0}`, 0, false},
		{"negative price rejected", `{"ltp": -5}`, 0, false},
		{"string price rejected", `{"ltp": "100"}`, 0, false},
		{"heartbeat frame", `{"T": "cn", "msg": "connected"}`, 0, false},
		{"not json", `ping`, 0, false},
		{"empty object", `{}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractLTP([]byte(tt.frame))
			if ok != tt.ok || got != tt.want {
				t.Fatalf("extractLTP(%s) = (%v, %v), want (%v, %v)", tt.frame, got, ok, tt.want, tt.ok)
			}
		})
	}
}

type fakeQuoter struct {
	mu     sync.Mutex
	prices []float64
	errs   []error
	calls  int
}

func (q *fakeQuoter) GetLTP(ctx context.Context, symbol string) (float64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.calls
	q.calls++
	if i < len(q.errs) && q.errs[i] != nil {
		return 0, q.errs[i]
	}
	if i < len(q.prices) {
		return q.prices[i], nil
	}
	return q.prices[len(q.prices)-1], nil
}

func TestPollerDeliversTicks(t *testing.T) {
	quoter := &fakeQuoter{prices: []float64{100, 101, 102}}

	var mu sync.Mutex
	var got []float64
	handler := func(price float64, ts time.Time) {
		mu.Lock()
		got = append(got, price)
		mu.Unlock()
	}

	p := NewPoller(quoter, "NSE:NIFTY50-INDEX", time.Millisecond, handler, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(got) < 3 {
		t.Fatalf("delivered %d ticks, want at least 3", len(got))
	}
	if got[0] != 100 || got[1] != 101 || got[2] != 102 {
		t.Fatalf("ticks = %v", got[:3])
	}
}

func TestPollerSurvivesQuoteErrors(t *testing.T) {
	quoter := &fakeQuoter{
		prices: []float64{0, 0, 105},
		errs:   []error{errors.New("timeout"), errors.New("timeout"), nil},
	}

	var mu sync.Mutex
	var got []float64
	handler := func(price float64, ts time.Time) {
		mu.Lock()
		got = append(got, price)
		mu.Unlock()
	}

	p := NewPoller(quoter, "NSE:NIFTY50-INDEX", time.Millisecond, handler, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 {
		t.Fatal("poller never recovered after quote errors")
	}
	if got[0] != 105 {
		t.Fatalf("first delivered tick = %v, want 105", got[0])
	}
}

func TestPollerStopsOnCancel(t *testing.T) {
	quoter := &fakeQuoter{prices: []float64{100}}
	p := NewPoller(quoter, "NSE:NIFTY50-INDEX", time.Millisecond, func(float64, time.Time) {}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on context cancel")
	}
}
