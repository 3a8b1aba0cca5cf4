package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Quoter fetches the current price for a symbol. *fyers.Client
// satisfies it.
type Quoter interface {
	GetLTP(ctx context.Context, symbol string) (float64, error)
}

// Poller is the pull-mode tick source: a fixed-interval quotes loop
// delivering the same callback shape as the websocket feed. Used when
// the data socket is unavailable or for paper sessions.
type Poller struct {
	quoter   Quoter
	symbol   string
	interval time.Duration
	handler  TickHandler
	logger   zerolog.Logger
}

// NewPoller creates a polling tick source for symbol.
func NewPoller(quoter Quoter, symbol string, interval time.Duration, handler TickHandler, logger zerolog.Logger) *Poller {
	return &Poller{
		quoter:   quoter,
		symbol:   symbol,
		interval: interval,
		handler:  handler,
		logger:   logger.With().Str("component", "feed.poll").Logger(),
	}
}

// Run polls until ctx is cancelled. Quote errors are logged and the
// loop continues; a transient gateway failure must not kill the feed.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			price, err := p.quoter.GetLTP(ctx, p.symbol)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Warn().Err(err).Str("symbol", p.symbol).Msg("Quote poll failed")
				continue
			}
			if price > 0 {
				p.handler(price, time.Now())
			}
		}
	}
}
