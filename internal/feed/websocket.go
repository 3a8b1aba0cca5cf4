// Package feed delivers underlying price ticks to the strategy layer,
// either pushed over the FYERS data socket or pulled by polling the
// quotes endpoint.
package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"fyers-orb-bot/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TickHandler receives each normalized price tick.
type TickHandler func(price float64, ts time.Time)

// TokenHeader supplies the websocket authorization header value.
// *fyers.Client satisfies it.
type TokenHeader interface {
	DataWSURL() string
	AuthHeader() (string, error)
}

const (
	wsReadLimit    = 1 << 20
	wsPingInterval = 20 * time.Second
	wsReadTimeout  = 60 * time.Second

	reconnectBase = time.Second
	reconnectMax  = 60 * time.Second
)

// WebSocketFeed streams ticks for one symbol from the FYERS data
// socket. Run reconnects indefinitely with bounded exponential backoff
// and stops only when the context is cancelled.
type WebSocketFeed struct {
	gateway TokenHeader
	symbol  string
	handler TickHandler
	logger  zerolog.Logger
}

// NewWebSocketFeed creates a websocket tick source for symbol.
func NewWebSocketFeed(gateway TokenHeader, symbol string, handler TickHandler, logger zerolog.Logger) *WebSocketFeed {
	return &WebSocketFeed{
		gateway: gateway,
		symbol:  symbol,
		handler: handler,
		logger:  logger.With().Str("component", "feed.ws").Logger(),
	}
}

// Run connects and streams until ctx is cancelled. Transient failures
// never terminate the loop; each disconnect backs off exponentially up
// to a minute and resets after a healthy session.
func (f *WebSocketFeed) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		err := f.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			f.logger.Warn().Err(err).Msg("Data socket session ended")
		}

		// A session that lived a while means the endpoint is healthy.
		if time.Since(start) > time.Minute {
			attempt = 0
		}

		delay := utils.CalculateBackoff(attempt, reconnectBase, reconnectMax, 2.0)
		attempt++
		f.logger.Info().Dur("delay", delay).Int("attempt", attempt).Msg("Reconnecting data socket")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session runs one connect-subscribe-read cycle.
func (f *WebSocketFeed) session(ctx context.Context) error {
	auth, err := f.gateway.AuthHeader()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.gateway.DataWSURL()+auth, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	sub := map[string]interface{}{
		"T":          "SUB_L2",
		"L2LIST":     []string{f.symbol},
		"SUB_T":      1,
		"symbolList": []string{f.symbol},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	f.logger.Info().Str("symbol", f.symbol).Msg("Subscribed to data socket")

	// Close the connection when ctx ends so the blocked read returns.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	go f.pingLoop(ctx, conn)

	for {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		price, ok := extractLTP(raw)
		if !ok {
			continue
		}
		f.handler(price, time.Now())
	}
}

func (f *WebSocketFeed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// extractLTP pulls the last traded price from a data-socket frame.
// FYERS frames vary by feed mode; the price may sit at ltp, lp, ltP,
// or nested under v.
func extractLTP(raw []byte) (float64, bool) {
	var frame map[string]interface{}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return 0, false
	}

	for _, key := range []string{"ltp", "lp", "ltP"} {
		if price, ok := asFloat(frame[key]); ok && price > 0 {
			return price, true
		}
	}

	if nested, ok := frame["v"].(map[string]interface{}); ok {
		for _, key := range []string{"lp", "ltp"} {
			if price, ok := asFloat(nested[key]); ok && price > 0 {
				return price, true
			}
		}
	}

	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case jsoniter.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
