// Package notify delivers trade lifecycle notifications.
package notify

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Notifier is the delivery channel for lifecycle events. The risk
// engine calls it for entries, exits, and shutdowns.
type Notifier interface {
	Notify(event, message string)
}

// Terminal writes notifications to stderr with a timestamp, the
// default channel for an attended session.
type Terminal struct {
	logger zerolog.Logger
}

// NewTerminal creates a terminal notifier.
func NewTerminal(logger zerolog.Logger) *Terminal {
	return &Terminal{logger: logger.With().Str("component", "notify").Logger()}
}

// Notify prints the event to the terminal and mirrors it to the log.
func (t *Terminal) Notify(event, message string) {
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", ts, label(event), message)
	t.logger.Info().Str("event", event).Msg(message)
}

func label(event string) string {
	switch event {
	case "entry":
		return "TRADE OPENED"
	case "exit":
		return "TRADE CLOSED"
	case "shutdown":
		return "TRADING SHUTDOWN"
	default:
		return event
	}
}
