package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fyers-orb-bot/internal/api"
	"fyers-orb-bot/internal/config"
	"fyers-orb-bot/internal/feed"
	"fyers-orb-bot/internal/logging"
	"fyers-orb-bot/internal/notify"
	"fyers-orb-bot/internal/options"
	"fyers-orb-bot/internal/risk"
	"fyers-orb-bot/internal/store"
	"fyers-orb-bot/internal/strategy"
)

// addRunCommand adds the trading session command.
func addRunCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a trading session",
		Long: `Run a full trading session: stream underlying ticks, lock the
opening range, serve the dashboard API, and manage the trade
lifecycle until interrupted.

Without --auto, breakout signals wait for approval via POST /approve
on the dashboard. With --auto, signals execute as soon as the risk
gates allow.`,
		Example: `  orb-bot run
  orb-bot run --auto
  orb-bot run --poll   # REST polling instead of the data socket`,
		RunE: func(cmd *cobra.Command, args []string) error {
			auto, _ := cmd.Flags().GetBool("auto")
			poll, _ := cmd.Flags().GetBool("poll")
			return runSession(cmd, app, auto, poll)
		},
	}

	cmd.Flags().Bool("auto", false, "execute breakout signals without manual approval")
	cmd.Flags().Bool("poll", false, "poll quotes over REST instead of the websocket feed")
	rootCmd.AddCommand(cmd)
}

func runSession(cmd *cobra.Command, app *App, auto, poll bool) error {
	output := NewOutput(cmd)
	base := app.Logger
	logger := logging.WithComponent(base, "session")
	cfg := app.Config

	if !app.Auth.IsAuthenticated() {
		output.Error("Not authenticated. Run 'orb-bot auth login' first.")
		return nil
	}

	journal, err := store.NewSQLiteStore(filepath.Join(config.DefaultConfigDir(), "orb-bot.db"))
	if err != nil {
		logger.Warn().Err(err).Msg("Trade journal unavailable, running without persistence")
		journal = nil
	} else {
		defer journal.Close()
	}

	notifier := notify.NewTerminal(base)
	detector := strategy.NewDetector(base)
	selector := options.NewSelector(app.Client, cfg.Trading.UnderlyingSymbol, base)

	var engineJournal risk.Journal
	if journal != nil {
		engineJournal = journal
	}
	engine := risk.NewEngine(cfg, app.Client, engineJournal, notifier, base)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.ReconcileOnStartup(ctx)

	if price, err := selector.UnderlyingLTP(ctx); err != nil {
		logger.Warn().Err(err).Msg("Initial underlying quote failed, waiting for the feed")
	} else {
		logger.Info().Float64("price", price).Str("symbol", cfg.Trading.UnderlyingSymbol).Msg("Underlying quote at startup")
	}

	onTick := makeTickHandler(ctx, app, detector, selector, engine, auto)

	if poll {
		poller := feed.NewPoller(app.Client, cfg.Trading.UnderlyingSymbol, cfg.Trading.PollInterval, onTick, base)
		go poller.Run(ctx)
	} else {
		ws := feed.NewWebSocketFeed(app.Client, cfg.Trading.UnderlyingSymbol, onTick, base)
		go ws.Run(ctx)
	}

	server := api.NewServer(cfg.Server.Addr, detector, selector, engine, app.Client, base)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	logger.Info().
		Str("mode", cfg.Trading.Mode).
		Str("underlying", cfg.Trading.UnderlyingSymbol).
		Bool("auto", auto).
		Str("dashboard", cfg.Server.Addr).
		Msg("Trading session started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("Dashboard server failed")
		}
	}

	// Orderly shutdown: stop new work, square off, drain the server.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	engine.SquareOffAndShutdown(shutdownCtx)
	server.Shutdown(shutdownCtx)

	logger.Info().Msg("Session ended")
	return nil
}

// makeTickHandler builds the per-tick callback: feed the detector and,
// in auto mode, run the full signal-to-order pipeline when the gates
// allow.
func makeTickHandler(ctx context.Context, app *App, detector *strategy.Detector, selector *options.Selector, engine *risk.Engine, auto bool) feed.TickHandler {
	return func(price float64, ts time.Time) {
		detector.OnTick(price, ts)
		if !auto {
			return
		}

		signal := detector.CheckBreakout()
		if signal == nil {
			return
		}
		if ok, _ := engine.CanTradeNow(); !ok {
			return
		}

		candidate, err := selector.Select(ctx, signal.Direction, signal.Price)
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Contract selection failed for breakout signal")
			return
		}

		result := engine.ExecuteTrade(ctx, signal, candidate)
		app.Logger.Info().
			Str("status", string(result.Outcome)).
			Str("reason", result.Reason).
			Msg("Auto-execution attempted")
	}
}
