// Package cli provides the command-line interface for the ORB bot.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fyers-orb-bot/internal/auth"
	"fyers-orb-bot/internal/config"
	"fyers-orb-bot/internal/fyers"
	"fyers-orb-bot/internal/logging"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies shared across commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Auth   *auth.Service
	Client *fyers.Client
}

// NewRootCmd creates the root command and wires the shared
// dependencies.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Auth = auth.NewService(cfg.Credentials.Fyers, cfg.API.AuthURL, logger)
	app.Client = fyers.NewClient(cfg.API, cfg.Credentials.Fyers.AppID, app.Auth, logger)

	rootCmd := &cobra.Command{
		Use:   "orb-bot",
		Short: "Automated ORB intraday options bot for FYERS",
		Long: `orb-bot trades NIFTY options intraday on the Opening Range Breakout
strategy through the FYERS v3 API. It collects the 09:15-09:30 IST
opening range, signals on breakouts, sizes entries under capital and
daily-loss limits, and manages one position at a time to stop, target,
or the 15:15 square-off.

Run 'orb-bot auth login' once, then 'orb-bot run' for a trading session.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/fyers-orb-bot)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addAuthCommands(rootCmd, app)
	addRunCommand(rootCmd, app)
	addDashboardCommands(rootCmd, app)
	addJournalCommand(rootCmd, app)

	return rootCmd
}
