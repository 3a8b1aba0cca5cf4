package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"fyers-orb-bot/internal/config"
	"fyers-orb-bot/internal/store"
	"fyers-orb-bot/pkg/utils"
)

// addJournalCommand adds the trade-journal reporting command. Unlike
// the dashboard commands it reads the SQLite journal directly, so it
// works without a running session.
func addJournalCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent trades and daily P&L from the journal",
		Example: `  orb-bot journal
  orb-bot journal --days 7
  orb-bot journal --trades 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			days, _ := cmd.Flags().GetInt("days")
			limit, _ := cmd.Flags().GetInt("trades")

			journal, err := store.NewSQLiteStore(filepath.Join(config.DefaultConfigDir(), "orb-bot.db"))
			if err != nil {
				output.Error("Cannot open trade journal: %v", err)
				return err
			}
			defer journal.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			trades, err := journal.GetTrades(ctx, limit)
			if err != nil {
				output.Error("Journal read failed: %v", err)
				return err
			}
			summaries, err := journal.GetRecentSummaries(ctx, days)
			if err != nil {
				output.Error("Journal read failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"trades":    trades,
					"summaries": summaries,
				})
			}

			if len(trades) == 0 {
				output.Info("No trades recorded yet")
				return nil
			}

			output.Println("Recent trades:")
			for _, t := range trades {
				mode := ""
				if t.IsPaper {
					mode = " [paper]"
				}
				output.Printf("  %s  %-4s %s x%d  %.2f -> %.2f  %s  (%s)%s\n",
					t.ExitTime.Format("2006-01-02 15:04"), t.Direction, t.Symbol,
					t.Quantity, t.EntryPrice, t.ExitPrice,
					utils.FormatPnL(t.RealizedPnL), t.ExitReason, mode)
			}

			output.Println()
			output.Println("Daily P&L:")
			for _, d := range summaries {
				output.Printf("  %s  %2d trades  %s\n", d.Date, d.Trades, utils.FormatPnL(d.RealizedPnL))
			}
			return nil
		},
	}

	cmd.Flags().Int("days", 10, "how many recent trading days to summarize")
	cmd.Flags().Int("trades", 10, "how many recent trades to list")
	rootCmd.AddCommand(cmd)
}
