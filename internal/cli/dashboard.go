package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"fyers-orb-bot/pkg/utils"
)

// addDashboardCommands adds the commands that talk to a running
// session over its dashboard API.
func addDashboardCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newResetDayCmd(app))
}

func newScanCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Show the current opening range and breakout signal",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var body map[string]interface{}
			if err := dashboardCall(app, http.MethodGet, "/scan", &body); err != nil {
				return dashboardUnreachable(output, err)
			}
			if output.IsJSON() {
				return output.JSON(body)
			}

			locked, _ := body["range_locked"].(bool)
			if !locked {
				output.Warning("Opening range not locked yet")
			} else {
				output.Printf("Range: %.2f - %.2f\n", body["range_low"], body["range_high"])
			}
			output.Printf("Last price: %.2f\n", body["last_price"])

			if signal, ok := body["signal"].(map[string]interface{}); ok && signal != nil {
				output.Success("Breakout: %s at %.2f", signal["direction"], signal["price"])
			} else {
				output.Info("No breakout signal")
			}
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running session's trade and P&L status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var body map[string]interface{}
			if err := dashboardCall(app, http.MethodGet, "/monitor", &body); err != nil {
				return dashboardUnreachable(output, err)
			}
			if output.IsJSON() {
				return output.JSON(body)
			}

			snapshot, _ := body["snapshot"].(map[string]interface{})
			monitor, _ := body["monitor"].(map[string]interface{})
			if snapshot == nil || monitor == nil {
				output.Warning("Unexpected response from dashboard")
				return nil
			}

			output.Printf("Status:   %v\n", monitor["status"])
			if capital, ok := snapshot["current_capital"].(float64); ok {
				output.Printf("Capital:  %s\n", utils.FormatIndianCurrency(capital))
			}
			if realized, ok := monitor["realized_pnl"].(float64); ok {
				output.Printf("Realized: %s\n", utils.FormatPnL(realized))
			}
			if unrealized, ok := monitor["unrealized_pnl"].(float64); ok {
				output.Printf("Open P&L: %s\n", utils.FormatPnL(unrealized))
			}
			if trade, ok := snapshot["active_trade"].(map[string]interface{}); ok && trade != nil {
				output.Info("Open trade: %v x%v @ %v (SL %v, TGT %v)",
					trade["symbol"], trade["qty"], trade["entry_price"],
					trade["stop_loss"], trade["target"])
			}
			return nil
		},
	}
}

func newResetDayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-day",
		Short: "Clear daily limits, the shutdown flag, and the locked range",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var body map[string]interface{}
			if err := dashboardCall(app, http.MethodPost, "/reset", &body); err != nil {
				return dashboardUnreachable(output, err)
			}
			output.Success("Daily state reset")
			return nil
		},
	}
}

// dashboardCall performs one request against the local session's API.
func dashboardCall(app *App, method, path string, out interface{}) error {
	client := &http.Client{Timeout: 10 * time.Second}
	url := fmt.Sprintf("http://%s%s", app.Config.Server.Addr, path)

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func dashboardUnreachable(output *Output, err error) error {
	output.Error("Cannot reach a running session: %v", err)
	output.Info("Start one with 'orb-bot run'.")
	return err
}
