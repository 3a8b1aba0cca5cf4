package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# FYERS ORB Bot Configuration

[trading]
# Trading mode: "LIVE" or "PAPER"
mode = "PAPER"
# Underlying index for the ORB strategy
underlying_symbol = "NSE:NIFTY50-INDEX"
# Option contract lot size (NIFTY = 75)
lot_size = 75
# Stop-loss offset as a fraction of the fill price
stop_loss_pct = 0.15
# Target offset as a fraction of the fill price
target_pct = 0.30
# Interval between position monitor checks
monitor_interval = "5s"
# Interval between REST quote polls (fallback tick source)
poll_interval = "3s"

[risk]
# Starting capital in INR
initial_capital = 100000.0
# Daily realized loss that trips the risk shutdown
max_daily_loss = 2500.0
# Maximum trades per trading day
max_trades_per_day = 3
# Capital percentage risked per trade
risk_pct_per_trade = 1.0

[api]
# FYERS v3 hosts
trading_url = "https://api-t1.fyers.in/api/v3"
data_url = "https://api.fyers.in/data-rest/v3"
auth_url = "https://api-t1.fyers.in/api/v3"
data_ws_url = "wss://api.fyers.in/socket/v2/data/"
# Per-request timeout
request_timeout = "30s"
# Retry policy for transient failures
max_retries = 3
base_backoff = "500ms"
max_backoff = "8s"
# Sliding-window rate limits
rate_per_second = 10
rate_per_minute = 200
# Circuit breaker: failures within the window that pause trading
failure_threshold = 5
failure_window_seconds = 60
pause_seconds = 120

[server]
# Dashboard HTTP server address
addr = "127.0.0.1:8000"

[logging]
level = "info"
console = true
file = true
`

const credentialsTemplate = `# FYERS API Credentials
# Get these from https://myapi.fyers.in

[fyers]
app_id = ""
secret = ""
redirect_uri = "http://127.0.0.1:8000/callback"
pin = ""
# Optional: base32 TOTP secret for headless re-login
totp_secret = ""
`

func createTemplateConfig(configDir string) error {
	return writeTemplate(configDir, "config.toml", configTemplate)
}

func createTemplateCredentials(configDir string) error {
	return writeTemplate(configDir, "credentials.toml", credentialsTemplate)
}

func writeTemplate(configDir, name, content string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}

	return nil
}
