// Package config provides configuration management for the trading bot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"fyers-orb-bot/internal/models"
)

// Config holds all application configuration. It is constructed once at
// startup and passed into each component's constructor.
type Config struct {
	Trading     TradingConfig `mapstructure:"trading"`
	Risk        RiskConfig    `mapstructure:"risk"`
	API         APIConfig     `mapstructure:"api"`
	Server      ServerConfig  `mapstructure:"server"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Credentials Credentials   `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode             string        `mapstructure:"mode"`              // "LIVE", "PAPER"
	UnderlyingSymbol string        `mapstructure:"underlying_symbol"` // e.g. NSE:NIFTY50-INDEX
	LotSize          int           `mapstructure:"lot_size"`
	StopLossPct      float64       `mapstructure:"stop_loss_pct"`
	TargetPct        float64       `mapstructure:"target_pct"`
	MonitorInterval  time.Duration `mapstructure:"monitor_interval"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
}

// RiskConfig holds risk management configuration.
type RiskConfig struct {
	InitialCapital  float64 `mapstructure:"initial_capital"`
	MaxDailyLoss    float64 `mapstructure:"max_daily_loss"`
	MaxTradesPerDay int     `mapstructure:"max_trades_per_day"`
	RiskPctPerTrade float64 `mapstructure:"risk_pct_per_trade"` // percent, e.g. 1.0
}

// APIConfig holds FYERS gateway configuration.
type APIConfig struct {
	TradingURL           string        `mapstructure:"trading_url"`
	DataURL              string        `mapstructure:"data_url"`
	AuthURL              string        `mapstructure:"auth_url"`
	DataWSURL            string        `mapstructure:"data_ws_url"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
	BaseBackoff          time.Duration `mapstructure:"base_backoff"`
	MaxBackoff           time.Duration `mapstructure:"max_backoff"`
	RatePerSecond        int           `mapstructure:"rate_per_second"`
	RatePerMinute        int           `mapstructure:"rate_per_minute"`
	FailureThreshold     int           `mapstructure:"failure_threshold"`
	FailureWindowSeconds int           `mapstructure:"failure_window_seconds"`
	PauseSeconds         int           `mapstructure:"pause_seconds"`
}

// ServerConfig holds the dashboard HTTP server configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// Credentials holds FYERS API credentials.
type Credentials struct {
	Fyers FyersCredentials `mapstructure:"fyers"`
}

// FyersCredentials holds FYERS app credentials.
type FyersCredentials struct {
	AppID       string `mapstructure:"app_id"`
	Secret      string `mapstructure:"secret"`
	RedirectURI string `mapstructure:"redirect_uri"`
	PIN         string `mapstructure:"pin"`
	TOTPSecret  string `mapstructure:"totp_secret"` // For headless re-login
	TokenPath   string `mapstructure:"token_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/fyers-orb-bot"
	}
	return filepath.Join(home, ".config", "fyers-orb-bot")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setConfigDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if werr := createTemplateConfig(configDir); werr != nil {
				return werr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("trading.mode", "PAPER")
	v.SetDefault("trading.underlying_symbol", "NSE:NIFTY50-INDEX")
	v.SetDefault("trading.lot_size", 75)
	v.SetDefault("trading.stop_loss_pct", 0.15)
	v.SetDefault("trading.target_pct", 0.30)
	v.SetDefault("trading.monitor_interval", "5s")
	v.SetDefault("trading.poll_interval", "3s")

	v.SetDefault("risk.initial_capital", 100000.0)
	v.SetDefault("risk.max_daily_loss", 2500.0)
	v.SetDefault("risk.max_trades_per_day", 3)
	v.SetDefault("risk.risk_pct_per_trade", 1.0)

	v.SetDefault("api.trading_url", "https://api-t1.fyers.in/api/v3")
	v.SetDefault("api.data_url", "https://api.fyers.in/data-rest/v3")
	v.SetDefault("api.auth_url", "https://api-t1.fyers.in/api/v3")
	v.SetDefault("api.data_ws_url", "wss://api.fyers.in/socket/v2/data/")
	v.SetDefault("api.request_timeout", "30s")
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.base_backoff", "500ms")
	v.SetDefault("api.max_backoff", "8s")
	v.SetDefault("api.rate_per_second", 10)
	v.SetDefault("api.rate_per_minute", 200)
	v.SetDefault("api.failure_threshold", 5)
	v.SetDefault("api.failure_window_seconds", 60)
	v.SetDefault("api.pause_seconds", 120)

	v.SetDefault("server.addr", "127.0.0.1:8000")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FYERS_APP_ID"); v != "" {
		cfg.Credentials.Fyers.AppID = v
	}
	if v := os.Getenv("FYERS_SECRET"); v != "" {
		cfg.Credentials.Fyers.Secret = v
	}
	if v := os.Getenv("FYERS_REDIRECT_URI"); v != "" {
		cfg.Credentials.Fyers.RedirectURI = v
	}
	if v := os.Getenv("FYERS_PIN"); v != "" {
		cfg.Credentials.Fyers.PIN = v
	}
	if v := os.Getenv("FYERS_TOTP_SECRET"); v != "" {
		cfg.Credentials.Fyers.TOTPSecret = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

func applyDefaults(cfg *Config, configDir string) {
	if cfg.Credentials.Fyers.TokenPath == "" {
		cfg.Credentials.Fyers.TokenPath = filepath.Join(configDir, "token.json")
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(configDir, "logs", "orb-bot.log")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if mode := models.TradingMode(c.Trading.Mode); mode != models.ModeLive && mode != models.ModePaper {
		return fmt.Errorf("invalid trading mode: %s (must be 'LIVE' or 'PAPER')", c.Trading.Mode)
	}
	if c.Trading.LotSize <= 0 {
		return fmt.Errorf("lot_size must be positive")
	}
	if c.Trading.StopLossPct <= 0 || c.Trading.StopLossPct >= 1 {
		return fmt.Errorf("stop_loss_pct must be a fraction between 0 and 1")
	}
	if c.Trading.TargetPct <= 0 {
		return fmt.Errorf("target_pct must be positive")
	}
	if c.Risk.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive")
	}
	if c.Risk.MaxDailyLoss <= 0 {
		return fmt.Errorf("max_daily_loss must be positive")
	}
	if c.Risk.MaxTradesPerDay <= 0 {
		return fmt.Errorf("max_trades_per_day must be positive")
	}
	if c.Risk.RiskPctPerTrade <= 0 || c.Risk.RiskPctPerTrade > 100 {
		return fmt.Errorf("risk_pct_per_trade must be between 0 and 100")
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.API.FailureThreshold <= 0 {
		return fmt.Errorf("failure_threshold must be positive")
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return models.TradingMode(c.Trading.Mode) == models.ModePaper
}
