// Package config provides configuration management for the analyzer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Data     DataConfig     `mapstructure:"data"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	UI       UIConfig       `mapstructure:"ui"`
}

// AnalysisConfig holds indicator and regime classification settings.
type AnalysisConfig struct {
	RSIPeriod          int     `mapstructure:"rsi_period"`
	MACDFast           int     `mapstructure:"macd_fast"`
	MACDSlow           int     `mapstructure:"macd_slow"`
	MACDSignal         int     `mapstructure:"macd_signal"`
	ShortSMA           int     `mapstructure:"short_sma"`
	LongSMA            int     `mapstructure:"long_sma"`
	VolatilityWindow   int     `mapstructure:"volatility_window"`
	RSIOversold        float64 `mapstructure:"rsi_oversold"`
	RSIOverbought      float64 `mapstructure:"rsi_overbought"`
	HighVolThreshold   float64 `mapstructure:"high_vol_threshold"` // annualized
	LowVolThreshold    float64 `mapstructure:"low_vol_threshold"`
	MomentumThreshold  float64 `mapstructure:"momentum_threshold"` // % over 5 days
}

// PricingConfig holds option pricing settings.
type PricingConfig struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
	ATMCutoff    float64 `mapstructure:"atm_cutoff"` // |ln(S/K)| below this is ATM
}

// RiskConfig holds default risk-management levels attached to new positions.
type RiskConfig struct {
	StopLossPercent   float64 `mapstructure:"stop_loss_percent"`   // of max loss
	TakeProfitPercent float64 `mapstructure:"take_profit_percent"` // of max gain
	DTEAlert          int     `mapstructure:"dte_alert"`
}

// DataConfig holds market data collaborator settings.
type DataConfig struct {
	LookbackDays      int           `mapstructure:"lookback_days"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	AllowSimulated    bool          `mapstructure:"allow_simulated"`
	SimulatedVol      float64       `mapstructure:"simulated_vol"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/options-analyzer"
	}
	return filepath.Join(home, ".config", "options-analyzer")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			RSIPeriod:         14,
			MACDFast:          12,
			MACDSlow:          26,
			MACDSignal:        9,
			ShortSMA:          20,
			LongSMA:           50,
			VolatilityWindow:  20,
			RSIOversold:       30,
			RSIOverbought:     70,
			HighVolThreshold:  0.40,
			LowVolThreshold:   0.15,
			MomentumThreshold: 2.0,
		},
		Pricing: PricingConfig{
			RiskFreeRate: 0.05,
			ATMCutoff:    0.02,
		},
		Risk: RiskConfig{
			StopLossPercent:   50.0,
			TakeProfitPercent: 75.0,
			DTEAlert:          21,
		},
		Data: DataConfig{
			LookbackDays:   30,
			FetchTimeout:   10 * time.Second,
			AllowSimulated: true,
			SimulatedVol:   0.30,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    true,
		},
		UI: UIConfig{
			ColorEnabled: true,
			DateFormat:   "2006-01-02",
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		// First run: write a template so the defaults are discoverable.
		if werr := writeTemplate(configDir); werr != nil {
			return nil, fmt.Errorf("creating config template: %w", werr)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("analysis.rsi_period", cfg.Analysis.RSIPeriod)
	v.SetDefault("analysis.macd_fast", cfg.Analysis.MACDFast)
	v.SetDefault("analysis.macd_slow", cfg.Analysis.MACDSlow)
	v.SetDefault("analysis.macd_signal", cfg.Analysis.MACDSignal)
	v.SetDefault("pricing.risk_free_rate", cfg.Pricing.RiskFreeRate)
	v.SetDefault("pricing.atm_cutoff", cfg.Pricing.ATMCutoff)
	v.SetDefault("risk.stop_loss_percent", cfg.Risk.StopLossPercent)
	v.SetDefault("risk.take_profit_percent", cfg.Risk.TakeProfitPercent)
	v.SetDefault("risk.dte_alert", cfg.Risk.DTEAlert)
	v.SetDefault("data.lookback_days", cfg.Data.LookbackDays)
	v.SetDefault("data.fetch_timeout", cfg.Data.FetchTimeout)
	v.SetDefault("data.allow_simulated", cfg.Data.AllowSimulated)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

func writeTemplate(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}
	template := `# options-analyzer configuration

[analysis]
rsi_period = 14
macd_fast = 12
macd_slow = 26
macd_signal = 9
short_sma = 20
long_sma = 50
volatility_window = 20
rsi_oversold = 30.0
rsi_overbought = 70.0
high_vol_threshold = 0.40
low_vol_threshold = 0.15
momentum_threshold = 2.0

[pricing]
risk_free_rate = 0.05
atm_cutoff = 0.02

[risk]
stop_loss_percent = 50.0
take_profit_percent = 75.0
dte_alert = 21

[data]
lookback_days = 30
fetch_timeout = "10s"
allow_simulated = true
simulated_vol = 0.30

[logging]
level = "info"
console = true
file = true

[ui]
color_enabled = true
date_format = "2006-01-02"
`
	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(template), 0644)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANALYZER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ANALYZER_RISK_FREE_RATE"); v != "" {
		var rate float64
		if _, err := fmt.Sscanf(v, "%f", &rate); err == nil {
			cfg.Pricing.RiskFreeRate = rate
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Analysis.RSIPeriod <= 0 {
		return fmt.Errorf("rsi_period must be positive")
	}
	if c.Analysis.MACDFast <= 0 || c.Analysis.MACDSlow <= 0 || c.Analysis.MACDSignal <= 0 {
		return fmt.Errorf("macd periods must be positive")
	}
	if c.Analysis.MACDFast >= c.Analysis.MACDSlow {
		return fmt.Errorf("macd_fast must be less than macd_slow")
	}
	if c.Analysis.ShortSMA <= 0 || c.Analysis.LongSMA <= 0 {
		return fmt.Errorf("sma periods must be positive")
	}
	if c.Analysis.ShortSMA >= c.Analysis.LongSMA {
		return fmt.Errorf("short_sma must be less than long_sma")
	}
	if c.Analysis.LowVolThreshold <= 0 || c.Analysis.HighVolThreshold <= c.Analysis.LowVolThreshold {
		return fmt.Errorf("volatility thresholds must satisfy 0 < low < high")
	}
	if c.Pricing.ATMCutoff <= 0 {
		return fmt.Errorf("atm_cutoff must be positive")
	}
	if c.Risk.StopLossPercent <= 0 || c.Risk.StopLossPercent > 100 {
		return fmt.Errorf("stop_loss_percent must be in (0, 100]")
	}
	if c.Risk.TakeProfitPercent <= 0 || c.Risk.TakeProfitPercent > 100 {
		return fmt.Errorf("take_profit_percent must be in (0, 100]")
	}
	if c.Data.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be positive")
	}
	return nil
}
