package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestLoadWritesTemplateOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default().Analysis.RSIPeriod, cfg.Analysis.RSIPeriod)

	_, err = os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err, "first run should write the config template")

	// The written template must itself round-trip.
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Pricing.RiskFreeRate, again.Pricing.RiskFreeRate)
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("[analysis]\nrsi_period = 21\n\n[pricing]\nrisk_free_rate = 0.03\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), content, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 21, cfg.Analysis.RSIPeriod)
	assert.Equal(t, 0.03, cfg.Pricing.RiskFreeRate)
	// Untouched settings keep their defaults.
	assert.Equal(t, Default().Analysis.MACDSlow, cfg.Analysis.MACDSlow)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	content := []byte("[analysis]\nrsi_period = -5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), content, 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANALYZER_LOG_LEVEL", "debug")
	t.Setenv("ANALYZER_RISK_FREE_RATE", "0.07")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 0.07, cfg.Pricing.RiskFreeRate)
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative rsi period", func(c *Config) { c.Analysis.RSIPeriod = -1 }},
		{"fast >= slow macd", func(c *Config) { c.Analysis.MACDFast = 26; c.Analysis.MACDSlow = 12 }},
		{"short >= long sma", func(c *Config) { c.Analysis.ShortSMA = 50; c.Analysis.LongSMA = 20 }},
		{"inverted vol bands", func(c *Config) { c.Analysis.LowVolThreshold = 0.5; c.Analysis.HighVolThreshold = 0.1 }},
		{"negative stop loss", func(c *Config) { c.Risk.StopLossPercent = -10 }},
		{"zero lookback", func(c *Config) { c.Data.LookbackDays = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
