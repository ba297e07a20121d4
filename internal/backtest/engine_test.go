package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-analyzer/internal/analysis/regime"
	"options-analyzer/internal/config"
	"options-analyzer/internal/errors"
	"options-analyzer/internal/models"
	"options-analyzer/internal/pricing"
	"options-analyzer/internal/strategy"
)

func newTestEngine(cfg Config) *Engine {
	def := config.Default()
	return New(regime.NewClassifier(def.Analysis), pricing.NewModel(def.Pricing), cfg)
}

// trendSeries builds a daily series compounding at the given return.
func trendSeries(t *testing.T, symbol string, bars int, dailyReturn float64) *models.PriceSeries {
	t.Helper()
	end := time.Now().UTC().Truncate(24 * time.Hour)
	price := 100.0
	candles := make([]models.Candle, 0, bars)
	for i := bars - 1; i >= 0; i-- {
		next := price * (1 + dailyReturn)
		candles = append(candles, models.Candle{
			Timestamp: end.AddDate(0, 0, -i),
			Open:      price,
			High:      math.Max(price, next) * 1.002,
			Low:       math.Min(price, next) * 0.998,
			Close:     next,
			Volume:    1_000_000,
		})
		price = next
	}
	series, err := models.NewPriceSeries(symbol, candles, false)
	require.NoError(t, err)
	return series
}

func TestRunRejectsShortSeries(t *testing.T) {
	engine := newTestEngine(Config{WarmupBars: 40, HoldBars: 10})
	series := trendSeries(t, "SHORT", 30, 0.01)

	_, err := engine.Run(context.Background(), series)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)

	_, err = engine.Run(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}

func TestRunProducesSettledTrades(t *testing.T) {
	engine := newTestEngine(Config{})
	series := trendSeries(t, "TREND", 140, 0.01)

	result, err := engine.Run(context.Background(), series)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.TotalTrades, 1)
	assert.Len(t, result.Trades, result.TotalTrades)
	assert.Equal(t, result.TotalTrades, result.WinningTrades+result.LosingTrades)

	for _, trade := range result.Trades {
		assert.True(t, trade.ExitTime.After(trade.EntryTime), "exit must follow entry")
		assert.GreaterOrEqual(t, trade.Contracts, 1)
		assert.NotEmpty(t, trade.Strategy)
		assert.NotEmpty(t, trade.Regime)
	}

	// One equity mark per replayed bar.
	assert.Len(t, result.EquityCurve, series.Len()-DefaultConfig().WarmupBars)
	for i := 1; i < len(result.EquityCurve); i++ {
		assert.True(t, result.EquityCurve[i].Timestamp.After(result.EquityCurve[i-1].Timestamp))
	}

	assert.False(t, math.IsNaN(result.SharpeRatio))
	assert.False(t, math.IsNaN(result.EquityTrend))
	assert.GreaterOrEqual(t, result.MaxDrawdown, 0.0)
}

func TestRunIsDeterministic(t *testing.T) {
	series := trendSeries(t, "DET", 140, 0.005)

	first, err := newTestEngine(Config{}).Run(context.Background(), series)
	require.NoError(t, err)
	second, err := newTestEngine(Config{}).Run(context.Background(), series)
	require.NoError(t, err)

	assert.Equal(t, first.TotalTrades, second.TotalTrades)
	assert.Equal(t, first.FinalEquity, second.FinalEquity)
	assert.Equal(t, first.TotalReturn, second.TotalReturn)
	require.Equal(t, len(first.EquityCurve), len(second.EquityCurve))
	for i := range first.EquityCurve {
		assert.Equal(t, first.EquityCurve[i].Equity, second.EquityCurve[i].Equity)
	}
}

func TestSettleUsesIntrinsicPayoff(t *testing.T) {
	engine := newTestEngine(Config{})
	expiry := time.Date(2026, 7, 17, 0, 0, 0, 0, time.UTC)
	entryTime := expiry.AddDate(0, 0, -10)

	leg := func(action models.Action, strike, premium float64) models.OptionLeg {
		return models.OptionLeg{
			Underlying: "XYZ",
			Type:       models.Call,
			Action:     action,
			Strike:     strike,
			Expiry:     expiry,
			Quantity:   1,
			Premium:    premium,
		}
	}
	spread, err := strategy.BuildAt(models.BullCallSpread,
		[]models.OptionLeg{leg(models.Buy, 100, 5), leg(models.Sell, 110, 2)}, entryTime)
	require.NoError(t, err)

	open := &openTrade{
		spread:    spread,
		regime:    models.RegimeBullish,
		contracts: 2,
		entryTime: entryTime,
		entrySpot: 101,
		riskBasis: 600, // max loss 3 x multiplier 100 x 2 contracts
	}

	// Spot 107 at settlement: intrinsic 7 minus debit 3 = 4 per unit.
	trade := engine.settle(open, models.Candle{Timestamp: expiry, Close: 107})
	assert.InDelta(t, 4*100*2, trade.PnL, 1e-9)
	assert.InDelta(t, 800.0/600*100, trade.PnLPercent, 1e-9)
	assert.Equal(t, models.BullCallSpread, trade.Strategy)
	assert.Equal(t, entryTime, trade.EntryTime)
}

func TestComputeMetrics(t *testing.T) {
	engine := newTestEngine(Config{InitialCapital: 100_000})
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	result := &Result{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 3),
		Trades: []Trade{
			{PnL: 100},
			{PnL: 50},
			{PnL: -50},
		},
		EquityCurve: []EquityPoint{
			{Timestamp: start, Equity: 100_000},
			{Timestamp: start.AddDate(0, 0, 1), Equity: 110_000},
			{Timestamp: start.AddDate(0, 0, 2), Equity: 99_000},
			{Timestamp: start.AddDate(0, 0, 3), Equity: 120_000},
		},
	}

	engine.computeMetrics(result, 120_000, 0.10)

	assert.Equal(t, 3, result.TotalTrades)
	assert.Equal(t, 2, result.WinningTrades)
	assert.Equal(t, 1, result.LosingTrades)
	assert.InDelta(t, 100.0*2/3, result.WinRate, 1e-9)
	assert.InDelta(t, 75.0, result.AvgWin, 1e-9)
	assert.InDelta(t, -50.0, result.AvgLoss, 1e-9)
	assert.InDelta(t, 3.0, result.ProfitFactor, 1e-9)
	assert.InDelta(t, 20.0, result.TotalReturn, 1e-9)
	assert.InDelta(t, 10.0, result.MaxDrawdown, 1e-9)
	assert.Greater(t, result.AnnualizedReturn, 0.0)

	// Equity trend: (1.2 - 1) / 3 per bar.
	assert.InDelta(t, 0.2/3, result.EquityTrend, 1e-9)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	engine := newTestEngine(Config{})
	series := trendSeries(t, "CANCEL", 140, 0.01)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, series)
	assert.ErrorIs(t, err, context.Canceled)
}
