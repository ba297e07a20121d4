// Package backtest replays price history through the regime classifier
// and spread templates. Each pass classifies the regime on the bars seen
// so far, opens the top-ranked spread at the bar's close, holds it for a
// fixed horizon and settles at intrinsic value.
package backtest

import (
	"context"
	"math"
	"time"

	"options-analyzer/internal/analysis/indicators"
	"options-analyzer/internal/analysis/regime"
	"options-analyzer/internal/errors"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
	"options-analyzer/internal/pricing"
	"options-analyzer/internal/strategy"
)

// Config controls a backtest run. Zero fields take defaults, except
// Slippage where zero means none.
type Config struct {
	InitialCapital float64
	WarmupBars     int     // bars consumed before the first entry
	RebalanceBars  int     // bars between entry attempts
	HoldBars       int     // bars a spread is held before settlement
	Slippage       float64 // fraction of each leg premium lost at entry
	Multiplier     float64 // contract multiplier
	RiskFraction   float64 // capital fraction risked per trade
	FallbackVol    float64 // sigma when historical volatility is unavailable
}

// DefaultConfig returns the standard replay parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100_000,
		WarmupBars:     40,
		RebalanceBars:  5,
		HoldBars:       10,
		Slippage:       0.001,
		Multiplier:     100,
		RiskFraction:   0.20,
		FallbackVol:    0.30,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.InitialCapital <= 0 {
		c.InitialCapital = def.InitialCapital
	}
	if c.WarmupBars <= 0 {
		c.WarmupBars = def.WarmupBars
	}
	if c.RebalanceBars <= 0 {
		c.RebalanceBars = def.RebalanceBars
	}
	if c.HoldBars <= 0 {
		c.HoldBars = def.HoldBars
	}
	if c.Multiplier <= 0 {
		c.Multiplier = def.Multiplier
	}
	if c.RiskFraction <= 0 || c.RiskFraction > 1 {
		c.RiskFraction = def.RiskFraction
	}
	if c.FallbackVol <= 0 {
		c.FallbackVol = def.FallbackVol
	}
	return c
}

// Trade is one settled spread in a replay.
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	Strategy   models.StrategyType
	Regime     models.Regime
	Contracts  int
	EntrySpot  float64
	ExitSpot   float64
	NetPremium float64 // per contract unit, signed
	PnL        float64 // total, after slippage
	PnLPercent float64 // of the capital risked
}

// EquityPoint is one mark on the equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// Result holds the trades, the equity curve and the derived metrics.
type Result struct {
	Symbol    string
	Simulated bool
	StartDate time.Time
	EndDate   time.Time

	Trades      []Trade
	EquityCurve []EquityPoint

	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	FinalEquity      float64
	TotalReturn      float64 // percent
	AnnualizedReturn float64 // percent
	WinRate          float64 // percent
	MaxDrawdown      float64 // percent
	SharpeRatio      float64
	ProfitFactor     float64
	AvgWin           float64
	AvgLoss          float64
	EquityTrend      float64 // per-bar slope of the equity curve
}

// Engine replays a series through the classifier and spread templates.
type Engine struct {
	classifier *regime.Classifier
	model      *pricing.Model
	cfg        Config
}

// New creates a backtest engine.
func New(classifier *regime.Classifier, model *pricing.Model, cfg Config) *Engine {
	return &Engine{
		classifier: classifier,
		model:      model,
		cfg:        cfg.withDefaults(),
	}
}

// openTrade tracks a spread between entry and settlement.
type openTrade struct {
	spread    *models.Spread
	regime    models.Regime
	contracts int
	entryIdx  int
	entryTime time.Time
	entrySpot float64
	riskBasis float64 // capital at risk, total
}

// Run replays the series. The first WarmupBars feed the classifier only;
// entries are attempted every RebalanceBars afterwards, one spread open
// at a time, each settled at intrinsic value after HoldBars.
func (e *Engine) Run(ctx context.Context, series *models.PriceSeries) (*Result, error) {
	if series == nil || series.Len() < e.cfg.WarmupBars+e.cfg.HoldBars+1 {
		return nil, errors.Wrap(errors.ErrInsufficientData, "series shorter than warmup plus hold horizon")
	}

	log := logging.FromContext(ctx)
	candles := series.Candles

	result := &Result{
		Symbol:    series.Symbol,
		Simulated: series.Simulated,
		StartDate: candles[e.cfg.WarmupBars].Timestamp,
		EndDate:   candles[len(candles)-1].Timestamp,
	}

	capital := e.cfg.InitialCapital
	peak := capital
	maxDrawdown := 0.0
	var open *openTrade

	for i := e.cfg.WarmupBars; i < len(candles); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candle := candles[i]

		if open != nil && i-open.entryIdx >= e.cfg.HoldBars {
			trade := e.settle(open, candle)
			capital += trade.PnL
			result.Trades = append(result.Trades, trade)
			open = nil
		}

		if open == nil && (i-e.cfg.WarmupBars)%e.cfg.RebalanceBars == 0 && i+e.cfg.HoldBars < len(candles) {
			entered, err := e.tryEnter(ctx, series, i, capital)
			if err != nil {
				log.Debug().Err(err).Time("bar", candle.Timestamp).Msg("backtest entry skipped")
			} else if entered != nil {
				capital -= entered.slipCost
				open = entered.trade
			}
		}

		equity := capital
		if open != nil {
			equity += open.spread.IntrinsicPayoff(candle.Close) * e.cfg.Multiplier * float64(open.contracts)
		}
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
		result.EquityCurve = append(result.EquityCurve, EquityPoint{Timestamp: candle.Timestamp, Equity: equity})
	}

	if open != nil {
		trade := e.settle(open, candles[len(candles)-1])
		capital += trade.PnL
		result.Trades = append(result.Trades, trade)
	}

	e.computeMetrics(result, capital, maxDrawdown)
	return result, nil
}

// entry couples a new open trade with its entry slippage cost.
type entry struct {
	trade    *openTrade
	slipCost float64
}

// tryEnter classifies the regime on the bars seen so far and opens the
// top-ranked strategy's suggested spread at the bar's close.
func (e *Engine) tryEnter(ctx context.Context, series *models.PriceSeries, idx int, capital float64) (*entry, error) {
	window, err := models.NewPriceSeries(series.Symbol, series.Candles[:idx+1], series.Simulated)
	if err != nil {
		return nil, err
	}
	reg, err := e.classifier.Classify(ctx, window)
	if err != nil {
		return nil, err
	}
	if len(reg.Strategies) == 0 {
		return nil, nil
	}

	candle := series.Candles[idx]
	sigma := e.cfg.FallbackVol
	if hv, ok := reg.Signals["hist_vol"]; ok && hv > 0 {
		sigma = hv
	}

	expiry := candle.Timestamp.AddDate(0, 0, e.cfg.HoldBars)
	spread, err := strategy.SuggestAt(reg.Strategies[0], series.Symbol, candle.Close, expiry, e.model, sigma, candle.Timestamp)
	if err != nil {
		return nil, err
	}

	riskBasis := e.riskBasis(spread)
	if riskBasis <= 0 {
		return nil, nil
	}
	contracts := int(capital * e.cfg.RiskFraction / riskBasis)
	if contracts < 1 {
		if riskBasis > capital {
			return nil, nil
		}
		contracts = 1
	}

	var slipCost float64
	for _, leg := range spread.Legs {
		slipCost += math.Abs(leg.Premium) * float64(leg.Quantity) * e.cfg.Slippage
	}
	slipCost *= e.cfg.Multiplier * float64(contracts)

	return &entry{
		trade: &openTrade{
			spread:    spread,
			regime:    reg.Regime,
			contracts: contracts,
			entryIdx:  idx,
			entryTime: candle.Timestamp,
			entrySpot: candle.Close,
			riskBasis: riskBasis * float64(contracts),
		},
		slipCost: slipCost,
	}, nil
}

// riskBasis returns the per-contract capital at risk: the bounded max
// loss when it exists, otherwise the premium notionally committed.
func (e *Engine) riskBasis(spread *models.Spread) float64 {
	profile := strategy.ComputePayoff(spread)
	if !profile.MaxLoss.Unbounded && profile.MaxLoss.Value > 0 {
		return profile.MaxLoss.Value * e.cfg.Multiplier
	}
	return math.Abs(profile.NetPremium) * e.cfg.Multiplier
}

// settle closes an open trade at the bar's close using the spread's
// intrinsic payoff, which is already net of the entry premium.
func (e *Engine) settle(open *openTrade, candle models.Candle) Trade {
	pnl := open.spread.IntrinsicPayoff(candle.Close) * e.cfg.Multiplier * float64(open.contracts)

	trade := Trade{
		EntryTime:  open.entryTime,
		ExitTime:   candle.Timestamp,
		Strategy:   open.spread.Strategy,
		Regime:     open.regime,
		Contracts:  open.contracts,
		EntrySpot:  open.entrySpot,
		ExitSpot:   candle.Close,
		NetPremium: open.spread.NetPremium(),
		PnL:        pnl,
	}
	if open.riskBasis > 0 {
		trade.PnLPercent = pnl / open.riskBasis * 100
	}
	return trade
}

// computeMetrics derives return, win rate, drawdown, Sharpe ratio and
// profit factor from the trades and equity curve.
func (e *Engine) computeMetrics(result *Result, finalEquity, maxDrawdown float64) {
	result.FinalEquity = finalEquity
	result.TotalTrades = len(result.Trades)
	result.MaxDrawdown = maxDrawdown * 100
	result.TotalReturn = (finalEquity - e.cfg.InitialCapital) / e.cfg.InitialCapital * 100

	var totalWins, totalLosses float64
	for _, trade := range result.Trades {
		if trade.PnL > 0 {
			result.WinningTrades++
			totalWins += trade.PnL
		} else {
			result.LosingTrades++
			totalLosses -= trade.PnL
		}
	}
	if result.TotalTrades > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades) * 100
	}
	if result.WinningTrades > 0 {
		result.AvgWin = totalWins / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		result.AvgLoss = -totalLosses / float64(result.LosingTrades)
	}
	if totalLosses > 0 {
		result.ProfitFactor = totalWins / totalLosses
	}

	if len(result.EquityCurve) > 1 {
		days := result.EndDate.Sub(result.StartDate).Hours() / 24
		if days > 0 && finalEquity > 0 {
			years := days / 365
			result.AnnualizedReturn = (math.Pow(finalEquity/e.cfg.InitialCapital, 1/years) - 1) * 100
		}
		result.SharpeRatio = sharpeRatio(result.EquityCurve)

		values := make([]float64, len(result.EquityCurve))
		for i, p := range result.EquityCurve {
			values[i] = p.Equity
		}
		if slope, err := indicators.Slope(values, len(values)); err == nil {
			result.EquityTrend = slope
		}
	}
}

// annualized Sharpe over daily equity returns, 5% risk-free.
func sharpeRatio(curve []EquityPoint) float64 {
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Equity == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-curve[i-1].Equity)/curve[i-1].Equity)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}

	riskFree := 0.05 / 252
	return (mean - riskFree) / stdDev * math.Sqrt(252)
}
