// Package regime classifies market conditions from indicator outputs and
// maps each regime to a ranked list of suitable spread strategies.
package regime

import (
	"context"
	"fmt"
	"time"

	"options-analyzer/internal/analysis/indicators"
	"options-analyzer/internal/config"
	"options-analyzer/internal/errors"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
)

// momentum lookbacks are fixed; only the thresholds are configurable.
const (
	momentumShortBars = 5
	momentumLongBars  = 10
)

// Classifier turns a price series into a MarketRegime. It is stateless
// apart from its configuration and safe for concurrent series.
type Classifier struct {
	engine     *indicators.Engine
	rules      []Rule
	thresholds Thresholds

	smaShortName string
	smaLongName  string
	rsiName      string
	macdName     string
	momShortName string
	momLongName  string
	hvName       string
}

// NewClassifier builds a classifier with the configured indicator periods
// and zone thresholds.
func NewClassifier(cfg config.AnalysisConfig) *Classifier {
	engine := indicators.NewEngine(4)

	smaShort := indicators.NewSMA(cfg.ShortSMA)
	smaLong := indicators.NewSMA(cfg.LongSMA)
	rsi := indicators.NewRSI(cfg.RSIPeriod)
	momShort := indicators.NewMomentum(momentumShortBars)
	momLong := indicators.NewMomentum(momentumLongBars)
	hv := indicators.NewHistoricalVolatility(cfg.VolatilityWindow)
	macd := indicators.NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)

	engine.RegisterIndicator(smaShort)
	engine.RegisterIndicator(smaLong)
	engine.RegisterIndicator(rsi)
	engine.RegisterIndicator(momShort)
	engine.RegisterIndicator(momLong)
	engine.RegisterIndicator(hv)
	engine.RegisterMultiIndicator(macd)

	return &Classifier{
		engine: engine,
		rules:  DefaultRules(),
		thresholds: Thresholds{
			RSIOversold:       cfg.RSIOversold,
			RSIOverbought:     cfg.RSIOverbought,
			HighVol:           cfg.HighVolThreshold,
			LowVol:            cfg.LowVolThreshold,
			MomentumThreshold: cfg.MomentumThreshold,
		},
		smaShortName: smaShort.Name(),
		smaLongName:  smaLong.Name(),
		rsiName:      rsi.Name(),
		macdName:     macd.Name() + ".histogram",
		momShortName: momShort.Name(),
		momLongName:  momLong.Name(),
		hvName:       hv.Name(),
	}
}

// Classify computes the indicator set for the series and runs the rule
// table over it. A series too short for some indicators still classifies,
// at lower confidence; an empty series is an error.
func (c *Classifier) Classify(ctx context.Context, series *models.PriceSeries) (*models.MarketRegime, error) {
	if series == nil || series.Len() == 0 {
		return nil, errors.Wrap(errors.ErrInsufficientData, "empty price series")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := c.engine.ComputeSet(ctx, series)
	signals := c.extractSignals(series, set)
	label, confidence := Tally(c.rules, signals, c.thresholds)

	log := logging.FromContext(ctx)
	log.Debug().
		Str("symbol", series.Symbol).
		Str("regime", string(label)).
		Float64("confidence", confidence).
		Int("missing_indicators", len(set.Missing)).
		Msg("regime classified")

	return &models.MarketRegime{
		Regime:     label,
		Confidence: confidence,
		Series:     series,
		Strategies: StrategiesFor(label),
		Signals:    signalMap(series, signals),
		Simulated:  series.Simulated,
		ComputedAt: time.Now(),
	}, nil
}

func (c *Classifier) extractSignals(series *models.PriceSeries, set *indicators.IndicatorSet) Signals {
	s := Signals{Spot: series.LastClose()}

	var okShort, okLong bool
	s.ShortSMA, okShort = set.Get(c.smaShortName)
	s.LongSMA, okLong = set.Get(c.smaLongName)
	s.HasSMA = okShort && okLong

	s.RSI, s.HasRSI = set.Get(c.rsiName)

	var okMom5, okMom10 bool
	s.Momentum5, okMom5 = set.Get(c.momShortName)
	s.Momentum10, okMom10 = set.Get(c.momLongName)
	s.HasMomentum = okMom5 && okMom10

	s.MACDHistogram, s.HasMACD = set.Get(c.macdName)
	s.HistVol, s.HasVol = set.Get(c.hvName)

	return s
}

// signalMap flattens the signals for presentation. Only available
// signals appear, so a renderer can distinguish missing from zero.
func signalMap(series *models.PriceSeries, s Signals) map[string]float64 {
	out := map[string]float64{
		"spot": s.Spot,
		"bars": float64(series.Len()),
	}
	if s.HasSMA {
		out["sma_short"] = s.ShortSMA
		out["sma_long"] = s.LongSMA
	}
	if s.HasRSI {
		out["rsi"] = s.RSI
	}
	if s.HasMomentum {
		out[fmt.Sprintf("momentum_%d", momentumShortBars)] = s.Momentum5
		out[fmt.Sprintf("momentum_%d", momentumLongBars)] = s.Momentum10
	}
	if s.HasMACD {
		out["macd_histogram"] = s.MACDHistogram
	}
	if s.HasVol {
		out["hist_vol"] = s.HistVol
	}
	return out
}
