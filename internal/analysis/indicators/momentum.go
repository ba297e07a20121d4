package indicators

import (
	"fmt"

	"options-analyzer/internal/models"
)

// RSI calculates the Relative Strength Index.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

func (r *RSI) Calculate(candles []models.Candle) ([]float64, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < r.period+1 {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)
	closes := closePrices(candles)

	gains := make([]float64, n)
	losses := make([]float64, n)

	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	// First average using SMA
	avgGain := mean(gains[1 : r.period+1])
	avgLoss := mean(losses[1 : r.period+1])
	result[r.period] = rsiValue(avgGain, avgLoss)

	// Subsequent values using Wilder smoothing
	for i := r.period + 1; i < n; i++ {
		avgGain = (avgGain*float64(r.period-1) + gains[i]) / float64(r.period)
		avgLoss = (avgLoss*float64(r.period-1) + losses[i]) / float64(r.period)
		result[i] = rsiValue(avgGain, avgLoss)
	}

	return result, nil
}

// rsiValue computes RSI from average gain and loss. A zero average loss
// saturates RSI to 100 rather than dividing by zero; a fully flat series
// (no gains and no losses) is 50, neither overbought nor oversold.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// Momentum calculates the percentage price change over a lookback period.
type Momentum struct {
	period int
}

// NewMomentum creates a new Momentum indicator.
func NewMomentum(period int) *Momentum {
	return &Momentum{period: period}
}

func (m *Momentum) Name() string {
	return fmt.Sprintf("Momentum_%d", m.period)
}

func (m *Momentum) Period() int {
	return m.period
}

func (m *Momentum) Calculate(candles []models.Candle) ([]float64, error) {
	if m.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < m.period+1 {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)
	closes := closePrices(candles)

	for i := m.period; i < n; i++ {
		if closes[i-m.period] != 0 {
			result[i] = 100 * (closes[i] - closes[i-m.period]) / closes[i-m.period]
		}
	}

	return result, nil
}

// Divergence describes a price-vs-RSI trend disagreement.
type Divergence string

const (
	DivergenceNone    Divergence = "NONE"
	DivergenceBullish Divergence = "BULLISH"
	DivergenceBearish Divergence = "BEARISH"
)

// RSIDivergence checks the last window bars for a divergence between the
// price trend and the RSI trend. Price rising while RSI falls materially
// is bearish; price falling while RSI rises is bullish.
func RSIDivergence(candles []models.Candle, rsiPeriod, window int) (Divergence, error) {
	if window <= 1 {
		return DivergenceNone, ErrInvalidPeriod
	}
	if len(candles) < rsiPeriod+window {
		return DivergenceNone, ErrInsufficientData
	}

	rsi := NewRSI(rsiPeriod)
	values, err := rsi.Calculate(candles)
	if err != nil {
		return DivergenceNone, err
	}

	closes := closePrices(candles)
	priceTrend := closes[len(closes)-1] - closes[len(closes)-window]
	rsiTrend := values[len(values)-1] - values[len(values)-window]

	switch {
	case priceTrend > 0 && rsiTrend < -5:
		return DivergenceBearish, nil
	case priceTrend < 0 && rsiTrend > 5:
		return DivergenceBullish, nil
	default:
		return DivergenceNone, nil
	}
}
