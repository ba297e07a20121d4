package indicators

import (
	"fmt"
	"math"

	"options-analyzer/internal/models"
)

// tradingDaysPerYear is used to annualize daily return volatility.
const tradingDaysPerYear = 252

// HistoricalVolatility calculates the standard deviation of close-to-close
// returns over a rolling window, annualized.
type HistoricalVolatility struct {
	period int
}

// NewHistoricalVolatility creates a new historical volatility indicator.
func NewHistoricalVolatility(period int) *HistoricalVolatility {
	return &HistoricalVolatility{period: period}
}

func (h *HistoricalVolatility) Name() string {
	return fmt.Sprintf("HV_%d", h.period)
}

func (h *HistoricalVolatility) Period() int {
	return h.period
}

func (h *HistoricalVolatility) Calculate(candles []models.Candle) ([]float64, error) {
	if h.period <= 1 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < h.period+1 {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)
	returns := pctReturns(closePrices(candles))

	// returns[i] corresponds to candles[i+1]
	for i := h.period; i < n; i++ {
		window := returns[i-h.period : i]
		result[i] = stdDev(window) * math.Sqrt(tradingDaysPerYear)
	}

	return result, nil
}

// ATR calculates the Average True Range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR_%d", a.period)
}

func (a *ATR) Period() int {
	return a.period
}

func (a *ATR) Calculate(candles []models.Candle) ([]float64, error) {
	if a.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < a.period+1 {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = trueRange(candles[i], candles[i-1])
	}

	result := make([]float64, n)

	// First ATR is SMA of true ranges, then Wilder smoothing
	result[a.period] = mean(tr[1 : a.period+1])
	for i := a.period + 1; i < n; i++ {
		result[i] = (result[i-1]*float64(a.period-1) + tr[i]) / float64(a.period)
	}

	return result, nil
}

// BollingerBands calculates Bollinger Bands (middle, upper, lower).
type BollingerBands struct {
	period     int
	multiplier float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, multiplier float64) *BollingerBands {
	return &BollingerBands{period: period, multiplier: multiplier}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BB_%d_%.1f", b.period, b.multiplier)
}

func (b *BollingerBands) Period() int {
	return b.period
}

func (b *BollingerBands) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if b.period <= 0 || b.multiplier <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < b.period {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	closes := closePrices(candles)

	middle := make([]float64, n)
	upper := make([]float64, n)
	lower := make([]float64, n)

	for i := b.period - 1; i < n; i++ {
		window := closes[i-b.period+1 : i+1]
		m := mean(window)
		sd := stdDev(window)
		middle[i] = m
		upper[i] = m + b.multiplier*sd
		lower[i] = m - b.multiplier*sd
	}

	return map[string][]float64{
		"middle": middle,
		"upper":  upper,
		"lower":  lower,
	}, nil
}
