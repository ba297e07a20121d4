// Package pricing implements closed-form Black-Scholes option pricing
// and Greeks. All functions are pure; failures are returned, never
// defaulted, since a wrong premium is a financial-correctness issue.
package pricing

import (
	"math"
	"time"

	"options-analyzer/internal/config"
	"options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

const (
	// minVolTime clamps sigma*sqrt(T) away from zero so near-expiry
	// contracts saturate instead of producing NaN or Inf.
	minVolTime = 1e-8

	daysPerYear = 365.0
)

// Model prices option legs under Black-Scholes with a fixed risk-free
// rate. Stateless and safe for concurrent use.
type Model struct {
	riskFreeRate float64
	atmCutoff    float64
}

// NewModel builds a pricing model from configuration.
func NewModel(cfg config.PricingConfig) *Model {
	return &Model{
		riskFreeRate: cfg.RiskFreeRate,
		atmCutoff:    cfg.ATMCutoff,
	}
}

// RiskFreeRate returns the model's risk-free rate.
func (m *Model) RiskFreeRate() float64 {
	return m.riskFreeRate
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// YearsToExpiry converts an expiry date to time in years (ACT/365).
func YearsToExpiry(expiry, now time.Time) float64 {
	return expiry.Sub(now).Hours() / 24 / daysPerYear
}

func validateInputs(spot, strike, timeYears, sigma float64) error {
	if spot <= 0 {
		return errors.NewInputError("spot", spot, "must be positive")
	}
	if strike <= 0 {
		return errors.NewInputError("strike", strike, "must be positive")
	}
	if timeYears <= 0 {
		return errors.NewInputError("time_to_expiry", timeYears, "must be positive")
	}
	if sigma <= 0 {
		return errors.NewInputError("volatility", sigma, "must be positive")
	}
	return nil
}

// d1d2 computes the Black-Scholes d1 and d2 terms with the volatility-time
// denominator clamped to minVolTime.
func d1d2(spot, strike, timeYears, rate, sigma float64) (float64, float64) {
	volTime := sigma * math.Sqrt(timeYears)
	if volTime < minVolTime {
		volTime = minVolTime
	}
	d1 := (math.Log(spot/strike) + (rate+sigma*sigma/2)*timeYears) / volTime
	d2 := d1 - volTime
	return d1, d2
}

// Price returns the theoretical premium for one option contract.
func (m *Model) Price(optType models.OptionType, spot, strike, timeYears, sigma float64) (float64, error) {
	if err := validateInputs(spot, strike, timeYears, sigma); err != nil {
		return 0, err
	}

	d1, d2 := d1d2(spot, strike, timeYears, m.riskFreeRate, sigma)
	discount := math.Exp(-m.riskFreeRate * timeYears)

	switch optType {
	case models.Put:
		return strike*discount*normCDF(-d2) - spot*normCDF(-d1), nil
	default:
		return spot*normCDF(d1) - strike*discount*normCDF(d2), nil
	}
}

// Greeks returns delta, gamma, theta and vega for one contract. Theta is
// per calendar day; vega is per volatility point.
func (m *Model) Greeks(optType models.OptionType, spot, strike, timeYears, sigma float64) (models.Greeks, error) {
	if err := validateInputs(spot, strike, timeYears, sigma); err != nil {
		return models.Greeks{}, err
	}

	d1, d2 := d1d2(spot, strike, timeYears, m.riskFreeRate, sigma)
	discount := math.Exp(-m.riskFreeRate * timeYears)
	sqrtT := math.Sqrt(timeYears)

	volTime := sigma * sqrtT
	if volTime < minVolTime {
		volTime = minVolTime
	}

	gamma := normPDF(d1) / (spot * volTime)
	vega := spot * normPDF(d1) * sqrtT / 100

	decay := -spot * normPDF(d1) * sigma / (2 * sqrtT)

	var delta, thetaAnnual float64
	switch optType {
	case models.Put:
		delta = normCDF(d1) - 1
		thetaAnnual = decay + m.riskFreeRate*strike*discount*normCDF(-d2)
	default:
		delta = normCDF(d1)
		thetaAnnual = decay - m.riskFreeRate*strike*discount*normCDF(d2)
	}

	return models.Greeks{
		Delta: delta,
		Gamma: gamma,
		Theta: thetaAnnual / daysPerYear,
		Vega:  vega,
	}, nil
}

// Moneyness returns ln(S/K).
func Moneyness(spot, strike float64) float64 {
	return math.Log(spot / strike)
}

// Zone classifies spot-vs-strike using the configured ATM cutoff on
// |ln(S/K)|.
func (m *Model) Zone(optType models.OptionType, spot, strike float64) models.MoneynessZone {
	mny := Moneyness(spot, strike)
	if math.Abs(mny) < m.atmCutoff {
		return models.ZoneATM
	}
	itm := mny > 0
	if optType == models.Put {
		itm = mny < 0
	}
	if itm {
		return models.ZoneITM
	}
	return models.ZoneOTM
}

// ITMProbability returns the model's risk-neutral probability of the
// contract finishing in the money: N(d2) for calls, N(-d2) for puts.
// This is model-derived, not an empirical probability.
func (m *Model) ITMProbability(optType models.OptionType, spot, strike, timeYears, sigma float64) (float64, error) {
	if err := validateInputs(spot, strike, timeYears, sigma); err != nil {
		return 0, err
	}
	_, d2 := d1d2(spot, strike, timeYears, m.riskFreeRate, sigma)
	if optType == models.Put {
		return normCDF(-d2), nil
	}
	return normCDF(d2), nil
}
