package strategy

import (
	"time"

	"options-analyzer/internal/models"
	"options-analyzer/internal/pricing"
)

// ProfitProbability estimates the risk-neutral probability that the
// spread expires profitable. The payoff's sign is constant between
// breakevens, so the probability is the lognormal mass of the
// profitable regions, using the same N(d2) term as ITM probability.
// Model-derived, not an empirical probability.
func ProfitProbability(spread *models.Spread, model *pricing.Model, spot, sigma float64, now time.Time) (float64, error) {
	profile := ComputePayoff(spread)
	timeYears := pricing.YearsToExpiry(spread.Expiry(), now)

	// P(S_T > b) is the call ITM probability at strike b.
	probAbove := func(b float64) (float64, error) {
		return model.ITMProbability(models.Call, spot, b, timeYears, sigma)
	}

	bes := profile.Breakevens
	if len(bes) == 0 {
		// No crossing: the payoff keeps one sign everywhere.
		if spread.IntrinsicPayoff(spot) > 0 {
			return 1, nil
		}
		return 0, nil
	}

	// Region boundaries: (0, be1], (be1, be2], ..., (beN, inf).
	// Probability above each boundary, with 1 at zero and 0 at infinity.
	above := make([]float64, len(bes)+2)
	above[0] = 1
	for i, b := range bes {
		p, err := probAbove(b)
		if err != nil {
			return 0, err
		}
		above[i+1] = p
	}
	above[len(above)-1] = 0

	var prob float64
	for i := 0; i < len(above)-1; i++ {
		if payoffPositiveInRegion(spread, bes, i) {
			prob += above[i] - above[i+1]
		}
	}
	return prob, nil
}

// payoffPositiveInRegion tests the payoff sign at an interior point of
// region i, where region 0 is below the first breakeven and region
// len(bes) is above the last.
func payoffPositiveInRegion(spread *models.Spread, bes []float64, i int) bool {
	var probe float64
	switch {
	case i == 0:
		probe = bes[0] / 2
	case i == len(bes):
		probe = bes[len(bes)-1] * 1.5
	default:
		probe = (bes[i-1] + bes[i]) / 2
	}
	return spread.IntrinsicPayoff(probe) > 0
}
