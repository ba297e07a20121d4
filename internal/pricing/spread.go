package pricing

import (
	"time"

	"options-analyzer/internal/models"
)

// LegValuation is the full model output for one leg at a point in time.
type LegValuation struct {
	Premium float64
	Greeks  models.Greeks
	Zone    models.MoneynessZone
	ITMProb float64
}

// ValueLeg prices a leg and its Greeks at the given spot and volatility.
func (m *Model) ValueLeg(leg models.OptionLeg, spot, sigma float64, now time.Time) (LegValuation, error) {
	timeYears := YearsToExpiry(leg.Expiry, now)

	premium, err := m.Price(leg.Type, spot, leg.Strike, timeYears, sigma)
	if err != nil {
		return LegValuation{}, err
	}
	greeks, err := m.Greeks(leg.Type, spot, leg.Strike, timeYears, sigma)
	if err != nil {
		return LegValuation{}, err
	}
	itmProb, err := m.ITMProbability(leg.Type, spot, leg.Strike, timeYears, sigma)
	if err != nil {
		return LegValuation{}, err
	}

	return LegValuation{
		Premium: premium,
		Greeks:  greeks,
		Zone:    m.Zone(leg.Type, spot, leg.Strike),
		ITMProb: itmProb,
	}, nil
}

// SpreadMarketValue returns the theoretical liquidation value of the
// spread: each leg's model premium times its signed quantity. Positive
// means closing the spread pays the holder.
func (m *Model) SpreadMarketValue(spread *models.Spread, spot, sigma float64, now time.Time) (float64, error) {
	var value float64
	for _, leg := range spread.Legs {
		v, err := m.ValueLeg(leg, spot, sigma, now)
		if err != nil {
			return 0, err
		}
		value += v.Premium * float64(leg.SignedQuantity())
	}
	return value, nil
}

// SpreadGreeks aggregates per-leg Greeks by signed-quantity sum. Never
// cached; recomputed for each (spot, sigma, now) triple.
func (m *Model) SpreadGreeks(spread *models.Spread, spot, sigma float64, now time.Time) (models.Greeks, error) {
	var total models.Greeks
	for _, leg := range spread.Legs {
		g, err := m.Greeks(leg.Type, spot, leg.Strike, YearsToExpiry(leg.Expiry, now), sigma)
		if err != nil {
			return models.Greeks{}, err
		}
		total = total.Add(g.Scale(float64(leg.SignedQuantity())))
	}
	return total, nil
}
