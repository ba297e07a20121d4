package strategy

import (
	"math"
	"time"

	"options-analyzer/internal/errors"
	"options-analyzer/internal/models"
	"options-analyzer/internal/pricing"
)

// strikeIncrement picks a listing-style strike spacing for the spot.
func strikeIncrement(spot float64) float64 {
	switch {
	case spot < 25:
		return 0.5
	case spot < 100:
		return 1
	case spot < 500:
		return 5
	default:
		return 10
	}
}

func roundToIncrement(price, inc float64) float64 {
	return math.Round(price/inc) * inc
}

// legSpec is one leg of a suggested spread before pricing.
type legSpec struct {
	optType models.OptionType
	action  models.Action
	strike  float64
}

// legSpecs lays out the template legs around the ATM strike. The short
// or wing strikes sit roughly 5% from spot, rounded to the increment.
func legSpecs(strategyType models.StrategyType, atm, wing float64) []legSpec {
	switch strategyType {
	case models.BullCallSpread:
		return []legSpec{
			{models.Call, models.Buy, atm},
			{models.Call, models.Sell, atm + wing},
		}
	case models.BearPutSpread:
		return []legSpec{
			{models.Put, models.Buy, atm},
			{models.Put, models.Sell, atm - wing},
		}
	case models.CallCreditSpread:
		return []legSpec{
			{models.Call, models.Sell, atm + wing},
			{models.Call, models.Buy, atm + 2*wing},
		}
	case models.PutCreditSpread:
		return []legSpec{
			{models.Put, models.Sell, atm - wing},
			{models.Put, models.Buy, atm - 2*wing},
		}
	case models.IronCondor:
		return []legSpec{
			{models.Put, models.Buy, atm - 2*wing},
			{models.Put, models.Sell, atm - wing},
			{models.Call, models.Sell, atm + wing},
			{models.Call, models.Buy, atm + 2*wing},
		}
	case models.LongStraddle:
		return []legSpec{
			{models.Call, models.Buy, atm},
			{models.Put, models.Buy, atm},
		}
	default:
		return nil
	}
}

// Suggest constructs a candidate spread for the strategy around the
// current spot, with strikes on listing increments and entry premiums
// from the pricing model.
func Suggest(strategyType models.StrategyType, underlying string, spot float64, expiry time.Time, model *pricing.Model, sigma float64) (*models.Spread, error) {
	return SuggestAt(strategyType, underlying, spot, expiry, model, sigma, time.Now())
}

// SuggestAt is Suggest with an explicit clock, so historical replays can
// price and validate spreads as of a past bar.
func SuggestAt(strategyType models.StrategyType, underlying string, spot float64, expiry time.Time, model *pricing.Model, sigma float64, now time.Time) (*models.Spread, error) {
	if spot <= 0 {
		return nil, errors.NewInputError("spot", spot, "must be positive")
	}

	inc := strikeIncrement(spot)
	atm := roundToIncrement(spot, inc)
	wing := math.Max(inc, roundToIncrement(spot*0.05, inc))

	specs := legSpecs(strategyType, atm, wing)
	if specs == nil {
		return nil, errors.NewSpreadError(string(strategyType), "unknown_strategy", "no template for strategy type")
	}

	timeYears := pricing.YearsToExpiry(expiry, now)
	legs := make([]models.OptionLeg, 0, len(specs))
	for _, s := range specs {
		premium, err := model.Price(s.optType, spot, s.strike, timeYears, sigma)
		if err != nil {
			return nil, err
		}
		legs = append(legs, models.OptionLeg{
			Underlying: underlying,
			Type:       s.optType,
			Action:     s.action,
			Strike:     s.strike,
			Expiry:     expiry,
			Quantity:   1,
			Premium:    premium,
		})
	}

	return BuildAt(strategyType, legs, now)
}
