// Package strategy builds and validates multi-leg option spreads and
// computes their expiry payoff profiles analytically.
package strategy

import (
	"fmt"
	"sort"
	"time"

	"options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

// template describes the structural rules of one strategy type.
type template struct {
	legCount int
	validate func(legs []models.OptionLeg) (rule, message string)
}

// legsByStrike returns the legs sorted ascending by strike.
func legsByStrike(legs []models.OptionLeg) []models.OptionLeg {
	sorted := make([]models.OptionLeg, len(legs))
	copy(sorted, legs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Strike < sorted[j].Strike })
	return sorted
}

func findLeg(legs []models.OptionLeg, t models.OptionType, a models.Action) (models.OptionLeg, bool) {
	for _, leg := range legs {
		if leg.Type == t && leg.Action == a {
			return leg, true
		}
	}
	return models.OptionLeg{}, false
}

func validateVertical(legs []models.OptionLeg, optType models.OptionType, buyBelowSell bool) (string, string) {
	buy, okBuy := findLeg(legs, optType, models.Buy)
	sell, okSell := findLeg(legs, optType, models.Sell)
	if !okBuy || !okSell {
		return "leg_structure", fmt.Sprintf("requires one bought and one sold %s", optType)
	}
	if buy.Strike == sell.Strike {
		return "strike_order", "buy and sell strikes must differ"
	}
	if buyBelowSell && buy.Strike > sell.Strike {
		return "strike_order", fmt.Sprintf("buy strike %.2f must be below sell strike %.2f", buy.Strike, sell.Strike)
	}
	if !buyBelowSell && buy.Strike < sell.Strike {
		return "strike_order", fmt.Sprintf("buy strike %.2f must be above sell strike %.2f", buy.Strike, sell.Strike)
	}
	return "", ""
}

var templates = map[models.StrategyType]template{
	models.BullCallSpread: {
		legCount: 2,
		validate: func(legs []models.OptionLeg) (string, string) {
			return validateVertical(legs, models.Call, true)
		},
	},
	models.BearPutSpread: {
		legCount: 2,
		validate: func(legs []models.OptionLeg) (string, string) {
			return validateVertical(legs, models.Put, false)
		},
	},
	models.CallCreditSpread: {
		legCount: 2,
		validate: func(legs []models.OptionLeg) (string, string) {
			return validateVertical(legs, models.Call, false)
		},
	},
	models.PutCreditSpread: {
		legCount: 2,
		validate: func(legs []models.OptionLeg) (string, string) {
			return validateVertical(legs, models.Put, true)
		},
	},
	models.IronCondor: {
		legCount: 4,
		validate: func(legs []models.OptionLeg) (string, string) {
			sorted := legsByStrike(legs)
			want := []struct {
				t models.OptionType
				a models.Action
			}{
				{models.Put, models.Buy},
				{models.Put, models.Sell},
				{models.Call, models.Sell},
				{models.Call, models.Buy},
			}
			for i, leg := range sorted {
				if leg.Type != want[i].t || leg.Action != want[i].a {
					return "leg_structure", "requires long put, short put, short call, long call in ascending strike order"
				}
			}
			for i := 1; i < len(sorted); i++ {
				if sorted[i].Strike <= sorted[i-1].Strike {
					return "strike_order", "strikes must be strictly ascending"
				}
			}
			return "", ""
		},
	},
	models.LongStraddle: {
		legCount: 2,
		validate: func(legs []models.OptionLeg) (string, string) {
			call, okCall := findLeg(legs, models.Call, models.Buy)
			put, okPut := findLeg(legs, models.Put, models.Buy)
			if !okCall || !okPut {
				return "leg_structure", "requires one bought call and one bought put"
			}
			if call.Strike != put.Strike {
				return "strike_order", "call and put strikes must match"
			}
			return "", ""
		},
	},
}

// Build validates legs against the strategy template and constructs the
// spread. Failures name the specific violated rule.
func Build(strategyType models.StrategyType, legs []models.OptionLeg) (*models.Spread, error) {
	return BuildAt(strategyType, legs, time.Now())
}

// BuildAt is Build with an explicit clock for expiry validation.
func BuildAt(strategyType models.StrategyType, legs []models.OptionLeg, now time.Time) (*models.Spread, error) {
	tpl, ok := templates[strategyType]
	if !ok {
		return nil, errors.NewSpreadError(string(strategyType), "unknown_strategy", "no template for strategy type")
	}
	if len(legs) != tpl.legCount {
		return nil, errors.NewSpreadError(string(strategyType), "leg_count",
			fmt.Sprintf("requires %d legs, got %d", tpl.legCount, len(legs)))
	}

	underlying := legs[0].Underlying
	expiry := legs[0].Expiry
	for i, leg := range legs {
		if leg.Underlying != underlying {
			return nil, errors.NewSpreadError(string(strategyType), "underlying_mismatch",
				fmt.Sprintf("leg %d underlying %s differs from %s", i, leg.Underlying, underlying))
		}
		if !leg.Expiry.Equal(expiry) {
			return nil, errors.NewSpreadError(string(strategyType), "expiry_mismatch",
				"all legs must share one expiry")
		}
		if !leg.Expiry.After(now) {
			return nil, errors.NewSpreadError(string(strategyType), "expiry_past",
				fmt.Sprintf("leg %d expiry %s is not in the future", i, leg.Expiry.Format("2006-01-02")))
		}
		if leg.Strike <= 0 {
			return nil, errors.NewSpreadError(string(strategyType), "strike_positive",
				fmt.Sprintf("leg %d strike must be positive", i))
		}
		if leg.Quantity <= 0 {
			return nil, errors.NewSpreadError(string(strategyType), "quantity_positive",
				fmt.Sprintf("leg %d quantity must be positive", i))
		}
		for j := 0; j < i; j++ {
			if leg.SameContract(legs[j]) {
				return nil, errors.NewSpreadError(string(strategyType), "duplicate_leg",
					fmt.Sprintf("legs %d and %d are identical contracts", j, i))
			}
		}
	}

	if rule, message := tpl.validate(legs); rule != "" {
		return nil, errors.NewSpreadError(string(strategyType), rule, message)
	}

	return &models.Spread{
		Strategy:   strategyType,
		Underlying: underlying,
		Legs:       legs,
	}, nil
}

// LegCount returns the template leg count for a strategy, or 0 if unknown.
func LegCount(strategyType models.StrategyType) int {
	return templates[strategyType].legCount
}
