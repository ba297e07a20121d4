package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-analyzer/internal/config"
	"options-analyzer/internal/models"
	"options-analyzer/internal/pricing"
)

func suggestModel() *pricing.Model {
	return pricing.NewModel(config.PricingConfig{RiskFreeRate: 0.05, ATMCutoff: 0.02})
}

func TestSuggestBuildsValidSpreads(t *testing.T) {
	model := suggestModel()
	expiry := time.Now().AddDate(0, 0, 30)

	for _, st := range []models.StrategyType{
		models.BullCallSpread, models.BearPutSpread,
		models.CallCreditSpread, models.PutCreditSpread,
		models.IronCondor, models.LongStraddle,
	} {
		spread, err := Suggest(st, "ACME", 187.34, expiry, model, 0.30)
		require.NoError(t, err, "strategy %s", st)
		assert.Equal(t, st, spread.Strategy)
		assert.Len(t, spread.Legs, LegCount(st))
		for _, leg := range spread.Legs {
			assert.Greater(t, leg.Premium, 0.0, "strategy %s strike %.2f", st, leg.Strike)
			assert.InDelta(t, 0.0, math.Mod(leg.Strike, 5), 1e-9, "strikes sit on the listing increment")
		}
	}
}

func TestSuggestDebitAndCreditSigns(t *testing.T) {
	model := suggestModel()
	expiry := time.Now().AddDate(0, 0, 30)

	debit, err := Suggest(models.BullCallSpread, "ACME", 200, expiry, model, 0.30)
	require.NoError(t, err)
	assert.Greater(t, debit.NetPremium(), 0.0, "bull call is entered for a debit")

	credit, err := Suggest(models.PutCreditSpread, "ACME", 200, expiry, model, 0.30)
	require.NoError(t, err)
	assert.Less(t, credit.NetPremium(), 0.0, "put credit is entered for a credit")
}

func TestSuggestAtHistoricalBar(t *testing.T) {
	model := suggestModel()

	// A replayed entry: both the bar and the expiry are in the past
	// relative to the wall clock, but the expiry follows the bar.
	asOf := time.Now().AddDate(0, 0, -60)
	expiry := asOf.AddDate(0, 0, 10)

	spread, err := SuggestAt(models.BullCallSpread, "ACME", 187.34, expiry, model, 0.30, asOf)
	require.NoError(t, err)
	assert.Len(t, spread.Legs, 2)
	for _, leg := range spread.Legs {
		assert.Greater(t, leg.Premium, 0.0)
	}
	assert.Greater(t, spread.NetPremium(), 0.0)
}

func TestSuggestRejectsBadInput(t *testing.T) {
	model := suggestModel()
	expiry := time.Now().AddDate(0, 0, 30)

	_, err := Suggest(models.BullCallSpread, "ACME", 0, expiry, model, 0.30)
	assert.Error(t, err)

	_, err = Suggest(models.StrategyType("CALENDAR"), "ACME", 200, expiry, model, 0.30)
	assert.Error(t, err)
}

func TestProfitProbabilityDirectional(t *testing.T) {
	model := suggestModel()
	now := time.Now()
	expiry := now.AddDate(0, 0, 30)

	mkLeg := func(a models.Action, strike, premium float64) models.OptionLeg {
		return models.OptionLeg{
			Underlying: "ACME", Type: models.Call, Action: a,
			Strike: strike, Expiry: expiry, Quantity: 1, Premium: premium,
		}
	}
	spread := &models.Spread{
		Strategy:   models.BullCallSpread,
		Underlying: "ACME",
		Legs:       []models.OptionLeg{mkLeg(models.Buy, 100, 5), mkLeg(models.Sell, 110, 2)},
	}

	// Breakeven 103: well above it the spread almost surely profits,
	// well below it almost surely loses.
	deepITM, err := ProfitProbability(spread, model, 150, 0.20, now)
	require.NoError(t, err)
	assert.Greater(t, deepITM, 0.95)

	deepOTM, err := ProfitProbability(spread, model, 60, 0.20, now)
	require.NoError(t, err)
	assert.Less(t, deepOTM, 0.05)

	atBreakeven, err := ProfitProbability(spread, model, 103, 0.20, now)
	require.NoError(t, err)
	assert.Greater(t, atBreakeven, 0.2)
	assert.Less(t, atBreakeven, 0.8)
}

func TestProfitProbabilityStraddleSplitsTails(t *testing.T) {
	model := suggestModel()
	now := time.Now()
	expiry := now.AddDate(0, 0, 30)

	spread := &models.Spread{
		Strategy:   models.LongStraddle,
		Underlying: "ACME",
		Legs: []models.OptionLeg{
			{Underlying: "ACME", Type: models.Call, Action: models.Buy, Strike: 100, Expiry: expiry, Quantity: 1, Premium: 4},
			{Underlying: "ACME", Type: models.Put, Action: models.Buy, Strike: 100, Expiry: expiry, Quantity: 1, Premium: 3},
		},
	}

	// Profitable only outside [93, 107]: at moderate vol most of the
	// mass sits between the breakevens.
	prob, err := ProfitProbability(spread, model, 100, 0.30, now)
	require.NoError(t, err)
	assert.Greater(t, prob, 0.0)
	assert.Less(t, prob, 0.5)
}
