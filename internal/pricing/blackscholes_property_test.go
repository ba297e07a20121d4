package pricing

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-analyzer/internal/config"
	"options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

func testModel() *Model {
	return NewModel(config.PricingConfig{RiskFreeRate: 0.05, ATMCutoff: 0.02})
}

func pricingInputsGen() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(10.0, 1000.0),  // spot
		gen.Float64Range(10.0, 1000.0),  // strike
		gen.Float64Range(0.01, 2.0),     // time in years
		gen.Float64Range(0.05, 1.5),     // sigma
	).Map(func(values []interface{}) [4]float64 {
		return [4]float64{
			values[0].(float64),
			values[1].(float64),
			values[2].(float64),
			values[3].(float64),
		}
	})
}

func TestProperty_PutCallParity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	model := testModel()

	properties.Property("call - put = S - K*exp(-rT)", prop.ForAll(
		func(in [4]float64) bool {
			spot, strike, timeYears, sigma := in[0], in[1], in[2], in[3]
			call, err := model.Price(models.Call, spot, strike, timeYears, sigma)
			if err != nil {
				return false
			}
			put, err := model.Price(models.Put, spot, strike, timeYears, sigma)
			if err != nil {
				return false
			}
			parity := spot - strike*math.Exp(-model.RiskFreeRate()*timeYears)
			return math.Abs((call-put)-parity) < 1e-6*math.Max(spot, strike)
		},
		pricingInputsGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_PricesNonNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	model := testModel()

	properties.Property("premiums are finite and non-negative", prop.ForAll(
		func(in [4]float64) bool {
			for _, optType := range []models.OptionType{models.Call, models.Put} {
				price, err := model.Price(optType, in[0], in[1], in[2], in[3])
				if err != nil {
					return false
				}
				if price < -1e-9 || math.IsNaN(price) || math.IsInf(price, 0) {
					return false
				}
			}
			return true
		},
		pricingInputsGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_DeltaBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	model := testModel()

	properties.Property("call delta in [0,1], put delta in [-1,0], gamma >= 0", prop.ForAll(
		func(in [4]float64) bool {
			callGreeks, err := model.Greeks(models.Call, in[0], in[1], in[2], in[3])
			if err != nil {
				return false
			}
			putGreeks, err := model.Greeks(models.Put, in[0], in[1], in[2], in[3])
			if err != nil {
				return false
			}
			if callGreeks.Delta < 0 || callGreeks.Delta > 1 {
				return false
			}
			if putGreeks.Delta < -1 || putGreeks.Delta > 0 {
				return false
			}
			return callGreeks.Gamma >= 0 && putGreeks.Gamma >= 0
		},
		pricingInputsGen(),
	))

	properties.TestingRun(t)
}

func TestNearExpiryITMCallSaturates(t *testing.T) {
	model := testModel()

	// A deep ITM call a few seconds from expiry converges to intrinsic
	// value with delta ~1, never NaN.
	timeYears := 10.0 / (365 * 24 * 3600)
	price, err := model.Price(models.Call, 120, 100, timeYears, 0.30)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(price))
	assert.InDelta(t, 20.0, price, 0.05)

	greeks, err := model.Greeks(models.Call, 120, 100, timeYears, 0.30)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, greeks.Delta, 1e-6)
	assert.False(t, math.IsNaN(greeks.Theta))
	assert.False(t, math.IsInf(greeks.Theta, 0))
}

func TestInvalidInputsRejected(t *testing.T) {
	model := testModel()

	cases := []struct {
		name                        string
		spot, strike, years, sigma float64
	}{
		{"zero spot", 0, 100, 0.5, 0.3},
		{"negative spot", -10, 100, 0.5, 0.3},
		{"zero strike", 100, 0, 0.5, 0.3},
		{"expired", 100, 100, 0, 0.3},
		{"negative time", 100, 100, -0.1, 0.3},
		{"zero vol", 100, 100, 0.5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := model.Price(models.Call, tc.spot, tc.strike, tc.years, tc.sigma)
			require.Error(t, err)
			var inputErr *errors.InputError
			assert.ErrorAs(t, err, &inputErr)
		})
	}
}

func TestMoneynessZone(t *testing.T) {
	model := testModel()

	assert.Equal(t, models.ZoneATM, model.Zone(models.Call, 100, 100))
	assert.Equal(t, models.ZoneATM, model.Zone(models.Call, 101, 100))
	assert.Equal(t, models.ZoneITM, model.Zone(models.Call, 120, 100))
	assert.Equal(t, models.ZoneOTM, model.Zone(models.Call, 80, 100))
	assert.Equal(t, models.ZoneITM, model.Zone(models.Put, 80, 100))
	assert.Equal(t, models.ZoneOTM, model.Zone(models.Put, 120, 100))
}

func TestITMProbabilitiesSumToOne(t *testing.T) {
	model := testModel()

	callProb, err := model.ITMProbability(models.Call, 100, 105, 0.25, 0.30)
	require.NoError(t, err)
	putProb, err := model.ITMProbability(models.Put, 100, 105, 0.25, 0.30)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, callProb+putProb, 1e-9)
	assert.Greater(t, putProb, callProb)
}
