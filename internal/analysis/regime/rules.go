package regime

import (
	"options-analyzer/internal/models"
)

// Signals is the bounded numeric inputs the rule table votes on.
// Availability flags track which indicators could be computed from the
// series; unavailable signals skip their rules and lower confidence.
type Signals struct {
	Spot          float64
	ShortSMA      float64
	LongSMA       float64
	RSI           float64
	Momentum5     float64
	Momentum10    float64
	MACDHistogram float64
	HistVol       float64

	HasSMA      bool
	HasRSI      bool
	HasMomentum bool
	HasMACD     bool
	HasVol      bool
}

// Thresholds are the zone boundaries the rules compare against.
type Thresholds struct {
	RSIOversold       float64
	RSIOverbought     float64
	HighVol           float64
	LowVol            float64
	MomentumThreshold float64 // percent over 5 bars; the 10-bar rule uses 2.5x
}

// Rule is one entry of the classification table. Vote returns the regime
// the rule favors given the signals, or RegimeNeutral when the signal is
// inside its dead zone. Available reports whether the rule's inputs were
// computable for this series.
type Rule struct {
	Name      string
	Weight    float64
	Available func(s Signals) bool
	Vote      func(s Signals, t Thresholds) models.Regime
}

// DefaultRules is the classification table. Each rule inspects one signal
// so that individual rows can be tested in isolation.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "price_vs_short_sma",
			Weight:    1.0,
			Available: func(s Signals) bool { return s.HasSMA },
			Vote: func(s Signals, t Thresholds) models.Regime {
				if s.Spot > s.ShortSMA {
					return models.RegimeBullish
				}
				if s.Spot < s.ShortSMA {
					return models.RegimeBearish
				}
				return models.RegimeNeutral
			},
		},
		{
			Name:      "price_vs_long_sma",
			Weight:    1.0,
			Available: func(s Signals) bool { return s.HasSMA },
			Vote: func(s Signals, t Thresholds) models.Regime {
				if s.Spot > s.LongSMA {
					return models.RegimeBullish
				}
				if s.Spot < s.LongSMA {
					return models.RegimeBearish
				}
				return models.RegimeNeutral
			},
		},
		{
			Name:      "sma_alignment",
			Weight:    1.5,
			Available: func(s Signals) bool { return s.HasSMA },
			Vote: func(s Signals, t Thresholds) models.Regime {
				if s.ShortSMA > s.LongSMA {
					return models.RegimeBullish
				}
				if s.ShortSMA < s.LongSMA {
					return models.RegimeBearish
				}
				return models.RegimeNeutral
			},
		},
		{
			Name:      "momentum_5",
			Weight:    1.0,
			Available: func(s Signals) bool { return s.HasMomentum },
			Vote: func(s Signals, t Thresholds) models.Regime {
				if s.Momentum5 > t.MomentumThreshold {
					return models.RegimeBullish
				}
				if s.Momentum5 < -t.MomentumThreshold {
					return models.RegimeBearish
				}
				return models.RegimeNeutral
			},
		},
		{
			Name:      "momentum_10",
			Weight:    1.0,
			Available: func(s Signals) bool { return s.HasMomentum },
			Vote: func(s Signals, t Thresholds) models.Regime {
				threshold := 2.5 * t.MomentumThreshold
				if s.Momentum10 > threshold {
					return models.RegimeBullish
				}
				if s.Momentum10 < -threshold {
					return models.RegimeBearish
				}
				return models.RegimeNeutral
			},
		},
		{
			Name:      "rsi_zone",
			Weight:    1.0,
			Available: func(s Signals) bool { return s.HasRSI },
			Vote: func(s Signals, t Thresholds) models.Regime {
				// Stretched readings vote neutral; a trend-following
				// entry at RSI extremes is a poor bet either way.
				if s.RSI > t.RSIOverbought || s.RSI < t.RSIOversold {
					return models.RegimeNeutral
				}
				if s.RSI > 50 {
					return models.RegimeBullish
				}
				if s.RSI < 50 {
					return models.RegimeBearish
				}
				return models.RegimeNeutral
			},
		},
		{
			Name:      "macd_histogram",
			Weight:    1.5,
			Available: func(s Signals) bool { return s.HasMACD },
			Vote: func(s Signals, t Thresholds) models.Regime {
				if s.MACDHistogram > 0 {
					return models.RegimeBullish
				}
				if s.MACDHistogram < 0 {
					return models.RegimeBearish
				}
				return models.RegimeNeutral
			},
		},
		{
			Name:      "volatility_band",
			Weight:    2.0,
			Available: func(s Signals) bool { return s.HasVol },
			Vote: func(s Signals, t Thresholds) models.Regime {
				if s.HistVol > t.HighVol {
					return models.RegimeHighVol
				}
				if s.HistVol > 0 && s.HistVol < t.LowVol {
					return models.RegimeLowVol
				}
				return models.RegimeNeutral
			},
		},
	}
}

// neutralFloor is the minimum share of total rule weight the winning
// regime must carry; below it the classification defaults to Neutral.
const neutralFloor = 0.35

// Tally runs the rule table and aggregates votes into a regime label and
// confidence. Confidence is the winning regime's weight over the weight
// of the FULL table, so unavailable rules (short history) drag confidence
// down instead of silently narrowing the vote.
func Tally(rules []Rule, s Signals, t Thresholds) (models.Regime, float64) {
	votes := make(map[models.Regime]float64)
	var totalWeight float64

	for _, rule := range rules {
		totalWeight += rule.Weight
		if !rule.Available(s) {
			continue
		}
		votes[rule.Vote(s, t)] += rule.Weight
	}

	if totalWeight == 0 {
		return models.RegimeNeutral, 0
	}

	winner := models.RegimeNeutral
	var best float64
	for _, regime := range []models.Regime{
		models.RegimeBullish,
		models.RegimeBearish,
		models.RegimeHighVol,
		models.RegimeLowVol,
		models.RegimeNeutral,
	} {
		if w := votes[regime]; w > best {
			winner = regime
			best = w
		}
	}

	confidence := best / totalWeight
	if winner != models.RegimeNeutral && confidence < neutralFloor {
		return models.RegimeNeutral, confidence
	}
	return winner, confidence
}

// strategyTable ranks strategy types per regime, most suitable first.
var strategyTable = map[models.Regime][]models.StrategyType{
	models.RegimeBullish: {
		models.BullCallSpread,
		models.PutCreditSpread,
	},
	models.RegimeBearish: {
		models.BearPutSpread,
		models.CallCreditSpread,
	},
	models.RegimeNeutral: {
		models.IronCondor,
		models.CallCreditSpread,
		models.PutCreditSpread,
	},
	models.RegimeHighVol: {
		models.IronCondor,
		models.CallCreditSpread,
		models.PutCreditSpread,
	},
	models.RegimeLowVol: {
		models.LongStraddle,
		models.BullCallSpread,
		models.BearPutSpread,
	},
}

// StrategiesFor returns the ranked strategy list for a regime.
func StrategiesFor(regime models.Regime) []models.StrategyType {
	ranked, ok := strategyTable[regime]
	if !ok {
		ranked = strategyTable[models.RegimeNeutral]
	}
	out := make([]models.StrategyType, len(ranked))
	copy(out, ranked)
	return out
}
