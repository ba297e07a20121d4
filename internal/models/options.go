package models

import "time"

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// Action represents the side of an option leg.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// StrategyType names a supported multi-leg spread template.
type StrategyType string

const (
	BullCallSpread  StrategyType = "BULL_CALL_SPREAD"
	BearPutSpread   StrategyType = "BEAR_PUT_SPREAD"
	CallCreditSpread StrategyType = "CALL_CREDIT_SPREAD"
	PutCreditSpread StrategyType = "PUT_CREDIT_SPREAD"
	IronCondor      StrategyType = "IRON_CONDOR"
	LongStraddle    StrategyType = "LONG_STRADDLE"
)

// OptionLeg is a single option contract within a spread. Immutable after
// the spread is opened; adjustments construct new legs rather than mutate.
type OptionLeg struct {
	Underlying string
	Type       OptionType
	Action     Action
	Strike     float64
	Expiry     time.Time
	Quantity   int
	Premium    float64 // entry premium per unit
}

// SignedQuantity returns quantity signed by action (buys positive).
func (l OptionLeg) SignedQuantity() int {
	if l.Action == Sell {
		return -l.Quantity
	}
	return l.Quantity
}

// IntrinsicValue returns the leg's per-unit intrinsic value at the given
// underlying price.
func (l OptionLeg) IntrinsicValue(spot float64) float64 {
	switch l.Type {
	case Call:
		if spot > l.Strike {
			return spot - l.Strike
		}
	case Put:
		if spot < l.Strike {
			return l.Strike - spot
		}
	}
	return 0
}

// SameContract reports whether two legs describe the identical contract
// on the identical side.
func (l OptionLeg) SameContract(other OptionLeg) bool {
	return l.Type == other.Type &&
		l.Action == other.Action &&
		l.Strike == other.Strike &&
		l.Expiry.Equal(other.Expiry)
}

// Spread is a named strategy built from 2-4 legs on one underlying.
// Net premium, payoff extrema and breakevens are computed, not stored.
type Spread struct {
	Strategy   StrategyType
	Underlying string
	Legs       []OptionLeg
}

// NetPremium returns the net entry premium: positive for a net debit
// (premium paid), negative for a net credit (premium received).
func (s *Spread) NetPremium() float64 {
	var net float64
	for _, leg := range s.Legs {
		net += leg.Premium * float64(leg.SignedQuantity())
	}
	return net
}

// Expiry returns the latest expiry across legs.
func (s *Spread) Expiry() time.Time {
	var latest time.Time
	for _, leg := range s.Legs {
		if leg.Expiry.After(latest) {
			latest = leg.Expiry
		}
	}
	return latest
}

// IntrinsicPayoff evaluates the spread's payoff at expiry for the given
// underlying price, net of entry premium.
func (s *Spread) IntrinsicPayoff(spot float64) float64 {
	var payoff float64
	for _, leg := range s.Legs {
		payoff += leg.IntrinsicValue(spot) * float64(leg.SignedQuantity())
	}
	return payoff - s.NetPremium()
}

// Greeks holds first-order option sensitivities.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// Add returns the sum of two Greeks sets.
func (g Greeks) Add(other Greeks) Greeks {
	return Greeks{
		Delta: g.Delta + other.Delta,
		Gamma: g.Gamma + other.Gamma,
		Theta: g.Theta + other.Theta,
		Vega:  g.Vega + other.Vega,
	}
}

// Scale returns the Greeks multiplied by a signed quantity.
func (g Greeks) Scale(qty float64) Greeks {
	return Greeks{
		Delta: g.Delta * qty,
		Gamma: g.Gamma * qty,
		Theta: g.Theta * qty,
		Vega:  g.Vega * qty,
	}
}

// Extremum is a payoff extremum that may legitimately be unbounded
// (e.g. a naked short call's loss). Never represented as a numeric
// sentinel.
type Extremum struct {
	Unbounded bool
	Value     float64
}

// Bounded constructs a bounded extremum.
func Bounded(v float64) Extremum {
	return Extremum{Value: v}
}

// UnboundedExtremum constructs an unbounded extremum.
func UnboundedExtremum() Extremum {
	return Extremum{Unbounded: true}
}

// String renders the extremum for display.
func (e Extremum) String() string {
	if e.Unbounded {
		return "unbounded"
	}
	return formatMoney(e.Value)
}
