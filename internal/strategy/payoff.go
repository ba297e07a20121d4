package strategy

import (
	"math"
	"sort"

	"options-analyzer/internal/models"
)

// PayoffProfile summarizes a spread's expiry payoff. The payoff is
// piecewise linear in the underlying price with kinks only at leg
// strikes, so extrema and breakevens are exact, not searched.
type PayoffProfile struct {
	NetPremium float64 // positive = debit paid, negative = credit received
	MaxGain    models.Extremum
	MaxLoss    models.Extremum // magnitude of the worst loss
	Breakevens []float64
}

// breakevenEps collapses duplicate roots at shared kinks.
const breakevenEps = 1e-9

// ComputePayoff analyzes the spread's expiry payoff. Max loss is
// reported as a positive magnitude; either extremum may be unbounded.
func ComputePayoff(spread *models.Spread) PayoffProfile {
	profile := PayoffProfile{NetPremium: spread.NetPremium()}

	// Evaluation points: zero plus each distinct strike, ascending.
	points := []float64{0}
	for _, leg := range spread.Legs {
		points = append(points, leg.Strike)
	}
	sort.Float64s(points)
	points = dedupe(points)

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = spread.IntrinsicPayoff(p)
	}

	// Slope above the highest strike: puts are worthless, each call
	// contributes its signed quantity.
	var tailSlope float64
	for _, leg := range spread.Legs {
		if leg.Type == models.Call {
			tailSlope += float64(leg.SignedQuantity())
		}
	}

	best := values[0]
	worst := values[0]
	for _, v := range values[1:] {
		best = math.Max(best, v)
		worst = math.Min(worst, v)
	}

	switch {
	case tailSlope > 0:
		profile.MaxGain = models.UnboundedExtremum()
	default:
		profile.MaxGain = models.Bounded(best)
	}
	switch {
	case tailSlope < 0:
		profile.MaxLoss = models.UnboundedExtremum()
	default:
		profile.MaxLoss = models.Bounded(-worst)
	}

	profile.Breakevens = breakevens(points, values, tailSlope)
	return profile
}

// breakevens finds the exact zero crossings of the piecewise-linear
// payoff: one linear interpolation per interior segment, plus the tail
// segment extended by its slope.
func breakevens(points, values []float64, tailSlope float64) []float64 {
	var roots []float64

	add := func(r float64) {
		for _, existing := range roots {
			if math.Abs(existing-r) < breakevenEps {
				return
			}
		}
		roots = append(roots, r)
	}

	for i := 1; i < len(points); i++ {
		p0, p1 := points[i-1], points[i]
		v0, v1 := values[i-1], values[i]
		switch {
		case v0 == 0:
			add(p0)
		case v0*v1 < 0:
			add(p0 - v0*(p1-p0)/(v1-v0))
		}
	}

	last := len(points) - 1
	if values[last] == 0 {
		add(points[last])
	} else if tailSlope != 0 && values[last]*tailSlope < 0 {
		add(points[last] - values[last]/tailSlope)
	}

	sort.Float64s(roots)
	return roots
}

func dedupe(sorted []float64) []float64 {
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
