package data

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"options-analyzer/internal/models"
)

// SimulatedProvider generates deterministic synthetic market data. The
// random walk is seeded from the symbol, so repeated calls for the same
// symbol produce the same series. Every output carries the Simulated
// tag so downstream display can label it.
type SimulatedProvider struct {
	vol float64
}

// NewSimulatedProvider creates a simulated provider with the given
// annualized volatility.
func NewSimulatedProvider(vol float64) *SimulatedProvider {
	if vol <= 0 {
		vol = 0.30
	}
	return &SimulatedProvider{vol: vol}
}

// basePrice derives a stable starting price in [50, 550) from the symbol.
func basePrice(symbol string) float64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return 50 + float64(h.Sum64()%500)
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64())
}

// FetchHistory generates a geometric-random-walk series with one candle
// per calendar day, ending today (UTC).
func (p *SimulatedProvider) FetchHistory(ctx context.Context, symbol string, lookbackDays int) (*models.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}

	rng := rand.New(rand.NewSource(symbolSeed(symbol)))
	dailyVol := p.vol / math.Sqrt(252)
	drift := 0.05 / 252

	price := basePrice(symbol)
	end := time.Now().UTC().Truncate(24 * time.Hour)
	candles := make([]models.Candle, 0, lookbackDays)

	for i := lookbackDays - 1; i >= 0; i-- {
		ret := drift + dailyVol*rng.NormFloat64()
		open := price
		price *= math.Exp(ret)

		high := math.Max(open, price) * (1 + 0.3*dailyVol*math.Abs(rng.NormFloat64()))
		low := math.Min(open, price) * (1 - 0.3*dailyVol*math.Abs(rng.NormFloat64()))

		candles = append(candles, models.Candle{
			Timestamp: end.AddDate(0, 0, -i),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    1_000_000 + rng.Int63n(9_000_000),
		})
	}

	return models.NewPriceSeries(symbol, candles, true)
}

// FetchQuote generates a quote consistent with the simulated history:
// the spot is the series' last close.
func (p *SimulatedProvider) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	series, err := p.FetchHistory(ctx, symbol, 30)
	if err != nil {
		return models.Quote{}, err
	}
	return models.Quote{
		Symbol:     symbol,
		Spot:       series.LastClose(),
		ImpliedVol: p.vol,
		Timestamp:  time.Now(),
		Simulated:  true,
	}, nil
}
