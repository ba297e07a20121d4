// Package models provides domain models for the options analysis engine.
package models

import (
	"fmt"
	"time"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// PriceSeries is an ordered sequence of candles for one underlying,
// ascending by timestamp with no duplicates. Treat as immutable once built.
type PriceSeries struct {
	Symbol    string
	Candles   []Candle
	Simulated bool
}

// NewPriceSeries validates ordering and builds a series.
func NewPriceSeries(symbol string, candles []Candle, simulated bool) (*PriceSeries, error) {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return nil, fmt.Errorf("price series for %s not strictly ascending at index %d", symbol, i)
		}
	}
	owned := make([]Candle, len(candles))
	copy(owned, candles)
	return &PriceSeries{Symbol: symbol, Candles: owned, Simulated: simulated}, nil
}

// Len returns the number of candles in the series.
func (s *PriceSeries) Len() int {
	return len(s.Candles)
}

// LastClose returns the most recent closing price, or 0 for an empty series.
func (s *PriceSeries) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// Closes extracts the close prices in order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// Quote represents a point-in-time market quote for an underlying.
type Quote struct {
	Symbol     string
	Spot       float64
	ImpliedVol float64
	Timestamp  time.Time
	Simulated  bool
}

// Regime represents a discrete market regime label.
type Regime string

const (
	RegimeBullish Regime = "BULLISH"
	RegimeBearish Regime = "BEARISH"
	RegimeNeutral Regime = "NEUTRAL"
	RegimeHighVol Regime = "HIGH_VOLATILITY"
	RegimeLowVol  Regime = "LOW_VOLATILITY"
)

// MarketRegime is the result of a regime classification: a label, a
// confidence in [0, 1], and the series snapshot it was derived from.
// Created fresh on every analysis request, never persisted.
type MarketRegime struct {
	Regime     Regime
	Confidence float64
	Series     *PriceSeries
	Strategies []StrategyType // ranked, most suitable first
	Signals    map[string]float64
	Simulated  bool
	ComputedAt time.Time
}

// MoneynessZone classifies an option's spot-vs-strike position.
type MoneynessZone string

const (
	ZoneITM MoneynessZone = "ITM"
	ZoneATM MoneynessZone = "ATM"
	ZoneOTM MoneynessZone = "OTM"
)
