package models

import (
	"fmt"
	"time"
)

// PositionStatus is the lifecycle state of a paper-trading position.
type PositionStatus string

const (
	StatusOpen    PositionStatus = "OPEN"
	StatusClosed  PositionStatus = "CLOSED"
	StatusExpired PositionStatus = "EXPIRED"
)

// RiskLevel classifies how close a position is to its risk limits.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// PnLSample is one append-only entry in a position's P&L history.
type PnLSample struct {
	Timestamp     time.Time
	UnrealizedPnL float64
}

// Position is a spread plus lifecycle metadata. The P&L history is
// append-only and is the only mutable state in the engine; it is owned
// exclusively by the position's monitor.
type Position struct {
	ID         string
	Spread     Spread
	OpenedAt   time.Time
	Status     PositionStatus
	ClosedAt   *time.Time
	RealizedPnL *float64
	AlertRules []AlertRule
	PnLHistory []PnLSample
}

// IsTerminal reports whether the position has left the Open state.
func (p *Position) IsTerminal() bool {
	return p.Status == StatusClosed || p.Status == StatusExpired
}

// DaysToExpiry returns whole days remaining until the spread's expiry,
// negative once past.
func (p *Position) DaysToExpiry(now time.Time) int {
	return int(p.Spread.Expiry().Sub(now).Hours() / 24)
}

// LastSample returns the most recent P&L sample, if any.
func (p *Position) LastSample() (PnLSample, bool) {
	if len(p.PnLHistory) == 0 {
		return PnLSample{}, false
	}
	return p.PnLHistory[len(p.PnLHistory)-1], true
}

// MonitorSnapshot is the structured result of one monitoring pass,
// handed to the presentation layer as plain values.
type MonitorSnapshot struct {
	PositionID         string
	Symbol             string
	Strategy           StrategyType
	Status             PositionStatus
	Spot               float64
	UnrealizedPnL      float64
	UnrealizedPnLPct   float64 // of max loss, per the risk model
	RealizedPnL        *float64
	Greeks             Greeks
	BreakevenDistances []BreakevenDistance
	DaysToExpiry       int
	RiskLevel          RiskLevel
	Alerts             []AlertEvent
	Stale              bool
	Simulated          bool
	Timestamp          time.Time
}

// BreakevenDistance measures spot's distance to one breakeven price.
type BreakevenDistance struct {
	Breakeven float64
	Distance  float64 // spot - breakeven
	Percent   float64 // distance relative to spot
}

// formatMoney renders a dollar amount with sign.
func formatMoney(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}
