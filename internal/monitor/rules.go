package monitor

import (
	"math"

	"github.com/google/uuid"

	"options-analyzer/internal/config"
	"options-analyzer/internal/models"
)

// DefaultRules builds the standard risk-management rules attached to a
// new position: stop loss at a fraction of max loss, take profit at a
// fraction of max gain, and a days-to-expiry warning.
func DefaultRules(risk config.RiskConfig) []models.AlertRule {
	return []models.AlertRule{
		{
			ID:        uuid.New().String(),
			Name:      "stop_loss",
			Metric:    models.MetricPnLPercent,
			Compare:   models.CompareBelow,
			Threshold: -risk.StopLossPercent,
			Severity:  models.SeverityCritical,
		},
		{
			ID:        uuid.New().String(),
			Name:      "take_profit",
			Metric:    models.MetricPnLPercent,
			Compare:   models.CompareAbove,
			Threshold: risk.TakeProfitPercent,
			Severity:  models.SeverityInfo,
		},
		{
			ID:        uuid.New().String(),
			Name:      "expiry_approaching",
			Metric:    models.MetricDaysToExpiry,
			Compare:   models.CompareBelow,
			Threshold: float64(risk.DTEAlert),
			Severity:  models.SeverityWarning,
		},
	}
}

// metricValue extracts the value an alert rule compares against from a
// fresh snapshot.
func metricValue(metric models.AlertMetric, snap *models.MonitorSnapshot) (float64, bool) {
	switch metric {
	case models.MetricPnLPercent:
		return snap.UnrealizedPnLPct, true
	case models.MetricPnLAbsolute:
		return snap.UnrealizedPnL, true
	case models.MetricBreakevenDist:
		nearest := math.Inf(1)
		for _, bd := range snap.BreakevenDistances {
			if d := math.Abs(bd.Percent); d < nearest {
				nearest = d
			}
		}
		if math.IsInf(nearest, 1) {
			return 0, false
		}
		return nearest, true
	case models.MetricDaysToExpiry:
		return float64(snap.DaysToExpiry), true
	}
	return 0, false
}

// evaluateRules applies edge-triggered alerting: a rule fires only when
// its condition becomes newly true, and rearms once it returns false.
// Mutates the rules' Triggered flags in place.
func evaluateRules(rules []models.AlertRule, snap *models.MonitorSnapshot) []models.AlertEvent {
	var events []models.AlertEvent
	for i := range rules {
		rule := &rules[i]
		value, ok := metricValue(rule.Metric, snap)
		if !ok {
			continue
		}
		matched := rule.Matches(value)
		if matched && !rule.Triggered {
			events = append(events, models.AlertEvent{
				RuleID:     rule.ID,
				RuleName:   rule.Name,
				PositionID: snap.PositionID,
				Symbol:     snap.Symbol,
				Metric:     rule.Metric,
				Value:      value,
				Threshold:  rule.Threshold,
				Severity:   rule.Severity,
				Timestamp:  snap.Timestamp,
			})
		}
		rule.Triggered = matched
	}
	return events
}

// classifyRisk grades the position from its loss depth and time left.
// Thresholds are fractions of the configured stop loss and DTE alert.
func classifyRisk(risk config.RiskConfig, pnlPct float64, daysToExpiry int) models.RiskLevel {
	loss := -pnlPct // positive when losing
	switch {
	case loss >= risk.StopLossPercent:
		return models.RiskCritical
	case loss >= risk.StopLossPercent*0.75 || daysToExpiry <= risk.DTEAlert/3:
		return models.RiskHigh
	case loss >= risk.StopLossPercent*0.5 || daysToExpiry <= risk.DTEAlert:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
