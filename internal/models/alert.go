package models

import "time"

// AlertMetric names the monitored quantity an alert rule compares against.
type AlertMetric string

const (
	MetricPnLPercent      AlertMetric = "PNL_PERCENT"       // unrealized P&L as % of max loss (negative) or max gain (positive)
	MetricPnLAbsolute     AlertMetric = "PNL_ABSOLUTE"      // unrealized P&L in currency
	MetricBreakevenDist   AlertMetric = "BREAKEVEN_PERCENT" // |spot - nearest breakeven| as % of spot
	MetricDaysToExpiry    AlertMetric = "DAYS_TO_EXPIRY"
)

// Comparator is the comparison an alert rule applies.
type Comparator string

const (
	CompareAbove Comparator = "ABOVE"
	CompareBelow Comparator = "BELOW"
)

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// AlertRule is evaluated fresh on each monitoring pass. Triggered is the
// only retained state: a rule that fired stays silent until its condition
// first returns false again (edge-triggered, no duplicate notifications).
type AlertRule struct {
	ID        string
	Name      string
	Metric    AlertMetric
	Compare   Comparator
	Threshold float64
	Severity  Severity
	Triggered bool
}

// Matches reports whether the rule's condition holds for the given value.
func (r *AlertRule) Matches(value float64) bool {
	switch r.Compare {
	case CompareAbove:
		return value > r.Threshold
	case CompareBelow:
		return value < r.Threshold
	}
	return false
}

// AlertEvent is emitted when a rule's condition becomes newly true.
type AlertEvent struct {
	RuleID     string
	RuleName   string
	PositionID string
	Symbol     string
	Metric     AlertMetric
	Value      float64
	Threshold  float64
	Severity   Severity
	Timestamp  time.Time
}
