package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-analyzer/internal/config"
	"options-analyzer/internal/errors"
	"options-analyzer/internal/models"
	"options-analyzer/internal/pricing"
)

type stubQuotes struct {
	quote models.Quote
	err   error
	calls int
}

func (s *stubQuotes) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	s.calls++
	if s.err != nil {
		return models.Quote{}, s.err
	}
	return s.quote, nil
}

var (
	testRisk = config.RiskConfig{
		StopLossPercent:   50,
		TakeProfitPercent: 75,
		DTEAlert:          21,
	}
	testNow    = time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)
	testExpiry = time.Date(2026, 7, 17, 0, 0, 0, 0, time.UTC)
)

func newTestMonitor(quotes QuoteSource) *Monitor {
	model := pricing.NewModel(config.PricingConfig{RiskFreeRate: 0.05, ATMCutoff: 0.02})
	m := New(model, quotes, testRisk)
	m.SetClock(func() time.Time { return testNow })
	return m
}

func bullCallSpread() models.Spread {
	mkLeg := func(a models.Action, strike, premium float64) models.OptionLeg {
		return models.OptionLeg{
			Underlying: "ACME",
			Type:       models.Call,
			Action:     a,
			Strike:     strike,
			Expiry:     testExpiry,
			Quantity:   1,
			Premium:    premium,
		}
	}
	return models.Spread{
		Strategy:   models.BullCallSpread,
		Underlying: "ACME",
		Legs: []models.OptionLeg{
			mkLeg(models.Buy, 100, 5),
			mkLeg(models.Sell, 110, 2),
		},
	}
}

func TestOpenPositionDefaults(t *testing.T) {
	m := newTestMonitor(&stubQuotes{})
	pos := m.OpenPosition(bullCallSpread())

	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, models.StatusOpen, pos.Status)
	assert.Equal(t, testNow, pos.OpenedAt)
	require.Len(t, pos.AlertRules, 3)
	assert.Empty(t, pos.PnLHistory)
}

func TestPassAppendsHistoryPerPass(t *testing.T) {
	quotes := &stubQuotes{quote: models.Quote{Symbol: "ACME", Spot: 105, ImpliedVol: 0.30}}
	m := newTestMonitor(quotes)
	pos := m.OpenPosition(bullCallSpread())

	first, err := m.Pass(context.Background(), pos)
	require.NoError(t, err)
	assert.False(t, first.Stale)
	assert.Equal(t, models.StatusOpen, pos.Status)
	require.Len(t, pos.PnLHistory, 1)
	assert.Equal(t, first.UnrealizedPnL, pos.PnLHistory[0].UnrealizedPnL)

	// Same quote, same clock: the snapshot is identical and history
	// grows by exactly one sample.
	second, err := m.Pass(context.Background(), pos)
	require.NoError(t, err)
	assert.Equal(t, first.UnrealizedPnL, second.UnrealizedPnL)
	assert.Equal(t, first.RiskLevel, second.RiskLevel)
	assert.Len(t, pos.PnLHistory, 2)
}

func TestPassQuoteFailureYieldsStaleSnapshot(t *testing.T) {
	quotes := &stubQuotes{err: errors.ErrQuoteUnavailable}
	m := newTestMonitor(quotes)
	pos := m.OpenPosition(bullCallSpread())

	snap, err := m.Pass(context.Background(), pos)
	require.NoError(t, err)
	assert.True(t, snap.Stale)
	assert.Equal(t, models.StatusOpen, pos.Status)
	assert.Empty(t, pos.PnLHistory, "stale passes must not append history")
}

func TestPassExpiresPastExpiry(t *testing.T) {
	quotes := &stubQuotes{quote: models.Quote{Symbol: "ACME", Spot: 107, ImpliedVol: 0.30}}
	m := newTestMonitor(quotes)
	pos := m.OpenPosition(bullCallSpread())

	m.SetClock(func() time.Time { return testExpiry.AddDate(0, 0, 1) })

	snap, err := m.Pass(context.Background(), pos)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, pos.Status)
	require.NotNil(t, pos.RealizedPnL)
	// Intrinsic payoff at 107: (107-100) - 3 debit = 4.
	assert.InDelta(t, 4.0, *pos.RealizedPnL, 1e-9)
	require.NotNil(t, pos.ClosedAt)
	assert.False(t, snap.Stale)

	// Terminal positions never accrue further history or quotes.
	before := quotes.calls
	again, err := m.Pass(context.Background(), pos)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, again.Status)
	assert.Equal(t, before, quotes.calls)
	assert.Empty(t, pos.PnLHistory)
}

func TestPassExpiryWithoutQuoteFallsBackToLastSample(t *testing.T) {
	quotes := &stubQuotes{quote: models.Quote{Symbol: "ACME", Spot: 105, ImpliedVol: 0.30}}
	m := newTestMonitor(quotes)
	pos := m.OpenPosition(bullCallSpread())

	_, err := m.Pass(context.Background(), pos)
	require.NoError(t, err)
	require.Len(t, pos.PnLHistory, 1)
	lastPnL := pos.PnLHistory[0].UnrealizedPnL

	quotes.err = errors.ErrQuoteUnavailable
	m.SetClock(func() time.Time { return testExpiry.AddDate(0, 0, 1) })

	snap, err := m.Pass(context.Background(), pos)
	require.NoError(t, err)
	assert.True(t, snap.Stale)
	assert.Equal(t, models.StatusExpired, pos.Status)
	require.NotNil(t, pos.RealizedPnL)
	assert.Equal(t, lastPnL, *pos.RealizedPnL)
}

func TestCloseRealizesAndRejectsDoubleClose(t *testing.T) {
	quotes := &stubQuotes{quote: models.Quote{Symbol: "ACME", Spot: 108, ImpliedVol: 0.30}}
	m := newTestMonitor(quotes)
	pos := m.OpenPosition(bullCallSpread())

	snap, err := m.Close(context.Background(), pos)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, pos.Status)
	require.NotNil(t, pos.RealizedPnL)
	require.NotNil(t, pos.ClosedAt)
	assert.Equal(t, models.StatusClosed, snap.Status)

	_, err = m.Close(context.Background(), pos)
	assert.ErrorIs(t, err, errors.ErrPositionClosed)

	_, err = m.Pass(context.Background(), pos)
	require.NoError(t, err, "passes over terminal positions report, never mutate")
}

func TestPassAllIsolatesFailures(t *testing.T) {
	quotes := &stubQuotes{quote: models.Quote{Symbol: "ACME", Spot: 105, ImpliedVol: 0.30}}
	m := newTestMonitor(quotes)

	positions := []*models.Position{
		m.OpenPosition(bullCallSpread()),
		m.OpenPosition(bullCallSpread()),
		m.OpenPosition(bullCallSpread()),
	}

	snapshots := m.PassAll(context.Background(), positions)
	require.Len(t, snapshots, len(positions))
	for i, snap := range snapshots {
		require.NotNil(t, snap)
		assert.Equal(t, positions[i].ID, snap.PositionID)
		assert.False(t, snap.Stale)
	}
}

func TestAlertsAreEdgeTriggered(t *testing.T) {
	rules := []models.AlertRule{{
		ID:        "r1",
		Name:      "take_profit",
		Metric:    models.MetricPnLPercent,
		Compare:   models.CompareAbove,
		Threshold: 75,
		Severity:  models.SeverityInfo,
	}}

	snapAt := func(pct float64) *models.MonitorSnapshot {
		return &models.MonitorSnapshot{PositionID: "p1", Symbol: "ACME", UnrealizedPnLPct: pct}
	}

	events := evaluateRules(rules, snapAt(80))
	require.Len(t, events, 1)
	assert.Equal(t, "take_profit", events[0].RuleName)

	// Still true: no duplicate notification.
	events = evaluateRules(rules, snapAt(85))
	assert.Empty(t, events)

	// Condition clears, rule rearms.
	events = evaluateRules(rules, snapAt(10))
	assert.Empty(t, events)

	events = evaluateRules(rules, snapAt(90))
	require.Len(t, events, 1)
}

func TestClassifyRisk(t *testing.T) {
	cases := []struct {
		name   string
		pnlPct float64
		dte    int
		want   models.RiskLevel
	}{
		{"healthy", 10, 60, models.RiskLow},
		{"moderate loss", -26, 60, models.RiskMedium},
		{"near expiry", 5, 20, models.RiskMedium},
		{"deep loss", -40, 60, models.RiskHigh},
		{"expiry imminent", 5, 6, models.RiskHigh},
		{"at stop loss", -55, 60, models.RiskCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyRisk(testRisk, tc.pnlPct, tc.dte))
		})
	}
}
