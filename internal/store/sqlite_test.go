package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func samplePosition(id string, status models.PositionStatus) *models.Position {
	expiry := time.Date(2026, 7, 17, 0, 0, 0, 0, time.UTC)
	return &models.Position{
		ID: id,
		Spread: models.Spread{
			Strategy:   models.BullCallSpread,
			Underlying: "ACME",
			Legs: []models.OptionLeg{
				{Underlying: "ACME", Type: models.Call, Action: models.Buy, Strike: 100, Expiry: expiry, Quantity: 1, Premium: 5},
				{Underlying: "ACME", Type: models.Call, Action: models.Sell, Strike: 110, Expiry: expiry, Quantity: 1, Premium: 2},
			},
		},
		OpenedAt: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		Status:   status,
		AlertRules: []models.AlertRule{
			{ID: id + "-r1", Name: "stop_loss", Metric: models.MetricPnLPercent, Compare: models.CompareBelow, Threshold: -50, Severity: models.SeverityCritical},
		},
	}
}

func TestSaveAndGetPositionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos := samplePosition("pos-1", models.StatusOpen)
	require.NoError(t, store.SavePosition(ctx, pos))

	loaded, err := store.GetPosition(ctx, "pos-1")
	require.NoError(t, err)

	assert.Equal(t, pos.ID, loaded.ID)
	assert.Equal(t, pos.Status, loaded.Status)
	assert.Equal(t, pos.Spread.Strategy, loaded.Spread.Strategy)
	assert.Equal(t, pos.Spread.Underlying, loaded.Spread.Underlying)
	require.Len(t, loaded.Spread.Legs, 2)
	assert.Equal(t, 100.0, loaded.Spread.Legs[0].Strike)
	assert.Equal(t, models.Sell, loaded.Spread.Legs[1].Action)
	assert.InDelta(t, 3.0, loaded.Spread.NetPremium(), 1e-9)
	require.Len(t, loaded.AlertRules, 1)
	assert.Equal(t, "stop_loss", loaded.AlertRules[0].Name)
	assert.False(t, loaded.AlertRules[0].Triggered)
	assert.Nil(t, loaded.ClosedAt)
	assert.Nil(t, loaded.RealizedPnL)
}

func TestGetPositionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPosition(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrPositionNotFound)
}

func TestListPositionsFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	open := samplePosition("pos-open", models.StatusOpen)
	closed := samplePosition("pos-closed", models.StatusClosed)
	closed.OpenedAt = open.OpenedAt.Add(time.Hour)
	require.NoError(t, store.SavePosition(ctx, open))
	require.NoError(t, store.SavePosition(ctx, closed))

	all, err := store.ListPositions(ctx, PositionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	// Newest first.
	assert.Equal(t, "pos-closed", all[0].ID)

	onlyOpen, err := store.ListPositions(ctx, PositionFilter{Status: models.StatusOpen})
	require.NoError(t, err)
	require.Len(t, onlyOpen, 1)
	assert.Equal(t, "pos-open", onlyOpen[0].ID)

	bySymbol, err := store.ListPositions(ctx, PositionFilter{Underlying: "ZETA"})
	require.NoError(t, err)
	assert.Empty(t, bySymbol)

	limited, err := store.ListPositions(ctx, PositionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUpdateStatusTransition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos := samplePosition("pos-1", models.StatusOpen)
	require.NoError(t, store.SavePosition(ctx, pos))

	closedAt := time.Date(2026, 6, 15, 16, 0, 0, 0, time.UTC)
	realized := 4.2
	pos.Status = models.StatusClosed
	pos.ClosedAt = &closedAt
	pos.RealizedPnL = &realized
	require.NoError(t, store.UpdateStatus(ctx, pos))

	loaded, err := store.GetPosition(ctx, "pos-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, loaded.Status)
	require.NotNil(t, loaded.RealizedPnL)
	assert.InDelta(t, 4.2, *loaded.RealizedPnL, 1e-9)
	require.NotNil(t, loaded.ClosedAt)
}

func TestUpdateStatusUnknownPosition(t *testing.T) {
	store := newTestStore(t)

	pos := samplePosition("ghost", models.StatusClosed)
	err := store.UpdateStatus(context.Background(), pos)
	assert.ErrorIs(t, err, errors.ErrPositionNotFound)
}

func TestAppendPnLSampleOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos := samplePosition("pos-1", models.StatusOpen)
	require.NoError(t, store.SavePosition(ctx, pos))

	base := time.Date(2026, 6, 2, 16, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		sample := models.PnLSample{Timestamp: base.AddDate(0, 0, i), UnrealizedPnL: float64(i)}
		require.NoError(t, store.AppendPnLSample(ctx, "pos-1", sample))
	}

	loaded, err := store.GetPosition(ctx, "pos-1")
	require.NoError(t, err)
	require.Len(t, loaded.PnLHistory, 3)
	for i, sample := range loaded.PnLHistory {
		assert.InDelta(t, float64(i), sample.UnrealizedPnL, 1e-9, "sample %d", i)
	}
}

func TestSaveRuleStatePersistsTriggerFlag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos := samplePosition("pos-1", models.StatusOpen)
	require.NoError(t, store.SavePosition(ctx, pos))

	pos.AlertRules[0].Triggered = true
	require.NoError(t, store.SaveRuleState(ctx, "pos-1", pos.AlertRules))

	loaded, err := store.GetPosition(ctx, "pos-1")
	require.NoError(t, err)
	require.Len(t, loaded.AlertRules, 1)
	assert.True(t, loaded.AlertRules[0].Triggered)
}

func TestLogAndGetAlerts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos := samplePosition("pos-1", models.StatusOpen)
	require.NoError(t, store.SavePosition(ctx, pos))

	base := time.Date(2026, 6, 2, 16, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ev := models.AlertEvent{
			RuleID:     "pos-1-r1",
			RuleName:   "stop_loss",
			PositionID: "pos-1",
			Symbol:     "ACME",
			Metric:     models.MetricPnLPercent,
			Value:      -55 - float64(i),
			Threshold:  -50,
			Severity:   models.SeverityCritical,
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.LogAlert(ctx, ev))
	}

	events, err := store.GetAlerts(ctx, "pos-1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Most recent first.
	assert.InDelta(t, -57.0, events[0].Value, 1e-9)
	assert.Equal(t, models.SeverityCritical, events[0].Severity)
}

func TestSavePositionIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos := samplePosition("pos-1", models.StatusOpen)
	require.NoError(t, store.SavePosition(ctx, pos))
	require.NoError(t, store.SavePosition(ctx, pos))

	loaded, err := store.GetPosition(ctx, "pos-1")
	require.NoError(t, err)
	assert.Len(t, loaded.Spread.Legs, 2, "resaving must not duplicate legs")
	assert.Len(t, loaded.AlertRules, 1, "resaving must not duplicate rules")
}
