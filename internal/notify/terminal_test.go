package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-analyzer/internal/models"
)

func event(name string, severity models.Severity) models.AlertEvent {
	return models.AlertEvent{
		RuleName:   name,
		PositionID: "pos-1",
		Symbol:     "ACME",
		Metric:     models.MetricPnLPercent,
		Value:      -55,
		Threshold:  -50,
		Severity:   severity,
		Timestamp:  time.Date(2026, 6, 1, 15, 4, 5, 0, time.UTC),
	}
}

func TestNotifierDeliversToHandlers(t *testing.T) {
	tn := NewTerminalNotifier(10)
	tn.SetBellEnabled(false)

	var mu sync.Mutex
	var got []models.AlertEvent
	done := make(chan struct{}, 1)
	tn.AddHandler(func(ev models.AlertEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		done <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tn.Start(ctx)

	tn.Notify(event("stop_loss", models.SeverityCritical))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "stop_loss", got[0].RuleName)
}

func TestNotifierDisabledDropsEvents(t *testing.T) {
	tn := NewTerminalNotifier(10)
	tn.SetEnabled(false)

	tn.Notify(event("stop_loss", models.SeverityCritical))
	assert.Empty(t, tn.events)
}

func TestNotifierFullBufferDropsOldest(t *testing.T) {
	tn := NewTerminalNotifier(2)

	tn.Notify(event("first", models.SeverityInfo))
	tn.Notify(event("second", models.SeverityInfo))
	tn.Notify(event("third", models.SeverityInfo))

	require.Len(t, tn.events, 2)
	ev := <-tn.events
	assert.Equal(t, "second", ev.RuleName)
}

func TestFormatEvent(t *testing.T) {
	line := FormatEvent(event("stop_loss", models.SeverityCritical), false)
	assert.Contains(t, line, "[15:04:05]")
	assert.Contains(t, line, "CRITICAL STOP_LOSS")
	assert.Contains(t, line, "ACME")
	assert.Contains(t, line, "PNL_PERCENT -55.00 (threshold -50.00)")
}

func TestFormatEventColored(t *testing.T) {
	plain := FormatEvent(event("take_profit", models.SeverityInfo), false)
	colored := FormatEvent(event("take_profit", models.SeverityInfo), true)
	assert.NotEqual(t, plain, colored)
	assert.Contains(t, colored, "\033[")
}
