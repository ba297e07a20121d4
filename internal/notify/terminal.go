// Package notify delivers monitoring alert events to the terminal.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"options-analyzer/internal/models"
)

// Handler consumes alert events delivered by the notifier.
type Handler func(ev models.AlertEvent)

// TerminalNotifier fans alert events out to registered handlers from a
// buffered channel, so a slow terminal never blocks a monitoring pass.
type TerminalNotifier struct {
	events       chan models.AlertEvent
	handlers     []Handler
	mu           sync.RWMutex
	enabled      bool
	bellEnabled  bool
	colorEnabled bool
}

// NewTerminalNotifier creates a notifier with the given buffer size.
func NewTerminalNotifier(bufferSize int) *TerminalNotifier {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &TerminalNotifier{
		events:       make(chan models.AlertEvent, bufferSize),
		enabled:      true,
		bellEnabled:  true,
		colorEnabled: true,
	}
}

// SetEnabled enables or disables delivery.
func (tn *TerminalNotifier) SetEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.enabled = enabled
}

// SetBellEnabled enables or disables the terminal bell on critical alerts.
func (tn *TerminalNotifier) SetBellEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.bellEnabled = enabled
}

// SetColorEnabled enables or disables colored output.
func (tn *TerminalNotifier) SetColorEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.colorEnabled = enabled
}

// AddHandler registers a handler.
func (tn *TerminalNotifier) AddHandler(handler Handler) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.handlers = append(tn.handlers, handler)
}

// Notify enqueues an alert event. When the buffer is full the oldest
// event is dropped rather than blocking the caller.
func (tn *TerminalNotifier) Notify(ev models.AlertEvent) {
	tn.mu.RLock()
	enabled := tn.enabled
	tn.mu.RUnlock()

	if !enabled {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	select {
	case tn.events <- ev:
	default:
		select {
		case <-tn.events:
		default:
		}
		tn.events <- ev
	}
}

// NotifyAll enqueues each event from a monitoring pass.
func (tn *TerminalNotifier) NotifyAll(events []models.AlertEvent) {
	for _, ev := range events {
		tn.Notify(ev)
	}
}

// Start begins delivering events until the context is cancelled.
func (tn *TerminalNotifier) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-tn.events:
				tn.deliver(ev)
			}
		}
	}()
}

func (tn *TerminalNotifier) deliver(ev models.AlertEvent) {
	tn.mu.RLock()
	handlers := tn.handlers
	bell := tn.bellEnabled
	tn.mu.RUnlock()

	if bell && ev.Severity == models.SeverityCritical {
		fmt.Print("\a")
	}
	for _, handler := range handlers {
		handler(ev)
	}
}

// FormatEvent renders an alert event as one terminal line.
func FormatEvent(ev models.AlertEvent, colorEnabled bool) string {
	var color, reset string
	if colorEnabled {
		reset = "\033[0m"
		switch ev.Severity {
		case models.SeverityCritical:
			color = "\033[31m"
		case models.SeverityWarning:
			color = "\033[33m"
		default:
			color = "\033[36m"
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s[%s] %s %s%s",
		color, ev.Timestamp.Format("15:04:05"), ev.Severity, strings.ToUpper(ev.RuleName), reset))
	sb.WriteString(fmt.Sprintf(" | %s", ev.Symbol))
	sb.WriteString(fmt.Sprintf(" | %s %.2f (threshold %.2f)", ev.Metric, ev.Value, ev.Threshold))
	return sb.String()
}

// DefaultHandler returns a handler printing events to stdout.
func DefaultHandler(colorEnabled bool) Handler {
	return func(ev models.AlertEvent) {
		fmt.Println(FormatEvent(ev, colorEnabled))
	}
}
