// Package monitor runs the position lifecycle state machine: it reprices
// open positions on each pass, appends P&L history, evaluates alert
// rules, and drives the Open -> Closed/Expired transitions.
package monitor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"options-analyzer/internal/config"
	"options-analyzer/internal/errors"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
	"options-analyzer/internal/pricing"
	"options-analyzer/internal/strategy"
)

// QuoteSource supplies the live quote a monitoring pass reprices against.
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// Monitor owns position mutation. At most one pass runs per position at
// a time; passes for different positions are independent.
type Monitor struct {
	model  *pricing.Model
	quotes QuoteSource
	risk   config.RiskConfig
	clock  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a monitor.
func New(model *pricing.Model, quotes QuoteSource, risk config.RiskConfig) *Monitor {
	return &Monitor{
		model:  model,
		quotes: quotes,
		risk:   risk,
		clock:  time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetClock overrides the monitor's clock. Test hook.
func (m *Monitor) SetClock(clock func() time.Time) {
	m.clock = clock
}

// OpenPosition creates a new Open position for a validated spread with
// the monitor's default risk rules attached.
func (m *Monitor) OpenPosition(spread models.Spread, extraRules ...models.AlertRule) *models.Position {
	rules := DefaultRules(m.risk)
	rules = append(rules, extraRules...)
	return &models.Position{
		ID:         uuid.New().String(),
		Spread:     spread,
		OpenedAt:   m.clock(),
		Status:     models.StatusOpen,
		AlertRules: rules,
	}
}

// positionLock returns the per-position mutex, creating it on first use.
func (m *Monitor) positionLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

// Pass runs one monitoring pass over the position. Terminal positions
// are reported as-is; an expired-but-Open position transitions to
// Expired and stops accruing history; an Open position is repriced at
// the live quote. A quote failure yields a stale snapshot built from
// the last known sample rather than an error.
func (m *Monitor) Pass(ctx context.Context, pos *models.Position) (*models.MonitorSnapshot, error) {
	lock := m.positionLock(pos.ID)
	lock.Lock()
	defer lock.Unlock()

	now := m.clock()
	log := logging.WithPosition(logging.FromContext(ctx), pos.ID)

	if pos.IsTerminal() {
		return m.terminalSnapshot(pos, now), nil
	}

	quote, quoteErr := m.quotes.FetchQuote(ctx, pos.Spread.Underlying)

	if !now.Before(pos.Spread.Expiry()) {
		snap := m.expire(pos, quote, quoteErr, now)
		logging.LogMonitorPass(log, pos.ID, string(pos.Status), snap.UnrealizedPnL, 0, snap.Stale)
		return snap, nil
	}

	if quoteErr != nil {
		snap := m.staleSnapshot(pos, now)
		log.Warn().Err(quoteErr).Msg("quote unavailable, position marked stale")
		return snap, nil
	}

	snap, err := m.reprice(pos, quote, now)
	if err != nil {
		return nil, err
	}

	snap.Alerts = evaluateRules(pos.AlertRules, snap)
	for _, ev := range snap.Alerts {
		logging.LogAlert(log, pos.ID, ev.RuleName, string(ev.Severity), ev.Value, ev.Threshold)
	}

	pos.PnLHistory = append(pos.PnLHistory, models.PnLSample{
		Timestamp:     now,
		UnrealizedPnL: snap.UnrealizedPnL,
	})

	logging.LogMonitorPass(log, pos.ID, string(pos.Status), snap.UnrealizedPnL, len(snap.Alerts), false)
	return snap, nil
}

// PassAll monitors every position concurrently. A failure for one
// position never blocks or aborts the others; failed passes are
// reported as stale snapshots.
func (m *Monitor) PassAll(ctx context.Context, positions []*models.Position) []*models.MonitorSnapshot {
	snapshots := make([]*models.MonitorSnapshot, len(positions))
	var wg sync.WaitGroup
	for i, pos := range positions {
		wg.Add(1)
		go func(i int, pos *models.Position) {
			defer wg.Done()
			snap, err := m.Pass(ctx, pos)
			if err != nil {
				snap = m.staleSnapshot(pos, m.clock())
			}
			snapshots[i] = snap
		}(i, pos)
	}
	wg.Wait()
	return snapshots
}

// Close performs the explicit Open -> Closed transition, realizing P&L
// at the current model value of the spread.
func (m *Monitor) Close(ctx context.Context, pos *models.Position) (*models.MonitorSnapshot, error) {
	lock := m.positionLock(pos.ID)
	lock.Lock()
	defer lock.Unlock()

	if pos.IsTerminal() {
		return nil, errors.Wrapf(errors.ErrPositionClosed, "position %s is %s", pos.ID, pos.Status)
	}

	now := m.clock()
	quote, err := m.quotes.FetchQuote(ctx, pos.Spread.Underlying)
	if err != nil {
		return nil, errors.NewDataError("quote", pos.Spread.Underlying, "cannot close without a quote", err)
	}

	value, err := m.model.SpreadMarketValue(&pos.Spread, quote.Spot, quote.ImpliedVol, now)
	if err != nil {
		return nil, err
	}
	realized := value - pos.Spread.NetPremium()

	pos.Status = models.StatusClosed
	pos.ClosedAt = &now
	pos.RealizedPnL = &realized

	snap := m.terminalSnapshot(pos, now)
	snap.Spot = quote.Spot
	snap.Simulated = quote.Simulated
	return snap, nil
}

// expire performs the Open -> Expired transition. Realized P&L is the
// expiry-day intrinsic payoff; with no quote available it falls back to
// the last sampled P&L.
func (m *Monitor) expire(pos *models.Position, quote models.Quote, quoteErr error, now time.Time) *models.MonitorSnapshot {
	var realized float64
	stale := quoteErr != nil
	if stale {
		if last, ok := pos.LastSample(); ok {
			realized = last.UnrealizedPnL
		}
	} else {
		realized = pos.Spread.IntrinsicPayoff(quote.Spot)
	}

	pos.Status = models.StatusExpired
	pos.ClosedAt = &now
	pos.RealizedPnL = &realized

	snap := m.terminalSnapshot(pos, now)
	snap.Stale = stale
	if !stale {
		snap.Spot = quote.Spot
		snap.Simulated = quote.Simulated
	}
	return snap
}

// reprice builds a fresh snapshot for an Open position at a live quote.
func (m *Monitor) reprice(pos *models.Position, quote models.Quote, now time.Time) (*models.MonitorSnapshot, error) {
	value, err := m.model.SpreadMarketValue(&pos.Spread, quote.Spot, quote.ImpliedVol, now)
	if err != nil {
		return nil, err
	}
	greeks, err := m.model.SpreadGreeks(&pos.Spread, quote.Spot, quote.ImpliedVol, now)
	if err != nil {
		return nil, err
	}

	unrealized := value - pos.Spread.NetPremium()
	profile := strategy.ComputePayoff(&pos.Spread)
	pnlPct := pnlPercent(unrealized, profile)
	dte := pos.DaysToExpiry(now)

	return &models.MonitorSnapshot{
		PositionID:         pos.ID,
		Symbol:             pos.Spread.Underlying,
		Strategy:           pos.Spread.Strategy,
		Status:             pos.Status,
		Spot:               quote.Spot,
		UnrealizedPnL:      unrealized,
		UnrealizedPnLPct:   pnlPct,
		Greeks:             greeks,
		BreakevenDistances: breakevenDistances(quote.Spot, profile.Breakevens),
		DaysToExpiry:       dte,
		RiskLevel:          classifyRisk(m.risk, pnlPct, dte),
		Simulated:          quote.Simulated,
		Timestamp:          now,
	}, nil
}

// staleSnapshot retains the last-known state when a quote is unavailable.
func (m *Monitor) staleSnapshot(pos *models.Position, now time.Time) *models.MonitorSnapshot {
	snap := &models.MonitorSnapshot{
		PositionID:   pos.ID,
		Symbol:       pos.Spread.Underlying,
		Strategy:     pos.Spread.Strategy,
		Status:       pos.Status,
		DaysToExpiry: pos.DaysToExpiry(now),
		RiskLevel:    models.RiskMedium,
		Stale:        true,
		Timestamp:    now,
	}
	if last, ok := pos.LastSample(); ok {
		snap.UnrealizedPnL = last.UnrealizedPnL
	}
	return snap
}

func (m *Monitor) terminalSnapshot(pos *models.Position, now time.Time) *models.MonitorSnapshot {
	snap := &models.MonitorSnapshot{
		PositionID:   pos.ID,
		Symbol:       pos.Spread.Underlying,
		Strategy:     pos.Spread.Strategy,
		Status:       pos.Status,
		RealizedPnL:  pos.RealizedPnL,
		DaysToExpiry: pos.DaysToExpiry(now),
		RiskLevel:    models.RiskLow,
		Timestamp:    now,
	}
	if last, ok := pos.LastSample(); ok {
		snap.UnrealizedPnL = last.UnrealizedPnL
	}
	return snap
}

// pnlPercent expresses unrealized P&L as a percentage of max loss when
// losing and max gain when winning. Unbounded or zero extrema yield 0,
// so percent-based rules simply never fire for such spreads.
func pnlPercent(unrealized float64, profile strategy.PayoffProfile) float64 {
	switch {
	case unrealized < 0:
		if profile.MaxLoss.Unbounded || profile.MaxLoss.Value <= 0 {
			return 0
		}
		return -100 * math.Abs(unrealized) / profile.MaxLoss.Value
	case unrealized > 0:
		if profile.MaxGain.Unbounded || profile.MaxGain.Value <= 0 {
			return 0
		}
		return 100 * unrealized / profile.MaxGain.Value
	default:
		return 0
	}
}

func breakevenDistances(spot float64, breakevens []float64) []models.BreakevenDistance {
	out := make([]models.BreakevenDistance, 0, len(breakevens))
	for _, be := range breakevens {
		d := spot - be
		var pct float64
		if spot != 0 {
			pct = 100 * d / spot
		}
		out = append(out, models.BreakevenDistance{
			Breakeven: be,
			Distance:  d,
			Percent:   pct,
		})
	}
	return out
}
