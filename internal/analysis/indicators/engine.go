// Package indicators provides technical indicator calculations over a
// price series, with parallel evaluation of independent indicators.
package indicators

import (
	"context"
	"fmt"
	"sync"

	"options-analyzer/internal/models"
)

// Indicator defines the interface for single-value technical indicators.
type Indicator interface {
	Name() string
	Calculate(candles []models.Candle) ([]float64, error)
	Period() int
}

// MultiValueIndicator defines the interface for indicators that return
// multiple series.
type MultiValueIndicator interface {
	Name() string
	Calculate(candles []models.Candle) (map[string][]float64, error)
	Period() int
}

// historyWindow is the trailing history retained per indicator in an
// IndicatorSet.
const historyWindow = 26

// IndicatorValue is an indicator's latest value plus a short trailing
// history aligned to the last timestamp.
type IndicatorValue struct {
	Latest  float64
	History []float64
}

// IndicatorSet maps indicator output names to their latest values.
// Derived entirely from one PriceSeries, recomputed on demand.
type IndicatorSet struct {
	Symbol    string
	Values    map[string]IndicatorValue
	Missing   map[string]error // indicators that could not be computed
	Simulated bool
}

// Get returns the latest value for a named indicator output.
func (s *IndicatorSet) Get(name string) (float64, bool) {
	v, ok := s.Values[name]
	if !ok {
		return 0, false
	}
	return v.Latest, true
}

// Engine evaluates registered indicators in parallel using a worker pool.
// Indicators are stateless, so one engine is safe for concurrent series.
type Engine struct {
	workers     int
	indicators  map[string]Indicator
	multiIndics map[string]MultiValueIndicator
	mu          sync.RWMutex
}

// NewEngine creates a new indicator engine with the specified number of workers.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		workers:     workers,
		indicators:  make(map[string]Indicator),
		multiIndics: make(map[string]MultiValueIndicator),
	}
}

// RegisterIndicator registers a single-value indicator.
func (e *Engine) RegisterIndicator(ind Indicator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indicators[ind.Name()] = ind
}

// RegisterMultiIndicator registers a multi-value indicator.
func (e *Engine) RegisterMultiIndicator(ind MultiValueIndicator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.multiIndics[ind.Name()] = ind
}

// Calculate calculates a specific indicator by name.
func (e *Engine) Calculate(ctx context.Context, name string, candles []models.Candle) ([]float64, error) {
	e.mu.RLock()
	ind, ok := e.indicators[name]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("indicator %s not found", name)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return ind.Calculate(candles)
	}
}

// ComputeSet evaluates every registered indicator against the series and
// collects the results into an IndicatorSet. Indicators that fail (for
// example with ErrInsufficientData on a short series) are recorded in
// Missing rather than aborting the set; the regime classifier degrades
// gracefully on partial sets.
func (e *Engine) ComputeSet(ctx context.Context, series *models.PriceSeries) *IndicatorSet {
	e.mu.RLock()
	singles := make([]Indicator, 0, len(e.indicators))
	for _, ind := range e.indicators {
		singles = append(singles, ind)
	}
	multis := make([]MultiValueIndicator, 0, len(e.multiIndics))
	for _, ind := range e.multiIndics {
		multis = append(multis, ind)
	}
	e.mu.RUnlock()

	set := &IndicatorSet{
		Symbol:    series.Symbol,
		Values:    make(map[string]IndicatorValue),
		Missing:   make(map[string]error),
		Simulated: series.Simulated,
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	work := make(chan func(), len(singles)+len(multis))

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range work {
				select {
				case <-ctx.Done():
					return
				default:
					job()
				}
			}
		}()
	}

	for _, ind := range singles {
		ind := ind
		work <- func() {
			values, err := ind.Calculate(series.Candles)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				set.Missing[ind.Name()] = err
				return
			}
			set.Values[ind.Name()] = trailingValue(values)
		}
	}
	for _, ind := range multis {
		ind := ind
		work <- func() {
			values, err := ind.Calculate(series.Candles)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				set.Missing[ind.Name()] = err
				return
			}
			for key, series := range values {
				set.Values[ind.Name()+"."+key] = trailingValue(series)
			}
		}
	}
	close(work)
	wg.Wait()

	return set
}

// trailingValue extracts the latest value and trailing history window.
func trailingValue(values []float64) IndicatorValue {
	if len(values) == 0 {
		return IndicatorValue{}
	}
	start := len(values) - historyWindow
	if start < 0 {
		start = 0
	}
	history := make([]float64, len(values)-start)
	copy(history, values[start:])
	return IndicatorValue{
		Latest:  values[len(values)-1],
		History: history,
	}
}
