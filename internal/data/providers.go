// Package data supplies market data to the engine. Retrieval is the
// only operation that may block on external I/O; everything is wrapped
// with a timeout, retried, and falls back to a clearly tagged simulated
// series so analysis never aborts on a data failure.
package data

import (
	"context"
	"time"

	"options-analyzer/internal/config"
	"options-analyzer/internal/errors"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
	"options-analyzer/pkg/utils"
)

// HistoryProvider fetches a daily price series for an underlying.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, lookbackDays int) (*models.PriceSeries, error)
}

// QuoteProvider fetches a point-in-time quote for an underlying.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// Source combines a primary provider pair with the simulated fallback.
type Source struct {
	history   HistoryProvider
	quotes    QuoteProvider
	simulated *SimulatedProvider
	cfg       config.DataConfig
	retry     utils.RetryConfig
	circuit   *breaker
}

// NewSource builds a data source. Either provider may be nil, in which
// case the simulated provider serves that concern directly.
func NewSource(history HistoryProvider, quotes QuoteProvider, cfg config.DataConfig) *Source {
	return &Source{
		history:   history,
		quotes:    quotes,
		simulated: NewSimulatedProvider(cfg.SimulatedVol),
		cfg:       cfg,
		retry:     utils.DefaultRetryConfig(),
		circuit:   newBreaker(5, 30*time.Second),
	}
}

// History fetches the configured lookback series for a symbol,
// substituting a simulated series on failure when the configuration
// allows it.
func (s *Source) History(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	return s.HistoryLookback(ctx, symbol, s.cfg.LookbackDays)
}

// HistoryLookback is History with an explicit lookback, for callers that
// need a longer window than the configured default.
func (s *Source) HistoryLookback(ctx context.Context, symbol string, lookbackDays int) (*models.PriceSeries, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	if s.history != nil {
		fetch := func() (*models.PriceSeries, error) {
			fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()
			return s.history.FetchHistory(fetchCtx, symbol, lookbackDays)
		}
		series, err := fetchThrough(s.circuit, func() (*models.PriceSeries, error) {
			return utils.RetryWithResult(ctx, s.retry, fetch)
		})
		if err == nil {
			logging.LogDataFetch(log, symbol, series.Len(), time.Since(start), nil)
			return series, nil
		}
		logging.LogDataFetch(log, symbol, 0, time.Since(start), err)
		if !s.cfg.AllowSimulated {
			return nil, errors.NewDataError("history", symbol, "fetch failed", err)
		}
	} else if !s.cfg.AllowSimulated {
		return nil, errors.NewDataError("history", symbol, "no provider configured", errors.ErrDataUnavailable)
	}

	log.Warn().Str("symbol", symbol).Msg("using simulated price series")
	return s.simulated.FetchHistory(ctx, symbol, lookbackDays)
}

// Quote fetches the live quote for a symbol, substituting a simulated
// quote on failure when the configuration allows it.
func (s *Source) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if s.quotes != nil {
		fetch := func() (models.Quote, error) {
			fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()
			return s.quotes.FetchQuote(fetchCtx, symbol)
		}
		quote, err := fetchThrough(s.circuit, func() (models.Quote, error) {
			return utils.RetryWithResult(ctx, s.retry, fetch)
		})
		if err == nil {
			return quote, nil
		}
		if !s.cfg.AllowSimulated {
			return models.Quote{}, errors.NewDataError("quote", symbol, "fetch failed",
				errors.Wrap(errors.ErrQuoteUnavailable, err.Error()))
		}
	} else if !s.cfg.AllowSimulated {
		return models.Quote{}, errors.NewDataError("quote", symbol, "no provider configured", errors.ErrQuoteUnavailable)
	}

	return s.simulated.FetchQuote(ctx, symbol)
}

// FetchQuote lets a Source serve as a QuoteProvider for the monitor.
func (s *Source) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	return s.Quote(ctx, symbol)
}
