package data

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

// candleRecord is the CSV row shape for historical candles.
type candleRecord struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

// CSVHistoryProvider serves price history from per-symbol CSV files in a
// directory ({dir}/{SYMBOL}.csv with date,open,high,low,close,volume
// columns). Useful for offline analysis and fixtures.
type CSVHistoryProvider struct {
	dir        string
	dateLayout string
}

// NewCSVHistoryProvider creates a provider reading from dir.
func NewCSVHistoryProvider(dir string) *CSVHistoryProvider {
	return &CSVHistoryProvider{dir: dir, dateLayout: "2006-01-02"}
}

// FetchHistory loads the symbol's file and returns the trailing
// lookbackDays candles.
func (p *CSVHistoryProvider) FetchHistory(ctx context.Context, symbol string, lookbackDays int) (*models.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError("csv", symbol, "no data file", errors.ErrDataUnavailable)
	}
	defer f.Close()

	var records []candleRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, errors.NewDataError("csv", symbol, "malformed data file", err)
	}
	if len(records) == 0 {
		return nil, errors.NewDataError("csv", symbol, "empty data file", errors.ErrDataUnavailable)
	}

	candles := make([]models.Candle, 0, len(records))
	for _, rec := range records {
		ts, err := time.Parse(p.dateLayout, rec.Date)
		if err != nil {
			return nil, errors.NewDataError("csv", symbol, "bad date "+rec.Date, err)
		}
		candles = append(candles, models.Candle{
			Timestamp: ts,
			Open:      rec.Open,
			High:      rec.High,
			Low:       rec.Low,
			Close:     rec.Close,
			Volume:    rec.Volume,
		})
	}

	if lookbackDays > 0 && len(candles) > lookbackDays {
		candles = candles[len(candles)-lookbackDays:]
	}

	return models.NewPriceSeries(symbol, candles, false)
}
