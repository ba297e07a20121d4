package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"options-analyzer/internal/analysis/indicators"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Classify market regime and suggest spread strategies",
		Long: `Fetches price history for the symbol, computes the indicator set,
classifies the market regime and prints the ranked strategy list.
Falls back to a simulated series when no data source is available.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			output := NewOutput(cmd)
			ctx := logging.WithLogger(cmd.Context(), app.Logger)

			series, err := app.Source.History(ctx, symbol)
			if err != nil {
				return err
			}

			result, err := app.Classifier.Classify(ctx, series)
			if err != nil {
				return err
			}
			logging.LogRegime(app.Logger, symbol, string(result.Regime), result.Confidence, result.Simulated)

			if output.IsJSON() {
				return output.JSON(result)
			}
			renderRegime(output, symbol, result)
			renderLevels(output, series)
			return nil
		},
	}
	return cmd
}

func renderRegime(output *Output, symbol string, result *models.MarketRegime) {
	if result.Simulated {
		output.SimulatedBanner()
	}

	source := SourceLive
	if result.Simulated {
		source = SourceSimulated
	}

	output.Bold("Market Analysis: %s %s", symbol, output.SourceTag(source))
	output.Printf("  Regime:     %s\n", colorRegime(output, result.Regime))
	output.Printf("  Confidence: %s\n", FormatConfidence(result.Confidence))
	output.Printf("  Bars:       %d\n", result.Series.Len())
	output.Println()

	output.Bold("Signals")
	names := make([]string, 0, len(result.Signals))
	for name := range result.Signals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		output.Printf("  %-16s %.4f\n", name, result.Signals[name])
	}
	output.Println()

	output.Bold("Recommended Strategies")
	for i, st := range result.Strategies {
		output.Printf("  %d. %s\n", i+1, strategyLabel(st))
	}
}

// renderLevels prints pivot levels and the RSI divergence check when the
// series is long enough for them.
func renderLevels(output *Output, series *models.PriceSeries) {
	levels, err := indicators.Pivots(series.Candles, 20)
	if err == nil {
		output.Println()
		output.Bold("Levels (20-bar)")
		output.Printf("  Pivot:      %s\n", FormatCurrency(levels.Pivot))
		output.Printf("  Resistance: %s / %s\n", FormatCurrency(levels.Resistance[0]), FormatCurrency(levels.Resistance[1]))
		output.Printf("  Support:    %s / %s\n", FormatCurrency(levels.Support[0]), FormatCurrency(levels.Support[1]))
	}

	divergence, err := indicators.RSIDivergence(series.Candles, 14, 10)
	if err == nil && divergence != indicators.DivergenceNone {
		output.Println()
		output.Warning("RSI divergence: %s", divergence)
	}
}

func colorRegime(output *Output, regime models.Regime) string {
	switch regime {
	case models.RegimeBullish:
		return output.Green(string(regime))
	case models.RegimeBearish:
		return output.Red(string(regime))
	case models.RegimeHighVol:
		return output.Yellow(string(regime))
	default:
		return string(regime)
	}
}

func strategyLabel(st models.StrategyType) string {
	switch st {
	case models.BullCallSpread:
		return "Bull Call Spread"
	case models.BearPutSpread:
		return "Bear Put Spread"
	case models.CallCreditSpread:
		return "Call Credit Spread"
	case models.PutCreditSpread:
		return "Put Credit Spread"
	case models.IronCondor:
		return "Iron Condor"
	case models.LongStraddle:
		return "Long Straddle"
	default:
		return string(st)
	}
}

// parseStrategy maps a CLI strategy name to its type.
func parseStrategy(name string) (models.StrategyType, bool) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "bull_call", "bull_call_spread":
		return models.BullCallSpread, true
	case "bear_put", "bear_put_spread":
		return models.BearPutSpread, true
	case "call_credit", "call_credit_spread":
		return models.CallCreditSpread, true
	case "put_credit", "put_credit_spread":
		return models.PutCreditSpread, true
	case "iron_condor":
		return models.IronCondor, true
	case "straddle", "long_straddle":
		return models.LongStraddle, true
	default:
		return "", false
	}
}
