package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
	"options-analyzer/internal/strategy"
)

func newStrategyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Build and evaluate spread strategies",
	}
	cmd.AddCommand(newStrategySuggestCmd(app))
	cmd.AddCommand(newStrategyListCmd())
	return cmd
}

func newStrategyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supported strategy templates",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			all := []models.StrategyType{
				models.BullCallSpread, models.BearPutSpread,
				models.CallCreditSpread, models.PutCreditSpread,
				models.IronCondor, models.LongStraddle,
			}
			if output.IsJSON() {
				output.JSON(all)
				return
			}
			table := NewTable(output, "STRATEGY", "LEGS")
			for _, st := range all {
				table.AddRow(strategyLabel(st), fmt.Sprintf("%d", strategy.LegCount(st)))
			}
			table.Render()
		},
	}
}

func newStrategySuggestCmd(app *App) *cobra.Command {
	var strategyName string
	var dte int

	cmd := &cobra.Command{
		Use:   "suggest SYMBOL",
		Short: "Suggest a spread for the symbol and evaluate its payoff",
		Long: `Builds a candidate spread around the current spot with strikes on
listing increments and model premiums, then prints the payoff profile,
breakevens, aggregate Greeks and the model's profit probability.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			output := NewOutput(cmd)
			ctx := logging.WithLogger(cmd.Context(), app.Logger)

			strategyType, ok := parseStrategy(strategyName)
			if !ok {
				return fmt.Errorf("unknown strategy %q (see 'analyzer strategy list')", strategyName)
			}

			quote, err := app.Source.Quote(ctx, symbol)
			if err != nil {
				return err
			}

			expiry := time.Now().AddDate(0, 0, dte)
			spread, err := strategy.Suggest(strategyType, symbol, quote.Spot, expiry, app.Model, quote.ImpliedVol)
			if err != nil {
				return err
			}
			logging.LogSpread(app.Logger, symbol, string(strategyType), len(spread.Legs), spread.NetPremium())

			profile := strategy.ComputePayoff(spread)
			greeks, err := app.Model.SpreadGreeks(spread, quote.Spot, quote.ImpliedVol, time.Now())
			if err != nil {
				return err
			}
			profitProb, err := strategy.ProfitProbability(spread, app.Model, quote.Spot, quote.ImpliedVol, time.Now())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"spread":             spread,
					"net_premium":        profile.NetPremium,
					"max_gain":           profile.MaxGain,
					"max_loss":           profile.MaxLoss,
					"breakevens":         profile.Breakevens,
					"greeks":             greeks,
					"profit_probability": profitProb,
					"quote":              quote,
				})
			}

			renderSpread(output, spread, quote, profile, greeks, profitProb)
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyName, "type", "t", "bull_call", "strategy type")
	cmd.Flags().IntVar(&dte, "dte", 30, "days to expiry")
	return cmd
}

func renderSpread(output *Output, spread *models.Spread, quote models.Quote, profile strategy.PayoffProfile, greeks models.Greeks, profitProb float64) {
	if quote.Simulated {
		output.SimulatedBanner()
	}

	output.Bold("%s on %s  (spot %s, IV %s)",
		strategyLabel(spread.Strategy), spread.Underlying,
		FormatCurrency(quote.Spot), FormatIV(quote.ImpliedVol))
	output.Println()

	table := NewTable(output, "ACTION", "TYPE", "STRIKE", "EXPIRY", "QTY", "PREMIUM")
	for _, leg := range spread.Legs {
		table.AddRow(
			string(leg.Action), string(leg.Type),
			FormatCurrency(leg.Strike), FormatDate(leg.Expiry),
			fmt.Sprintf("%d", leg.Quantity), FormatCurrency(leg.Premium),
		)
	}
	table.Render()
	output.Println()

	premiumLabel := "net debit"
	if profile.NetPremium < 0 {
		premiumLabel = "net credit"
	}
	content := []string{
		fmt.Sprintf("%-14s %s (%s)", "Net Premium:", FormatCurrency(profile.NetPremium), premiumLabel),
		fmt.Sprintf("%-14s %s", "Max Gain:", FormatExtremum(profile.MaxGain)),
		fmt.Sprintf("%-14s %s", "Max Loss:", FormatExtremum(profile.MaxLoss)),
		fmt.Sprintf("%-14s %s", "Breakevens:", formatBreakevens(profile.Breakevens)),
		fmt.Sprintf("%-14s %.1f%%", "Profit Prob:", profitProb*100),
		fmt.Sprintf("%-14s %s", "Greeks:", FormatGreeks(greeks)),
	}
	output.Box("Payoff Profile", content)
}

func formatBreakevens(breakevens []float64) string {
	if len(breakevens) == 0 {
		return "none"
	}
	parts := make([]string, len(breakevens))
	for i, be := range breakevens {
		parts[i] = FormatCurrency(be)
	}
	return strings.Join(parts, ", ")
}
