package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"options-analyzer/internal/backtest"
	"options-analyzer/internal/logging"
)

func newBacktestCmd(app *App) *cobra.Command {
	var days int
	var capital float64
	var holdBars int
	var rebalanceBars int
	var showTrades bool

	cmd := &cobra.Command{
		Use:   "backtest SYMBOL",
		Short: "Replay price history through the regime classifier and spread templates",
		Long: `Replays the symbol's price history bar by bar: each rebalance point
classifies the market regime on the bars seen so far, opens the
top-ranked spread at the close, holds it for a fixed horizon and
settles at intrinsic value. Reports return, win rate, drawdown and
Sharpe ratio over the replay.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			output := NewOutput(cmd)
			ctx := logging.WithLogger(cmd.Context(), app.Logger)

			series, err := app.Source.HistoryLookback(ctx, symbol, days)
			if err != nil {
				return err
			}

			cfg := backtest.DefaultConfig()
			cfg.InitialCapital = capital
			cfg.HoldBars = holdBars
			cfg.RebalanceBars = rebalanceBars

			engine := backtest.New(app.Classifier, app.Model, cfg)
			result, err := engine.Run(ctx, series)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			renderBacktest(output, result, showTrades)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 180, "history lookback in days")
	cmd.Flags().Float64Var(&capital, "capital", 100_000, "initial capital")
	cmd.Flags().IntVar(&holdBars, "hold", 10, "bars each spread is held")
	cmd.Flags().IntVar(&rebalanceBars, "rebalance", 5, "bars between entry attempts")
	cmd.Flags().BoolVar(&showTrades, "trades", false, "list every settled trade")
	return cmd
}

func renderBacktest(output *Output, result *backtest.Result, showTrades bool) {
	if result.Simulated {
		output.SimulatedBanner()
	}

	source := SourceLive
	if result.Simulated {
		source = SourceSimulated
	}
	output.Bold("Backtest: %s %s", result.Symbol, output.SourceTag(source))
	output.Printf("  Period: %s to %s\n", FormatDate(result.StartDate), FormatDate(result.EndDate))
	output.Println()

	output.Box("Performance", []string{
		fmt.Sprintf("%-18s %s", "Final Equity:", FormatCurrency(result.FinalEquity)),
		fmt.Sprintf("%-18s %s", "Total Return:", output.FormatPercentColored(result.TotalReturn)),
		fmt.Sprintf("%-18s %s", "Annualized:", output.FormatPercentColored(result.AnnualizedReturn)),
		fmt.Sprintf("%-18s %.1f%%", "Win Rate:", result.WinRate),
		fmt.Sprintf("%-18s %.1f%%", "Max Drawdown:", result.MaxDrawdown),
		fmt.Sprintf("%-18s %.2f", "Sharpe Ratio:", result.SharpeRatio),
		fmt.Sprintf("%-18s %.2f", "Profit Factor:", result.ProfitFactor),
		fmt.Sprintf("%-18s %d (%dW / %dL)", "Trades:", result.TotalTrades, result.WinningTrades, result.LosingTrades),
		fmt.Sprintf("%-18s %.5f/bar", "Equity Trend:", result.EquityTrend),
	})

	if !showTrades || len(result.Trades) == 0 {
		return
	}

	output.Println()
	table := NewTable(output, "ENTRY", "EXIT", "STRATEGY", "REGIME", "QTY", "PREMIUM", "P&L", "P&L%")
	for _, trade := range result.Trades {
		table.AddRow(
			FormatDate(trade.EntryTime),
			FormatDate(trade.ExitTime),
			strategyLabel(trade.Strategy),
			string(trade.Regime),
			fmt.Sprintf("%d", trade.Contracts),
			FormatCurrency(trade.NetPremium),
			output.FormatPnL(trade.PnL),
			output.FormatPercentColored(trade.PnLPercent),
		)
	}
	table.Render()
}
