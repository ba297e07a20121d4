package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"options-analyzer/internal/errors"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
	"options-analyzer/internal/store"
	"options-analyzer/internal/strategy"
)

func newPositionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "positions",
		Aliases: []string{"pos"},
		Short:   "Manage paper positions",
	}
	cmd.AddCommand(newPositionsOpenCmd(app))
	cmd.AddCommand(newPositionsListCmd(app))
	cmd.AddCommand(newPositionsShowCmd(app))
	cmd.AddCommand(newPositionsCloseCmd(app))
	cmd.AddCommand(newPositionsExportCmd(app))
	return cmd
}

func requireStore(app *App) error {
	if app.Store == nil {
		return fmt.Errorf("position store unavailable")
	}
	return nil
}

func newPositionsOpenCmd(app *App) *cobra.Command {
	var strategyName string
	var dte int

	cmd := &cobra.Command{
		Use:   "open SYMBOL",
		Short: "Open a paper position with a suggested spread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
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

			pos := app.Monitor.OpenPosition(*spread)
			if err := app.Store.SavePosition(ctx, pos); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(pos)
			}
			if quote.Simulated {
				output.SimulatedBanner()
			}
			output.Success("✓ Opened %s on %s", strategyLabel(strategyType), symbol)
			output.Printf("  ID:          %s\n", pos.ID)
			output.Printf("  Net Premium: %s\n", FormatCurrency(spread.NetPremium()))
			output.Printf("  Expiry:      %s\n", FormatDate(spread.Expiry()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyName, "type", "t", "bull_call", "strategy type")
	cmd.Flags().IntVar(&dte, "dte", 30, "days to expiry")
	return cmd
}

func newPositionsListCmd(app *App) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			filter := store.PositionFilter{}
			if statusFilter != "" {
				filter.Status = models.PositionStatus(strings.ToUpper(statusFilter))
			}
			positions, err := app.Store.ListPositions(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(positions)
			}
			if len(positions) == 0 {
				output.Dim("No positions found.")
				return nil
			}

			table := NewTable(output, "ID", "SYMBOL", "STRATEGY", "STATUS", "OPENED", "PREMIUM", "REALIZED")
			for _, pos := range positions {
				realized := "-"
				if pos.RealizedPnL != nil {
					realized = output.FormatPnL(*pos.RealizedPnL)
				}
				table.AddRow(
					TruncateString(pos.ID, 8),
					pos.Spread.Underlying,
					strategyLabel(pos.Spread.Strategy),
					string(pos.Status),
					FormatDate(pos.OpenedAt),
					FormatCurrency(pos.Spread.NetPremium()),
					realized,
				)
			}
			table.Render()
			renderPortfolioSummary(output, positions)
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "filter by status (open/closed/expired)")
	return cmd
}

func newPositionsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a position with its P&L history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			pos, err := findPosition(ctx, app, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(pos)
			}

			output.Bold("Position %s", pos.ID)
			output.Printf("  Symbol:   %s\n", pos.Spread.Underlying)
			output.Printf("  Strategy: %s\n", strategyLabel(pos.Spread.Strategy))
			output.Printf("  Status:   %s\n", pos.Status)
			output.Printf("  Opened:   %s\n", FormatDateTime(pos.OpenedAt))
			if pos.ClosedAt != nil {
				output.Printf("  Closed:   %s\n", FormatDateTime(*pos.ClosedAt))
			}
			if pos.RealizedPnL != nil {
				output.Printf("  Realized: %s\n", output.FormatPnL(*pos.RealizedPnL))
			}
			output.Println()

			table := NewTable(output, "ACTION", "TYPE", "STRIKE", "EXPIRY", "QTY", "PREMIUM")
			for _, leg := range pos.Spread.Legs {
				table.AddRow(
					string(leg.Action), string(leg.Type),
					FormatCurrency(leg.Strike), FormatDate(leg.Expiry),
					fmt.Sprintf("%d", leg.Quantity), FormatCurrency(leg.Premium),
				)
			}
			table.Render()

			if len(pos.PnLHistory) > 0 {
				output.Println()
				output.Bold("P&L History (last %d)", minInt(len(pos.PnLHistory), 10))
				start := len(pos.PnLHistory) - 10
				if start < 0 {
					start = 0
				}
				for _, sample := range pos.PnLHistory[start:] {
					output.Printf("  %s  %s\n", FormatDateTime(sample.Timestamp), output.FormatPnL(sample.UnrealizedPnL))
				}
			}
			return nil
		},
	}
}

func newPositionsCloseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "close ID",
		Short: "Close a position, realizing P&L at the current model value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := logging.WithLogger(cmd.Context(), app.Logger)

			pos, err := findPosition(ctx, app, args[0])
			if err != nil {
				return err
			}

			snap, err := app.Monitor.Close(ctx, pos)
			if err != nil {
				return err
			}
			if err := app.Store.UpdateStatus(ctx, pos); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(snap)
			}
			output.Success("✓ Closed position %s", TruncateString(pos.ID, 8))
			if pos.RealizedPnL != nil {
				output.Printf("  Realized P&L: %s\n", output.FormatPnL(*pos.RealizedPnL))
			}
			return nil
		},
	}
}

// renderPortfolioSummary prints ledger totals: open count, realized P&L
// and the win rate over settled positions.
func renderPortfolioSummary(output *Output, positions []*models.Position) {
	var open, settled, wins int
	var realized float64
	for _, pos := range positions {
		if pos.Status == models.StatusOpen {
			open++
			continue
		}
		settled++
		if pos.RealizedPnL != nil {
			realized += *pos.RealizedPnL
			if *pos.RealizedPnL > 0 {
				wins++
			}
		}
	}

	output.Println()
	output.Printf("Open: %d", open)
	if settled > 0 {
		output.Printf("  Settled: %d  Realized: %s  Win rate: %.0f%%",
			settled, output.FormatPnL(realized), 100*float64(wins)/float64(settled))
	}
	output.Println()
}

// positionRecord is the CSV export row shape.
type positionRecord struct {
	ID          string  `csv:"id"`
	Symbol      string  `csv:"symbol"`
	Strategy    string  `csv:"strategy"`
	Status      string  `csv:"status"`
	OpenedAt    string  `csv:"opened_at"`
	ClosedAt    string  `csv:"closed_at"`
	NetPremium  float64 `csv:"net_premium"`
	RealizedPnL string  `csv:"realized_pnl"`
}

func newPositionsExportCmd(app *App) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export positions to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			positions, err := app.Store.ListPositions(ctx, store.PositionFilter{})
			if err != nil {
				return err
			}

			records := make([]positionRecord, 0, len(positions))
			for _, pos := range positions {
				rec := positionRecord{
					ID:         pos.ID,
					Symbol:     pos.Spread.Underlying,
					Strategy:   string(pos.Spread.Strategy),
					Status:     string(pos.Status),
					OpenedAt:   pos.OpenedAt.Format(time.RFC3339),
					NetPremium: pos.Spread.NetPremium(),
				}
				if pos.ClosedAt != nil {
					rec.ClosedAt = pos.ClosedAt.Format(time.RFC3339)
				}
				if pos.RealizedPnL != nil {
					rec.RealizedPnL = fmt.Sprintf("%.2f", *pos.RealizedPnL)
				}
				records = append(records, rec)
			}

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := gocsv.MarshalFile(&records, f); err != nil {
				return err
			}

			output.Success("✓ Exported %d positions to %s", len(records), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "positions.csv", "output file path")
	return cmd
}

// findPosition resolves a full or prefixed position ID.
func findPosition(ctx context.Context, app *App, id string) (*models.Position, error) {
	pos, err := app.Store.GetPosition(ctx, id)
	if err == nil {
		return pos, nil
	}
	if !errors.Is(err, errors.ErrPositionNotFound) {
		return nil, err
	}

	// Prefix match over all positions for short IDs.
	positions, listErr := app.Store.ListPositions(ctx, store.PositionFilter{})
	if listErr != nil {
		return nil, err
	}
	var match *models.Position
	for _, p := range positions {
		if strings.HasPrefix(p.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous position ID prefix %q", id)
			}
			match = p
		}
	}
	if match == nil {
		return nil, err
	}
	return app.Store.GetPosition(ctx, match.ID)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
