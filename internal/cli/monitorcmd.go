package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
	"options-analyzer/internal/store"
)

func newMonitorCmd(app *App) *cobra.Command {
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run a monitoring pass over all open positions",
		Long: `Reprices every open position at the current quote, evaluates the
attached alert rules, records the P&L sample and reports risk levels.
With --watch the pass repeats on an interval until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := logging.WithLogger(cmd.Context(), app.Logger)

			app.Notifier.Start(ctx)

			if !watch {
				return runMonitorPass(ctx, app, output)
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := runMonitorPass(ctx, app, output); err != nil {
					output.Error("monitoring pass failed: %v", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "repeat the pass on an interval")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "pass interval with --watch")
	return cmd
}

func runMonitorPass(ctx context.Context, app *App, output *Output) error {
	positions, err := app.Store.ListPositions(ctx, store.PositionFilter{Status: models.StatusOpen})
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		output.Dim("No open positions to monitor.")
		return nil
	}

	// ListPositions omits history; load each position in full so the
	// pass sees prior samples and rule trigger state.
	full := make([]*models.Position, 0, len(positions))
	for _, pos := range positions {
		loaded, err := app.Store.GetPosition(ctx, pos.ID)
		if err != nil {
			return err
		}
		full = append(full, loaded)
	}

	snapshots := app.Monitor.PassAll(ctx, full)
	persistPass(ctx, app, full, snapshots)

	if output.IsJSON() {
		return output.JSON(snapshots)
	}
	renderSnapshots(output, snapshots)
	return nil
}

// persistPass writes back the mutations a pass made. Persistence
// failures are logged, not fatal: the next pass recomputes from quotes.
func persistPass(ctx context.Context, app *App, positions []*models.Position, snapshots []*models.MonitorSnapshot) {
	for i, pos := range positions {
		snap := snapshots[i]
		if snap == nil {
			continue
		}

		if pos.IsTerminal() {
			if err := app.Store.UpdateStatus(ctx, pos); err != nil {
				app.Logger.Error().Err(err).Str("position_id", pos.ID).Msg("failed to persist status transition")
			}
			continue
		}
		if snap.Stale {
			continue
		}

		if last, ok := pos.LastSample(); ok && last.Timestamp.Equal(snap.Timestamp) {
			if err := app.Store.AppendPnLSample(ctx, pos.ID, last); err != nil {
				app.Logger.Error().Err(err).Str("position_id", pos.ID).Msg("failed to persist P&L sample")
			}
		}
		if err := app.Store.SaveRuleState(ctx, pos.ID, pos.AlertRules); err != nil {
			app.Logger.Error().Err(err).Str("position_id", pos.ID).Msg("failed to persist rule state")
		}

		for _, ev := range snap.Alerts {
			if err := app.Store.LogAlert(ctx, ev); err != nil {
				app.Logger.Error().Err(err).Str("position_id", pos.ID).Msg("failed to log alert")
			}
		}
		app.Notifier.NotifyAll(snap.Alerts)
	}
}

func renderSnapshots(output *Output, snapshots []*models.MonitorSnapshot) {
	simulated := false
	for _, snap := range snapshots {
		if snap != nil && snap.Simulated {
			simulated = true
			break
		}
	}
	if simulated {
		output.SimulatedBanner()
	}

	table := NewTable(output, "ID", "SYMBOL", "STRATEGY", "SPOT", "P&L", "P&L%", "DELTA", "THETA", "DTE", "RISK", "")
	alertCount := 0
	totalPnL := 0.0
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		alertCount += len(snap.Alerts)
		if !snap.Stale {
			totalPnL += snap.UnrealizedPnL
		}
		table.AddRow(
			TruncateString(snap.PositionID, 8),
			snap.Symbol,
			strategyLabel(snap.Strategy),
			FormatCurrency(snap.Spot),
			output.FormatPnL(snap.UnrealizedPnL),
			output.FormatPercentColored(snap.UnrealizedPnLPct),
			fmt.Sprintf("%.3f", snap.Greeks.Delta),
			fmt.Sprintf("%.3f", snap.Greeks.Theta),
			fmt.Sprintf("%d", snap.DaysToExpiry),
			colorRisk(output, snap.RiskLevel),
			snapshotTag(snap),
		)
	}
	table.Render()
	output.Printf("Total unrealized: %s\n", output.FormatPnL(totalPnL))

	if alertCount > 0 {
		output.Println()
		output.Warning("%d alert(s) fired this pass", alertCount)
	}
}

func colorRisk(output *Output, level models.RiskLevel) string {
	switch level {
	case models.RiskCritical:
		return output.Red(string(level))
	case models.RiskHigh:
		return output.Yellow(string(level))
	case models.RiskMedium:
		return output.ColoredString(ColorCyan, string(level))
	default:
		return output.DimText(string(level))
	}
}

func snapshotTag(snap *models.MonitorSnapshot) string {
	switch {
	case snap.Stale:
		return "stale"
	case snap.Status == models.StatusExpired:
		return "expired"
	case snap.Simulated:
		return "sim"
	default:
		return ""
	}
}
