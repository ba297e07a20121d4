package cli

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"options-analyzer/internal/analysis/regime"
	"options-analyzer/internal/config"
	"options-analyzer/internal/data"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/monitor"
	"options-analyzer/internal/notify"
	"options-analyzer/internal/pricing"
	"options-analyzer/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-08-01"
)

// App holds the application dependencies.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Source     *data.Source
	Model      *pricing.Model
	Classifier *regime.Classifier
	Monitor    *monitor.Monitor
	Store      store.PositionStore
	Notifier   *notify.TerminalNotifier
}

// NewRootCmd creates the root command for the CLI. configDir is the
// resolved configuration directory; data files and the position store
// live under it, so --config relocates everything together.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger, configDir string) *cobra.Command {
	if configDir == "" {
		configDir = config.DefaultConfigDir()
	}

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Model = pricing.NewModel(cfg.Pricing)
	app.Classifier = regime.NewClassifier(cfg.Analysis)

	// CSV files dropped under the config dir serve as the primary
	// history source; the simulated provider covers everything else.
	var history data.HistoryProvider
	csvDir := filepath.Join(configDir, "data")
	if info, err := os.Stat(csvDir); err == nil && info.IsDir() {
		history = data.NewCSVHistoryProvider(csvDir)
		logger.Debug().Str("dir", csvDir).Msg("CSV history provider initialized")
	}
	app.Source = data.NewSource(history, nil, cfg.Data)

	app.Monitor = monitor.New(app.Model, app.Source, cfg.Risk)

	dbPath := filepath.Join(configDir, "analyzer.db")
	positionStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, position commands unavailable")
	} else {
		app.Store = positionStore
		logger.Debug().Msg("SQLite store initialized")
	}

	app.Notifier = notify.NewTerminalNotifier(100)
	app.Notifier.SetColorEnabled(cfg.UI.ColorEnabled)
	app.Notifier.AddHandler(notify.DefaultHandler(cfg.UI.ColorEnabled))

	rootCmd := &cobra.Command{
		Use:   "analyzer",
		Short: "Options spread analyzer - regime, pricing and position monitoring CLI",
		Long: `Options spread analyzer evaluates vertical spread strategies.

It classifies the market regime from price history, prices legs with a
Black-Scholes model, builds and validates spreads, and monitors open
paper positions with risk alerts.

Use 'analyzer help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/options-analyzer)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newStrategyCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newMonitorCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Options Analyzer v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Analysis Configuration")
	output.Printf("  RSI Period:       %d\n", cfg.Analysis.RSIPeriod)
	output.Printf("  MACD:             %d/%d/%d\n", cfg.Analysis.MACDFast, cfg.Analysis.MACDSlow, cfg.Analysis.MACDSignal)
	output.Printf("  SMA:              %d/%d\n", cfg.Analysis.ShortSMA, cfg.Analysis.LongSMA)
	output.Printf("  Volatility Bands: %.0f%% / %.0f%%\n", cfg.Analysis.LowVolThreshold*100, cfg.Analysis.HighVolThreshold*100)
	output.Println()

	output.Bold("Pricing Configuration")
	output.Printf("  Risk-Free Rate:   %.2f%%\n", cfg.Pricing.RiskFreeRate*100)
	output.Printf("  ATM Cutoff:       %.3f\n", cfg.Pricing.ATMCutoff)
	output.Println()

	output.Bold("Risk Configuration")
	output.Printf("  Stop Loss:        %.0f%% of max loss\n", cfg.Risk.StopLossPercent)
	output.Printf("  Take Profit:      %.0f%% of max gain\n", cfg.Risk.TakeProfitPercent)
	output.Printf("  DTE Alert:        %d days\n", cfg.Risk.DTEAlert)
	output.Println()

	output.Bold("Data Configuration")
	output.Printf("  Lookback:         %d days\n", cfg.Data.LookbackDays)
	output.Printf("  Fetch Timeout:    %s\n", cfg.Data.FetchTimeout)
	output.Printf("  Allow Simulated:  %v\n", cfg.Data.AllowSimulated)
}
