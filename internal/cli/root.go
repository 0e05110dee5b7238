// Package cli provides the command-line interface for the GEX engine.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gex-engine/internal/analysis"
	"gex-engine/internal/config"
	"gex-engine/internal/logging"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-11-18"
)

// App holds the application dependencies. They are built in the root
// command's pre-run, once flags are parsed.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Engine *analysis.Engine
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "gex",
		Short: "Option chain gamma and delta exposure analytics",
		Long: `gex computes dealer gamma exposure (GEX) and delta exposure (DEX) from an
option chain snapshot, locates the zero-gamma flip level, and derives a
directional bias with a trading recommendation.

Snapshots are read from CSV (strike,option_type,oi,iv,ltp,volume) or JSON files.

Use 'gex help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/gex-engine)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addDerivativesCommands(rootCmd, app)

	return rootCmd
}

func (app *App) init(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	app.Config = cfg

	logger := logging.NewLoggerWithConfig(cfg.LogConfig())
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logger = logger.Level(zerolog.DebugLevel)
	}
	app.Logger = logging.WithOperation(logger, cmd.Name())
	cmd.SetContext(logging.WithLogger(cmd.Context(), app.Logger))

	engine, err := analysis.NewEngine(cfg.EngineConfig(), app.Logger)
	if err != nil {
		return err
	}
	app.Engine = engine

	app.Logger.Debug().Str("config", cfg.Path()).Msg("Configuration loaded")
	return nil
}

// output builds the command output honouring the colour setting.
func (app *App) output(cmd *cobra.Command) *Output {
	colorEnabled := true
	if app.Config != nil {
		colorEnabled = app.Config.UI.ColorEnabled
	}
	return NewOutput(cmd, colorEnabled)
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("gex v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the engine configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": app.Config.Path()})
			}
			output.Println(app.Config.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load already validated; a failure never reaches this point.
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Engine")
	output.Printf("  Contract Multiplier: %.2f\n", cfg.Engine.ContractMultiplier)
	output.Printf("  GEX Scale:           %g\n", cfg.Engine.GEXScale)
	output.Printf("  DEX Scale:           %g\n", cfg.Engine.DEXScale)
	output.Printf("  Batch Limit:         %d\n", cfg.Engine.BatchLimit)
	output.Println()

	output.Bold("Bias")
	output.Printf("  Strong +GEX:         %s\n", formatExposure(cfg.Bias.StrongPositiveGEX))
	output.Printf("  Strong -GEX:         %s\n", formatExposure(cfg.Bias.StrongNegativeGEX))
	output.Printf("  Flip Band:           %.2f%%\n", cfg.Bias.FlipBandPercent)
	output.Printf("  Confidence:          high %.2f, moderate %.2f, low %.2f\n",
		cfg.Bias.HighConfidence, cfg.Bias.ModerateConfidence, cfg.Bias.LowConfidence)
	output.Printf("  Flow Window:         ±%d strikes (%s)\n", cfg.Bias.FlowWindow, formatExposure(cfg.Bias.FlowGEXThreshold))
	output.Println()

	output.Bold("Chain")
	output.Printf("  IV In Percent:       %v\n", cfg.Chain.IVInPercent)
	output.Printf("  Default IV:          %.2f\n", cfg.Chain.DefaultIV)
	output.Printf("  Strike Window:       ±%d × %.0f\n", cfg.Chain.StrikesRange, cfg.Chain.StrikeStep)
	output.Printf("  Min Days To Expiry:  %g\n", cfg.Chain.MinDaysToExpiry)
	output.Printf("  Risk-Free Rate:      %.4f\n", cfg.Chain.RiskFreeRate)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:               %s\n", cfg.Logging.Level)
	output.Printf("  File:                %v %s\n", cfg.Logging.File, cfg.Logging.FilePath)
}
