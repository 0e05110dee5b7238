package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gex-engine/internal/analysis"
	"gex-engine/internal/analysis/exposure"
	"gex-engine/internal/chain"
	apperrors "gex-engine/internal/errors"
	"gex-engine/internal/logging"
	"gex-engine/internal/models"
	"gex-engine/pkg/utils"
)

// addAnalysisCommands adds the snapshot analysis commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newBatchCmd(app))
}

// snapshotFlags are header overrides shared by analyze and batch.
type snapshotFlags struct {
	symbol    string
	spot      float64
	expiry    string
	timestamp string
	rate      float64
	rateSet   bool
	window    int
}

func (f *snapshotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "Underlying symbol (overrides the file)")
	cmd.Flags().Float64Var(&f.spot, "spot", 0, "Underlying spot price (required for CSV)")
	cmd.Flags().StringVar(&f.expiry, "expiry", "", "Expiry date, YYYY-MM-DD or DD-MMM-YYYY (required for CSV)")
	cmd.Flags().StringVar(&f.timestamp, "timestamp", "", "Snapshot time (default: now)")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "Risk-free rate (default: from file or config)")
	cmd.Flags().IntVar(&f.window, "window", -1, "Keep strikes within spot ± window × strike step (default: config)")
}

// loadSnapshot reads and normalizes one snapshot file, logging dropped rows.
func (app *App) loadSnapshot(path string, flags snapshotFlags) (*models.OptionChainSnapshot, error) {
	doc, err := chain.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if flags.symbol != "" {
		doc.Symbol = flags.symbol
	}
	if flags.spot > 0 {
		doc.Spot = flags.spot
	}
	if flags.expiry != "" {
		doc.Expiry = flags.expiry
	}
	if flags.timestamp != "" {
		doc.Timestamp = flags.timestamp
	}
	if flags.rateSet {
		rate := flags.rate
		doc.RiskFreeRate = &rate
	}

	header, err := chain.HeaderFromDocument(doc, time.Now())
	if err != nil {
		return nil, apperrors.Wrap(err, path)
	}

	opts := app.Config.ChainOptions()
	if flags.window >= 0 {
		opts.StrikesRange = flags.window
	}

	snap, dropped, err := chain.Normalize(header, doc.Rows, opts)
	log := logging.WithSymbol(app.Logger, header.Symbol)
	for _, d := range dropped {
		logging.LogDropped(log, header.Symbol, d.Row, d.Reason)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, path)
	}

	log.Debug().
		Str("file", path).
		Int("rows", len(doc.Rows)).
		Int("contracts", snap.Len()).
		Int("dropped", len(dropped)).
		Float64("time_to_expiry", snap.TimeToExpiry()).
		Msg("Snapshot loaded")

	return snap, nil
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var flags snapshotFlags
	var strikes int

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze an option chain snapshot",
		Long: `Compute per-strike GEX/DEX, the zero-gamma flip level and the directional
bias for one option chain snapshot.

JSON snapshots carry symbol, spot and expiry. CSV snapshots carry rows only;
pass --spot and --expiry.`,
		Example: `  gex analyze nifty.json
  gex analyze NIFTY_chain.csv --spot 24510 --expiry 2024-11-28
  gex analyze banknifty.json --strikes 5 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			flags.rateSet = cmd.Flags().Changed("rate")

			snap, err := app.loadSnapshot(args[0], flags)
			if err != nil {
				output.Error("Failed to load snapshot: %v", err)
				return err
			}

			start := time.Now()
			res, err := app.Engine.Analyze(snap)
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}

			log := logging.WithSymbol(logging.FromContext(cmd.Context()), res.Symbol)
			logging.LogAnalysis(log, res.Symbol, res.Spot, len(res.Profile.Strikes), res.Degenerate, res.Profile.Totals, time.Since(start))
			logging.LogSignal(log, res.Symbol, res.Signal)

			if output.IsJSON() {
				return output.JSON(res)
			}
			displayResult(output, snap, res, strikes)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&strikes, "strikes", 10, "Strikes to show on each side of ATM (0 for all)")

	return cmd
}

func newBatchCmd(app *App) *cobra.Command {
	var flags snapshotFlags

	cmd := &cobra.Command{
		Use:   "batch <files...>",
		Short: "Analyze several snapshots concurrently",
		Long: `Analyze several option chain snapshots concurrently and print one summary
line per snapshot, in the order given.`,
		Example: `  gex batch nifty.json banknifty.json finnifty.json
  gex batch data/*.json --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			flags.rateSet = cmd.Flags().Changed("rate")

			snaps := make([]*models.OptionChainSnapshot, 0, len(args))
			for _, path := range args {
				snap, err := app.loadSnapshot(path, flags)
				if err != nil {
					output.Error("Failed to load snapshot: %v", err)
					return err
				}
				snaps = append(snaps, snap)
			}

			results, err := app.Engine.AnalyzeBatch(cmd.Context(), snaps)
			if err != nil {
				output.Error("Batch analysis failed: %v", err)
				return err
			}

			log := logging.FromContext(cmd.Context())
			for _, res := range results {
				logging.LogSignal(logging.WithSymbol(log, res.Symbol), res.Symbol, res.Signal)
			}

			if output.IsJSON() {
				return output.JSON(results)
			}
			displayBatch(output, results)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func displayResult(output *Output, snap *models.OptionChainSnapshot, res analysis.Result, strikes int) {
	output.Bold("%s  GEX / DEX", res.Symbol)
	output.Printf("  Spot: %s  Expiry: %s  T: %.4fy  r: %.2f%%\n",
		FormatPrice(res.Spot), FormatDate(snap.Expiry()), snap.TimeToExpiry(), snap.RiskFreeRate()*100)
	output.Dim("  Snapshot: %s  Contracts: %d  Degenerate: %d  Unpaired: %d",
		FormatDateTime(snap.Timestamp()), snap.Len(), res.Degenerate, res.Unpaired)
	output.Println()

	if res.Empty {
		output.Warning("No strikes with open interest")
		output.Println(res.Signal.Recommendation)
		return
	}

	displaySignal(output, res)
	output.Println()

	totals := res.Profile.Totals
	output.Bold("Exposure")
	output.Printf("  Call GEX: %s  Put GEX: %s\n", formatExposure(totals.CallGEX), formatExposure(totals.PutGEX))
	output.Printf("  Net GEX:  %s  Net DEX: %s\n", output.Exposure(totals.NetGEX), output.Exposure(totals.NetDEX))
	if atm := res.Profile.ATM; atm != nil {
		output.Printf("  ATM:      %s  Straddle: %s\n", FormatPrice(atm.Strike), FormatPrice(atm.StraddlePremium))
	}
	output.Println()

	displayFlipZone(output, res.FlipZone)
	output.Println()

	flow := res.Flow
	output.Bold("Near-ATM Flow (%d strikes)", flow.Strikes)
	output.Printf("  GEX: %s %s  DEX: %s %s\n",
		output.Exposure(flow.GEXNearTotal), flow.GEXBias,
		output.Exposure(flow.DEXNearTotal), output.BiasText(flow.DEXBias))
	output.Println()

	displayStrikes(output, res, strikes)
}

func displaySignal(output *Output, res analysis.Result) {
	sig := res.Signal
	output.Printf("%s  confidence %.0f%%  %s\n",
		output.BiasText(sig.Bias), sig.Confidence*100, output.DimText(string(sig.Rule)))
	if sig.Bias == models.BiasNeutral && sig.Lean != models.BiasNeutral {
		output.Printf("  Lean: %s\n", output.BiasText(sig.Lean))
	}
	output.Printf("  %s\n", sig.Recommendation)
}

func displayFlipZone(output *Output, zone models.FlipZone) {
	output.Bold("Zero Gamma")
	level, ok := zone.Level()
	if !ok {
		output.Printf("  No flip: cumulative GEX never changes sign\n")
		return
	}
	output.Printf("  Level: %s", FormatPrice(level))
	if n := len(zone.Crossings); n > 1 {
		output.Printf("  (%d crossings)", n)
	}
	output.Println()

	for _, z := range zone.Zones {
		output.Dim("  Flip zone: %s - %s", FormatPrice(z.LowerStrike), FormatPrice(z.UpperStrike))
	}
}

func displayStrikes(output *Output, res analysis.Result, around int) {
	all := res.Profile.Strikes
	lo, hi := 0, len(all)
	if around > 0 {
		atm := exposure.NearestStrikeIndex(all, res.Spot)
		lo = max(0, atm-around)
		hi = min(len(all), atm+around+1)
	}

	table := NewTable(output, "Strike", "Call OI", "Put OI", "Call GEX", "Put GEX", "Net GEX", "Net DEX", "Pressure")
	for i := lo; i < hi; i++ {
		s := all[i]
		strike := FormatPrice(s.Strike)
		if atm := res.Profile.ATM; atm != nil && atm.Strike == s.Strike {
			strike = output.Yellow(strike + " *")
		}
		table.AddRow(
			strike,
			utils.FormatQuantity(s.CallOI),
			utils.FormatQuantity(s.PutOI),
			formatExposure(s.CallGEX),
			formatExposure(s.PutGEX),
			output.Exposure(s.NetGEX()),
			output.Exposure(s.NetDEX()),
			utils.FormatPercent(res.Profile.HedgingPressure[i]),
		)
	}
	table.Render()
}

func displayBatch(output *Output, results []analysis.Result) {
	table := NewTable(output, "Symbol", "Spot", "Net GEX", "Net DEX", "Zero Gamma", "Bias", "Conf")
	for _, res := range results {
		flip := "-"
		if level, ok := res.FlipZone.Level(); ok {
			flip = FormatPrice(level)
		}
		table.AddRow(
			res.Symbol,
			FormatPrice(res.Spot),
			output.Exposure(res.Profile.Totals.NetGEX),
			output.Exposure(res.Profile.Totals.NetDEX),
			flip,
			output.BiasText(res.Signal.Bias),
			fmt.Sprintf("%.0f%%", res.Signal.Confidence*100),
		)
	}
	table.Render()
}
