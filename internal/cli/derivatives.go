package cli

import (
	"github.com/spf13/cobra"

	"gex-engine/internal/analysis/exposure"
	"gex-engine/internal/analysis/greeks"
	apperrors "gex-engine/internal/errors"
	"gex-engine/internal/models"
)

// addDerivativesCommands adds single-contract calculators.
func addDerivativesCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newGreeksCmd(app))
}

type greeksReport struct {
	Spot         float64 `json:"spot"`
	Strike       float64 `json:"strike"`
	Type         string  `json:"type"`
	TimeToExpiry float64 `json:"time_to_expiry"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	Volatility   float64 `json:"volatility"`
	D1           float64 `json:"d1"`
	D2           float64 `json:"d2"`
	Delta        float64 `json:"delta"`
	Gamma        float64 `json:"gamma"`
	GEX          float64 `json:"gex,omitempty"`
	DEX          float64 `json:"dex,omitempty"`
	Degenerate   string  `json:"degenerate,omitempty"`
}

func newGreeksCmd(app *App) *cobra.Command {
	var (
		spot, strike, days, rate, iv float64
		optType                      string
		oi                           int64
	)

	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Compute Black-Scholes delta and gamma for one contract",
		Long: `Compute Black-Scholes delta and gamma for one contract. With --oi, also
show the contract's gamma and delta exposure under the configured convention.`,
		Example: `  gex greeks --spot 24500 --strike 24500 --days 7 --iv 0.14 --type CE
  gex greeks --spot 51200 --strike 51000 --days 3 --iv 0.16 --type PE --oi 120000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			typ, ok := models.ParseOptionType(optType)
			if !ok {
				err := apperrors.NewValidationError("type", optType, "must be CE, PE, CALL or PUT")
				output.Error("%v", err)
				return err
			}
			if !cmd.Flags().Changed("rate") {
				rate = app.Config.Chain.RiskFreeRate
			}

			in := greeks.Inputs{
				Spot:         spot,
				Strike:       strike,
				TimeToExpiry: days / 365,
				RiskFreeRate: rate,
				Volatility:   iv,
				Type:         typ,
			}

			report := greeksReport{
				Spot:         spot,
				Strike:       strike,
				Type:         string(typ),
				TimeToExpiry: in.TimeToExpiry,
				RiskFreeRate: rate,
				Volatility:   iv,
			}

			g, err := greeks.Calculate(in)
			if err != nil {
				if !apperrors.Is(err, apperrors.ErrDegenerateInput) {
					return err
				}
				report.Degenerate = err.Error()
				app.Logger.Debug().Err(err).Msg("Degenerate contract")
			} else {
				report.D1 = greeks.D1(spot, strike, in.TimeToExpiry, rate, iv)
				report.D2 = greeks.D2(spot, strike, in.TimeToExpiry, rate, iv)
			}
			report.Delta = g.Delta
			report.Gamma = g.Gamma

			if oi > 0 {
				agg, err := exposure.NewAggregator(app.Config.ExposureConfig())
				if err != nil {
					return err
				}
				report.GEX = agg.ContractGEX(g.Gamma, oi, spot)
				report.DEX = agg.ContractDEX(g.Delta, oi, spot)
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			displayGreeks(output, report, oi)
			return nil
		},
	}

	cmd.Flags().Float64Var(&spot, "spot", 0, "Underlying spot price")
	cmd.Flags().Float64Var(&strike, "strike", 0, "Strike price")
	cmd.Flags().Float64Var(&days, "days", 0, "Days to expiry")
	cmd.Flags().Float64Var(&rate, "rate", 0, "Risk-free rate (default: config)")
	cmd.Flags().Float64Var(&iv, "iv", 0, "Implied volatility, decimal (0.15 = 15%)")
	cmd.Flags().StringVar(&optType, "type", "CE", "Option type: CE or PE")
	cmd.Flags().Int64Var(&oi, "oi", 0, "Open interest, to show exposure")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strike")
	_ = cmd.MarkFlagRequired("days")
	_ = cmd.MarkFlagRequired("iv")

	return cmd
}

func displayGreeks(output *Output, r greeksReport, oi int64) {
	output.Bold("%s %s  (spot %s)", r.Type, FormatPrice(r.Strike), FormatPrice(r.Spot))
	output.Printf("  T: %.4fy  r: %.2f%%  σ: %.2f%%\n", r.TimeToExpiry, r.RiskFreeRate*100, r.Volatility*100)

	if r.Degenerate != "" {
		output.Warning("  %s; greeks zeroed", r.Degenerate)
	} else {
		output.Printf("  d1: %.5f  d2: %.5f\n", r.D1, r.D2)
	}
	output.Printf("  Delta: %.4f\n", r.Delta)
	output.Printf("  Gamma: %.6f\n", r.Gamma)

	if oi > 0 {
		output.Printf("  GEX:   %s  DEX: %s  (OI %d)\n", output.Exposure(r.GEX), output.Exposure(r.DEX), oi)
	}
}
