// Package bias turns aggregate exposure and the flip zone into a directional
// signal with a recommendation.
package bias

import (
	"fmt"
	"math"

	apperrors "gex-engine/internal/errors"
	"gex-engine/internal/models"
)

// Thresholds holds the calibration of the decision rules.
// GEX thresholds are compared against exposure profile totals as-is. Defaults
// are stated per unit contract multiplier; use Scaled to match a profile
// computed with a different multiplier.
type Thresholds struct {
	StrongPositiveGEX float64 // net GEX at or above this is strongly long gamma
	StrongNegativeGEX float64 // net GEX at or below minus this is strongly short gamma
	FlipBandPercent   float64 // distance from the flip level, in percent of spot

	HighConfidence     float64
	ModerateConfidence float64
	LowConfidence      float64

	FlowWindow       int     // strikes on each side of ATM for flow metrics
	FlowGEXThreshold float64 // near-ATM GEX magnitude for the flow label
}

// DefaultThresholds returns the default calibration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongPositiveGEX:  50e9,
		StrongNegativeGEX:  50e9,
		FlipBandPercent:    0.5,
		HighConfidence:     0.85,
		ModerateConfidence: 0.55,
		LowConfidence:      0.3,
		FlowWindow:         5,
		FlowGEXThreshold:   50e9,
	}
}

// Scaled returns a copy with the GEX thresholds multiplied by the contract
// multiplier of the exposure profile they will be compared against.
func (t Thresholds) Scaled(multiplier float64) Thresholds {
	t.StrongPositiveGEX *= multiplier
	t.StrongNegativeGEX *= multiplier
	t.FlowGEXThreshold *= multiplier
	return t
}

// Validate checks the thresholds.
func (t Thresholds) Validate() error {
	nonNegative := map[string]float64{
		"strong_positive_gex": t.StrongPositiveGEX,
		"strong_negative_gex": t.StrongNegativeGEX,
		"flip_band_percent":   t.FlipBandPercent,
		"flow_gex_threshold":  t.FlowGEXThreshold,
	}
	for name, v := range nonNegative {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return apperrors.NewConfigError(name, v, "must be a non-negative finite number")
		}
	}

	confidences := map[string]float64{
		"high_confidence":     t.HighConfidence,
		"moderate_confidence": t.ModerateConfidence,
		"low_confidence":      t.LowConfidence,
	}
	for name, v := range confidences {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return apperrors.NewConfigError(name, v, "must be between 0 and 1")
		}
	}

	if t.FlowWindow < 0 {
		return apperrors.NewConfigError("flow_window", t.FlowWindow, "must be non-negative")
	}
	return nil
}

// Analyzer applies the decision rules. It is immutable and safe for concurrent use.
type Analyzer struct {
	thresholds Thresholds
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(thresholds Thresholds) (*Analyzer, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{thresholds: thresholds}, nil
}

// Thresholds returns the analyzer calibration.
func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

// Analyze derives the signal. Rules are evaluated in order and the first match wins:
//  1. strongly negative GEX with negative DEX: bearish, high confidence
//  2. strongly positive GEX with positive DEX: bullish, high confidence
//  3. spot within the band around the flip level: neutral, low confidence
//  4. otherwise neutral, moderate confidence, leaning with DEX
func (a *Analyzer) Analyze(netGEX, netDEX float64, flip models.FlipZone, spot float64) models.Signal {
	t := a.thresholds
	lean := leanOf(netDEX)

	switch {
	case netGEX <= -t.StrongNegativeGEX && netDEX < 0:
		return models.Signal{
			Bias:           models.BiasBearish,
			Confidence:     t.HighConfidence,
			Rule:           models.RuleShortGammaBearish,
			Lean:           lean,
			Recommendation: "Dealers are net short gamma with negative delta exposure. Hedging flows amplify downside moves: favour bearish positions and keep longs hedged.",
		}

	case netGEX >= t.StrongPositiveGEX && netDEX > 0:
		return models.Signal{
			Bias:           models.BiasBullish,
			Confidence:     t.HighConfidence,
			Rule:           models.RuleLongGammaBullish,
			Lean:           lean,
			Recommendation: "Dealers are net long gamma with positive delta exposure. Hedging dampens moves and directional flow dominates: favour bullish positions, buy dips.",
		}
	}

	if level, ok := flip.Level(); ok && spot > 0 {
		if distance := math.Abs(spot-level) / spot * 100; distance <= t.FlipBandPercent {
			return models.Signal{
				Bias:       models.BiasNeutral,
				Confidence: t.LowConfidence,
				Rule:       models.RuleFlipProximity,
				Lean:       lean,
				Recommendation: fmt.Sprintf(
					"Spot %.2f is %.2f%% from the zero-gamma level %.2f. Gamma regime may flip: expect elevated volatility, reduce size and avoid directional bets.",
					spot, distance, level),
			}
		}
	}

	return models.Signal{
		Bias:           models.BiasNeutral,
		Confidence:     t.ModerateConfidence,
		Rule:           models.RuleDeltaLean,
		Lean:           lean,
		Recommendation: leanRecommendation(lean),
	}
}

// EmptySignal is the signal for a chain without usable contracts.
func EmptySignal() models.Signal {
	return models.Signal{
		Bias:           models.BiasNeutral,
		Confidence:     0,
		Rule:           models.RuleEmptyChain,
		Lean:           models.BiasNeutral,
		Recommendation: "No usable contracts in the chain. No positioning signal.",
	}
}

func leanOf(netDEX float64) models.Bias {
	switch {
	case netDEX > 0:
		return models.BiasBullish
	case netDEX < 0:
		return models.BiasBearish
	default:
		return models.BiasNeutral
	}
}

func leanRecommendation(lean models.Bias) string {
	switch lean {
	case models.BiasBullish:
		return "No dominant gamma regime. Net delta exposure is positive: mild bullish lean, prefer range trades with a long tilt."
	case models.BiasBearish:
		return "No dominant gamma regime. Net delta exposure is negative: mild bearish lean, prefer range trades with a short tilt."
	default:
		return "No dominant gamma regime and flat delta exposure. Stay neutral."
	}
}
