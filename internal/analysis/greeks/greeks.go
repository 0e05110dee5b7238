// Package greeks computes Black-Scholes delta and gamma for option contracts.
package greeks

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	apperrors "gex-engine/internal/errors"
	"gex-engine/internal/models"
)

// Inputs holds the Black-Scholes parameters for one contract.
type Inputs struct {
	Spot         float64 // S
	Strike       float64 // K
	TimeToExpiry float64 // T, years
	RiskFreeRate float64 // r
	Volatility   float64 // sigma, annualized
	Type         models.OptionType
}

// Calculate returns delta and gamma for the given inputs.
//
// Expired contracts, non-positive volatility and unusable prices produce zero
// greeks together with a *errors.DegenerateInputError. The zeroed result is
// always valid to aggregate; callers log the error and carry on.
func Calculate(in Inputs) (models.GreekResult, error) {
	if reason := degenerateReason(in); reason != "" {
		return models.GreekResult{Degenerate: true},
			apperrors.NewDegenerateInputError(in.Strike, string(in.Type), reason)
	}

	d1 := D1(in.Spot, in.Strike, in.TimeToExpiry, in.RiskFreeRate, in.Volatility)
	if math.IsNaN(d1) {
		return models.GreekResult{Degenerate: true},
			apperrors.NewDegenerateInputError(in.Strike, string(in.Type), "d1 is not a number")
	}

	gamma := pdf(d1) / (in.Spot * in.Volatility * math.Sqrt(in.TimeToExpiry))
	if math.IsNaN(gamma) || math.IsInf(gamma, 0) || gamma < 0 {
		gamma = 0
	}

	delta := cdf(d1)
	if in.Type == models.OptionTypePut {
		delta -= 1
	}

	return models.GreekResult{Delta: delta, Gamma: gamma}, nil
}

// D1 returns the Black-Scholes d1 term.
func D1(s, k, t, r, sigma float64) float64 {
	return (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
}

// D2 returns the Black-Scholes d2 term.
func D2(s, k, t, r, sigma float64) float64 {
	return D1(s, k, t, r, sigma) - sigma*math.Sqrt(t)
}

// ChainResult holds per-contract greeks aligned with the snapshot contracts.
type ChainResult struct {
	Greeks     []models.GreekResult
	Degenerate []error
}

// CalculateChain computes greeks for every contract of a snapshot.
// Degenerate contracts never abort the chain; their errors are collected.
func CalculateChain(snap *models.OptionChainSnapshot) ChainResult {
	res := ChainResult{Greeks: make([]models.GreekResult, snap.Len())}
	for i := 0; i < snap.Len(); i++ {
		c := snap.Contract(i)
		g, err := Calculate(Inputs{
			Spot:         snap.Spot(),
			Strike:       c.Strike,
			TimeToExpiry: snap.TimeToExpiry(),
			RiskFreeRate: snap.RiskFreeRate(),
			Volatility:   c.IV,
			Type:         c.Type,
		})
		if err != nil {
			res.Degenerate = append(res.Degenerate, err)
		}
		res.Greeks[i] = g
	}
	return res
}

func degenerateReason(in Inputs) string {
	switch {
	case !finite(in.TimeToExpiry) || in.TimeToExpiry <= 0:
		return "time to expiry must be positive"
	case !finite(in.Volatility) || in.Volatility <= 0:
		return "volatility must be positive"
	case !finite(in.Spot) || in.Spot <= 0:
		return "spot must be positive"
	case !finite(in.Strike) || in.Strike <= 0:
		return "strike must be positive"
	case !finite(in.RiskFreeRate):
		return "risk-free rate must be finite"
	}
	return ""
}

// cdf is the standard normal CDF clamped to [0, 1].
func cdf(x float64) float64 {
	v := distuv.UnitNormal.CDF(x)
	switch {
	case math.IsNaN(v):
		if x > 0 {
			return 1
		}
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// pdf is the standard normal density, never negative.
func pdf(x float64) float64 {
	v := distuv.UnitNormal.Prob(x)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
