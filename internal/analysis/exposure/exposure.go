// Package exposure converts per-contract greeks into per-strike and chain-level
// gamma and delta exposure.
package exposure

import (
	"math"
	"sort"

	apperrors "gex-engine/internal/errors"
	"gex-engine/internal/models"
)

// Config holds the exposure scaling convention.
type Config struct {
	// ContractMultiplier is the number of units per contract.
	ContractMultiplier float64
	// GEXScale scales dollar gamma to a move size. 0.01 reports GEX per 1% move.
	GEXScale float64
	// DEXScale scales delta exposure. 1.0 reports notional delta.
	DEXScale float64
}

// DefaultConfig returns the default exposure convention.
func DefaultConfig() Config {
	return Config{
		ContractMultiplier: 100,
		GEXScale:           0.01,
		DEXScale:           1.0,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !positiveFinite(c.ContractMultiplier) {
		return apperrors.NewConfigError("contract_multiplier", c.ContractMultiplier, "must be a positive finite number")
	}
	if !positiveFinite(c.GEXScale) {
		return apperrors.NewConfigError("gex_scale", c.GEXScale, "must be a positive finite number")
	}
	if !positiveFinite(c.DEXScale) {
		return apperrors.NewConfigError("dex_scale", c.DEXScale, "must be a positive finite number")
	}
	return nil
}

// Aggregator builds exposure profiles. It is immutable and safe for concurrent use.
type Aggregator struct {
	config Config
}

// NewAggregator creates a new Aggregator.
func NewAggregator(config Config) (*Aggregator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{config: config}, nil
}

// Config returns the aggregator configuration.
func (a *Aggregator) Config() Config {
	return a.config
}

// ContractGEX returns the unsigned gamma exposure of one contract.
func (a *Aggregator) ContractGEX(gamma float64, oi int64, spot float64) float64 {
	return gamma * float64(oi) * spot * spot * a.config.ContractMultiplier * a.config.GEXScale
}

// ContractDEX returns the delta exposure of one contract, signed by delta.
func (a *Aggregator) ContractDEX(delta float64, oi int64, spot float64) float64 {
	return delta * float64(oi) * spot * a.config.ContractMultiplier * a.config.DEXScale
}

type bucket struct {
	exp     models.StrikeExposure
	callLTP float64
	putLTP  float64
	hasCall bool
	hasPut  bool
}

// Aggregate builds the exposure profile of a snapshot. greekResults must be
// aligned with the snapshot contracts. An empty snapshot yields an empty
// profile with zero totals.
func (a *Aggregator) Aggregate(snap *models.OptionChainSnapshot, greekResults []models.GreekResult) (models.ExposureProfile, error) {
	if len(greekResults) != snap.Len() {
		return models.ExposureProfile{}, apperrors.Wrapf(apperrors.ErrGreeksMismatch,
			"%d contracts, %d greek results", snap.Len(), len(greekResults))
	}

	spot := snap.Spot()
	buckets := make(map[float64]*bucket)

	for i := 0; i < snap.Len(); i++ {
		c := snap.Contract(i)
		g := greekResults[i]

		b, ok := buckets[c.Strike]
		if !ok {
			b = &bucket{exp: models.StrikeExposure{Strike: c.Strike}}
			buckets[c.Strike] = b
		}

		gex := a.ContractGEX(g.Gamma, c.OpenInterest, spot)
		dex := a.ContractDEX(g.Delta, c.OpenInterest, spot)

		if c.Type.IsCall() {
			b.exp.CallOI += c.OpenInterest
			b.exp.CallGEX += gex
			b.exp.CallDEX += dex
			b.callLTP = c.LTP
			b.hasCall = true
		} else {
			b.exp.PutOI += c.OpenInterest
			b.exp.PutGEX += gex
			b.exp.PutDEX += dex
			b.putLTP = c.LTP
			b.hasPut = true
		}
	}

	kept := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		// Zero OI on both sides carries no positioning information.
		if b.exp.CallOI == 0 && b.exp.PutOI == 0 {
			continue
		}
		kept = append(kept, b)
	}
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].exp.Strike < kept[j].exp.Strike
	})

	profile := models.ExposureProfile{
		Strikes:         make([]models.StrikeExposure, len(kept)),
		HedgingPressure: make([]float64, len(kept)),
	}

	var absNet float64
	for i, b := range kept {
		profile.Strikes[i] = b.exp
		profile.Totals.CallGEX += b.exp.CallGEX
		profile.Totals.PutGEX += b.exp.PutGEX
		profile.Totals.NetGEX += b.exp.NetGEX()
		profile.Totals.NetDEX += b.exp.NetDEX()
		absNet += math.Abs(b.exp.NetGEX())
	}

	if absNet > 0 {
		for i, e := range profile.Strikes {
			profile.HedgingPressure[i] = e.NetGEX() / absNet * 100
		}
	}

	if atm := nearestIndex(profile.Strikes, spot); atm >= 0 {
		b := kept[atm]
		profile.ATM = &models.ATMInfo{
			Strike:          b.exp.Strike,
			StraddlePremium: b.callLTP + b.putLTP,
		}
	}

	return profile, nil
}

// NearestStrikeIndex returns the index of the strike closest to spot, the lower
// strike winning ties, or -1 for an empty sequence.
func NearestStrikeIndex(strikes []models.StrikeExposure, spot float64) int {
	return nearestIndex(strikes, spot)
}

func nearestIndex(strikes []models.StrikeExposure, spot float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, s := range strikes {
		if d := math.Abs(s.Strike - spot); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Window returns the contracts whose strike lies within spot ± strikesRange*step.
// A non-positive range or step returns every contract.
func Window(contracts []models.OptionContract, spot float64, strikesRange int, step float64) []models.OptionContract {
	if strikesRange <= 0 || step <= 0 {
		return contracts
	}
	lo := spot - float64(strikesRange)*step
	hi := spot + float64(strikesRange)*step

	out := make([]models.OptionContract, 0, len(contracts))
	for _, c := range contracts {
		if c.Strike >= lo && c.Strike <= hi {
			out = append(out, c)
		}
	}
	return out
}

func positiveFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}
