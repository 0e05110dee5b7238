package models

import "encoding/json"

// GreekResult holds the greeks of one contract.
type GreekResult struct {
	Delta      float64
	Gamma      float64
	Degenerate bool // greeks zeroed because T, IV or prices were unusable
}

// StrikeExposure holds the dealer exposure at a single strike.
// Call and put GEX are unsigned magnitudes; DEX values carry the delta sign.
type StrikeExposure struct {
	Strike  float64
	CallOI  int64
	PutOI   int64
	CallGEX float64
	PutGEX  float64
	CallDEX float64
	PutDEX  float64
}

// NetGEX returns call GEX minus put GEX. Positive means dealers are net long gamma.
func (e StrikeExposure) NetGEX() float64 {
	return e.CallGEX - e.PutGEX
}

// NetDEX returns call DEX plus put DEX.
func (e StrikeExposure) NetDEX() float64 {
	return e.CallDEX + e.PutDEX
}

// MarshalJSON includes the derived net values.
func (e StrikeExposure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Strike  float64 `json:"strike"`
		CallOI  int64   `json:"call_oi"`
		PutOI   int64   `json:"put_oi"`
		CallGEX float64 `json:"call_gex"`
		PutGEX  float64 `json:"put_gex"`
		NetGEX  float64 `json:"net_gex"`
		CallDEX float64 `json:"call_dex"`
		PutDEX  float64 `json:"put_dex"`
		NetDEX  float64 `json:"net_dex"`
	}{
		Strike:  e.Strike,
		CallOI:  e.CallOI,
		PutOI:   e.PutOI,
		CallGEX: e.CallGEX,
		PutGEX:  e.PutGEX,
		NetGEX:  e.NetGEX(),
		CallDEX: e.CallDEX,
		PutDEX:  e.PutDEX,
		NetDEX:  e.NetDEX(),
	})
}

// ExposureTotals holds chain-level sums.
type ExposureTotals struct {
	CallGEX float64 `json:"call_gex"`
	PutGEX  float64 `json:"put_gex"`
	NetGEX  float64 `json:"net_gex"`
	NetDEX  float64 `json:"net_dex"`
}

// ATMInfo describes the strike nearest to spot.
type ATMInfo struct {
	Strike          float64 `json:"strike"`
	StraddlePremium float64 `json:"straddle_premium"`
}

// ExposureProfile is the aggregated exposure of a chain, strikes ascending.
type ExposureProfile struct {
	Strikes         []StrikeExposure `json:"strikes"`
	Totals          ExposureTotals   `json:"totals"`
	HedgingPressure []float64        `json:"hedging_pressure"` // percent, aligned with Strikes
	ATM             *ATMInfo         `json:"atm,omitempty"`
}

// IsEmpty reports whether no strike survived aggregation.
func (p ExposureProfile) IsEmpty() bool {
	return len(p.Strikes) == 0
}

// CumulativePoint is one point of the cumulative net GEX curve.
type CumulativePoint struct {
	Strike        float64 `json:"strike"`
	CumulativeGEX float64 `json:"cumulative_gex"`
}

// StrikeFlip is a pair of neighbouring strikes whose net GEX has opposite signs.
type StrikeFlip struct {
	LowerStrike float64 `json:"lower_strike"`
	UpperStrike float64 `json:"upper_strike"`
}

// FlipZone is the zero-gamma estimate of one run.
// When Found is false there is no crossing and ZeroGamma carries no meaning.
type FlipZone struct {
	Found     bool              `json:"found"`
	ZeroGamma float64           `json:"zero_gamma"`
	Crossings []float64         `json:"crossings,omitempty"`
	Points    []CumulativePoint `json:"points"`
	Zones     []StrikeFlip      `json:"zones,omitempty"`
}

// Level returns the zero-gamma price and whether one exists.
func (f FlipZone) Level() (float64, bool) {
	return f.ZeroGamma, f.Found
}
