package bias

import (
	"gex-engine/internal/analysis/exposure"
	"gex-engine/internal/models"
)

// Flow labels for near-ATM gamma exposure.
const (
	FlowStrongBullish = "STRONG_BULLISH"
	FlowVolatile      = "VOLATILE"
	FlowNeutral       = "NEUTRAL"
)

// Flow summarises net GEX and DEX over the FlowWindow strikes on each side of
// the strike nearest to spot. strikes must be sorted ascending.
func (a *Analyzer) Flow(strikes []models.StrikeExposure, spot float64) models.FlowMetrics {
	atm := exposure.NearestStrikeIndex(strikes, spot)
	if atm < 0 {
		return models.FlowMetrics{
			GEXBias:  FlowNeutral,
			DEXBias:  models.BiasNeutral,
			Combined: FlowNeutral + " + " + string(models.BiasNeutral),
		}
	}

	w := a.thresholds.FlowWindow
	start := atm - w
	if start < 0 {
		start = 0
	}
	end := atm + w + 1
	if end > len(strikes) {
		end = len(strikes)
	}
	near := strikes[start:end]

	var gex, dex float64
	for _, s := range near {
		gex += s.NetGEX()
		dex += s.NetDEX()
	}

	gexBias := FlowNeutral
	switch {
	case gex > a.thresholds.FlowGEXThreshold:
		gexBias = FlowStrongBullish
	case gex < -a.thresholds.FlowGEXThreshold:
		gexBias = FlowVolatile
	}

	dexBias := models.BiasBearish
	if dex > 0 {
		dexBias = models.BiasBullish
	}

	return models.FlowMetrics{
		Strikes:      len(near),
		GEXNearTotal: gex,
		DEXNearTotal: dex,
		GEXBias:      gexBias,
		DEXBias:      dexBias,
		Combined:     gexBias + " + " + string(dexBias),
	}
}
