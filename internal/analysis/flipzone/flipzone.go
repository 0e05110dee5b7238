// Package flipzone locates the zero-gamma level of an exposure profile.
package flipzone

import (
	"gex-engine/internal/models"
)

// Detect walks the strikes in ascending order, accumulating net GEX, and
// returns the price at which the cumulative curve changes sign.
//
// The first crossing is reported as the zero-gamma level; every crossing is
// listed in Crossings. Points where the cumulative value is exactly zero do not
// count on their own: when the curve changes sign across a run of such points,
// the first strike of the run is the crossing; when it returns to the same
// side, or never leaves zero, there is none. When the curve never changes sign,
// Found is false.
//
// strikes must be sorted ascending, as returned by the exposure aggregator.
func Detect(strikes []models.StrikeExposure) models.FlipZone {
	zone := models.FlipZone{
		Points: make([]models.CumulativePoint, len(strikes)),
		Zones:  StrikeFlips(strikes),
	}

	var cum float64
	for i, s := range strikes {
		cum += s.NetGEX()
		zone.Points[i] = models.CumulativePoint{Strike: s.Strike, CumulativeGEX: cum}
	}

	// last is the index of the most recent non-zero point, -1 before the first.
	last := -1
	for i, p := range zone.Points {
		if p.CumulativeGEX == 0 {
			continue
		}
		if last >= 0 && (p.CumulativeGEX > 0) != (zone.Points[last].CumulativeGEX > 0) {
			if last+1 < i {
				zone.Crossings = append(zone.Crossings, zone.Points[last+1].Strike)
			} else {
				zone.Crossings = append(zone.Crossings, Interpolate(zone.Points[last], p))
			}
		}
		last = i
	}

	if len(zone.Crossings) > 0 {
		zone.Found = true
		zone.ZeroGamma = zone.Crossings[0]
	}

	return zone
}

// Interpolate returns the strike at which the straight line between two
// cumulative points reaches zero.
func Interpolate(a, b models.CumulativePoint) float64 {
	return a.Strike + (b.Strike-a.Strike)*(0-a.CumulativeGEX)/(b.CumulativeGEX-a.CumulativeGEX)
}

// StrikeFlips returns the neighbouring strike pairs whose per-strike net GEX
// changes strict sign.
func StrikeFlips(strikes []models.StrikeExposure) []models.StrikeFlip {
	var flips []models.StrikeFlip
	for i := 0; i+1 < len(strikes); i++ {
		cur, next := strikes[i].NetGEX(), strikes[i+1].NetGEX()
		if (cur > 0 && next < 0) || (cur < 0 && next > 0) {
			flips = append(flips, models.StrikeFlip{
				LowerStrike: strikes[i].Strike,
				UpperStrike: strikes[i+1].Strike,
			})
		}
	}
	return flips
}
