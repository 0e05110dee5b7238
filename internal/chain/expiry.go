package chain

import (
	"time"
)

const daysPerYear = 365.0

// TimeToExpiry returns the time from timestamp to expiry in years.
// When minDays is positive the result is floored at minDays. A negative result
// is returned as-is; the greeks treat it as an expired contract.
func TimeToExpiry(timestamp, expiry time.Time, minDays float64) float64 {
	days := expiry.Sub(timestamp).Hours() / 24
	if minDays > 0 && days < minDays {
		days = minDays
	}
	return days / daysPerYear
}
