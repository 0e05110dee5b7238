package cli

import (
	"time"

	"gex-engine/pkg/utils"
)

// FormatPrice formats a price or strike with Indian grouping.
func FormatPrice(price float64) string {
	return utils.FormatIndianNumber(price, 2)
}

// FormatDate formats a time as a date in IST.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(utils.IndiaLocation).Format("02-Jan-2006")
}

// FormatDateTime formats a time in IST.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(utils.IndiaLocation).Format("02-Jan-2006 15:04:05")
}

func formatExposure(v float64) string {
	return utils.FormatCompact(v)
}
