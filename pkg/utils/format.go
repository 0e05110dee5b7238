// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatIndianNumber formats a number with Indian digit grouping (12,34,567.89).
func FormatIndianNumber(value float64, decimals int) string {
	negative := value < 0
	if negative {
		value = -value
	}

	str := fmt.Sprintf("%.*f", decimals, value)
	intPart, decPart, _ := strings.Cut(str, ".")

	result := groupIndian(intPart)
	if decimals > 0 {
		result += "." + decPart
	}
	if negative {
		result = "-" + result
	}
	return result
}

func groupIndian(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatQuantity formats open interest or volume with Indian grouping.
func FormatQuantity(qty int64) string {
	return FormatIndianNumber(float64(qty), 0)
}

// FormatBillions formats a number in billions, the unit exposure thresholds are quoted in.
func FormatBillions(amount float64) string {
	return fmt.Sprintf("%.2fB", amount/1e9)
}

// FormatCompact formats an exposure value in compact form (K/M/B/T).
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", amount/1e12)
	case abs >= 1e9:
		return FormatBillions(amount)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", amount/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", amount/1e3)
	}
	return fmt.Sprintf("%.2f", amount)
}

// FormatSigned prefixes positive compact values with a plus sign.
func FormatSigned(amount float64) string {
	if amount > 0 {
		return "+" + FormatCompact(amount)
	}
	return FormatCompact(amount)
}
