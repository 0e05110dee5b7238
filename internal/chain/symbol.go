package chain

import (
	"regexp"
	"strings"
	"unicode"

	apperrors "gex-engine/internal/errors"
)

// Underlying symbol: uppercase letters, digits, & and -.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9&-]{1,20}$`)

// SanitizeSymbol uppercases a symbol and strips characters outside the
// exchange symbol alphabet.
func SanitizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	var result strings.Builder
	for _, r := range symbol {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '&' || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// ValidateSymbol checks an already sanitized symbol. An empty symbol is allowed.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return nil
	}
	if len(symbol) > 20 {
		return apperrors.NewValidationError("symbol", symbol, "symbol too long (max 20 characters)")
	}
	if !symbolPattern.MatchString(symbol) {
		return apperrors.NewValidationError("symbol", symbol, "invalid symbol format")
	}
	return nil
}
