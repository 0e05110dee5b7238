package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// For any amount, Indian grouping uses a trailing group of three digits,
// groups of two before it, and preserves the value.
func TestProperty_IndianNumberFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	indianPattern := regexp.MustCompile(`^-?(\d{1,2},)*\d{1,3}\.\d{2}$`)

	properties.Property("valid grouping and value preserved", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatIndianNumber(amount, 2)
			if !indianPattern.MatchString(formatted) {
				t.Logf("invalid Indian format for %f: %s", amount, formatted)
				return false
			}
			parsed, err := strconv.ParseFloat(strings.ReplaceAll(formatted, ",", ""), 64)
			if err != nil {
				return false
			}
			return math.Abs(parsed-amount) <= 0.005+1e-9*math.Abs(amount)
		},
		gen.Float64Range(-1e13, 1e13),
	))

	properties.TestingRun(t)
}

func TestFormatIndianNumber(t *testing.T) {
	assert.Equal(t, "999", FormatIndianNumber(999, 0))
	assert.Equal(t, "1,000", FormatIndianNumber(1000, 0))
	assert.Equal(t, "12,34,567.89", FormatIndianNumber(1234567.89, 2))
	assert.Equal(t, "-1,00,000.00", FormatIndianNumber(-100000, 2))
	assert.Equal(t, "1,23,45,678", FormatQuantity(12345678))
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5e12, "1.50T"},
		{-7.25e10, "-72.50B"},
		{3.4e6, "3.40M"},
		{1234, "1.23K"},
		{12.5, "12.50"},
		{0, "0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCompact(tt.in))
	}

	assert.Equal(t, "+50.00B", FormatSigned(5e10))
	assert.Equal(t, "-50.00B", FormatSigned(-5e10))
	assert.Equal(t, "+1.25%", FormatPercent(1.25))
	assert.Equal(t, "-40.00%", FormatPercent(-40))
	assert.Equal(t, "0.00%", FormatPercent(0))
}

func TestParseExpiry(t *testing.T) {
	dateOnly := []string{"2024-11-28", "28-Nov-2024", "28NOV2024", "28/11/2024"}
	for _, s := range dateOnly {
		t.Run(s, func(t *testing.T) {
			got, err := ParseExpiry(s)
			require.NoError(t, err)

			ist := got.In(IndiaLocation)
			assert.Equal(t, 2024, ist.Year())
			assert.Equal(t, time.November, ist.Month())
			assert.Equal(t, 28, ist.Day())
			assert.Equal(t, MarketCloseHour, ist.Hour())
			assert.Equal(t, MarketCloseMinute, ist.Minute())
		})
	}

	exact, err := ParseExpiry("2024-11-28T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, exact.Equal(time.Date(2024, 11, 28, 10, 0, 0, 0, time.UTC)))

	_, err = ParseExpiry("")
	assert.Error(t, err)
	_, err = ParseExpiry("next thursday")
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-11-21 15:30:00")
	require.NoError(t, err)
	assert.True(t, ts.Equal(MarketClose(ts)))

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}
