package utils

import (
	"fmt"
	"strings"
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Market close, IST.
const (
	MarketCloseHour   = 15
	MarketCloseMinute = 30
)

// dateLayouts are the date-only spellings accepted for an expiry.
var dateLayouts = []string{
	"2006-01-02",
	"02-Jan-2006",
	"02Jan2006",
	"2-Jan-2006",
	"02/01/2006",
}

// MarketClose returns the market close on the calendar day of t, in IST.
func MarketClose(t time.Time) time.Time {
	t = t.In(IndiaLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), MarketCloseHour, MarketCloseMinute, 0, 0, IndiaLocation)
}

// ParseExpiry parses an expiry timestamp. RFC 3339 values are used as-is;
// date-only values are taken at market close in IST.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty expiry")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, s, IndiaLocation); err == nil {
			return MarketClose(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised expiry %q", s)
}

// ParseTimestamp parses a snapshot timestamp: RFC 3339, or a local IST
// "2006-01-02 15:04:05".
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, IndiaLocation); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
