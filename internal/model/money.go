package model

import (
	"math"
	"strconv"
	"strings"
)

// ParseCents converts a decimal amount in major units to cents.
// Used by the CLI, where prices are typed as "12.99".
// Examples: "99.00" → 9900, "1234.56" → 123456, "" → 0
func ParseCents(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 100))
}

// FormatCents renders cents as a major-unit decimal string with two places.
// Examples: 9900 → "99.00", 5 → "0.05", -150 → "-1.50"
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) < 2 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + frac
}

// CentsToMajor converts cents to a major-unit float for display totals.
func CentsToMajor(cents int64) float64 {
	return float64(cents) / 100
}
