// Package numeric holds the elapsed-time and number utilities shared by the
// transfer engine, the display formatter, and the control loop: monotonic
// clock reads, interval arithmetic, string-to-size parsing, and SI-prefix
// style rendering.
package numeric

import (
	"strings"
)

// ParseSize interprets a string like "4M", "512b", "1.5G" or a bare integer
// as a byte count. Suffixes are binary multiples (1024-based) unless
// decimalUnits is true, in which case they are 1000-based. A leading run of
// non-digit characters is skipped, matching the lenient grammar of the
// original size parser. Returns 0 if no digits are found.
func ParseSize(s string, decimalUnits bool) int64 {
	i := 0
	for i < len(s) && !isDigit(s[i]) {
		i++
	}

	var integral int64
	for i < len(s) && isDigit(s[i]) {
		integral = integral*10 + int64(s[i]-'0')
		i++
	}

	var fractional int64
	fractionalDivisor := int64(1)
	if i < len(s) && (s[i] == '.' || s[i] == ',') {
		i++
		for i < len(s) && isDigit(s[i]) {
			if fractionalDivisor < 10000 {
				fractional = fractional*10 + int64(s[i]-'0')
				fractionalDivisor *= 10
			}
			i++
		}
	}

	base := int64(1024)
	if decimalUnits {
		base = 1000
	}

	multiplier := int64(1)
	if i < len(s) {
		switch s[i] {
		case 'k', 'K':
			multiplier = base
		case 'm', 'M':
			multiplier = base * base
		case 'g', 'G':
			multiplier = base * base * base
		case 't', 'T':
			multiplier = base * base * base * base
		case 'b', 'B':
			multiplier = 1
		}
	}

	whole := integral * multiplier
	if fractional > 0 {
		whole += (fractional * multiplier) / fractionalDivisor
	}
	return whole
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ClampInterval restricts an interval in seconds to the allowed [0.1, 600]
// range demanded by the control settings in spec.md §3.
func ClampInterval(seconds float64) float64 {
	switch {
	case seconds < 0.1:
		return 0.1
	case seconds > 600:
		return 600
	default:
		return seconds
	}
}

// ClampWidth restricts a terminal width/height to [1, 999999]; 0 means
// "auto-detect" and is passed through unchanged for the caller to resolve.
func ClampWidth(n int) int {
	switch {
	case n == 0:
		return 0
	case n < 1:
		return 1
	case n > 999999:
		return 999999
	default:
		return n
	}
}

// ParseIntervalString accepts "." or "," as the decimal separator, per
// spec.md §6, and returns seconds as a float64.
func ParseIntervalString(s string) float64 {
	s = strings.ReplaceAll(s, ",", ".")
	var whole, frac int64
	var fracDiv float64 = 1
	i := 0
	neg := false
	if i < len(s) && s[i] == '-' {
		neg = true
		i++
	}
	for i < len(s) && isDigit(s[i]) {
		whole = whole*10 + int64(s[i]-'0')
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			frac = frac*10 + int64(s[i]-'0')
			fracDiv *= 10
			i++
		}
	}
	v := float64(whole) + float64(frac)/fracDiv
	if neg {
		v = -v
	}
	return v
}
