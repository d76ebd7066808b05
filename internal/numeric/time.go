package numeric

import (
	"fmt"
	"math"
	"time"
)

// MaxETA is the ceiling spec.md §4.2 demands: ETA values never exceed
// 100000 hours.
const MaxETA = 100000 * time.Hour

// ClampETA bounds d to [0, MaxETA].
func ClampETA(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxETA {
		return MaxETA
	}
	return d
}

// FormatDuration renders a duration as "H:MM:SS", prefixing a day count
// ("Nd H:MM:SS") when the duration exceeds 24 hours.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalSeconds := int64(d / time.Second)
	days := totalSeconds / 86400
	totalSeconds -= days * 86400
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	if days > 0 {
		return fmt.Sprintf("%dd %d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// Rate renders a bytes/sec (or lines/sec) value with a SI/binary-prefixed
// unit, e.g. "1.23MiB/s" or "1.23MB/s" when decimalUnits is set.
func Rate(bytesPerSec float64, decimalUnits bool, bits bool) string {
	unit := "B"
	if bits {
		bytesPerSec *= 8
		unit = "b"
	}
	base := 1024.0
	prefixes := []string{"", "Ki", "Mi", "Gi", "Ti", "Pi"}
	if decimalUnits {
		base = 1000.0
		prefixes = []string{"", "K", "M", "G", "T", "P"}
	}
	v := bytesPerSec
	idx := 0
	for v >= base && idx < len(prefixes)-1 {
		v /= base
		idx++
	}
	return fmt.Sprintf("%.2f%s%s/s", v, prefixes[idx], unit)
}

// RateUnit returns the bare unit suffix Rate would append for a value
// small enough to need no SI/binary prefix, e.g. "B/s" or "b/s".
func RateUnit(bits bool) string {
	if bits {
		return "b/s"
	}
	return "B/s"
}

// Bytes renders a byte (or line) count the same way Rate renders a
// per-second quantity, without the trailing "/s".
func Bytes(n int64, decimalUnits bool, bits bool) string {
	v := float64(n)
	if bits {
		v *= 8
	}
	base := 1024.0
	prefixes := []string{"", "Ki", "Mi", "Gi", "Ti", "Pi"}
	if decimalUnits {
		base = 1000.0
		prefixes = []string{"", "K", "M", "G", "T", "P"}
	}
	idx := 0
	for v >= base && idx < len(prefixes)-1 {
		v /= base
		idx++
	}
	unit := "B"
	if bits {
		unit = "b"
	}
	if idx == 0 {
		return fmt.Sprintf("%.0f%s", v, unit)
	}
	return fmt.Sprintf("%.2f%s%s", v, prefixes[idx], unit)
}

// FoldSawtooth folds a calc-engine completion value into [0,100] display
// form. When size is known, p is already in [0,100]. When size is unknown,
// C3 produces a saw-tooth in [0,200]; FoldSawtooth implements the
// "if p>100 then 200-p else p" rule from spec.md §4.2.
func FoldSawtooth(p float64) float64 {
	if p > 100 {
		return 200 - p
	}
	return p
}

// Now returns a monotonic clock reading suitable for interval arithmetic.
// time.Now() already carries a monotonic reading on supported platforms;
// this wrapper exists so call sites read as deliberate monotonic reads
// rather than wall-clock reads (the finish-time display uses wall time).
func Now() time.Time {
	return time.Now()
}

// Elapsed returns the duration between a start time and now, never
// negative (a CONT-triggered rewind of start could otherwise produce a
// negative reading if callers aren't careful).
func Elapsed(start time.Time) time.Duration {
	d := time.Since(start)
	if d < 0 {
		return 0
	}
	return d
}

// StdDev returns the population standard deviation of a running
// sum/sum-of-squares/count triple, used for the end-of-run "mdev" figure.
func StdDev(sum, sumSq float64, count int64) float64 {
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
