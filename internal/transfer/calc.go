package transfer

import (
	"time"

	"github.com/AD-iOS/pv/internal/numeric"
)

// Calc holds the per-tick derived state spec.md §3 calls "Calculated
// state": instantaneous and average rate, a sliding history of samples,
// and running statistics used for the end-of-run summary line.
type Calc struct {
	History HistoryRing

	InstantaneousRate float64
	AverageRate       float64

	minRate, maxRate, sumRate, sumSqRate float64
	measurements                         int64

	AverageWindow time.Duration
}

// NewCalc returns a Calc with the given sliding-average window (spec.md
// §3's "average-rate time window").
func NewCalc(window time.Duration) *Calc {
	return &Calc{AverageWindow: window}
}

// Update records a new sample at elapsed time since start with the given
// cumulative transferred count, and recomputes instantaneous/average
// rate. deltaSeconds is the wall-clock span since the previous sample,
// used for the instantaneous rate; pass 0 for the first sample.
func (c *Calc) Update(elapsed time.Duration, transferred int64, deltaBytes int64, deltaSeconds float64) {
	if deltaSeconds > 0 {
		c.InstantaneousRate = float64(deltaBytes) / deltaSeconds
		c.recordMeasurement(c.InstantaneousRate)
	}

	c.History.Push(HistoryEntry{Elapsed: elapsed, Transferred: transferred})

	oldest, ok := c.History.Oldest()
	if !ok {
		c.AverageRate = c.InstantaneousRate
		return
	}
	if oldest.Elapsed == elapsed {
		// head == first: per spec.md §3's invariant, fall back to the
		// latest instantaneous rate.
		c.AverageRate = c.InstantaneousRate
		return
	}

	// Trim samples outside the average-rate window before computing.
	window := c.AverageWindow
	if window <= 0 {
		window = 30 * time.Second
	}
	cutoff := elapsed - window
	var base HistoryEntry
	found := false
	for i := 0; i < c.History.Len(); i++ {
		e := c.History.At(i)
		if e.Elapsed >= cutoff {
			base = e
			found = true
			break
		}
	}
	if !found {
		base = oldest
	}
	span := (elapsed - base.Elapsed).Seconds()
	if span <= 0 {
		c.AverageRate = c.InstantaneousRate
		return
	}
	c.AverageRate = float64(transferred-base.Transferred) / span
}

func (c *Calc) recordMeasurement(rate float64) {
	if c.measurements == 0 || rate < c.minRate {
		c.minRate = rate
	}
	if c.measurements == 0 || rate > c.maxRate {
		c.maxRate = rate
	}
	c.sumRate += rate
	c.sumSqRate += rate * rate
	c.measurements++
}

// Summary returns the end-of-run "rate min/avg/max/mdev" figures
// required by spec.md §4.3, and whether any measurement was ever taken.
func (c *Calc) Summary() (min, avg, max, mdev float64, measured bool) {
	if c.measurements == 0 {
		return 0, 0, 0, 0, false
	}
	avg = c.sumRate / float64(c.measurements)
	mdev = numeric.StdDev(c.sumRate, c.sumSqRate, c.measurements)
	return c.minRate, avg, c.maxRate, mdev, true
}

// Percentage computes completion percentage per spec.md §3: in [0,100]
// when size is known (size > 0), else a saw-tooth in [0,200] that cycles
// as data flows so an unknown-size transfer still animates.
func Percentage(transferred, size int64, sawtoothPhase *float64, deltaBytes int64, sawtoothPeriod int64) float64 {
	if size > 0 {
		p := float64(transferred) / float64(size) * 100
		if p > 100 {
			p = 100
		}
		if p < 0 {
			p = 0
		}
		return p
	}
	if sawtoothPeriod <= 0 {
		sawtoothPeriod = 1024 * 1024
	}
	*sawtoothPhase += float64(deltaBytes) / float64(sawtoothPeriod) * 200
	for *sawtoothPhase >= 200 {
		*sawtoothPhase -= 200
	}
	return *sawtoothPhase
}

// ETA computes time remaining given size, transferred, and the current
// average rate, clamped to spec.md §4.2's [0, 100000h] range.
func ETA(size, transferred int64, avgRate float64) time.Duration {
	if size <= 0 || avgRate <= 0 {
		return numeric.ClampETA(numeric.MaxETA)
	}
	remaining := size - transferred
	if remaining <= 0 {
		return 0
	}
	seconds := float64(remaining) / avgRate
	return numeric.ClampETA(time.Duration(seconds * float64(time.Second)))
}
