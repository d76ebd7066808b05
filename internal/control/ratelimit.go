package control

import "time"

// bucketGranularity matches spec.md §4.3 step 4's "each 100 ms" cadence.
const bucketGranularity = 100 * time.Millisecond

// burstMultiplier caps the bucket at 5x the configured rate, per
// spec.md §4.3: "capped at 5 x rate (burst window)".
const burstMultiplier = 5

// LeakyBucket implements the per-tick "allowed" byte budget computation
// from spec.md §4.3 step 4: target += rate/(1e9/granularity_ns) each
// 100ms, capped at 5x rate.
type LeakyBucket struct {
	rate   int64 // bytes/sec; 0 = unlimited
	target float64
	last   time.Time
}

// NewLeakyBucket returns a bucket with no accumulated budget; the first
// Allowed call seeds `last` so the first interval doesn't award a huge
// burst.
func NewLeakyBucket(rate int64) *LeakyBucket {
	return &LeakyBucket{rate: rate, last: time.Time{}}
}

// Allowed returns the byte budget available right now, accumulating
// `rate` bytes per second of wall-clock elapsed since the last call, in
// 100ms-granularity steps, capped at burstMultiplier x rate. Returns 0
// (meaning "unbounded beyond rate/buffer", per spec.md §4.1) when no
// rate limit is configured.
func (b *LeakyBucket) Allowed(now time.Time) int64 {
	if b.rate <= 0 {
		return 0
	}
	if b.last.IsZero() {
		b.last = now
	}
	elapsed := now.Sub(b.last)
	steps := float64(elapsed / bucketGranularity)
	if steps > 0 {
		b.target += steps * float64(bucketGranularity) / float64(time.Second) * float64(b.rate)
		b.last = b.last.Add(time.Duration(steps) * bucketGranularity)
	}
	burstCap := float64(burstMultiplier * b.rate)
	if b.target > burstCap {
		b.target = burstCap
	}
	if b.target < 1 {
		return 0
	}
	return int64(b.target)
}

// Spend deducts n bytes from the accumulated budget after a tick
// actually consumes them.
func (b *LeakyBucket) Spend(n int64) {
	b.target -= float64(n)
	if b.target < 0 {
		b.target = 0
	}
}
