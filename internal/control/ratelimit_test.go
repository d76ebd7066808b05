package control

import (
	"testing"
	"time"
)

func TestLeakyBucketUnlimited(t *testing.T) {
	b := NewLeakyBucket(0)
	if got := b.Allowed(time.Now()); got != 0 {
		t.Errorf("Allowed() for unlimited rate = %d, want 0 (no bound)", got)
	}
}

func TestLeakyBucketAccumulatesAndCaps(t *testing.T) {
	start := time.Now()
	b := NewLeakyBucket(1000) // 1000 B/s
	_ = b.Allowed(start)
	later := start.Add(10 * time.Second)
	got := b.Allowed(later)
	want := int64(burstMultiplier * 1000)
	if got != want {
		t.Errorf("Allowed() after long idle = %d, want capped at %d", got, want)
	}
}

func TestLeakyBucketSpendReducesBudget(t *testing.T) {
	start := time.Now()
	b := NewLeakyBucket(1000)
	_ = b.Allowed(start)
	mid := start.Add(500 * time.Millisecond)
	first := b.Allowed(mid)
	if first == 0 {
		t.Fatal("expected a nonzero budget after 500ms of accumulation")
	}
	b.Spend(first)
	if got := b.Allowed(mid); got != 0 {
		t.Errorf("Allowed() immediately after spending everything = %d, want 0", got)
	}
}
