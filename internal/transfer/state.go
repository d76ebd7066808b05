// Package transfer implements the rate-limited, buffered reader/writer at
// the heart of the pump: a zero-copy fast path, partial-failure recovery
// (skip unreadable regions), sparse-output elision, line-boundary
// accounting, and pipe-consumption tracking. This is C3 in spec.md §4.1.
package transfer

import (
	"time"
)

// LinePositionRingCapacity bounds the line-position ring per spec.md §3.
const LinePositionRingCapacity = 100000

// LineRing is a fixed-capacity ring buffer of output byte offsets at
// which a line separator was written. Oldest entries are overwritten once
// the ring is full, matching the "Circular line-position buffer" note in
// spec.md §9.
type LineRing struct {
	buf  [LinePositionRingCapacity]int64
	head int // index of the oldest live entry
	len  int
}

// Push records a new line-ending offset, overwriting the oldest entry if
// the ring is full.
func (r *LineRing) Push(offset int64) {
	idx := (r.head + r.len) % LinePositionRingCapacity
	r.buf[idx] = offset
	if r.len < LinePositionRingCapacity {
		r.len++
	} else {
		r.head = (r.head + 1) % LinePositionRingCapacity
	}
}

// Len reports how many positions are currently held.
func (r *LineRing) Len() int { return r.len }

// At returns the i-th oldest surviving entry (0 is the oldest).
func (r *LineRing) At(i int) int64 {
	return r.buf[(r.head+i)%LinePositionRingCapacity]
}

// CountAbove walks the ring backwards (most recent first) and counts how
// many recorded positions are strictly greater than threshold, stopping
// early once it finds one that isn't — positions are monotonically
// increasing, so this is a reverse linear scan bounded by the answer, not
// by ring capacity.
func (r *LineRing) CountAbove(threshold int64) int {
	count := 0
	for i := r.len - 1; i >= 0; i-- {
		if r.At(i) > threshold {
			count++
		} else {
			break
		}
	}
	return count
}

// HistoryEntry is one (elapsed, cumulative transferred) sample in the
// sliding average-rate history ring (spec.md §3, "History ring").
type HistoryEntry struct {
	Elapsed     time.Duration
	Transferred int64
}

const historyCapacity = 4096

// HistoryRing is a fixed-capacity ring of (elapsed, transferred) samples
// used to compute the average rate over a sliding window.
type HistoryRing struct {
	buf  [historyCapacity]HistoryEntry
	head int
	len  int
}

func (h *HistoryRing) Push(e HistoryEntry) {
	idx := (h.head + h.len) % historyCapacity
	h.buf[idx] = e
	if h.len < historyCapacity {
		h.len++
	} else {
		h.head = (h.head + 1) % historyCapacity
	}
}

func (h *HistoryRing) Len() int { return h.len }

func (h *HistoryRing) At(i int) HistoryEntry {
	return h.buf[(h.head+i)%historyCapacity]
}

// Oldest returns the oldest surviving sample. If head == first (the ring
// has never wrapped and holds at most one sample), the caller should fall
// back to the latest instantaneous rate per spec.md §3's invariant.
func (h *HistoryRing) Oldest() (HistoryEntry, bool) {
	if h.len == 0 {
		return HistoryEntry{}, false
	}
	return h.At(0), true
}

func (h *HistoryRing) Newest() (HistoryEntry, bool) {
	if h.len == 0 {
		return HistoryEntry{}, false
	}
	return h.At(h.len - 1), true
}

// State holds the C3 transfer state described in spec.md §3: buffer
// cursors, cumulative counters, error bookkeeping, and the line ring.
type State struct {
	Buffer      []byte
	ReadCursor  int
	WriteCursor int

	LastWriteCount int64

	CumulativeRead    int64
	CumulativeWritten int64 // bytes, in line mode too

	UnreadInPipe int64 // bytes written but not yet consumed downstream

	ConsecutiveReadErrors int
	LastReadFd            int

	SpliceDisabled map[int]bool // keyed by input fd; sticky once set

	OutputNotSeekable bool

	Lines LineRing

	LastEmittedOffset int64

	// consecutiveErrorsOnCurrentFd tracks the adaptive skip schedule's
	// error counter (spec.md §4.1's error-skip protocol), reset whenever
	// LastReadFd changes.
	consecutiveErrorsOnCurrentFd int

	// nextLineScratch accumulates bytes since the last separator, capped
	// at 1023 bytes per spec.md §3; flushed into PreviousLine on match.
	nextLineScratch []byte
	PreviousLine    []byte
}

// NewState allocates transfer state with no buffer; the buffer is
// allocated lazily on first use by EnsureBuffer so its alignment can
// depend on the input/output's reported transfer alignment.
func NewState() *State {
	return &State{
		SpliceDisabled: make(map[int]bool),
		LastReadFd:     -1,
	}
}

// ResetErrorCounterIfFdChanged implements the "last-read fd id (for
// error-counter reset on fd change)" rule from spec.md §3.
func (s *State) ResetErrorCounterIfFdChanged(fd int) {
	if fd != s.LastReadFd {
		s.consecutiveErrorsOnCurrentFd = 0
		s.LastReadFd = fd
	}
}

// BumpErrorCounter returns the new consecutive-error count for the
// current fd, used to drive the adaptive skip-block schedule.
func (s *State) BumpErrorCounter() int {
	s.consecutiveErrorsOnCurrentFd++
	return s.consecutiveErrorsOnCurrentFd
}

func (s *State) ResetErrorCounter() {
	s.consecutiveErrorsOnCurrentFd = 0
}

// CompactOrReset implements the "after writing, if the write cursor has
// caught up to the read cursor, reset both to 0; otherwise compact" rule
// from spec.md §4.1.
func (s *State) CompactOrReset() {
	if s.WriteCursor >= s.ReadCursor {
		s.WriteCursor = 0
		s.ReadCursor = 0
		return
	}
	if s.WriteCursor == 0 {
		return
	}
	n := copy(s.Buffer, s.Buffer[s.WriteCursor:s.ReadCursor])
	s.ReadCursor = n
	s.WriteCursor = 0
}

// PendingWriteSlice is the portion of the buffer not yet written.
func (s *State) PendingWriteSlice() []byte {
	return s.Buffer[s.WriteCursor:s.ReadCursor]
}

// ReserveRead returns the writable tail of the buffer available for the
// next read, bounded by allowed (0 meaning "no extra bound").
func (s *State) ReserveRead(allowed int64) []byte {
	space := s.Buffer[s.ReadCursor:]
	if allowed > 0 && int64(len(space)) > allowed {
		space = space[:allowed]
	}
	return space
}

// CommitRead advances the read cursor after n bytes have landed in the
// slice returned by ReserveRead.
func (s *State) CommitRead(n int) {
	s.ReadCursor += n
	s.CumulativeRead += int64(n)
}

// AdvanceWrite advances the write cursor after n bytes of the pending
// slice have been written (or elided, in sparse mode).
func (s *State) AdvanceWrite(n int) {
	s.WriteCursor += n
}
