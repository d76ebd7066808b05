package transfer

import (
	"io"
	"os"
)

// skipWithZeroFill implements spec.md §4.1's error-skip protocol: on an
// unrecoverable read error with skip-errors >= 1, remember the current
// offset, compute an adaptive (or fixed) skip amount, round down to a
// skip-aligned boundary, seek past it, zero-fill the skipped region into
// the buffer, and warn when the first error of a run of consecutive read
// errors is skipped. The error counter resets after every successful
// read, and no per-input record of an earlier warning is kept, so an
// input with several separate bad regions warns once per region.
func skipWithZeroFill(s *State, in *os.File, opts Options, warn WarnFunc) (int64, error) {
	origin, err := in.Seek(0, io.SeekCurrent)
	if err != nil {
		// not seekable; abandon the skip and surface EOF upstream.
		return 0, err
	}

	n := s.BumpErrorCounter()
	skipAmount := opts.SkipBlockSize
	if skipAmount <= 0 {
		skipAmount = adaptiveSkipAmount(n)
	}

	target := origin
	if skipAmount > 0 {
		target = ((origin + skipAmount) / skipAmount) * skipAmount
	}

	remaining := int64(len(s.Buffer) - s.ReadCursor)
	skip := target - origin
	if skip > remaining {
		skip = remaining
	}
	if skip <= 0 {
		skip = 1
	}

	newOffset, serr := in.Seek(origin+skip, io.SeekStart)
	if serr != nil {
		newOffset, serr = in.Seek(origin+1, io.SeekStart)
		if serr != nil {
			return 0, io.EOF
		}
		skip = 1
	}
	_ = newOffset

	space := s.Buffer[s.ReadCursor:]
	if int64(len(space)) < skip {
		skip = int64(len(space))
	}
	for i := int64(0); i < skip; i++ {
		space[i] = 0
	}
	s.CommitRead(int(skip))

	if warn != nil {
		if n == 1 {
			warn("warning: read errors detected")
		}
		if opts.SkipErrors >= 2 {
			warn("skipped %d bytes at offset %d in input", skip, origin)
		}
	}

	return skip, nil
}

// adaptiveSkipAmount implements the schedule from spec.md §4.1, for the
// 1-based consecutive-error count n: 1 byte for errors 1-4, 2 bytes for
// errors 5-9, doubling across errors 10-19 (1<<(n-10)), and 512 bytes
// from error 20 on.
func adaptiveSkipAmount(n int) int64 {
	switch {
	case n < 5:
		return 1
	case n < 10:
		return 2
	case n < 20:
		return int64(1) << uint(n-10)
	default:
		return 512
	}
}
