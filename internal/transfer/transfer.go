package transfer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Options configures one Transfer call's behavior, mirroring the
// relevant subset of control settings from spec.md §3.
type Options struct {
	LineMode         bool
	NullTerminated   bool
	SkipErrors       int  // 0 off, 1 skip with one warning per error run, 2+ also report each skip
	SkipBlockSize    int64
	SparseOutput     bool
	DiscardInput     bool
	SyncAfterWrite   bool
	NoSplice         bool
	OutputIsPipe     bool
	OutputSeekable   bool
}

const (
	readRetryBudget  = 90 * time.Millisecond
	readPerCallCap   = 512 * 1024
	writePerCallCap  = 512 * 1024
	writeRetryBudget = 900 * time.Millisecond
	transientSleep   = 10 * time.Millisecond
)

// WarnFunc is called when the error-skip protocol warns (see
// skipWithZeroFill) or when a fatal error must be surfaced; it mirrors spec.md §7's
// "single line to stderr, program-name prefixed" contract. The caller
// supplies the formatting so this package stays free of presentation
// concerns.
type WarnFunc func(format string, args ...any)

// Result carries the per-tick outcome of Transfer.
type Result struct {
	Written     int64 // bytes (or lines, in line mode) written this tick
	LinesWritten int64
	EOFIn       bool
	EOFOut      bool
	PipeClosed  bool // output end hit EPIPE; caller should mark pipe-closed

	SpliceDisabledThisTick bool  // splice just got turned off for inFd (EINVAL)
	ErrorBytesSkipped      int64 // bytes skipped by the error-skip path this tick
}

// Transfer implements the C3 public contract from spec.md §4.1:
// transfer(fd_in, &eof_in, &eof_out, allowed) -> written.
//
// inFd/outFd are the raw descriptors backing in/out (needed for splice
// and FIONREAD). out may be nil: splice and sparse-seek are then skipped
// and writes are counted without being performed. in must not be nil,
// since reads go through it.
func Transfer(s *State, opts Options, in *os.File, inFd int, out *os.File, outFd int, allowed int64, warn WarnFunc) (Result, error) {
	var res Result

	s.ResetErrorCounterIfFdChanged(inFd)

	deadline := time.Now().Add(readRetryBudget)
	readSomething := false

	for !readSomething && time.Now().Before(deadline) {
		if s.ReadCursor >= len(s.Buffer) {
			break // buffer full; proceed to write what we have
		}

		useSplice := !opts.LineMode && !opts.NoSplice && !s.SpliceDisabled[inFd] && s.WriteCursor == s.ReadCursor
		if useSplice && out != nil {
			n, spliceErr := trySplice(inFd, outFd, allowed, len(s.Buffer))
			if spliceErr == nil {
				if n == 0 {
					res.EOFIn = true
					if s.WriteCursor >= s.ReadCursor {
						res.EOFOut = true
					}
					break
				}
				s.CumulativeRead += n
				s.CumulativeWritten += n
				res.Written += n
				readSomething = true
				s.ResetErrorCounter()
				continue
			}
			if errors.Is(spliceErr, unix.EINVAL) {
				s.SpliceDisabled[inFd] = true
				res.SpliceDisabledThisTick = true
				// fall through to ordinary read below
			} else if errors.Is(spliceErr, unix.EAGAIN) || errors.Is(spliceErr, unix.EINTR) {
				return res, nil
			} else {
				return res, fmt.Errorf("splice: %w", spliceErr)
			}
		}

		space := s.ReserveRead(allowed)
		if len(space) == 0 {
			break
		}
		if len(space) > readPerCallCap {
			space = space[:readPerCallCap]
		}

		n, err := in.Read(space)
		if n > 0 {
			s.CommitRead(n)
			readSomething = true
			if err == nil {
				s.ResetErrorCounter()
			}
		}
		if err != nil {
			if errors.Is(err, os.ErrClosed) || isTransient(err) {
				return res, nil
			}
			if n == 0 {
				if isEOF(err) {
					res.EOFIn = true
					if s.WriteCursor >= s.ReadCursor {
						res.EOFOut = true
					}
					break
				}
				if opts.SkipErrors == 0 {
					if warn != nil {
						warn("read error: %v", err)
					}
					res.EOFIn = true
					return res, err
				}
				skipped, skipErr := skipWithZeroFill(s, in, opts, warn)
				res.ErrorBytesSkipped += skipped
				if skipErr != nil {
					res.EOFIn = true
					break
				}
				if skipped > 0 {
					readSomething = true
				}
			}
			break
		}
	}

	pending := s.PendingWriteSlice()
	if len(pending) > 0 {
		written, lines, werr := writeChunk(s, opts, out, outFd, pending, warn)
		res.Written += written
		res.LinesWritten += lines
		if werr != nil {
			if errors.Is(werr, unix.EPIPE) {
				// spec.md §4.1 write-path step 5: treat EPIPE as orderly
				// termination, not a fatal error.
				res.EOFIn = true
				res.EOFOut = true
				res.PipeClosed = true
				return res, nil
			}
			return res, werr
		}
	}

	s.CompactOrReset()

	if opts.OutputIsPipe && outFd >= 0 {
		unread, err := unreadInPipe(outFd)
		if err == nil {
			s.UnreadInPipe = unread
		}
	}

	return res, nil
}

func isTransient(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// trySplice attempts the zero-copy fast path via splice(2), bounded by
// min(remaining buffer, allowed, a reasonable chunk size). Returns the
// byte count transferred (0 at EOF) and any error, including EINVAL which
// the caller uses to permanently disable splice for this input fd.
func trySplice(inFd, outFd int, allowed int64, bufRemaining int) (int64, error) {
	if outFd < 0 {
		return 0, unix.EINVAL
	}
	want := int64(bufRemaining)
	if allowed > 0 && allowed < want {
		want = allowed
	}
	if want <= 0 {
		want = readPerCallCap
	}
	if want > readPerCallCap {
		want = readPerCallCap
	}
	n, err := unix.Splice(inFd, nil, outFd, nil, int(want), unix.SPLICE_F_MOVE|unix.SPLICE_F_NONBLOCK)
	if err != nil {
		return 0, err
	}
	return n, nil
}
