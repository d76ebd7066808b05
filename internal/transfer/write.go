package transfer

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// writeChunk implements spec.md §4.1's write path: discard-input,
// sparse-output elision, a write loop that retries EINTR/EAGAIN until
// writeRetryBudget runs out, optional fsync (os.File.Sync), and
// EPIPE-as-orderly-termination. It returns bytes written
// (or lines, when opts.LineMode) and any fatal error.
func writeChunk(s *State, opts Options, out *os.File, outFd int, pending []byte, warn WarnFunc) (written int64, lines int64, err error) {
	if opts.DiscardInput {
		n := len(pending)
		s.AdvanceWrite(n)
		s.CumulativeWritten += int64(n)
		lines = accountLines(s, opts, pending)
		if opts.LineMode {
			return lines, lines, nil
		}
		return int64(n), lines, nil
	}

	if opts.SparseOutput && opts.OutputSeekable && allZero(pending) {
		n := len(pending)
		if out != nil {
			if _, serr := out.Seek(int64(n), io.SeekCurrent); serr != nil {
				s.OutputNotSeekable = true
			}
		}
		s.AdvanceWrite(n)
		s.CumulativeWritten += int64(n)
		lines = accountLines(s, opts, pending)
		if opts.LineMode {
			return lines, lines, nil
		}
		return int64(n), lines, nil
	}

	deadline := time.Now().Add(writeRetryBudget)
	offset := 0
	for offset < len(pending) {
		chunk := pending[offset:]
		if len(chunk) > writePerCallCap {
			chunk = chunk[:writePerCallCap]
		}
		n, werr := writeWithAlarm(out, chunk)
		if n > 0 {
			offset += n
			s.AdvanceWrite(n)
			s.CumulativeWritten += int64(n)
		}
		if werr != nil {
			if errors.Is(werr, unix.EPIPE) {
				return accountWrittenSoFar(s, opts, pending[:offset], offset), 0, werr
			}
			if errors.Is(werr, unix.EINTR) || errors.Is(werr, unix.EAGAIN) {
				if time.Now().After(deadline) {
					break
				}
				continue
			}
			return accountWrittenSoFar(s, opts, pending[:offset], offset), 0, werr
		}
		if time.Now().After(deadline) {
			break
		}
	}

	if opts.SyncAfterWrite && out != nil {
		if serr := out.Sync(); serr != nil && errors.Is(serr, unix.EIO) {
			return accountWrittenSoFar(s, opts, pending[:offset], offset), 0, serr
		}
	}

	lines = accountLines(s, opts, pending[:offset])
	if opts.LineMode {
		return lines, lines, nil
	}
	return int64(offset), lines, nil
}

func accountWrittenSoFar(s *State, opts Options, written []byte, n int) int64 {
	lines := accountLines(s, opts, written)
	if opts.LineMode {
		return lines
	}
	return int64(n)
}

// writeWithAlarm performs one write of chunk to out; with a nil out it
// reports the whole chunk as written. It arms no timer, so a write that
// blocks is not interrupted; the only bound on retries is
// writeRetryBudget in writeChunk.
func writeWithAlarm(out *os.File, chunk []byte) (int, error) {
	if out == nil {
		return len(chunk), nil
	}
	return out.Write(chunk)
}

func allZero(b []byte) bool {
	return bytes.IndexFunc(b, func(r rune) bool { return r != 0 }) == -1 && len(b) > 0
}

const lineScratchCap = 1023

// accountLines scans bytes just written for the line separator, pushing
// each hit's absolute output offset into the line ring, and maintaining
// the rolling "next line" scratch buffer per spec.md §4.1's line
// accounting rules. Returns the number of separators found.
func accountLines(s *State, opts Options, chunk []byte) int64 {
	sep := byte('\n')
	if opts.NullTerminated {
		sep = 0
	}
	var found int64
	base := s.LastEmittedOffset
	for i, b := range chunk {
		s.nextLineScratch = append(s.nextLineScratch, b)
		if len(s.nextLineScratch) > lineScratchCap {
			s.nextLineScratch = s.nextLineScratch[len(s.nextLineScratch)-lineScratchCap:]
		}
		if b == sep {
			offset := base + int64(i) + 1
			s.Lines.Push(offset)
			found++
			s.PreviousLine = append(s.PreviousLine[:0], s.nextLineScratch[:len(s.nextLineScratch)-1]...)
			s.nextLineScratch = s.nextLineScratch[:0]
		}
	}
	s.LastEmittedOffset = base + int64(len(chunk))
	return found
}
