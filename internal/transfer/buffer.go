package transfer

import (
	"os"

	"golang.org/x/sys/unix"
)

const defaultPageSize = 4096

// xferAlign reports the I/O alignment a file descriptor wants for
// O_DIRECT transfers, analogous to fpathconf(_PC_REC_XFER_ALIGN) in the
// original. Go exposes no such fpathconf wrapper, so this falls back to
// the host page size (defaultPageSize if that is unavailable), which
// covers the common case; block devices with a larger physical sector
// size can reject O_DIRECT writes, and writeChunk then returns that
// write error as fatal.
func xferAlign(f *os.File) int {
	if ps := os.Getpagesize(); ps > 0 {
		return ps
	}
	return defaultPageSize
}

// alignedAlloc returns a byte slice of the requested size, over-allocated
// and sliced so its start address is a multiple of align. Falls back to a
// plain make() if asked to align to a trivial boundary.
func alignedAlloc(size, align int) []byte {
	if align <= 1 {
		return make([]byte, size)
	}
	buf := make([]byte, size+align)
	addr := uintptrOf(buf)
	offset := int(addr % uintptr(align))
	if offset == 0 {
		return buf[:size]
	}
	start := align - offset
	return buf[start : start+size]
}

// EnsureBuffer allocates the transfer buffer on first use, aligned to
// max(page size, input/output transfer alignment) so O_DIRECT works, per
// spec.md §4.1's "Buffer discipline". Safe to call every tick; it is a
// no-op once the buffer matches the requested size.
func (s *State) EnsureBuffer(size int, in, out *os.File) {
	if len(s.Buffer) == size && s.Buffer != nil {
		return
	}
	align := xferAlign(in)
	if a := xferAlign(out); a > align {
		align = a
	}
	newBuf := alignedAlloc(size, align)
	if s.Buffer != nil {
		n := copy(newBuf, s.Buffer[s.WriteCursor:s.ReadCursor])
		s.ReadCursor = n
		s.WriteCursor = 0
	}
	s.Buffer = newBuf
}

// unreadInPipe queries FIONREAD on a pipe output fd to learn how many
// bytes the downstream consumer has not yet read, implementing the
// "Downstream-consumption tracking" rule of spec.md §4.1.
func unreadInPipe(fd int) (int64, error) {
	n, err := unix.IoctlGetInt(fd, unix.FIONREAD)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
