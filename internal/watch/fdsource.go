// Package watch implements the watch-fds auxiliary mode from spec.md
// §4.4: periodically scan another process's open file descriptors and
// render a multi-line dashboard of their advance. This is C6.
package watch

// FDSource is the small capability interface spec.md §9 prescribes so
// the watch loop stays agnostic of the platform-specific discovery
// mechanism: "a directory of numerically named symlinks on Linux-like
// systems, or a kernel query on Mach-like systems."
type FDSource interface {
	// ListPidFDs returns the fd numbers currently open in pid.
	ListPidFDs(pid int) ([]int, error)
	// DescribeFD reports what pid's fd refers to.
	DescribeFD(pid, fd int) (FDInfo, error)
	// ReadFDPosition reports the current read/write offset of pid's fd,
	// or ok=false if the position can't be determined (e.g. not a
	// regular file).
	ReadFDPosition(pid, fd int) (offset int64, ok bool)
}

// FDInfo describes a single discovered file descriptor target.
type FDInfo struct {
	Dev, Ino uint64
	Mode     uint32
	Size     int64
	Path     string
	IsRegularOrBlock bool
}

// Target is one {pid, fd} pair from the operator-facing watch surface;
// fd == -1 means "all of this pid's fds", rescanned every tick.
type Target struct {
	PID int
	FD  int
}
