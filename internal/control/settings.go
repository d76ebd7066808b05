// Package control implements the interval-paced scheduler that couples
// the transfer engine and the display formatter with signal-driven
// pause/resize/termination, terminal foreground detection, and the
// store-and-forward two-pass mode. This is C5 in spec.md §4.3.
package control

import (
	"time"

	"github.com/AD-iOS/pv/internal/display"
)

// Settings is the "Control settings" record from spec.md §3: set once at
// startup, then changed only by a remote-control overlay (C7, applied by
// RemoteReceiver) and by terminal-resize handling in the Loop.
type Settings struct {
	Inputs []string // "-" means stdin
	Output string   // "" means stdout

	Size int64 // <=0 means unknown

	Interval     time.Duration
	DelayStart   time.Duration
	BufferSize   int
	RateLimit    int64 // bytes/sec, 0 = unlimited
	AverageWindow time.Duration

	SkipErrors    int
	SkipBlockSize int64

	LineMode       bool
	NullTerminated bool
	DecimalUnits   bool
	ReportBits     bool
	SparseOutput   bool
	DiscardInput   bool
	SyncAfterWrite bool
	DirectIO       bool
	StopAtSize     bool
	WaitForFirst   bool
	Numeric        bool
	Cursor         bool
	ForceNotTTY    bool
	NoSplice       bool

	Width, Height             int
	WidthManual, HeightManual bool

	Name   string
	Format string

	BarStyle string

	ExtraDisplay     display.ExtraKind
	ExtraFormat      string

	StoreAndForward string // "" disabled, "-" means a fresh temp file

	RemotePID int
	QueryPID  int

	Stats bool
}

// DefaultBufferSize is used when no explicit buffer size is given and the
// input's stat block size can't be read, per spec.md §4.3.
const DefaultBufferSize = 400 * 1024

// MaxAutoBufferSize caps the auto-picked buffer size from an input's
// stat block size, per spec.md §4.3.
const MaxAutoBufferSize = 512 * 1024

// PickBufferSize implements "optionally auto-pick an initial buffer size
// from the input's stat block size, clamped to 512 KiB, else 400 KiB."
func PickBufferSize(statBlockSize int64) int {
	if statBlockSize <= 0 {
		return DefaultBufferSize
	}
	if statBlockSize > MaxAutoBufferSize {
		return MaxAutoBufferSize
	}
	return int(statBlockSize)
}
