// Package sig maps OS signals to a small set of flag bits and counters the
// main loop polls at well-defined points. Handlers never touch anything
// beyond this struct: no pointer indirection, no singleton state object,
// per spec.md §9's "replace global mutable state" redesign note.
package sig

import "sync/atomic"

// Flags is the process-wide set of signal-driven bits. Every field is
// accessed only through atomic operations so handlers (which may run at
// any suspension point, per spec.md §5) never race with the main loop.
type Flags struct {
	reparseDisplay    atomic.Bool
	terminalResized   atomic.Bool
	triggerExit       atomic.Bool
	suspendStderr     atomic.Bool
	skipNextSigCont   atomic.Int32
	pipeClosed        atomic.Bool
	clearTostopOnExit atomic.Bool
	rxUsrA            atomic.Bool
	rxUsrB            atomic.Bool
	senderPidA        atomic.Int32
	senderPidB        atomic.Int32

	stoppageStart  atomic.Int64 // unix nanos; 0 means "not stopped"
	totalStoppage  atomic.Int64 // nanoseconds accumulated across all stops
}

// New returns a zeroed Flags ready for signal handlers to write to.
func New() *Flags { return &Flags{} }

func (f *Flags) SetReparseDisplay()   { f.reparseDisplay.Store(true) }
func (f *Flags) TakeReparseDisplay() bool {
	return f.reparseDisplay.Swap(false)
}

func (f *Flags) SetTerminalResized()   { f.terminalResized.Store(true) }
func (f *Flags) TakeTerminalResized() bool {
	return f.terminalResized.Swap(false)
}

func (f *Flags) SetTriggerExit()    { f.triggerExit.Store(true) }
func (f *Flags) TriggerExit() bool  { return f.triggerExit.Load() }

func (f *Flags) SetSuspendStderr(v bool) { f.suspendStderr.Store(v) }
func (f *Flags) SuspendStderr() bool     { return f.suspendStderr.Load() }

// BumpSkipNextSigCont increments the "we raised a SIGCONT ourselves,
// ignore the next one" counter. Per the Open Question in spec.md §9 we
// saturate at 0 on the decrement side rather than letting it underrun
// (SPEC_FULL.md §11 records this choice).
func (f *Flags) BumpSkipNextSigCont() { f.skipNextSigCont.Add(1) }

// ConsumeSkipNextSigCont reports whether an incoming SIGCONT should be
// swallowed (because we raised it ourselves via a prior SIGTTOU), and
// decrements the counter without going negative.
func (f *Flags) ConsumeSkipNextSigCont() bool {
	for {
		cur := f.skipNextSigCont.Load()
		if cur <= 0 {
			return false
		}
		if f.skipNextSigCont.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

func (f *Flags) SetPipeClosed()   { f.pipeClosed.Store(true) }
func (f *Flags) PipeClosed() bool { return f.pipeClosed.Load() }

func (f *Flags) SetClearTostopOnExit(v bool) { f.clearTostopOnExit.Store(v) }
func (f *Flags) ClearTostopOnExit() bool     { return f.clearTostopOnExit.Load() }

// SetRxUsrA/B record that a remote-control signal arrived along with a
// sender pid. The Controller always passes 0 (Go's signal delivery
// carries no siginfo); the real sender pid travels in the control-file
// record instead.
func (f *Flags) SetRxUsrA(senderPid int) {
	f.senderPidA.Store(int32(senderPid))
	f.rxUsrA.Store(true)
}
func (f *Flags) TakeRxUsrA() (pid int, ok bool) {
	if !f.rxUsrA.Swap(false) {
		return 0, false
	}
	return int(f.senderPidA.Load()), true
}

func (f *Flags) SetRxUsrB(senderPid int) {
	f.senderPidB.Store(int32(senderPid))
	f.rxUsrB.Store(true)
}
func (f *Flags) TakeRxUsrB() (pid int, ok bool) {
	if !f.rxUsrB.Swap(false) {
		return 0, false
	}
	return int(f.senderPidB.Load()), true
}

// BeginStoppage records that the process was just suspended (SIGTSTP),
// in nanoseconds since the Unix epoch so the handler can run without
// touching a time.Time (not signal-safe to allocate on some runtimes;
// int64 keeps this lock-free).
func (f *Flags) BeginStoppage(nowUnixNano int64) {
	f.stoppageStart.Store(nowUnixNano)
}

// EndStoppage is called on SIGCONT: it adds the elapsed stoppage to the
// running total and resets the stoppage-start marker. Returns the
// duration of this stoppage in nanoseconds, or 0 if no stoppage was in
// progress.
func (f *Flags) EndStoppage(nowUnixNano int64) int64 {
	start := f.stoppageStart.Swap(0)
	if start == 0 {
		return 0
	}
	d := nowUnixNano - start
	if d < 0 {
		d = 0
	}
	f.totalStoppage.Add(d)
	return d
}

// TotalStoppageNanos returns cumulative stoppage time across the whole
// run, which the control loop subtracts from elapsed-time offsets per
// spec.md §5's ordering guarantee.
func (f *Flags) TotalStoppageNanos() int64 { return f.totalStoppage.Load() }
