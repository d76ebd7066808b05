package control

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/AD-iOS/pv/internal/display"
	"github.com/AD-iOS/pv/internal/metrics"
	"github.com/AD-iOS/pv/internal/numeric"
	"github.com/AD-iOS/pv/internal/sig"
	"github.com/AD-iOS/pv/internal/transfer"
)

// Warn prints a single surfaced-error line to stderr, program-name
// prefixed, preceded by a newline if a display line has already been
// emitted, per spec.md §7.
func Warn(progName string, displayed *bool, format string, args ...any) {
	if *displayed {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", progName, fmt.Sprintf(format, args...))
}

// Loop owns one run of the control loop: the list of inputs, the shared
// transfer/calc/display state, and the signal flags it polls each tick.
type Loop struct {
	Settings *Settings
	Flags    *sig.Flags

	ProgName string

	out       *os.File
	outFd     int
	outIsPipe bool

	xfer   *transfer.State
	calc   *transfer.Calc
	disp   *display.State
	bucket  *LeakyBucket
	remote  *RemoteReceiver
	Metrics *metrics.Counters

	startTime   time.Time
	displayed   bool
	waiting     bool
	nextUpdate  time.Time
	sawtooth    float64

	lastTransferred         int64
	lastElapsedSeconds      float64
	curTransferred          int64
	curElapsed              time.Duration
	lastRenderedTransferred int64
	cumulativeLines         int64
}

// NewLoop wires up a Loop from already-resolved settings and signal
// flags. The caller is responsible for opening/closing the output file.
func NewLoop(s *Settings, flags *sig.Flags, progName string, out *os.File, outIsPipe bool) *Loop {
	l := &Loop{
		Settings:  s,
		Flags:     flags,
		ProgName:  progName,
		out:       out,
		outIsPipe: outIsPipe,
		xfer:      transfer.NewState(),
		calc:      transfer.NewCalc(s.AverageWindow),
		bucket:    NewLeakyBucket(s.RateLimit),
		remote:    NewRemoteReceiver(),
		Metrics:   metrics.New(),
	}
	if out != nil {
		l.outFd = int(out.Fd())
	} else {
		l.outFd = -1
	}
	l.disp = display.NewState(s.Format, s.Numeric, s.Cursor)
	l.disp.Width = s.Width
	l.disp.Height = s.Height
	l.waiting = s.WaitForFirst
	return l
}

// RunOne runs the control loop over a single already-open input,
// implementing the per-tick algorithm of spec.md §4.3. It returns the
// first error the transfer engine reports, or nil once output reaches
// EOF, the stop-at-size cap is reached, or exit is requested.
func (l *Loop) RunOne(in *os.File, inName string) error {
	inFd := int(in.Fd())
	l.xfer.EnsureBuffer(l.Settings.BufferSize, in, l.out)
	l.startTime = time.Now()
	l.nextUpdate = l.startTime.Add(l.Settings.DelayStart)
	displayName := l.Settings.Name
	if displayName == "" {
		displayName = inName
	}

	opts := transfer.Options{
		LineMode:       l.Settings.LineMode,
		NullTerminated: l.Settings.NullTerminated,
		SkipErrors:     l.Settings.SkipErrors,
		SkipBlockSize:  l.Settings.SkipBlockSize,
		SparseOutput:   l.Settings.SparseOutput,
		DiscardInput:   l.Settings.DiscardInput,
		SyncAfterWrite: l.Settings.SyncAfterWrite,
		NoSplice:       l.Settings.NoSplice,
		OutputIsPipe:   l.outIsPipe,
		OutputSeekable: !l.outIsPipe,
	}

	for {
		if l.Flags.TriggerExit() {
			return nil
		}

		now := time.Now()
		stoppage := time.Duration(l.Flags.TotalStoppageNanos())
		elapsed := now.Sub(l.startTime) - stoppage

		allowed := l.bucket.Allowed(now)
		if l.Settings.StopAtSize && !l.Settings.LineMode && l.Settings.Size > 0 {
			remaining := l.Settings.Size - l.xfer.CumulativeWritten
			if remaining <= 0 {
				break
			}
			if allowed == 0 || allowed > remaining {
				allowed = remaining
			}
		}

		res, err := transfer.Transfer(l.xfer, opts, in, inFd, l.out, l.outFd, allowed, func(format string, args ...any) {
			Warn(l.ProgName, &l.displayed, format, args...)
		})
		if err != nil {
			return err
		}
		l.cumulativeLines += res.LinesWritten
		l.bucket.Spend(res.Written)
		l.Metrics.BytesTransferred.Add(float64(res.Written))
		if res.SpliceDisabledThisTick {
			l.Metrics.SpliceFallbacks.Inc()
		}
		if res.ErrorBytesSkipped > 0 {
			l.Metrics.ErrorBytesSkipped.Add(float64(res.ErrorBytesSkipped))
		}
		if res.PipeClosed {
			l.Flags.SetPipeClosed()
		}

		l.updateTransferredAndCalc(elapsed)

		if l.waiting {
			if l.xfer.CumulativeWritten > 0 {
				l.waiting = false
				l.startTime = now
				l.nextUpdate = now.Add(l.Settings.Interval)
			}
		}

		if res.EOFOut {
			l.disp.Flags.FinalUpdate = true
			l.renderIfDue(displayName, now, true)
			break
		}

		if _, resized := takeResize(l.Flags); resized {
			l.handleResize()
			l.disp.Flags.OutputProduced = false
		}
		l.remote.Poll(l.Flags, l)

		if !l.waiting {
			l.renderIfDue(displayName, now, false)
		}

		if res.EOFIn && res.Written == 0 {
			// input exhausted and buffer drained on a later tick; keep
			// looping until EOFOut above fires.
			time.Sleep(transientPoll)
		}
	}
	return nil
}

const transientPoll = 10 * time.Millisecond

func takeResize(f *sig.Flags) (bool, bool) {
	return false, f.TakeTerminalResized()
}

// handleResize implements spec.md §4.3 step 11: on SIGWINCH, recompute
// width/height unless both were set manually, then force the display
// segments to re-layout against the new size.
func (l *Loop) handleResize() {
	if l.Settings.WidthManual && l.Settings.HeightManual {
		return
	}
	w, h, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil {
		return
	}
	if !l.Settings.WidthManual {
		l.Settings.Width = w
		l.disp.Width = w
	}
	if !l.Settings.HeightManual {
		l.Settings.Height = h
		l.disp.Height = h
	}
	l.disp.Reparse()
}

func (l *Loop) updateTransferredAndCalc(elapsed time.Duration) {
	unread := l.xfer.UnreadInPipe
	if l.Flags.PipeClosed() {
		unread = 0
	}
	var transferred int64
	if l.Settings.LineMode {
		consumed := l.cumulativeLines - int64(l.xfer.Lines.CountAbove(l.xfer.CumulativeWritten-unread))
		transferred = consumed
	} else {
		transferred = l.xfer.CumulativeWritten - unread
	}
	if transferred < 0 {
		transferred = 0
	}

	deltaBytes := transferred - l.lastTransferred
	l.lastTransferred = transferred
	deltaSeconds := elapsed.Seconds() - l.lastElapsedSeconds
	l.lastElapsedSeconds = elapsed.Seconds()

	l.calc.Update(elapsed, transferred, deltaBytes, deltaSeconds)
	l.curTransferred = transferred
	l.curElapsed = elapsed
}

func (l *Loop) renderIfDue(name string, now time.Time, force bool) {
	if !force && now.Before(l.nextUpdate) {
		return
	}
	if !force {
		for !l.nextUpdate.After(now) {
			l.nextUpdate = l.nextUpdate.Add(l.Settings.Interval)
		}
	}

	pct := transfer.Percentage(l.curTransferred, l.Settings.Size, &l.sawtooth, l.curTransferred-l.lastRenderedTransferred, 4*1024*1024)
	l.lastRenderedTransferred = l.curTransferred

	ctx := display.Context{
		Name:         name,
		Size:         l.Settings.Size,
		Transferred:  l.curTransferred,
		Elapsed:      l.curElapsed,
		ETA:          transfer.ETA(l.Settings.Size, l.curTransferred, l.calc.AverageRate),
		FinAt:        now.Add(transfer.ETA(l.Settings.Size, l.curTransferred, l.calc.AverageRate)),
		InstantRate:  l.calc.InstantaneousRate,
		AverageRate:  l.calc.AverageRate,
		Percentage:   pct,
		DecimalUnits: l.Settings.DecimalUnits,
		ReportBits:   l.Settings.ReportBits,
		LineMode:     l.Settings.LineMode,
		LastWritten:  lastWrittenTail(l.xfer),
		PreviousLine: l.xfer.PreviousLine,
		FinalUpdate:  l.disp.Flags.FinalUpdate,
		BarStyleName: l.Settings.BarStyle,
	}

	line := display.Render(l.disp, ctx)
	writeDisplayLine(l.out, line, l.Settings.Numeric)
	l.displayed = true
	l.disp.Flags.OutputProduced = true

	l.renderExtra(ctx)
}

// renderExtra drives spec.md §4.2's secondary display sinks: a
// terminal window-title OSC sequence, an argv[0] process-title
// rewrite, or both, rendered with the same segment formatter but with
// color forbidden.
func (l *Loop) renderExtra(ctx display.Context) {
	if l.Settings.ExtraDisplay == display.ExtraNone {
		return
	}
	format := l.Settings.ExtraFormat
	if format == "" {
		format = l.Settings.Format
	}
	text := display.RenderExtra(display.Parse(format), ctx, l.disp.Width)

	if l.Settings.ExtraDisplay == display.ExtraWindowTitle || l.Settings.ExtraDisplay == display.ExtraBoth {
		fmt.Fprint(os.Stderr, display.WindowTitleSequence(text))
	}
	if l.Settings.ExtraDisplay == display.ExtraProcessTitle || l.Settings.ExtraDisplay == display.ExtraBoth {
		display.SetProcessTitle(text)
	}
}

func lastWrittenTail(s *transfer.State) []byte {
	n := s.WriteCursor
	start := n - 256
	if start < 0 {
		start = 0
	}
	if start > len(s.Buffer) || n > len(s.Buffer) || n < start {
		return nil
	}
	return s.Buffer[start:n]
}

func writeDisplayLine(_ *os.File, line string, numericMode bool) {
	if numericMode {
		fmt.Fprint(os.Stderr, line)
		return
	}
	fmt.Fprint(os.Stderr, "\r"+line)
}

// Stats returns the end-of-run summary line required by spec.md §4.3,
// or the "rate not measured" fallback.
func (l *Loop) Stats() string {
	min, avg, max, mdev, measured := l.calc.Summary()
	if !measured {
		return "rate not measured"
	}
	unit := numeric.RateUnit(l.Settings.ReportBits)
	return fmt.Sprintf("rate min/avg/max/mdev = %.2f/%.2f/%.2f/%.2f %s",
		min, avg, max, mdev, unit)
}
