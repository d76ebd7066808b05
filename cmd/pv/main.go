// Command pv pumps bytes between files and pipes while reporting
// throughput, exactly like its C namesake, Pipe Viewer. Flag parsing here
// is deliberately plain stdlib flag, generalized from the teacher's
// per-slot if1/of1/bs1 registration style into pv's single-transfer,
// many-input-file surface; everything past flag.Parse hands off to
// internal/control.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/AD-iOS/pv/internal/control"
	"github.com/AD-iOS/pv/internal/display"
	"github.com/AD-iOS/pv/internal/numeric"
	"github.com/AD-iOS/pv/internal/remote"
	"github.com/AD-iOS/pv/internal/sig"
	"github.com/AD-iOS/pv/internal/watch"
)

const progName = "pv"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [options] [file]...\n", progName)
		fs.PrintDefaults()
	}

	var (
		sizeStr      = fs.String("size", "", "assume total transfer size (e.g. 4G)")
		lineMode     = fs.Bool("line-mode", false, "count lines instead of bytes")
		nullTerm     = fs.Bool("null", false, "lines are NUL-terminated")
		intervalStr  = fs.String("interval", "1", "display refresh interval in seconds")
		delayStart   = fs.Float64("delay-start", 0, "don't display until this many seconds have passed")
		waitForFirst = fs.Bool("wait", false, "wait for the first byte before starting the clock")
		output       = fs.String("output", "", "write to this file instead of stdout")
		rateLimitStr = fs.String("rate-limit", "", "cap throughput (bytes/sec, e.g. 1M)")
		bufferStr    = fs.String("buffer-size", "", "transfer buffer size (e.g. 256K)")
		noSplice     = fs.Bool("no-splice", false, "never use the splice(2) fast path")
		skipErrors   = fs.Int("skip-errors", 0, "on read errors skip and zero-fill the bad bytes (1 warns once per run of errors, 2+ also reports each skip)")
		skipBlockStr = fs.String("error-skip-block", "", "bytes to zero-fill per skipped error")
		stopAtSize   = fs.Bool("stop-at-size", false, "stop once -size bytes have been transferred")
		syncWrite    = fs.Bool("sync", false, "fsync after every write")
		directIO     = fs.Bool("direct-io", false, "use O_DIRECT on input and output")
		sparse       = fs.Bool("sparse", false, "elide runs of zero bytes in the output")
		discard      = fs.Bool("discard", false, "read input but discard it, writing nothing")
		showProgress = fs.Bool("progress", true, "show the progress bar")
		showTimer    = fs.Bool("timer", true, "show the elapsed-time timer")
		showETA      = fs.Bool("eta", true, "show the estimated time remaining")
		showFinETA   = fs.Bool("fineta", false, "show the estimated finish clock time")
		showRate     = fs.Bool("rate", true, "show the current transfer rate")
		showAvgRate  = fs.Bool("average-rate", false, "show the average transfer rate")
		showBytes    = fs.Bool("bytes", true, "show bytes transferred")
		showBufPct   = fs.Bool("buffer-percent", false, "show how full the transfer buffer is")
		showLastW    = fs.Bool("last-written", false, "show a rolling tail of the last bytes written")
		numericMode  = fs.Bool("numeric", false, "emit plain numbers (timer, bytes, rate, percentage) one line per update instead of a bar")
		cursorMode   = fs.Bool("cursor", false, "cursor mode (accepted; the display does not reposition the cursor and still redraws with \\r)")
		name         = fs.String("name", "", "display name, instead of the input filename")
		format       = fs.String("format", "", "custom display format string")
		barStyle     = fs.String("bar-style", "", "progress bar style (plain, block, granular, shaded)")
		extraStr     = fs.String("extra-display", "", "secondary display: window, process, or both")
		width        = fs.Int("width", 0, "terminal width, overriding auto-detection")
		height       = fs.Int("height", 0, "terminal height, overriding auto-detection")
		force        = fs.Bool("force", false, "show output even when stderr is not a terminal")
		decimalUnits = fs.Bool("si", false, "use 1000-based units instead of 1024-based")
		reportBits   = fs.Bool("bits", false, "report bits instead of bytes")
		storeFwd     = fs.String("store-and-forward", "", "stage through a file first so size/ETA are known (\"-\" for a temp file)")
		statsFlag    = fs.Bool("stats", false, "print a min/avg/max/mdev rate summary on exit")

		watchFD  = fs.Int("watchfd", 0, "watch this pid's open file descriptors instead of transferring")
		watchAll = fs.Bool("watch-all-fds", false, "with -watchfd, watch every fd rather than just the largest")

		remotePID = fs.Int("remote", 0, "send a settings overlay to another running pv (pid)")
		queryPID  = fs.Int("query", 0, "print another running pv's current transfer state (pid)")
	)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *queryPID > 0 {
		return runQuery(*queryPID)
	}
	if *remotePID > 0 {
		return runRemoteOverlay(fs, *remotePID, remoteArgs{
			rateLimit:  *rateLimitStr,
			bufferSize: *bufferStr,
			size:       *sizeStr,
			interval:   *intervalStr,
			name:       *name,
			format:     *format,
			extra:      *extraStr,
			width:      *width,
			height:     *height,
			decimal:    *decimalUnits,
			progress:   *showProgress, timer: *showTimer, eta: *showETA, fineta: *showFinETA,
			rate: *showRate, avgRate: *showAvgRate, bytes: *showBytes, bufPct: *showBufPct,
			lastWritten: *showLastW,
		})
	}
	if *watchFD > 0 {
		return runWatch(*watchFD, *watchAll, *intervalStr, *format, *width, *height)
	}

	s := &control.Settings{
		Inputs:         fs.Args(),
		Output:         *output,
		Size:           numeric.ParseSize(*sizeStr, *decimalUnits),
		Interval:       secondsToDuration(numeric.ClampInterval(numeric.ParseIntervalString(*intervalStr))),
		DelayStart:     secondsToDuration(*delayStart),
		RateLimit:      numeric.ParseSize(*rateLimitStr, *decimalUnits),
		BufferSize:     bufferSizeOrDefault(*bufferStr, *decimalUnits),
		AverageWindow:  30 * time.Second,
		SkipErrors:     *skipErrors,
		SkipBlockSize:  numeric.ParseSize(*skipBlockStr, *decimalUnits),
		LineMode:       *lineMode,
		NullTerminated: *nullTerm,
		DecimalUnits:   *decimalUnits,
		ReportBits:     *reportBits,
		SparseOutput:   *sparse,
		DiscardInput:   *discard,
		SyncAfterWrite: *syncWrite,
		DirectIO:       *directIO,
		StopAtSize:     *stopAtSize,
		WaitForFirst:   *waitForFirst,
		Numeric:        *numericMode,
		Cursor:         *cursorMode,
		ForceNotTTY:    *force,
		NoSplice:       *noSplice,
		Name:           *name,
		Format:          display.BuildFormat(*format, *showProgress, *showTimer, *showETA, *showFinETA, *showRate, *showAvgRate, *showBytes, *showBufPct, *showLastW),
		BarStyle:        *barStyle,
		ExtraDisplay:    parseExtraKind(*extraStr),
		StoreAndForward: *storeFwd,
		Stats:           *statsFlag,
	}

	termWidth, termHeight := detectTerminalSize()
	s.Width, s.WidthManual = resolveDimension(*width, termWidth)
	s.Height, s.HeightManual = resolveDimension(*height, termHeight)

	if !*force && !isForegroundOnTTY() {
		// spec.md §5: a background job writing to a non-foreground tty
		// turns cursor mode off; the display line itself is still written.
		s.Cursor = false
	}

	flags := sig.New()
	ctl := sig.NewController(flags)
	defer ctl.Stop()

	if err := control.Run(s, flags, progName); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progName, err)
		return 1
	}
	return 0
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func bufferSizeOrDefault(s string, decimalUnits bool) int {
	if s == "" {
		return control.DefaultBufferSize
	}
	n := numeric.ParseSize(s, decimalUnits)
	if n <= 0 {
		return control.DefaultBufferSize
	}
	return int(n)
}

func parseExtraKind(s string) display.ExtraKind {
	switch s {
	case "window":
		return display.ExtraWindowTitle
	case "process":
		return display.ExtraProcessTitle
	case "both":
		return display.ExtraBoth
	default:
		return display.ExtraNone
	}
}

func detectTerminalSize() (width, height int) {
	w, h, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil {
		return 80, 25
	}
	return w, h
}

func resolveDimension(explicit, detected int) (value int, manual bool) {
	if explicit > 0 {
		return numeric.ClampWidth(explicit), true
	}
	return detected, false
}

func isForegroundOnTTY() bool {
	fd := int(os.Stderr.Fd())
	if !term.IsTerminal(fd) {
		return true
	}
	return sig.IsForeground(fd)
}

func runQuery(pid int) int {
	rec, err := remote.Query(pid, 2*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progName, err)
		return 1
	}
	fmt.Printf("%d %.6g %d\n", pid, rec.ElapsedSeconds, rec.Transferred)
	if rec.QuerySize > 0 {
		fmt.Printf("size: %d\nsplice-fallbacks: %d\nerror-bytes-skipped: %d\n",
			rec.QuerySize, rec.SpliceFallbacks, rec.ErrorBytesSkipped)
	}
	return 0
}

// remoteArgs collects the flags that can ride along on a -remote overlay,
// mirroring remote.c's pv_remote_set: the display toggles always travel
// with the message (they're this invocation's own format_option state),
// while the rest only take effect when the flag was actually given.
type remoteArgs struct {
	rateLimit, bufferSize, size, interval, name, format, extra string
	width, height                                              int
	decimal                                                    bool
	progress, timer, eta, fineta, rate, avgRate, bytes, bufPct, lastWritten bool
}

func runRemoteOverlay(fs *flag.FlagSet, pid int, a remoteArgs) int {
	rec := remote.Record{
		ShowProgress:   a.progress,
		ShowTimer:      a.timer,
		ShowETA:        a.eta,
		ShowFinETA:     a.fineta,
		ShowRate:       a.rate,
		ShowAverageRate: a.avgRate,
		ShowBytes:      a.bytes,
		ShowBufferPct:  a.bufPct,
		Mask: remote.MaskShowProgress | remote.MaskShowTimer | remote.MaskShowETA |
			remote.MaskShowFinETA | remote.MaskShowRate | remote.MaskShowAverageRate |
			remote.MaskShowBytes | remote.MaskShowBufferPct,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rate-limit":
			rec.Mask |= remote.MaskRateLimit
			rec.RateLimit = numeric.ParseSize(a.rateLimit, a.decimal)
		case "buffer-size":
			rec.Mask |= remote.MaskBufferSize
			rec.BufferSize = numeric.ParseSize(a.bufferSize, a.decimal)
		case "size":
			rec.Mask |= remote.MaskSize
			rec.Size = numeric.ParseSize(a.size, a.decimal)
		case "interval":
			rec.Mask |= remote.MaskInterval
			rec.IntervalMillis = int64(numeric.ClampInterval(numeric.ParseIntervalString(a.interval)) * 1000)
		case "name":
			rec.Mask |= remote.MaskName
			rec.Name = a.name
		case "format":
			rec.Mask |= remote.MaskFormat
			rec.Format = a.format
		case "extra-display":
			rec.Mask |= remote.MaskExtraDisplay
			rec.ExtraDisplay = a.extra
		case "width":
			rec.Mask |= remote.MaskWidth
			rec.Width = int32(a.width)
			rec.WidthManual = true
		case "height":
			rec.Mask |= remote.MaskHeight
			rec.Height = int32(a.height)
			rec.HeightManual = true
		}
	})
	if err := remote.Send(pid, rec); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progName, err)
		return 1
	}
	return 0
}

func runWatch(pid int, allFDs bool, intervalStr, format string, width, height int) int {
	if !watch.PidExists(pid) {
		fmt.Fprintf(os.Stderr, "%s: no such process: %d\n", progName, pid)
		return 1
	}
	interval := secondsToDuration(numeric.ClampInterval(numeric.ParseIntervalString(intervalStr)))
	termWidth, termHeight := detectTerminalSize()
	if width <= 0 {
		width = termWidth
	}
	if height <= 0 {
		height = termHeight
	}
	if format == "" {
		format = "%N %t %b %r %p %e"
	}

	fd := -1
	if !allFDs {
		fd = largestOpenFD(pid)
	}
	l := watch.NewLoop(watch.LinuxFDSource{}, []watch.Target{{PID: pid, FD: fd}}, interval, format, width, height)
	flags := sig.New()
	ctl := sig.NewController(flags)
	defer ctl.Stop()
	if err := l.Run(os.Stdout, flags.TriggerExit); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progName, err)
		return 1
	}
	return 0
}

// largestOpenFD picks the fd with the greatest file size as the sole
// watch target, per spec.md §4.4's default ("without an explicit fd
// number, watch whichever open file is largest").
func largestOpenFD(pid int) int {
	src := watch.LinuxFDSource{}
	fds, err := src.ListPidFDs(pid)
	if err != nil {
		return -1
	}
	best, bestSize := -1, int64(-1)
	for _, fd := range fds {
		info, err := src.DescribeFD(pid, fd)
		if err != nil || !info.IsRegularOrBlock {
			continue
		}
		if info.Size > bestSize {
			best, bestSize = fd, info.Size
		}
	}
	return best
}
