package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AD-iOS/pv/internal/display"
	"github.com/AD-iOS/pv/internal/transfer"
)

// entry is the per-watched-fd sub-state mirroring spec.md §3's
// transfer/calc/display triple, scaled down to what watch mode needs:
// just a position and a calc engine (no real read/write buffer, since
// watch mode never touches the target's data).
type entry struct {
	key       string // "pid:fd"
	pid, fd   int
	size      int64
	lastPos   int64
	startedAt time.Time
	closedAt  time.Time
	closed    bool

	calc *transfer.Calc
	sawtooth float64
}

// Loop drives the watch-fds auxiliary mode (C6): periodic scan of
// another process's open file descriptors, rendered as a multi-line
// dashboard, per spec.md §4.4.
type Loop struct {
	Source   FDSource
	Targets  []Target
	Interval time.Duration
	Format   string
	Height   int
	Width    int

	entries map[string]*entry
	order   []string
}

// NewLoop constructs a watch loop over the given {pid,fd} targets.
func NewLoop(source FDSource, targets []Target, interval time.Duration, format string, width, height int) *Loop {
	if !strings.Contains(format, "%N") && !strings.Contains(format, "{name}") {
		format = "%N " + format
	}
	return &Loop{
		Source:   source,
		Targets:  targets,
		Interval: interval,
		Format:   format,
		Height:   height,
		Width:    width,
		entries:  make(map[string]*entry),
	}
}

// Run executes the watch loop until every watched pid has exited, or
// triggerExit reports true. Output is written to w (os.Stdout in
// production).
func (l *Loop) Run(w *os.File, triggerExit func() bool) error {
	lastLineCount := 0
	for {
		if triggerExit() {
			return nil
		}
		if err := l.scan(); err != nil {
			return err
		}
		lines := l.renderAll()
		if len(lines) > l.Height && l.Height > 0 {
			lines = lines[:l.Height]
		}
		l.paint(w, lines, lastLineCount)
		lastLineCount = len(lines)

		if l.allDone() {
			return nil
		}
		time.Sleep(l.Interval)
	}
}

func (l *Loop) allDone() bool {
	anyPidAlive := false
	for _, t := range l.Targets {
		if PidExists(t.PID) {
			anyPidAlive = true
		}
	}
	return !anyPidAlive
}

func (l *Loop) scan() error {
	seen := make(map[string]bool)
	for _, t := range l.Targets {
		if !PidExists(t.PID) {
			continue
		}
		if t.FD == -1 {
			fds, err := l.Source.ListPidFDs(t.PID)
			if err != nil {
				continue
			}
			for _, fd := range fds {
				l.discover(t.PID, fd, seen)
			}
		} else {
			l.discover(t.PID, t.FD, seen)
		}
	}

	now := time.Now()
	for key, e := range l.entries {
		if seen[key] || e.closed {
			continue
		}
		pos, ok := l.Source.ReadFDPosition(e.pid, e.fd)
		if !ok {
			e.closed = true
			e.closedAt = now
			continue
		}
		e.lastPos = pos
		if _, err := l.Source.DescribeFD(e.pid, e.fd); err != nil {
			e.closed = true
			e.closedAt = now
		}
	}

	// Reclaim entries closed for more than one full interval, per
	// spec.md §4.4: "retain closed entries for one full interval so the
	// final state remains on-screen, then reclaim."
	for key, e := range l.entries {
		if e.closed && now.Sub(e.closedAt) > l.Interval {
			delete(l.entries, key)
			l.removeFromOrder(key)
		}
	}
	return nil
}

func (l *Loop) discover(pid, fd int, seen map[string]bool) {
	key := fmt.Sprintf("%d:%d", pid, fd)
	seen[key] = true

	e, ok := l.entries[key]
	if !ok {
		info, err := l.Source.DescribeFD(pid, fd)
		if err != nil || !info.IsRegularOrBlock {
			return
		}
		e = &entry{
			key:       key,
			pid:       pid,
			fd:        fd,
			size:      info.Size,
			startedAt: time.Now(),
			calc:      transfer.NewCalc(5 * time.Second),
		}
		l.entries[key] = e
		l.order = append(l.order, key)
	}

	info, err := l.Source.DescribeFD(pid, fd)
	if err != nil {
		e.closed = true
		e.closedAt = time.Now()
		return
	}
	if info.Size > 0 {
		e.size = info.Size
	}

	pos, ok := l.Source.ReadFDPosition(pid, fd)
	if !ok {
		return
	}
	elapsed := time.Since(e.startedAt)
	delta := pos - e.lastPos
	e.calc.Update(elapsed, pos, delta, float64(l.Interval)/float64(time.Second))
	e.lastPos = pos
	e.closed = false
}

func (l *Loop) removeFromOrder(key string) {
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}

func (l *Loop) renderAll() []string {
	multiplePids := l.countDistinctPids() > 1
	sort.Strings(l.order)
	var lines []string
	for _, key := range l.order {
		e := l.entries[key]
		segs := display.Parse(l.Format)
		name := l.compressedName(e)
		if multiplePids {
			name = fmt.Sprintf("%d:%s", e.pid, name)
		}
		pct := transfer.Percentage(e.lastPos, e.size, &e.sawtooth, 0, 1024*1024)
		ctx := display.Context{
			Name:        name,
			Size:        e.size,
			Transferred: e.lastPos,
			Elapsed:     time.Since(e.startedAt),
			InstantRate: e.calc.InstantaneousRate,
			AverageRate: e.calc.AverageRate,
			Percentage:  pct,
		}
		s := &display.State{Segments: segs, Width: l.Width}
		lines = append(lines, display.Render(s, ctx))
	}
	return lines
}

func (l *Loop) countDistinctPids() int {
	pids := make(map[int]bool)
	for _, t := range l.Targets {
		pids[t.PID] = true
	}
	return len(pids)
}

// compressedName implements spec.md §4.4's path compression: strip the
// current working directory, elide the middle with "..." to fit half
// the terminal width.
func (l *Loop) compressedName(e *entry) string {
	path := e.key
	info, err := l.Source.DescribeFD(e.pid, e.fd)
	if err == nil && info.Path != "" {
		path = info.Path
	}
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	maxLen := l.Width / 2
	if maxLen <= 0 {
		maxLen = 20
	}
	if len(path) <= maxLen {
		return path
	}
	half := (maxLen - 3) / 2
	if half < 1 {
		return path[:maxLen]
	}
	return path[:half] + "..." + path[len(path)-half:]
}

// paint implements spec.md §4.4's multi-line rendering: write each entry
// terminated by '\n', blank any extra lines from a shrinking display,
// then move the cursor up so the next tick overwrites in place.
func (l *Loop) paint(w *os.File, lines []string, prevCount int) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	for i := len(lines); i < prevCount; i++ {
		fmt.Fprint(w, strings.Repeat(" ", l.Width)+"\r\n")
	}
	total := len(lines)
	if prevCount > total {
		total = prevCount
	}
	if total > 1 {
		fmt.Fprintf(w, "\x1b[%dA", total-1)
	}
}
