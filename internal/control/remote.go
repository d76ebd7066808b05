package control

import (
	"os"
	"time"

	"github.com/AD-iOS/pv/internal/display"
	"github.com/AD-iOS/pv/internal/remote"
	"github.com/AD-iOS/pv/internal/sig"
)

// RemoteReceiver drains this process's remote-control inbox: settings
// overlays get applied straight onto the running Loop's Settings, and
// queries get answered with a snapshot of current transfer state. This
// is the receiving half of C7 (spec.md §4.5); internal/remote owns the
// wire format and file/signal plumbing.
type RemoteReceiver struct {
	inbox remote.Inbox
}

// NewRemoteReceiver returns a receiver for this process's own pid.
func NewRemoteReceiver() *RemoteReceiver {
	return &RemoteReceiver{inbox: remote.Inbox{PID: os.Getpid()}}
}

// Poll checks the signal flags for an arrived remote-control or query
// signal and, if one fired, drains the inbox and acts on it. Called once
// per control-loop tick, same cadence as resize/exit polling.
func (r *RemoteReceiver) Poll(flags *sig.Flags, l *Loop) {
	_, gotQuery := flags.TakeRxUsrA()
	_, gotOverlay := flags.TakeRxUsrB()
	if !gotQuery && !gotOverlay {
		return
	}
	path, rec, ok := r.inbox.Take()
	if !ok {
		return
	}
	if rec.Response {
		// A stray reply record from a handshake we're not party to; not
		// expected, but don't let it wedge the inbox.
		_ = os.Remove(path)
		return
	}
	if gotQuery {
		reply := r.buildReply(l)
		_ = remote.Reply(path, reply, rec.SenderPID)
		return
	}
	r.applyOverlay(l.Settings, rec)
	const reformatMask = remote.MaskFormat | remote.MaskExtraDisplay | remote.MaskShowProgress |
		remote.MaskShowTimer | remote.MaskShowETA | remote.MaskShowFinETA | remote.MaskShowRate |
		remote.MaskShowAverageRate | remote.MaskShowBytes | remote.MaskShowBufferPct
	if rec.Mask&reformatMask != 0 {
		l.disp.Template = l.Settings.Format
		l.disp.Reparse()
	}
	if rec.Mask&(remote.MaskWidth|remote.MaskHeight) != 0 {
		l.disp.Width = l.Settings.Width
		l.disp.Height = l.Settings.Height
	}
	l.disp.Flags.OutputProduced = false
	_ = remote.Ack(path, rec, rec.SenderPID)
}

func (r *RemoteReceiver) buildReply(l *Loop) remote.Record {
	snap := l.Metrics.Snapshot()
	return remote.Record{
		ElapsedSeconds:    l.curElapsed.Seconds(),
		Transferred:       l.curTransferred,
		QuerySize:         l.Settings.Size,
		SpliceFallbacks:   int64(snap.SpliceFallbacks),
		ErrorBytesSkipped: int64(snap.ErrorBytesSkipped),
	}
}

// applyOverlay mutates s in place, per spec.md §4.5 and remote.c's
// pv__rxsignal_usr2: when rec.Mask marks any display toggle, the toggles
// are rebuilt into a format string, and an explicit format string (if
// given) then takes priority over them;
// everything else changes only when rec.Mask marks it present.
func (r *RemoteReceiver) applyOverlay(s *Settings, rec remote.Record) {
	toggleMask := remote.MaskShowProgress | remote.MaskShowTimer | remote.MaskShowETA |
		remote.MaskShowFinETA | remote.MaskShowRate | remote.MaskShowAverageRate |
		remote.MaskShowBytes | remote.MaskShowBufferPct
	if rec.Mask&toggleMask != 0 {
		s.Format = display.BuildFormat("", rec.ShowProgress, rec.ShowTimer, rec.ShowETA,
			rec.ShowFinETA, rec.ShowRate, rec.ShowAverageRate, rec.ShowBytes, rec.ShowBufferPct, false)
	}
	if rec.Mask&remote.MaskRateLimit != 0 {
		s.RateLimit = rec.RateLimit
	}
	if rec.Mask&remote.MaskBufferSize != 0 && rec.BufferSize > 0 {
		s.BufferSize = int(rec.BufferSize)
	}
	if rec.Mask&remote.MaskSize != 0 && rec.Size > 0 {
		s.Size = rec.Size
	}
	if rec.Mask&remote.MaskInterval != 0 && rec.IntervalMillis > 0 {
		s.Interval = time.Duration(rec.IntervalMillis) * time.Millisecond
	}
	if rec.Mask&remote.MaskWidth != 0 && rec.Width > 0 && rec.WidthManual {
		s.Width = int(rec.Width)
		s.WidthManual = rec.WidthManual
	}
	if rec.Mask&remote.MaskHeight != 0 && rec.Height > 0 && rec.HeightManual {
		s.Height = int(rec.Height)
		s.HeightManual = rec.HeightManual
	}
	if rec.Mask&remote.MaskName != 0 {
		s.Name = rec.Name
	}
	if rec.Mask&remote.MaskFormat != 0 && rec.Format != "" {
		s.Format = rec.Format
	}
	if rec.Mask&remote.MaskExtraDisplay != 0 && rec.ExtraDisplay != "" {
		s.ExtraDisplay = parseExtraKind(rec.ExtraDisplay)
	}
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
