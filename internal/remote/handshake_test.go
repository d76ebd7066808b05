package remote

import (
	"os"
	"os/signal"
	"path/filepath"
	"testing"
	"time"
)

// armSelfSignals installs a no-op handler for the two realtime signals
// this package raises, so Send/Query exercising them against our own
// pid in tests doesn't fall through to the default terminate action.
func armSelfSignals(t *testing.T) {
	t.Helper()
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, settingsOverlaySignal, querySignal)
	t.Cleanup(func() { signal.Stop(ch); close(ch) })
}

func TestSendWaitsForAckFromReceiver(t *testing.T) {
	armSelfSignals(t)
	old := Dir
	Dir = t.TempDir()
	defer func() { Dir = old }()

	pid := os.Getpid()
	rec := Record{Mask: MaskRateLimit, RateLimit: 500}

	var got Record
	go func() {
		inbox := Inbox{PID: pid}
		for i := 0; i < 50; i++ {
			if path, rx, ok := inbox.Take(); ok {
				got = rx
				_ = Ack(path, rx, rx.SenderPID)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	if err := Send(pid, rec); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.RateLimit != 500 || got.Mask != MaskRateLimit {
		t.Errorf("got %+v, want RateLimit=500 Mask=MaskRateLimit", got)
	}
	if got.SenderPID != int32(pid) {
		t.Errorf("SenderPID = %d, want %d", got.SenderPID, pid)
	}
}

func TestSendTimesOutWithoutAck(t *testing.T) {
	armSelfSignals(t)
	old := Dir
	Dir = t.TempDir()
	defer func() { Dir = old }()
	oldTimeout := ackTimeout
	ackTimeout = 100 * time.Millisecond
	defer func() { ackTimeout = oldTimeout }()

	pid := os.Getpid()
	err := Send(pid, Record{Mask: MaskRateLimit, RateLimit: 500})
	if err == nil {
		t.Fatalf("Send: expected a timeout error, got nil")
	}

	matches, _ := filepath.Glob(filepath.Join(Dir, controlFilePattern(pid)))
	if len(matches) != 0 {
		t.Errorf("control file left behind after timeout: %v", matches)
	}
}

func TestQueryBlocksUntilReply(t *testing.T) {
	armSelfSignals(t)
	old := Dir
	Dir = t.TempDir()
	defer func() { Dir = old }()

	pid := os.Getpid()

	go func() {
		time.Sleep(30 * time.Millisecond)
		inbox := Inbox{PID: pid}
		for i := 0; i < 50; i++ {
			if path, rec, ok := inbox.Take(); ok {
				_ = Reply(path, Record{Transferred: 777, QuerySize: 1000}, rec.SenderPID)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	reply, err := Query(pid, 2*time.Second)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if reply.Transferred != 777 || reply.QuerySize != 1000 {
		t.Errorf("reply = %+v, want Transferred=777 QuerySize=1000", reply)
	}
}
