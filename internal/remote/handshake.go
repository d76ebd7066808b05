package remote

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"
	"golang.org/x/sys/unix"
)

// controlFilePattern names the per-handshake control file spec.md §4.5
// describes: one sender creates it, the receiver (identified by the pid
// embedded in the name) finds it via a glob on its own pid, so the
// receiver never needs the sender pid out of band. xid supplies a
// sortable, collision-free suffix without pulling in a UUID dependency
// the rest of the pack doesn't otherwise need.
func controlFilePattern(targetPID int) string {
	return fmt.Sprintf("pv-ctl-%d-*", targetPID)
}

func controlFileName(targetPID int) string {
	return fmt.Sprintf("pv-ctl-%d-%s", targetPID, xid.New().String())
}

// Dir is the directory control files are created in; a var so tests can
// point it at a scratch directory instead of the real $TMPDIR.
var Dir = os.TempDir()

// writeFile atomically publishes rec at path: write to a sibling temp
// name then rename, so a concurrent reader never observes a partial
// record (control files are read outside of any lock).
func writeFile(path string, rec Record) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, rec.Marshal(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	return Unmarshal(data)
}

// ackTimeout bounds how long Send waits for the receiver to acknowledge
// a settings overlay, per spec.md §4.5's AWAIT_ACK/TIMEOUT handshake
// ("sender waits up to 1.1s for the ack; removes its file either way").
// A var, like Dir, so tests can shrink it instead of eating the full
// timeout.
var ackTimeout = 1100 * time.Millisecond

// Send delivers a settings-overlay record to targetPID: write the
// control file, raise the settings-overlay realtime signal (SIGRTMIN+11
// per internal/sig), then wait for the receiver to mark the same file
// consumed (internal/control's RemoteReceiver calls Ack once it applies
// the overlay). The control file is removed either way once the wait
// ends, matching spec.md §4.5 and §7's "remote ack timeout" row.
func Send(targetPID int, rec Record) error {
	rec.SenderPID = int32(os.Getpid())
	path := filepath.Join(Dir, controlFileName(targetPID))
	if err := writeFile(path, rec); err != nil {
		return err
	}
	defer os.Remove(path)

	if err := unix.Kill(targetPID, settingsOverlaySignal); err != nil {
		return err
	}

	deadline := time.Now().Add(ackTimeout)
	for time.Now().Before(deadline) {
		reply, err := readFile(path)
		if err == nil && reply.Response {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("remote: no acknowledgement from pid %d within %s", targetPID, ackTimeout)
}

// Query delivers a query record to targetPID and blocks until a
// response appears in the same control file, or the timeout elapses.
// This implements the synchronous half of spec.md §4.5's "query mode":
// the caller wants targetPID's current transfer state, not to change
// anything.
func Query(targetPID int, timeout time.Duration) (Record, error) {
	rec := Record{SenderPID: int32(os.Getpid())}
	path := filepath.Join(Dir, controlFileName(targetPID))
	if err := writeFile(path, rec); err != nil {
		return Record{}, err
	}
	defer os.Remove(path)

	if err := unix.Kill(targetPID, querySignal); err != nil {
		return Record{}, err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		reply, err := readFile(path)
		if err == nil && reply.Response {
			return reply, nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return Record{}, fmt.Errorf("remote: no response from pid %d within %s", targetPID, timeout)
}

// settingsOverlaySignal/querySignal mirror the realtime signals
// internal/sig installs handlers for (UsrB settings overlay, UsrA
// query); kept here as a second copy rather than an import so this
// package stays usable without pulling in the whole signal controller
// in tests that only exercise marshalling.
var (
	settingsOverlaySignal = unix.Signal(unix.SIGRTMIN() + 11)
	querySignal           = unix.Signal(unix.SIGRTMIN() + 10)
)
