package remote

import "golang.org/x/sys/unix"

// Reply publishes a response record to path (overwriting the query that
// was read from it) and signals senderPID so a synchronous Query caller
// wakes promptly instead of only discovering the reply on its next poll.
func Reply(path string, rec Record, senderPID int32) error {
	rec.Response = true
	if err := writeFile(path, rec); err != nil {
		return err
	}
	if senderPID <= 0 {
		return nil
	}
	return unix.Kill(int(senderPID), querySignal)
}

// Ack marks a settings-overlay record as consumed and signals senderPID
// back, per spec.md §4.5's handshake ("returns the same signal back to
// acknowledge"). The sender owns removing the control file once it sees
// the ack (or its wait times out); Ack itself only publishes it.
func Ack(path string, rec Record, senderPID int32) error {
	rec.Response = true
	if err := writeFile(path, rec); err != nil {
		return err
	}
	if senderPID <= 0 {
		return nil
	}
	return unix.Kill(int(senderPID), settingsOverlaySignal)
}
