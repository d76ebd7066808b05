// Package remote implements the remote-control and query handshake from
// spec.md §4.5: one running instance alters another's display options,
// or reads another's transfer state, via signals plus a per-sender
// control file. This is C7.
package remote

import (
	"encoding/binary"
	"errors"
)

// maxStringField is the 255-byte cap spec.md §4.5 places on each string
// field in the wire record (display name, format string, extra-display
// spec).
const maxStringField = 255

// Record is the fixed-size wire record exchanged through the control
// file. Settings-overlay senders set Response=false and populate the
// option fields; query senders set Response=false with no option
// fields; receivers reply with Response=true and the five query-reply
// fields.
type Record struct {
	Response bool

	// SenderPID lets the receiver signal back without relying on
	// siginfo's sender pid, which Go's os/signal plumbing does not
	// expose (see internal/sig's lastSenderPid stub).
	SenderPID int32

	// Mask marks which of the settings-overlay fields below the sender
	// actually wants to change; an unset bit means "leave alone", since
	// the zero value of several fields (RateLimit, BufferSize...) is
	// itself a meaningful setting and can't double as "absent".
	Mask FieldMask

	// Settings-overlay fields (spec.md §4.5 "Remote-control"):
	ShowProgress     bool
	ShowTimer        bool
	ShowETA          bool
	ShowFinETA       bool
	ShowRate         bool
	ShowAverageRate  bool
	ShowBytes        bool
	ShowBufferPct    bool
	LastWrittenLen   int32
	RateLimit        int64
	BufferSize       int64
	Size             int64
	IntervalMillis   int64
	Width, Height    int32
	WidthManual      bool
	HeightManual     bool
	Name             string
	Format           string
	ExtraDisplay     string

	// Query-reply fields (spec.md §4.5 "Query"):
	ElapsedSeconds    float64
	Transferred       int64
	QuerySize         int64
	SpliceFallbacks   int64
	ErrorBytesSkipped int64
}

const recordSize = 1 + // response
	4 + // sender pid
	4 + // field mask
	9*1 + // 9 bool-ish option flags (padded to 1 byte each for simplicity)
	4 + 8 + 8 + 8 + 8 + 4 + 4 + 1 + 1 + // numeric fields, HeightManual, one unused byte
	(maxStringField+1)*3 + // three nul-terminated strings
	8 + 8 + 8 + 8 + 8 // query reply fields

// Marshal encodes r into a fixed-size byte record suitable for writing
// to the control file. All string fields are truncated to 255 bytes and
// nul-terminated, per spec.md §4.5.
func (r Record) Marshal() []byte {
	buf := make([]byte, recordSize)
	i := 0
	putBool := func(b bool) {
		if b {
			buf[i] = 1
		}
		i++
	}
	putBool(r.Response)
	binary.LittleEndian.PutUint32(buf[i:], uint32(r.SenderPID))
	i += 4
	binary.LittleEndian.PutUint32(buf[i:], uint32(r.Mask))
	i += 4
	putBool(r.ShowProgress)
	putBool(r.ShowTimer)
	putBool(r.ShowETA)
	putBool(r.ShowFinETA)
	putBool(r.ShowRate)
	putBool(r.ShowAverageRate)
	putBool(r.ShowBytes)
	putBool(r.ShowBufferPct)
	putBool(r.WidthManual)

	binary.LittleEndian.PutUint32(buf[i:], uint32(r.LastWrittenLen))
	i += 4
	binary.LittleEndian.PutUint64(buf[i:], uint64(r.RateLimit))
	i += 8
	binary.LittleEndian.PutUint64(buf[i:], uint64(r.BufferSize))
	i += 8
	binary.LittleEndian.PutUint64(buf[i:], uint64(r.Size))
	i += 8
	binary.LittleEndian.PutUint64(buf[i:], uint64(r.IntervalMillis))
	i += 8
	binary.LittleEndian.PutUint32(buf[i:], uint32(r.Width))
	i += 4
	binary.LittleEndian.PutUint32(buf[i:], uint32(r.Height))
	i += 4
	putBool(r.HeightManual)

	i += putString(buf[i:], r.Name)
	i += putString(buf[i:], r.Format)
	i += putString(buf[i:], r.ExtraDisplay)

	bits := uint64(floatBitsOf(r.ElapsedSeconds))
	binary.LittleEndian.PutUint64(buf[i:], bits)
	i += 8
	binary.LittleEndian.PutUint64(buf[i:], uint64(r.Transferred))
	i += 8
	binary.LittleEndian.PutUint64(buf[i:], uint64(r.QuerySize))
	i += 8
	binary.LittleEndian.PutUint64(buf[i:], uint64(r.SpliceFallbacks))
	i += 8
	binary.LittleEndian.PutUint64(buf[i:], uint64(r.ErrorBytesSkipped))
	i += 8

	return buf
}

func putString(dst []byte, s string) int {
	if len(s) > maxStringField {
		s = s[:maxStringField]
	}
	n := copy(dst, s)
	dst[n] = 0
	return maxStringField + 1
}

// Unmarshal decodes a fixed-size record previously produced by Marshal.
func Unmarshal(buf []byte) (Record, error) {
	if len(buf) < recordSize {
		return Record{}, errors.New("remote: truncated record")
	}
	var r Record
	i := 0
	getBool := func() bool {
		v := buf[i] != 0
		i++
		return v
	}
	r.Response = getBool()
	r.SenderPID = int32(binary.LittleEndian.Uint32(buf[i:]))
	i += 4
	r.Mask = FieldMask(binary.LittleEndian.Uint32(buf[i:]))
	i += 4
	r.ShowProgress = getBool()
	r.ShowTimer = getBool()
	r.ShowETA = getBool()
	r.ShowFinETA = getBool()
	r.ShowRate = getBool()
	r.ShowAverageRate = getBool()
	r.ShowBytes = getBool()
	r.ShowBufferPct = getBool()
	r.WidthManual = getBool()

	r.LastWrittenLen = int32(binary.LittleEndian.Uint32(buf[i:]))
	i += 4
	r.RateLimit = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.BufferSize = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.Size = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.IntervalMillis = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.Width = int32(binary.LittleEndian.Uint32(buf[i:]))
	i += 4
	r.Height = int32(binary.LittleEndian.Uint32(buf[i:]))
	i += 4
	r.HeightManual = getBool()

	r.Name, i = getString(buf, i)
	r.Format, i = getString(buf, i)
	r.ExtraDisplay, i = getString(buf, i)

	r.ElapsedSeconds = floatFromBits(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.Transferred = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.QuerySize = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.SpliceFallbacks = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8
	r.ErrorBytesSkipped = int64(binary.LittleEndian.Uint64(buf[i:]))
	i += 8

	return r, nil
}

func getString(buf []byte, i int) (string, int) {
	field := buf[i : i+maxStringField+1]
	n := 0
	for n < len(field) && field[n] != 0 {
		n++
	}
	return string(field[:n]), i + maxStringField + 1
}
