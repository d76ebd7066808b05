package transfer

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"testing"
)

func tempFile(t *testing.T, data []byte) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "pv-in-*")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	return f
}

func tempOut(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "pv-out-*")
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// TestRoundTripExactCopy verifies spec.md §8's round-trip law: with no
// rate limit and no skip-errors, output bytes exactly equal input bytes.
func TestRoundTripExactCopy(t *testing.T) {
	data := make([]byte, 256*1024)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	in := tempFile(t, data)
	defer in.Close()
	out := tempOut(t)
	defer out.Close()

	s := NewState()
	s.EnsureBuffer(64*1024, in, out)
	opts := Options{NoSplice: true, OutputSeekable: true}

	for {
		res, err := Transfer(s, opts, in, int(in.Fd()), out, int(out.Fd()), 0, nil)
		if err != nil {
			t.Fatalf("Transfer: %v", err)
		}
		if res.EOFOut {
			break
		}
	}

	written, err := os.ReadFile(out.Name())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(written, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(written), len(data))
	}
	if s.CumulativeWritten != int64(len(data)) {
		t.Errorf("CumulativeWritten = %d, want %d", s.CumulativeWritten, len(data))
	}
}

// TestSparseOutputElision covers spec.md scenario 3: with sparse output on,
// an all-zero region followed by data yields an output of full length with
// the tail preserved. Whether the zero region was seeked over rather than
// written is not checked.
func TestSparseOutputElision(t *testing.T) {
	data := make([]byte, 64*1024)
	tail := bytes.Repeat([]byte{'a'}, 64*1024)
	data = append(data, tail...)

	in := tempFile(t, data)
	defer in.Close()
	out := tempOut(t)
	defer out.Close()

	s := NewState()
	s.EnsureBuffer(16*1024, in, out)
	opts := Options{NoSplice: true, SparseOutput: true, OutputSeekable: true}

	for {
		res, err := Transfer(s, opts, in, int(in.Fd()), out, int(out.Fd()), 0, nil)
		if err != nil {
			t.Fatalf("Transfer: %v", err)
		}
		if res.EOFOut {
			break
		}
	}

	fi, err := out.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != int64(len(data)) {
		t.Fatalf("output length = %d, want %d", fi.Size(), len(data))
	}

	got, err := os.ReadFile(out.Name())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got[64*1024:], tail) {
		t.Errorf("tail mismatch after sparse elision")
	}
}

// TestLineRingCapacity verifies spec.md §8: the ring holds at most
// LinePositionRingCapacity positions.
func TestLineRingCapacity(t *testing.T) {
	var r LineRing
	for i := 0; i < LinePositionRingCapacity+100; i++ {
		r.Push(int64(i))
	}
	if r.Len() != LinePositionRingCapacity {
		t.Fatalf("Len() = %d, want %d", r.Len(), LinePositionRingCapacity)
	}
	if r.At(0) != 100 {
		t.Errorf("oldest surviving entry = %d, want 100", r.At(0))
	}
}

// TestAdaptiveSkipSchedule verifies spec.md §4.1's exact progression.
func TestAdaptiveSkipSchedule(t *testing.T) {
	cases := map[int]int64{
		1:  1,
		4:  1,
		5:  2,
		9:  2,
		10: 1,
		11: 2,
		19: 1 << 9,
		20: 512,
		25: 512,
	}
	for n, want := range cases {
		if got := adaptiveSkipAmount(n); got != want {
			t.Errorf("adaptiveSkipAmount(%d) = %d, want %d", n, got, want)
		}
	}
}

// TestLineAccounting covers scenario 2 at the accountLines level: three
// "hello\n" lines count as 3 separators and the previous-line buffer
// equals "hello".
func TestLineAccounting(t *testing.T) {
	s := NewState()
	opts := Options{LineMode: true}
	chunk := []byte("hello\nhello\nhello\n")
	n := accountLines(s, opts, chunk)
	if n != 3 {
		t.Fatalf("accountLines = %d, want 3", n)
	}
	if string(s.PreviousLine) != "hello" {
		t.Errorf("PreviousLine = %q, want %q", s.PreviousLine, "hello")
	}
}
