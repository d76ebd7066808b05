package remote

import "testing"

func TestRecordRoundTrip(t *testing.T) {
	in := Record{
		Response:       true,
		SenderPID:      4242,
		Mask:           MaskRateLimit | MaskFormat,
		RateLimit:      12345,
		Name:           "upload",
		Format:         "%N %b %r",
		ExtraDisplay:   "window",
		ElapsedSeconds: 12.5,
		Transferred:    9999,
		QuerySize:      20000,
	}
	buf := in.Marshal()
	out, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", out, in)
	}
}

func TestRecordRoundTripTruncatesLongStrings(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	in := Record{Name: string(long)}
	out, err := Unmarshal(in.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(out.Name) != maxStringField {
		t.Errorf("Name length = %d, want %d", len(out.Name), maxStringField)
	}
}
