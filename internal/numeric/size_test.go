package numeric

import "testing"

func TestParseSizeBinary(t *testing.T) {
	cases := map[string]int64{
		"512":   512,
		"1K":    1024,
		"4M":    4 * 1024 * 1024,
		"1G":    1024 * 1024 * 1024,
		"1.5K":  1536,
		"":      0,
		"bogus": 0,
	}
	for in, want := range cases {
		if got := ParseSize(in, false); got != want {
			t.Errorf("ParseSize(%q, false) = %d, want %d", in, got, want)
		}
	}
}

func TestParseSizeDecimal(t *testing.T) {
	if got := ParseSize("1M", true); got != 1000*1000 {
		t.Errorf("ParseSize(1M, decimal) = %d, want %d", got, 1000*1000)
	}
}

func TestClampInterval(t *testing.T) {
	if got := ClampInterval(0.01); got != 0.1 {
		t.Errorf("ClampInterval(0.01) = %v, want 0.1", got)
	}
	if got := ClampInterval(999); got != 600 {
		t.Errorf("ClampInterval(999) = %v, want 600", got)
	}
	if got := ClampInterval(5); got != 5 {
		t.Errorf("ClampInterval(5) = %v, want 5", got)
	}
}

func TestClampWidth(t *testing.T) {
	if got := ClampWidth(0); got != 0 {
		t.Errorf("ClampWidth(0) = %d, want 0 (auto)", got)
	}
	if got := ClampWidth(5_000_000); got != 999999 {
		t.Errorf("ClampWidth(5000000) = %d, want 999999", got)
	}
}

func TestFoldSawtooth(t *testing.T) {
	if got := FoldSawtooth(50); got != 50 {
		t.Errorf("FoldSawtooth(50) = %v, want 50", got)
	}
	if got := FoldSawtooth(150); got != 50 {
		t.Errorf("FoldSawtooth(150) = %v, want 50", got)
	}
}

func TestParseIntervalString(t *testing.T) {
	if got := ParseIntervalString("1,5"); got != 1.5 {
		t.Errorf("ParseIntervalString(1,5) = %v, want 1.5", got)
	}
	if got := ParseIntervalString("0.1"); got != 0.1 {
		t.Errorf("ParseIntervalString(0.1) = %v, want 0.1", got)
	}
}
