package display

import (
	"strings"
	"testing"
	"time"
)

func TestParseBasicTemplate(t *testing.T) {
	segs := Parse("%N %t %b %r %p %e")
	if len(segs) == 0 {
		t.Fatal("expected segments")
	}
	var kinds []Kind
	for _, s := range segs {
		if s.Kind != KindLiteral {
			kinds = append(kinds, s.Kind)
		}
	}
	want := []Kind{KindName, KindTimer, KindBytes, KindRate, KindProgress, KindETA}
	if len(kinds) != len(want) {
		t.Fatalf("got %d formatter segments, want %d: %v", len(kinds), len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("segment %d kind = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestParsePercentEscape(t *testing.T) {
	segs := Parse("100%% done")
	if len(segs) != 1 || segs[0].Kind != KindLiteral || segs[0].Literal != "100% done" {
		t.Fatalf("unexpected parse: %+v", segs)
	}
}

func TestParseUnknownBraceIsLiteral(t *testing.T) {
	segs := Parse("%{bogus}")
	if len(segs) != 1 || segs[0].Kind != KindLiteral || segs[0].Literal != "%{bogus}" {
		t.Fatalf("unexpected parse: %+v", segs)
	}
}

func TestParseFixedWidth(t *testing.T) {
	segs := Parse("%16A")
	if len(segs) != 1 || segs[0].Kind != KindLastWritten || segs[0].FixedWidth != 16 {
		t.Fatalf("unexpected parse: %+v", segs)
	}
}

func TestNumericModeDigitsOnly(t *testing.T) {
	s := NewState("%t %b %r", true, false)
	ctx := Context{Elapsed: 5 * time.Second, Transferred: 1024, InstantRate: 12.5}
	line := Render(s, ctx)
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("numeric line must end with newline, got %q", line)
	}
	for _, r := range strings.TrimSuffix(line, "\n") {
		if !(r >= '0' && r <= '9') && r != ' ' && r != '.' && r != '-' {
			t.Fatalf("numeric mode emitted non-numeric rune %q in %q", r, line)
		}
	}
}

func TestRenderBarWidths(t *testing.T) {
	for _, style := range []BarStyle{BarPlain, BarBlock, BarGranular, BarShaded} {
		bar := RenderBar(style, 20, 0.5)
		if bar == "" {
			t.Errorf("style %s produced empty bar", style.Name)
		}
		if n := len([]rune(bar)); n != 20 {
			t.Errorf("style %s produced %d cells, want 20", style.Name, n)
		}
	}
}

func TestSGRResetAppendedWhenActive(t *testing.T) {
	s := NewState("%{sgr:bold,fg-red}hello", false, false)
	s.Flags.ColourPermitted = true
	s.Width = 40
	line := Render(s, Context{})
	if !strings.HasSuffix(line, SGRReset) {
		t.Errorf("expected trailing reset, got %q", line)
	}
}

func TestFoldedSawtoothStaysWithinBarWidth(t *testing.T) {
	bar := RenderSawtoothBar(BarPlain, 10, 50)
	if len([]rune(bar)) > 10 {
		t.Errorf("sawtooth bar exceeded requested width: %q", bar)
	}
}
