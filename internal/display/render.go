package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/AD-iOS/pv/internal/numeric"
)

// maxPad is the most spaces Render will append to erase a shorter line,
// per spec.md §4.2.
const maxPad = 15

// Render produces one refresh line from the parsed segments and the
// current transfer context, following the two-pass layout algorithm of
// spec.md §4.2: a fixed pass renders literals and fixed-width
// formatters, then the remaining width is split equally among elastic
// formatters.
func Render(s *State, ctx Context) string {
	if s.NumericMode {
		return renderNumeric(s, ctx)
	}

	rendered := make([]string, len(s.Segments))
	staticWidth := 0
	var elasticIdx []int

	for i, seg := range s.Segments {
		if seg.Kind == KindLiteral {
			rendered[i] = seg.Literal
			staticWidth += displayWidth(seg.Literal)
			continue
		}
		if seg.Kind.Elastic() {
			if seg.FixedWidth == 0 {
				elasticIdx = append(elasticIdx, i)
				continue
			}
			text := renderElastic(seg, ctx, seg.FixedWidth, s.Flags.ColourPermitted)
			rendered[i] = text
			staticWidth += displayWidth(text)
			continue
		}
		text := renderFixed(seg, ctx, s.Flags.ColourPermitted)
		rendered[i] = text
		staticWidth += displayWidth(text)
	}

	width := s.Width
	if width <= 0 {
		width = 80
	}
	elastic := width - staticWidth
	if elastic < 0 {
		elastic = 0
	}
	if len(elasticIdx) > 0 {
		each := elastic / len(elasticIdx)
		for _, i := range elasticIdx {
			w := each
			if seg := s.Segments[i]; seg.FixedWidth > 0 {
				w = seg.FixedWidth
			}
			rendered[i] = renderElastic(s.Segments[i], ctx, w, s.Flags.ColourPermitted)
		}
	}

	var b strings.Builder
	sgrActive := false
	for i, seg := range s.Segments {
		b.WriteString(rendered[i])
		if seg.Kind == KindSGR && s.Flags.ColourPermitted {
			code := ParseSGR(seg.Arg)
			sgrActive = code != "" && !strings.Contains(seg.Arg, "reset")
		}
	}
	if sgrActive {
		b.WriteString(SGRReset)
	}

	out := b.String()
	out = padToErase(out, s.PreviousLine)
	s.PreviousLine = out
	return out
}

// padToErase implements "if the new rendered display width is shorter
// than the previous one, pad with up to 15 spaces" (spec.md §4.2).
func padToErase(current, previous string) string {
	cw := displayWidth(current)
	pw := displayWidth(previous)
	if pw > cw {
		pad := pw - cw
		if pad > maxPad {
			pad = maxPad
		}
		return current + strings.Repeat(" ", pad)
	}
	return current
}

func renderFixed(seg Segment, ctx Context, colorOK bool) string {
	switch seg.Kind {
	case KindTimer:
		if ctx.FinalUpdate {
			return strings.Repeat(" ", 8)
		}
		return numeric.FormatDuration(ctx.Elapsed)
	case KindETA:
		if ctx.FinalUpdate {
			return strings.Repeat(" ", 8)
		}
		return numeric.FormatDuration(ctx.ETA)
	case KindFinETA:
		return formatFinETA(ctx)
	case KindRate:
		return numeric.Rate(ctx.InstantRate, ctx.DecimalUnits, ctx.ReportBits)
	case KindAverageRate:
		return numeric.Rate(ctx.AverageRate, ctx.DecimalUnits, ctx.ReportBits)
	case KindBytes:
		if ctx.LineMode {
			return fmt.Sprintf("%d", ctx.Transferred)
		}
		return numeric.Bytes(ctx.Transferred, ctx.DecimalUnits, ctx.ReportBits)
	case KindBufferPercent:
		return fmt.Sprintf("%3.0f%%", ctx.BufferPct)
	case KindLastWritten:
		return previewTail(ctx.LastWritten, seg.FixedWidth)
	case KindName:
		w := seg.FixedWidth
		if w > 0 && len(ctx.Name) > w {
			return ctx.Name[:w]
		}
		return ctx.Name
	case KindProgressAmountOnly:
		return progressAmount(ctx)
	case KindSGR:
		if !colorOK {
			return ""
		}
		return ParseSGR(seg.Arg)
	default:
		return ""
	}
}

func renderElastic(seg Segment, ctx Context, width int, colorOK bool) string {
	switch seg.Kind {
	case KindProgress:
		bar := RenderBar(StyleByName(pickStyle(ctx)), width-6, fractionOf(ctx))
		if ctx.Size > 0 || ctx.RateGauge {
			return fmt.Sprintf("%s %3.0f%%", bar, ctx.Percentage)
		}
		return RenderSawtoothBar(StyleByName(pickStyle(ctx)), width, numeric.FoldSawtooth(ctx.Percentage))
	case KindProgressBarOnly:
		return drawBar(StyleByName(pickStyle(ctx)), width, ctx)
	case KindBarPlain:
		return drawBar(BarPlain, width, ctx)
	case KindBarBlock:
		return drawBar(BarBlock, width, ctx)
	case KindBarGranular:
		return drawBar(BarGranular, width, ctx)
	case KindBarShaded:
		return drawBar(BarShaded, width, ctx)
	case KindPreviousLine:
		s := string(ctx.PreviousLine)
		if len(s) > width {
			return s[:width]
		}
		return s
	default:
		return strings.Repeat(" ", width)
	}
}

func drawBar(style BarStyle, width int, ctx Context) string {
	if ctx.Size > 0 || ctx.RateGauge {
		return RenderBar(style, width, fractionOf(ctx))
	}
	return RenderSawtoothBar(style, width, numeric.FoldSawtooth(ctx.Percentage))
}

func pickStyle(ctx Context) string {
	if ctx.BarStyleName == "" {
		return "plain"
	}
	return ctx.BarStyleName
}

func fractionOf(ctx Context) float64 {
	if ctx.RateGauge && ctx.MaxRate > 0 {
		return ctx.InstantRate / ctx.MaxRate
	}
	return ctx.Percentage / 100
}

func progressAmount(ctx Context) string {
	if ctx.Size > 0 {
		return fmt.Sprintf("%3.0f%%", ctx.Percentage)
	}
	return numeric.Bytes(ctx.Transferred, ctx.DecimalUnits, ctx.ReportBits)
}

func previewTail(tail []byte, width int) string {
	if width <= 0 {
		width = 16
	}
	s := string(tail)
	// strip embedded newlines so the tail doesn't wrap the refresh line
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > width {
		s = s[len(s)-width:]
	}
	return s
}

func formatFinETA(ctx Context) string {
	finAt := ctx.FinAt
	if ctx.ETA > 6*time.Hour {
		return finAt.Format("Jan _2 15:04:05")
	}
	return finAt.Format("15:04:05")
}

// displayWidth measures column width for padding/layout purposes. No
// wcswidth equivalent is available from the pack (SPEC_FULL.md §11), so
// this counts code points after stripping SGR sequences: a wide (e.g.
// CJK) character counts as one column. ASCII text (the overwhelming
// common case for format strings and SGR-wrapped numbers) measures
// exactly.
func displayWidth(s string) int {
	return len([]rune(stripSGR(s)))
}

func stripSGR(s string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			i = j + 1
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
